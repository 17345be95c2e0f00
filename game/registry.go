package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Dosada05/pong-arena/models"
)

// Registry owns the set of active rooms. It only guards the room index;
// every room serializes its own state, so unrelated rooms never contend.
type Registry struct {
	dir  MatchDirectory
	sink ResultSink
	log  *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room

	generation atomic.Uint64
}

func NewRegistry(dir MatchDirectory, sink ResultSink, log *slog.Logger) *Registry {
	if dir == nil {
		dir = NopDirectory{}
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Registry{
		dir:   dir,
		sink:  sink,
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// NextGeneration stamps a new connection. Stamps increase monotonically, so
// the room layer can tell a reconnecting client from a stale one.
func (reg *Registry) NextGeneration() uint64 {
	return reg.generation.Add(1)
}

// Room returns the live room for key, or nil.
func (reg *Registry) Room(key string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[key]
}

// RoomCount reports how many rooms are live.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Join places the connection in the room named by roomKey, creating the room
// on first join. Room creation consults the match directory: a key bound to
// a tournament match inherits the tournament's speed profile and restricts
// paddles to the match participants. For standalone rooms the first joiner's
// requested profile sticks for the room's lifetime.
func (reg *Registry) Join(ctx context.Context, roomKey string, conn Conn, payload JoinRoomPayload) (*Room, JoinResult, error) {
	if conn.Identity().IsZero() {
		return nil, JoinResult{}, fmt.Errorf("connection has no resolved identity")
	}

	room := reg.Room(roomKey)
	if room == nil {
		// Directory lookup may hit storage; never hold the index lock
		// across it.
		binding, err := reg.dir.Binding(ctx, roomKey)
		if err != nil {
			return nil, JoinResult{}, fmt.Errorf("resolving room %s: %w", roomKey, err)
		}
		profile := models.SpeedNormal
		if payload.SpeedProfile != nil {
			profile = *payload.SpeedProfile
		}
		room = reg.getOrCreate(roomKey, binding, profile)
	}

	result, err := room.Join(conn, payload.RequestedSide, payload.Spectate)
	if err != nil {
		return nil, JoinResult{}, err
	}
	return room, result, nil
}

func (reg *Registry) getOrCreate(key string, binding *RoomBinding, profile models.SpeedProfile) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.rooms[key]; ok {
		return existing
	}
	room := newRoom(key, binding, profile, reg.sink, reg.log, reg.remove)
	reg.rooms[key] = room
	reg.log.Info("room created",
		slog.String("room", key),
		slog.String("profile", string(room.profile)),
		slog.Bool("tournament_bound", binding != nil))
	return room
}

func (reg *Registry) remove(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[room.key] == room {
		delete(reg.rooms, room.key)
	}
}

// Shutdown destroys every room; used on process exit so no timer or tick
// loop leaks past the server.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()
	for _, r := range rooms {
		r.Destroy()
	}
}
