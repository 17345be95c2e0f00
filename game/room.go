package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/pong-arena/models"
)

var (
	ErrRoomFull     = errors.New("room already has two players")
	ErrRoomFinished = errors.New("room is finished")
)

// startDelay is the fixed gap between the second player joining and the
// simulation starting, so both clients can render a starting indicator.
const startDelay = 3 * time.Second

// resultTimeout bounds how long an async result report may take.
const resultTimeout = 10 * time.Second

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Conn is one live connection as the room sees it. Send must never block;
// it reports false when the frame was dropped.
type Conn interface {
	Send(frame []byte) bool
	Close() error
	Identity() Identity
	Generation() uint64
}

// slot is one paddle assignment. The identity reservation survives
// disconnects; only an explicit leave vacates it.
type slot struct {
	identity Identity
	ref      *ParticipantRef // nil in standalone rooms
	conn     Conn            // nil while disconnected
	gen      uint64
}

// Room hosts one match: two player slots, any number of spectators, the
// authoritative simulation, and the lifecycle state machine
// waiting → ready → playing ⇄ paused → finished. Each room's tick loop is an
// independent sequential actor; it mutates only this room's state.
type Room struct {
	key     string
	binding *RoomBinding
	profile models.SpeedProfile
	sink    ResultSink
	log     *slog.Logger
	onEmpty func(*Room)

	mu         sync.Mutex
	status     models.RoomStatus
	slots      [2]*slot // indexed by sideIndex
	spectators map[Conn]struct{}
	sim        *simState
	rng        *rand.Rand
	loopCancel context.CancelFunc
	startTimer *time.Timer
	reported   bool
	destroyed  bool
}

func newRoom(key string, binding *RoomBinding, profile models.SpeedProfile, sink ResultSink, log *slog.Logger, onEmpty func(*Room)) *Room {
	if binding != nil {
		profile = binding.SpeedProfile
	}
	if !profile.Valid() {
		profile = models.SpeedNormal
	}
	return &Room{
		key:        key,
		binding:    binding,
		profile:    profile,
		sink:       sink,
		log:        log.With(slog.String("room", key)),
		onEmpty:    onEmpty,
		status:     models.RoomWaiting,
		spectators: make(map[Conn]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Room) Key() string { return r.key }

func (r *Room) Status() models.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// JoinResult tells the caller what the connection became.
type JoinResult struct {
	Role Role
	Side models.Side
}

// Join places a connection in the room. An identity already holding a slot
// reconnects: the stored connection handle is swapped for the newer one and
// the previously assigned side and role are preserved, whatever side the
// client asked for this time. In a tournament-bound room only the two match
// participants get paddles; everyone else is seated as a spectator.
func (r *Room) Join(conn Conn, requestedSide *models.Side, spectate bool) (JoinResult, error) {
	identity := conn.Identity()

	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return JoinResult{}, ErrRoomFinished
	}

	// Reconnection: same identity, newer connection.
	for i, s := range r.slots {
		if s == nil || s.identity.Key != identity.Key {
			continue
		}
		if conn.Generation() < s.gen {
			r.mu.Unlock()
			return JoinResult{}, errors.New("stale connection generation")
		}
		old := s.conn
		s.conn = conn
		s.gen = conn.Generation()
		side := sideIndex(i).side()
		r.broadcastLocked(EventRoomState, r.statePayloadLocked())
		r.mu.Unlock()
		if old != nil && old != conn {
			old.Close()
		}
		return JoinResult{Role: RolePlayer, Side: side}, nil
	}

	asSpectator := spectate
	var ref *ParticipantRef
	if r.binding != nil {
		// Authorization: anyone who is not a match participant may watch
		// but never holds a paddle.
		switch {
		case r.binding.Participant1.Matches(identity):
			p := r.binding.Participant1
			ref = &p
		case r.binding.Participant2.Matches(identity):
			p := r.binding.Participant2
			ref = &p
		default:
			asSpectator = true
		}
	}

	if !asSpectator && r.slots[left] != nil && r.slots[right] != nil {
		r.mu.Unlock()
		return JoinResult{}, ErrRoomFull
	}

	if asSpectator {
		r.spectators[conn] = struct{}{}
		state := r.statePayloadLocked()
		r.broadcastLocked(EventRoomState, state)
		r.mu.Unlock()
		if frame, err := encodeEvent(EventSpectatorMode, nil); err == nil {
			conn.Send(frame)
		}
		return JoinResult{Role: RoleSpectator}, nil
	}

	side := r.assignSideLocked(requestedSide)
	r.slots[side] = &slot{identity: identity, ref: ref, conn: conn, gen: conn.Generation()}
	r.log.Info("player joined",
		slog.String("identity", identity.Key),
		slog.String("side", string(side.side())))

	if r.slots[left] != nil && r.slots[right] != nil && r.status == models.RoomWaiting {
		r.setReadyLocked()
	}
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	r.mu.Unlock()
	return JoinResult{Role: RolePlayer, Side: side.side()}, nil
}

// assignSideLocked grants the requested side when free, the other side when
// taken, or assigns by arrival order.
func (r *Room) assignSideLocked(requested *models.Side) sideIndex {
	if requested != nil {
		want := left
		if *requested == models.SideRight {
			want = right
		}
		if r.slots[want] == nil {
			return want
		}
		return other(want)
	}
	if r.slots[left] == nil {
		return left
	}
	return right
}

func other(i sideIndex) sideIndex {
	if i == left {
		return right
	}
	return left
}

// setReadyLocked fires the waiting→ready transition and schedules the
// automatic ready→playing start.
func (r *Room) setReadyLocked() {
	r.status = models.RoomReady
	r.startTimer = time.AfterFunc(startDelay, r.beginPlay)
	r.log.Info("room ready", slog.Duration("start_delay", startDelay))
}

// beginPlay runs the ready→playing transition: initialize the simulation
// from the speed profile and start the tick loop.
func (r *Room) beginPlay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != models.RoomReady || r.destroyed {
		return
	}
	r.sim = newSimState(r.profile, r.rng)
	r.status = models.RoomPlaying
	r.broadcastLocked(EventMatchStart, r.sim.snapshot())
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	r.startLoopLocked()
}

func (r *Room) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	r.loopCancel = cancel
	go r.run(ctx)
}

func (r *Room) stopLoopLocked() {
	if r.loopCancel != nil {
		r.loopCancel()
		r.loopCancel = nil
	}
}

// run is the per-room tick loop. It exits deterministically on context
// cancellation or when a tick reports the room no longer playing.
func (r *Room) run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.tick() {
				return
			}
		}
	}
}

// tick advances the simulation one step and broadcasts the resulting state.
// A panic inside the step is caught here: the room is forced to paused with
// its state intact, occupants get a generic diagnostic, and the loop stops
// until an explicit resume. One room's fault never reaches the process.
func (r *Room) tick() (cont bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("physics tick failed, pausing room", slog.Any("panic", p))
			r.stopLoopLocked()
			r.status = models.RoomPaused
			r.broadcastLocked(EventError, ErrorPayload{Kind: "match_paused"})
			r.broadcastLocked(EventRoomState, r.statePayloadLocked())
			cont = false
		}
	}()

	if r.status != models.RoomPlaying || r.sim == nil {
		return false
	}
	out := r.sim.step(1.0 / TickRate)
	r.broadcastLocked(EventMatchTick, r.sim.snapshot())
	if out.Finished {
		r.finishLocked(out.Winner, false)
		return false
	}
	return true
}

// finishLocked runs the terminal transition and emits the result exactly
// once. Persistence runs asynchronously so a slow sink never stalls the
// caller, and a failed write never withholds the outcome from clients.
func (r *Room) finishLocked(winner models.Side, forfeit bool) {
	if r.status == models.RoomFinished {
		return
	}
	r.stopLoopLocked()
	r.status = models.RoomFinished

	var scores [2]int
	if r.sim != nil {
		scores = r.sim.Scores
	}
	r.broadcastLocked(EventMatchEnd, MatchEndPayload{WinnerSide: winner, Scores: scores})
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())

	if r.reported {
		return
	}
	r.reported = true

	result := MatchResult{
		RoomKey:    r.key,
		WinnerSide: winner,
		ScoreLeft:  scores[left],
		ScoreRight: scores[right],
		Forfeit:    forfeit,
	}
	if r.binding != nil {
		result.MatchUID = r.binding.MatchUID
		result.TournamentID = r.binding.TournamentID
	}
	winIdx := left
	if winner == models.SideRight {
		winIdx = right
	}
	if s := r.slots[winIdx]; s != nil && s.ref != nil {
		result.WinnerParticipantID = s.ref.ID
	}
	go r.report(result)
}

func (r *Room) report(result MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), resultTimeout)
	defer cancel()
	if err := r.sink.MatchFinished(ctx, result); err != nil {
		// The in-memory outcome already reached the clients; storage
		// failures are surfaced in the log only.
		r.log.Error("failed to persist match result",
			slog.String("match_uid", result.MatchUID),
			slog.Any("error", err))
	}
}

// SetInput records paddle input for the connection's side. Input from
// spectators, stale connections, or outside the playing state changes
// nothing.
func (r *Room) SetInput(conn Conn, direction int) {
	if direction < -1 || direction > 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != models.RoomPlaying || r.sim == nil {
		return
	}
	for i, s := range r.slots {
		if s != nil && s.conn == conn {
			r.sim.PaddleDir[i] = float64(direction)
			return
		}
	}
}

// Pause freezes the simulation without resetting it. Only current players
// may pause.
func (r *Room) Pause(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isPlayerLocked(conn) || r.status != models.RoomPlaying {
		return
	}
	r.stopLoopLocked()
	r.status = models.RoomPaused
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	r.log.Info("room paused", slog.String("by", conn.Identity().Key))
}

// Resume restarts the tick loop from the frozen state.
func (r *Room) Resume(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isPlayerLocked(conn) || r.status != models.RoomPaused {
		return
	}
	r.status = models.RoomPlaying
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	r.startLoopLocked()
	r.log.Info("room resumed", slog.String("by", conn.Identity().Key))
}

// Reset re-initializes the simulation and, when both players are still
// present, re-arms the automatic start.
func (r *Room) Reset(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isPlayerLocked(conn) {
		return
	}
	r.stopLoopLocked()
	if r.startTimer != nil {
		r.startTimer.Stop()
		r.startTimer = nil
	}
	r.sim = nil
	r.reported = false
	r.status = models.RoomWaiting
	if r.slots[left] != nil && r.slots[right] != nil {
		r.setReadyLocked()
	}
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
}

// Leave vacates the connection's seat. A player abandoning an in-progress
// tournament match forfeits it to the opponent. The room is destroyed when
// nobody is left.
func (r *Room) Leave(conn Conn) {
	r.mu.Lock()
	if _, ok := r.spectators[conn]; ok {
		delete(r.spectators, conn)
		r.broadcastLocked(EventRoomState, r.statePayloadLocked())
		empty := r.emptyLocked()
		r.mu.Unlock()
		if empty {
			r.Destroy()
		}
		return
	}

	idx := -1
	for i, s := range r.slots {
		if s != nil && s.conn == conn {
			idx = i
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}

	inProgress := r.status == models.RoomPlaying || r.status == models.RoomPaused
	r.slots[idx] = nil
	r.log.Info("player left", slog.String("identity", conn.Identity().Key))

	if inProgress && r.binding != nil && r.slots[other(sideIndex(idx))] != nil {
		r.finishLocked(other(sideIndex(idx)).side(), true)
	} else if r.status == models.RoomReady || r.status == models.RoomWaiting {
		if r.startTimer != nil {
			r.startTimer.Stop()
			r.startTimer = nil
		}
		r.status = models.RoomWaiting
	}
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	empty := r.emptyLocked()
	r.mu.Unlock()
	if empty {
		r.Destroy()
	}
}

// Disconnect detaches a dropped connection while keeping the identity's
// seat reserved for reconnection. The room is destroyed once no live
// connection remains.
func (r *Room) Disconnect(conn Conn) {
	r.mu.Lock()
	if _, ok := r.spectators[conn]; ok {
		delete(r.spectators, conn)
	} else {
		for _, s := range r.slots {
			if s != nil && s.conn == conn {
				s.conn = nil
			}
		}
	}
	r.broadcastLocked(EventRoomState, r.statePayloadLocked())
	empty := r.emptyLocked()
	r.mu.Unlock()
	if empty {
		r.Destroy()
	}
}

func (r *Room) emptyLocked() bool {
	if len(r.spectators) > 0 {
		return false
	}
	for _, s := range r.slots {
		if s != nil && s.conn != nil {
			return false
		}
	}
	return true
}

// Destroy cancels the tick loop and detaches the room from the registry.
func (r *Room) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.stopLoopLocked()
	if r.startTimer != nil {
		r.startTimer.Stop()
		r.startTimer = nil
	}
	r.mu.Unlock()
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
	r.log.Info("room destroyed")
}

func (r *Room) isPlayerLocked(conn Conn) bool {
	for _, s := range r.slots {
		if s != nil && s.conn == conn {
			return true
		}
	}
	return false
}

// PlayerCount returns the number of occupied (possibly disconnected) slots.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Room) statePayloadLocked() RoomStatePayload {
	payload := RoomStatePayload{
		RoomKey:      r.key,
		Status:       r.status,
		SpeedProfile: r.profile,
		Spectators:   len(r.spectators),
	}
	for i, s := range r.slots {
		state := SlotState{Side: sideIndex(i).side()}
		if s != nil {
			state.Occupied = true
			state.Connected = s.conn != nil
			state.Name = s.identity.Key
			if s.identity.Alias != "" {
				state.Name = s.identity.Alias
			}
			if s.ref != nil && s.ref.Name != "" {
				state.Name = s.ref.Name
			}
		}
		payload.Slots = append(payload.Slots, state)
	}
	return payload
}

// broadcastLocked fans an event out to every occupant. Sends are
// non-blocking: a client that cannot keep up drops frames rather than
// stalling the room.
func (r *Room) broadcastLocked(eventType string, data any) {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		r.log.Error("failed to encode event", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	for _, s := range r.slots {
		if s != nil && s.conn != nil {
			s.conn.Send(frame)
		}
	}
	for c := range r.spectators {
		c.Send(frame)
	}
}
