package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// Client is one websocket connection with a resolved identity. It implements
// Conn for the room layer; outbound frames go through a buffered send
// channel drained by WritePump, so room broadcasts never block on the
// network.
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	identity Identity
	gen      uint64
	send     chan []byte
	log      *slog.Logger

	mu     sync.Mutex
	room   *Room
	closed bool
}

func NewClient(registry *Registry, conn *websocket.Conn, identity Identity, log *slog.Logger) *Client {
	return &Client{
		registry: registry,
		conn:     conn,
		identity: identity,
		gen:      registry.NextGeneration(),
		send:     make(chan []byte, sendBufferSize),
		log:      log.With(slog.String("identity", identity.Key)),
	}
}

func (c *Client) Identity() Identity { return c.identity }

func (c *Client) Generation() uint64 { return c.gen }

// Send enqueues a frame without blocking; a full buffer drops the frame so a
// slow client only hurts itself.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) currentRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

func (c *Client) sendEvent(eventType string, data any) {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		c.log.Error("failed to encode event", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	c.Send(frame)
}

// ReadPump reads and dispatches inbound events until the socket dies, then
// detaches the connection from its room. The slot itself stays reserved so
// the identity can reconnect.
func (c *Client) ReadPump() {
	defer func() {
		if room := c.currentRoom(); room != nil {
			room.Disconnect(c)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}
		event, err := DecodeInbound(raw)
		if err != nil {
			c.sendEvent(EventError, ErrorPayload{Kind: "bad_request", Detail: err.Error()})
			continue
		}
		c.dispatch(event)
	}
}

func (c *Client) dispatch(event *InboundEvent) {
	switch event.Type {
	case EventJoinRoom:
		c.handleJoin(event.Join)
	case EventLeaveRoom:
		if room := c.currentRoom(); room != nil {
			room.Leave(c)
			c.setRoom(nil)
		}
	case EventPaddleMove:
		if room := c.currentRoom(); room != nil {
			room.SetInput(c, event.PaddleMove.Direction)
		}
	case EventRequestPause:
		if room := c.currentRoom(); room != nil {
			room.Pause(c)
		}
	case EventRequestResume:
		if room := c.currentRoom(); room != nil {
			room.Resume(c)
		}
	case EventRequestReset:
		if room := c.currentRoom(); room != nil {
			room.Reset(c)
		}
	}
}

func (c *Client) handleJoin(payload *JoinRoomPayload) {
	if c.currentRoom() != nil {
		c.sendEvent(EventError, ErrorPayload{Kind: "already_joined", Detail: "leave the current room first"})
		return
	}
	room, result, err := c.registry.Join(context.Background(), payload.RoomKey, c, *payload)
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			c.sendEvent(EventRoomFull, nil)
			return
		}
		c.sendEvent(EventError, ErrorPayload{Kind: "join_failed", Detail: err.Error()})
		return
	}
	c.setRoom(room)
	c.log.Info("joined room",
		slog.String("room", payload.RoomKey),
		slog.String("role", string(result.Role)),
		slog.String("side", string(result.Side)))
}

// Join places the client into a room as if a join_room event had arrived.
// Used by URL-addressed websocket endpoints where the room key is part of
// the path.
func (c *Client) Join(payload JoinRoomPayload) {
	c.handleJoin(&payload)
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("websocket write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
