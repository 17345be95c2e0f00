package game

import (
	"encoding/json"
	"fmt"

	"github.com/Dosada05/pong-arena/models"
)

// Envelope is the wire frame for both directions: a type tag and a payload
// decoded exactly once at the boundary.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound event types.
const (
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventPaddleMove    = "paddle_move"
	EventRequestPause  = "request_pause"
	EventRequestResume = "request_resume"
	EventRequestReset  = "request_reset"
)

// Outbound event types.
const (
	EventRoomState     = "room_state"
	EventMatchStart    = "match_start"
	EventMatchTick     = "match_tick"
	EventMatchEnd      = "match_end"
	EventSpectatorMode = "spectator_mode"
	EventRoomFull      = "room_full"
	EventError         = "error"
)

type JoinRoomPayload struct {
	RoomKey       string               `json:"room_key"`
	RequestedSide *models.Side         `json:"requested_side,omitempty"`
	SpeedProfile  *models.SpeedProfile `json:"speed_profile,omitempty"`
	Spectate      bool                 `json:"spectate,omitempty"`
}

type PaddleMovePayload struct {
	Direction int `json:"direction"` // -1 up, 0 stop, 1 down
}

// InboundEvent is the decoded form of a client frame: exactly one payload
// field is set, matched on Type by the engine.
type InboundEvent struct {
	Type       string
	Join       *JoinRoomPayload
	PaddleMove *PaddleMovePayload
}

// DecodeInbound parses a raw client frame into a typed event. Unknown types
// and malformed payloads are rejected here so the engine never sees them.
func DecodeInbound(raw []byte) (*InboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}
	ev := &InboundEvent{Type: env.Type}
	switch env.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		if p.RoomKey == "" {
			return nil, fmt.Errorf("%s requires a room_key", env.Type)
		}
		if p.RequestedSide != nil && *p.RequestedSide != models.SideLeft && *p.RequestedSide != models.SideRight {
			return nil, fmt.Errorf("invalid requested side %q", *p.RequestedSide)
		}
		if p.SpeedProfile != nil && !p.SpeedProfile.Valid() {
			return nil, fmt.Errorf("invalid speed profile %q", *p.SpeedProfile)
		}
		ev.Join = &p
	case EventPaddleMove:
		var p PaddleMovePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		if p.Direction < -1 || p.Direction > 1 {
			return nil, fmt.Errorf("paddle direction must be -1, 0 or 1")
		}
		ev.PaddleMove = &p
	case EventLeaveRoom, EventRequestPause, EventRequestResume, EventRequestReset:
		// No payload.
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	return ev, nil
}

// encodeEvent marshals an outbound event into a wire frame.
func encodeEvent(eventType string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: eventType, Data: raw})
}

// SlotState is the public view of one player slot in room_state.
type SlotState struct {
	Side      models.Side `json:"side"`
	Occupied  bool        `json:"occupied"`
	Connected bool        `json:"connected"`
	Name      string      `json:"name,omitempty"`
}

type RoomStatePayload struct {
	RoomKey      string              `json:"room_key"`
	Status       models.RoomStatus   `json:"status"`
	SpeedProfile models.SpeedProfile `json:"speed_profile"`
	Slots        []SlotState         `json:"slots"`
	Spectators   int                 `json:"spectators"`
}

type BallState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

type MatchTickPayload struct {
	Ball    BallState  `json:"ball"`
	Paddles [2]float64 `json:"paddles"` // top y of left, right
	Scores  [2]int     `json:"scores"`  // left, right
}

type MatchEndPayload struct {
	WinnerSide models.Side `json:"winner_side"`
	Scores     [2]int      `json:"scores"`
}

type ErrorPayload struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}
