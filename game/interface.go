package game

import (
	"context"

	"github.com/Dosada05/pong-arena/models"
)

// Identity is the durable identity of one connection, resolved before the
// socket reaches the room layer. Key is stable across reconnects:
// "user:<id>" for registered users, "guest:<alias>" for guests.
type Identity struct {
	Key    string
	UserID *int
	Alias  string
}

// IsZero reports whether the identity was never resolved.
func (id Identity) IsZero() bool {
	return id.Key == ""
}

// ParticipantRef is the slice of a tournament participant the room layer
// needs for authorization and display.
type ParticipantRef struct {
	ID         int
	UserID     *int
	GuestAlias *string
	Name       string
}

// Matches reports whether the identity is this participant.
func (p ParticipantRef) Matches(id Identity) bool {
	if p.UserID != nil && id.UserID != nil {
		return *p.UserID == *id.UserID
	}
	if p.GuestAlias != nil {
		return id.UserID == nil && *p.GuestAlias == id.Alias
	}
	return false
}

// RoomBinding ties a room to a tournament match. Bound rooms take their
// speed profile from the tournament, and only the two match participants may
// hold paddles; everyone else spectates.
type RoomBinding struct {
	MatchUID     string
	TournamentID int
	SpeedProfile models.SpeedProfile
	Participant1 ParticipantRef
	Participant2 ParticipantRef
}

// MatchDirectory resolves room keys to tournament matches. A nil binding
// with nil error means the key names a standalone room.
type MatchDirectory interface {
	Binding(ctx context.Context, roomKey string) (*RoomBinding, error)
}

// MatchResult is the terminal outcome of one room, reported exactly once.
type MatchResult struct {
	RoomKey             string
	MatchUID            string // empty for standalone rooms
	TournamentID        int
	WinnerSide          models.Side
	WinnerParticipantID int
	ScoreLeft           int
	ScoreRight          int
	Forfeit             bool
}

// ResultSink persists finished-match results. A failing sink never blocks or
// corrupts the in-memory room; callers log the error and move on.
type ResultSink interface {
	MatchFinished(ctx context.Context, result MatchResult) error
}

// NopDirectory treats every room as standalone.
type NopDirectory struct{}

func (NopDirectory) Binding(ctx context.Context, roomKey string) (*RoomBinding, error) {
	return nil, nil
}

// NopSink discards results.
type NopSink struct{}

func (NopSink) MatchFinished(ctx context.Context, result MatchResult) error {
	return nil
}
