package models

import "time"

// TournamentType selects the bracket shape generated at start time.
type TournamentType string

const (
	TypeSingleElimination TournamentType = "single_elimination"
	TypeDoubleElimination TournamentType = "double_elimination"
	TypeRoundRobin        TournamentType = "round_robin"
)

func (t TournamentType) Valid() bool {
	switch t {
	case TypeSingleElimination, TypeDoubleElimination, TypeRoundRobin:
		return true
	}
	return false
}

// TournamentStatus transitions forward-only, except the jump to canceled.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Type            TournamentType   `json:"type" db:"type"`
	Status          TournamentStatus `json:"status" db:"status"`
	SpeedProfile    SpeedProfile     `json:"speed_profile" db:"speed_profile"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	// Related entities, loaded on demand.
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}

// CanTransitionTo enforces the forward-only status machine.
func (t *Tournament) CanTransitionTo(next TournamentStatus) bool {
	switch t.Status {
	case StatusRegistration:
		return next == StatusActive || next == StatusCanceled
	case StatusActive:
		return next == StatusCompleted || next == StatusCanceled
	default:
		return false
	}
}
