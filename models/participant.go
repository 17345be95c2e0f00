package models

import (
	"fmt"
	"time"
)

// Participant is a tournament entrant: either a registered user (UserID set)
// or a guest identified by an alias unique within the tournament. Identity is
// immutable after creation; FinalRank is set once the participant is placed.
type Participant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       *int      `json:"user_id,omitempty" db:"user_id"`
	GuestAlias   *string   `json:"guest_alias,omitempty" db:"guest_alias"`
	FinalRank    *int      `json:"final_rank,omitempty" db:"final_rank"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DisplayName returns the alias for guests or a stable label for users.
func (p *Participant) DisplayName() string {
	if p.GuestAlias != nil && *p.GuestAlias != "" {
		return *p.GuestAlias
	}
	if p.UserID != nil {
		return fmt.Sprintf("user-%d", *p.UserID)
	}
	return fmt.Sprintf("participant-%d", p.ID)
}
