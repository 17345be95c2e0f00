package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusForfeit   MatchStatus = "forfeit"
)

// BracketSection places a match inside a double-elimination bracket.
// Single elimination and round robin use only SectionMain.
type BracketSection string

const (
	SectionMain       BracketSection = "main"
	SectionLosers     BracketSection = "losers"
	SectionGrandFinal BracketSection = "grand_final"
)

// Match is one bracket node. Participant slots are nil until populated by
// advancement; Score and Winner are set exactly once, when the match
// completes.
type Match struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	Section      BracketSection `json:"section" db:"section"`
	Round        int            `json:"round" db:"round"`
	MatchNumber  int            `json:"match_number" db:"match_number"`
	BracketUID   string         `json:"bracket_uid" db:"bracket_uid"`

	Participant1ID *int `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID *int `json:"participant2_id,omitempty" db:"participant2_id"`

	Status   MatchStatus `json:"status" db:"status"`
	WinnerID *int        `json:"winner_id,omitempty" db:"winner_id"`
	Score1   *int        `json:"score1,omitempty" db:"score1"`
	Score2   *int        `json:"score2,omitempty" db:"score2"`

	// Routing links computed at generation time: where the winner (and, in
	// double elimination, the loser) of this match is placed next.
	NextMatchUID  *string `json:"next_match_uid,omitempty" db:"next_match_uid"`
	NextSlot      *int    `json:"next_slot,omitempty" db:"next_slot"`
	LoserMatchUID *string `json:"loser_match_uid,omitempty" db:"loser_match_uid"`
	LoserSlot     *int    `json:"loser_slot,omitempty" db:"loser_slot"`

	// IsBye marks a match with a single entrant that completes automatically
	// as soon as that entrant is known.
	IsBye bool `json:"is_bye" db:"is_bye"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Optional linked data, populated by the service layer.
	Participant1 *Participant `json:"participant1,omitempty" db:"-"`
	Participant2 *Participant `json:"participant2,omitempty" db:"-"`
}

// HasParticipant reports whether id occupies one of the two slots.
func (m *Match) HasParticipant(id int) bool {
	return (m.Participant1ID != nil && *m.Participant1ID == id) ||
		(m.Participant2ID != nil && *m.Participant2ID == id)
}

// Ready reports whether both slots are filled so the match can go active.
func (m *Match) Ready() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}

// LoserParticipant returns the losing side of a decided two-entrant match.
func (m *Match) LoserParticipant() (int, bool) {
	if m.WinnerID == nil || m.Participant1ID == nil || m.Participant2ID == nil {
		return 0, false
	}
	if *m.WinnerID == *m.Participant1ID {
		return *m.Participant2ID, true
	}
	return *m.Participant1ID, true
}
