package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/pong-arena/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found in bracket")
	ErrMatchNotActive     = errors.New("match is not active")
	ErrMatchAlreadyScored = errors.New("match already has a recorded result")
	ErrWinnerNotInMatch   = errors.New("winner is not one of the match participants")
	ErrInvalidStatus      = errors.New("invalid terminal match status")
	ErrTournamentFinished = errors.New("tournament is already completed")
)

// Bracket is the in-memory match graph of one tournament. All mutation goes
// through ActivateInitial and ApplyResult; callers persist the matches
// reported back as changed.
type Bracket struct {
	tournamentType models.TournamentType
	matches        []*models.Match
	byUID          map[string]*models.Match
}

func NewBracket(t models.TournamentType, matches []*models.Match) *Bracket {
	byUID := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		byUID[m.BracketUID] = m
	}
	return &Bracket{tournamentType: t, matches: matches, byUID: byUID}
}

func (b *Bracket) Matches() []*models.Match {
	return b.matches
}

// Progress reports what a call to ActivateInitial or ApplyResult changed.
type Progress struct {
	Changed   []*models.Match
	Completed bool
	// FinalRanks maps participant ID to final rank, set once Completed.
	FinalRanks map[int]int
}

func (p *Progress) markChanged(m *models.Match) {
	for _, c := range p.Changed {
		if c == m {
			return
		}
	}
	p.Changed = append(p.Changed, m)
}

// ActivateInitial flips the playable matches of the opening round to active.
// Byes completed at generation time are routed forward first, so a
// participant advanced by a bye can land in an activatable match.
func (b *Bracket) ActivateInitial() *Progress {
	progress := &Progress{}
	for _, m := range b.matches {
		if m.IsBye && m.Status == models.MatchStatusCompleted && m.WinnerID != nil {
			b.route(m, progress)
		}
	}
	b.activateEligible(progress)
	return progress
}

// ApplyResult completes an active match, routes the winner (and loser, in
// double elimination) to their destination slots, cascades through byes, and
// activates any round whose predecessor round has fully completed. Status
// must be completed or forfeit.
func (b *Bracket) ApplyResult(matchUID string, winnerID int, score1, score2 int, status models.MatchStatus) (*Progress, error) {
	m, ok := b.byUID[matchUID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Status == models.MatchStatusCompleted || m.Status == models.MatchStatusForfeit {
		return nil, fmt.Errorf("%w: match %s", ErrMatchAlreadyScored, matchUID)
	}
	if m.Status != models.MatchStatusActive {
		return nil, fmt.Errorf("%w: match %s is %s", ErrMatchNotActive, matchUID, m.Status)
	}
	if !m.HasParticipant(winnerID) {
		return nil, fmt.Errorf("%w: participant %d in match %s", ErrWinnerNotInMatch, winnerID, matchUID)
	}
	if status != models.MatchStatusCompleted && status != models.MatchStatusForfeit {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	progress := &Progress{}
	winner := winnerID
	s1, s2 := score1, score2
	m.Status = status
	m.WinnerID = &winner
	m.Score1 = &s1
	m.Score2 = &s2
	progress.markChanged(m)

	b.route(m, progress)
	b.activateEligible(progress)

	if b.complete() {
		progress.Completed = true
		progress.FinalRanks = b.finalRanks()
	}
	return progress, nil
}

// route places the winner and loser of a terminal match into their
// destination slots and cascades bye auto-completions.
func (b *Bracket) route(m *models.Match, progress *Progress) {
	if m.WinnerID == nil {
		return
	}
	winner := *m.WinnerID
	if m.NextMatchUID != nil && m.NextSlot != nil {
		b.fillSlot(*m.NextMatchUID, *m.NextSlot, winner, progress)
	}
	if m.LoserMatchUID != nil && m.LoserSlot != nil {
		if loser, ok := m.LoserParticipant(); ok {
			b.fillSlot(*m.LoserMatchUID, *m.LoserSlot, loser, progress)
		}
	}
}

func (b *Bracket) fillSlot(uid string, slot int, participantID int, progress *Progress) {
	dest, ok := b.byUID[uid]
	if !ok {
		return
	}
	id := participantID
	if slot == 1 {
		dest.Participant1ID = &id
	} else {
		dest.Participant2ID = &id
	}
	progress.markChanged(dest)

	// A bye completes the instant its single entrant is known.
	if dest.IsBye && dest.Status == models.MatchStatusPending {
		dest.Status = models.MatchStatusCompleted
		dest.WinnerID = &id
		b.route(dest, progress)
	}
}

// activateEligible flips pending matches to active once both slots are
// filled and every match of the preceding round in the same section is
// terminal. Round robin has a single flat round, so everything activates at
// once.
func (b *Bracket) activateEligible(progress *Progress) {
	for _, m := range b.matches {
		if m.Status != models.MatchStatusPending || m.IsBye {
			continue
		}
		if !m.Ready() {
			continue
		}
		if !b.roundComplete(m.Section, m.Round-1) {
			continue
		}
		m.Status = models.MatchStatusActive
		progress.markChanged(m)
	}
}

// roundComplete reports whether every match of the given round in the given
// section is terminal. Round zero has no matches and is trivially complete.
func (b *Bracket) roundComplete(section models.BracketSection, round int) bool {
	if round < 1 {
		return true
	}
	for _, m := range b.matches {
		if m.Section != section || m.Round != round {
			continue
		}
		if m.Status != models.MatchStatusCompleted && m.Status != models.MatchStatusForfeit {
			return false
		}
	}
	return true
}

func (b *Bracket) complete() bool {
	for _, m := range b.matches {
		if m.Status != models.MatchStatusCompleted && m.Status != models.MatchStatusForfeit {
			return false
		}
	}
	return len(b.matches) > 0
}

func (b *Bracket) finalRanks() map[int]int {
	if b.tournamentType == models.TypeRoundRobin {
		return RankRoundRobin(b.matches)
	}
	return RankByElimination(b.matches)
}
