package brackets

import (
	"fmt"

	"github.com/Dosada05/pong-arena/models"
)

// node is one input to a match: either a participant known at generation
// time, or the winner of an earlier match identified by UID.
type node struct {
	participantID *int
	sourceUID     *string
}

func participantNode(id int) node {
	return node{participantID: &id}
}

func winnerOf(m *models.Match) node {
	uid := m.BracketUID
	return node{sourceUID: &uid}
}

// builder accumulates the matches of one bracket and wires winner routing
// links as source nodes are consumed. UIDs are R<round>M<order> for the main
// section, LR<round>M<order> for the losers section and GF for the grand
// final.
type builder struct {
	tournamentID int
	matches      []*models.Match
	byUID        map[string]*models.Match
	orderInRound map[string]int
}

func newBuilder(tournamentID int) *builder {
	return &builder{
		tournamentID: tournamentID,
		byUID:        make(map[string]*models.Match),
		orderInRound: make(map[string]int),
	}
}

func (b *builder) nextUID(section models.BracketSection, round int) (string, int) {
	key := fmt.Sprintf("%s/%d", section, round)
	b.orderInRound[key]++
	order := b.orderInRound[key]
	switch section {
	case models.SectionLosers:
		return fmt.Sprintf("LR%dM%d", round, order), order
	case models.SectionGrandFinal:
		return "GF", order
	default:
		return fmt.Sprintf("R%dM%d", round, order), order
	}
}

// addMatch creates a two-entrant match and links both inputs.
func (b *builder) addMatch(section models.BracketSection, round int, in1, in2 node) *models.Match {
	uid, order := b.nextUID(section, round)
	m := &models.Match{
		TournamentID: b.tournamentID,
		Section:      section,
		Round:        round,
		MatchNumber:  order,
		BracketUID:   uid,
		Status:       models.MatchStatusPending,
	}
	b.linkWinner(m, 1, in1)
	b.linkWinner(m, 2, in2)
	b.matches = append(b.matches, m)
	b.byUID[uid] = m
	return m
}

// addBye creates a single-entrant match. When the entrant is already known
// the match completes on the spot; otherwise it auto-completes during
// advancement, as soon as the source match delivers its winner.
func (b *builder) addBye(section models.BracketSection, round int, in node) *models.Match {
	uid, order := b.nextUID(section, round)
	m := &models.Match{
		TournamentID: b.tournamentID,
		Section:      section,
		Round:        round,
		MatchNumber:  order,
		BracketUID:   uid,
		Status:       models.MatchStatusPending,
		IsBye:        true,
	}
	b.linkWinner(m, 1, in)
	if in.participantID != nil {
		winner := *in.participantID
		m.Status = models.MatchStatusCompleted
		m.WinnerID = &winner
	}
	b.matches = append(b.matches, m)
	b.byUID[uid] = m
	return m
}

// byeOutput returns the node feeding the next round from a bye match. A bye
// with a known entrant forwards the participant directly; an unresolved bye
// forwards its own winner link.
func byeOutput(bye *models.Match, in node) node {
	if in.participantID != nil {
		return participantNode(*in.participantID)
	}
	return winnerOf(bye)
}

// linkWinner fills one slot of m from a node and records the winner routing
// on the source match when the input is an earlier match.
func (b *builder) linkWinner(m *models.Match, slot int, in node) {
	if in.participantID != nil {
		id := *in.participantID
		if slot == 1 {
			m.Participant1ID = &id
		} else {
			m.Participant2ID = &id
		}
		return
	}
	if in.sourceUID == nil {
		return
	}
	src, ok := b.byUID[*in.sourceUID]
	if !ok {
		return
	}
	uid := m.BracketUID
	s := slot
	src.NextMatchUID = &uid
	src.NextSlot = &s
}

// linkLoser records loser routing from src into slot of dest.
func (b *builder) linkLoser(src, dest *models.Match, slot int) {
	uid := dest.BracketUID
	s := slot
	src.LoserMatchUID = &uid
	src.LoserSlot = &s
}
