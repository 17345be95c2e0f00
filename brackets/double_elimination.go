package brackets

import (
	"context"

	"github.com/Dosada05/pong-arena/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds the three sections of a double-elimination bracket:
// the main section (shaped like single elimination), a losers section that
// receives every main-section loser, and a single grand-final match between
// the two section champions.
//
// For a main bracket of R rounds the losers section has 2*(R-1) rounds,
// alternating between rounds that pair losers-bracket survivors and rounds
// where a fresh wave of main-section losers enters in slot 2. The field must
// be a power of two; byes are not cascaded through the losers section.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.Match, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}
	if n&(n-1) != 0 {
		return nil, ErrBracketSize
	}

	b := newBuilder(params.Tournament.ID)

	// Main section.
	nodes := make([]node, n)
	for i, p := range participants {
		nodes[i] = participantNode(p.ID)
	}
	var mainRounds [][]*models.Match
	round := 0
	for len(nodes) > 1 {
		round++
		matches := make([]*models.Match, 0, len(nodes)/2)
		next := make([]node, 0, len(nodes)/2)
		for i := 0; i+1 < len(nodes); i += 2 {
			m := b.addMatch(models.SectionMain, round, nodes[i], nodes[i+1])
			matches = append(matches, m)
			next = append(next, winnerOf(m))
		}
		mainRounds = append(mainRounds, matches)
		nodes = next
	}
	numRounds := len(mainRounds)
	mainFinal := mainRounds[numRounds-1][0]

	if numRounds == 1 {
		// Two entrants: the loser of the only main match gets a second life
		// directly in the grand final.
		gf := b.addMatch(models.SectionGrandFinal, 1, winnerOf(mainFinal), node{})
		b.linkLoser(mainFinal, gf, 2)
		return b.matches, nil
	}

	// Losers section, round 1: main round 1 losers paired by adjacency.
	firstRound := mainRounds[0]
	prev := make([]*models.Match, 0, len(firstRound)/2)
	for i := 0; i+1 < len(firstRound); i += 2 {
		m := b.addMatch(models.SectionLosers, 1, node{}, node{})
		b.linkLoser(firstRound[i], m, 1)
		b.linkLoser(firstRound[i+1], m, 2)
		prev = append(prev, m)
	}

	for l := 2; l <= 2*(numRounds-1); l++ {
		var cur []*models.Match
		if l%2 == 0 {
			// Entry round: each survivor meets the loser of the matching
			// main-section match of round l/2+1.
			entering := mainRounds[l/2]
			cur = make([]*models.Match, 0, len(prev))
			for k := range prev {
				m := b.addMatch(models.SectionLosers, l, winnerOf(prev[k]), node{})
				b.linkLoser(entering[k], m, 2)
				cur = append(cur, m)
			}
		} else {
			// Losers-only round: survivors of the entry round pair up.
			cur = make([]*models.Match, 0, len(prev)/2)
			for i := 0; i+1 < len(prev); i += 2 {
				m := b.addMatch(models.SectionLosers, l, winnerOf(prev[i]), winnerOf(prev[i+1]))
				cur = append(cur, m)
			}
		}
		prev = cur
	}
	losersFinal := prev[0]

	b.addMatch(models.SectionGrandFinal, 1, winnerOf(mainFinal), winnerOf(losersFinal))
	return b.matches, nil
}
