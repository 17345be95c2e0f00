package brackets

import (
	"context"

	"github.com/Dosada05/pong-arena/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket pairs participants consecutively round by round. An odd
// remainder in any round yields a bye match that completes automatically with
// the unpaired entrant as winner. Later rounds are pre-created with empty
// slots; each match carries a routing link to the slot its winner fills, so
// advancement is a table lookup rather than structural search.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.Match, error) {
	participants := params.Participants
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	b := newBuilder(params.Tournament.ID)
	buildKnockout(b, models.SectionMain, participants)
	return b.matches, nil
}

// buildKnockout generates a full single-elimination tree for the given
// entrants inside one section and returns the final match.
func buildKnockout(b *builder, section models.BracketSection, participants []*models.Participant) *models.Match {
	nodes := make([]node, len(participants))
	for i, p := range participants {
		nodes[i] = participantNode(p.ID)
	}

	var last *models.Match
	round := 0
	for len(nodes) > 1 {
		round++
		next := make([]node, 0, (len(nodes)+1)/2)
		for i := 0; i+1 < len(nodes); i += 2 {
			m := b.addMatch(section, round, nodes[i], nodes[i+1])
			next = append(next, winnerOf(m))
			last = m
		}
		if len(nodes)%2 == 1 {
			in := nodes[len(nodes)-1]
			bye := b.addBye(section, round, in)
			next = append(next, byeOutput(bye, in))
		}
		nodes = next
	}
	return last
}
