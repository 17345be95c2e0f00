package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/pong-arena/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates one match per unordered pair of participants, all
// in round 1. There is no structural advancement; the final ranking is
// computed once every match has completed.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.Match, error) {
	participants := params.Participants
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	matches := make([]*models.Match, 0, len(participants)*(len(participants)-1)/2)
	order := 0
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			order++
			p1 := participants[i].ID
			p2 := participants[j].ID
			matches = append(matches, &models.Match{
				TournamentID:   params.Tournament.ID,
				Section:        models.SectionMain,
				Round:          1,
				MatchNumber:    order,
				BracketUID:     fmt.Sprintf("RRM%d", order),
				Participant1ID: &p1,
				Participant2ID: &p2,
				Status:         models.MatchStatusPending,
			})
		}
	}
	return matches, nil
}
