package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/pong-arena/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrBracketSize           = errors.New("double elimination requires a power-of-two participant count")
	ErrUnsupportedType       = errors.New("unsupported tournament type")
)

// GenerateParams carries the inputs for bracket generation. Participants are
// paired in the order given; the caller shuffles beforehand if seeding should
// be random.
type GenerateParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
}

// Generator produces the full match graph for one tournament type. Matches
// for later rounds are pre-created with empty slots and routing links so that
// advancement never has to invent structure.
type Generator interface {
	GenerateBracket(ctx context.Context, params GenerateParams) ([]*models.Match, error)
	GetName() string
}

// NewGenerator returns the generator for the given tournament type.
func NewGenerator(t models.TournamentType) (Generator, error) {
	switch t {
	case models.TypeSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.TypeDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.TypeRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, ErrUnsupportedType
	}
}
