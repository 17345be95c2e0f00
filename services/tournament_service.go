package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/pong-arena/brackets"
	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/notify"
	"github.com/Dosada05/pong-arena/repositories"
)

type CreateTournamentInput struct {
	Name            string                `json:"name"`
	Type            models.TournamentType `json:"type"`
	SpeedProfile    models.SpeedProfile   `json:"speed_profile"`
	MaxParticipants int                   `json:"max_participants"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Join(ctx context.Context, tournamentID int, identity game.Identity) (*models.Participant, error)
	Leave(ctx context.Context, tournamentID int, identity game.Identity) error
	Start(ctx context.Context, id int) (*models.Tournament, error)
	Cancel(ctx context.Context, id int) error
	Standings(ctx context.Context, tournamentID int) ([]*models.Standing, error)
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.StandingRepository
	publisher       notify.Publisher
	log             *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	publisher notify.Publisher,
	log *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		publisher:       publisher,
		log:             log,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Type.Valid() {
		return nil, ErrTournamentInvalidType
	}
	if input.SpeedProfile == "" {
		input.SpeedProfile = models.SpeedNormal
	}
	if !input.SpeedProfile.Valid() {
		return nil, ErrTournamentInvalidSpeedProfile
	}
	if input.MaxParticipants < 2 {
		return nil, ErrTournamentInvalidCapacity
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Type:            input.Type,
		Status:          models.StatusRegistration,
		SpeedProfile:    input.SpeedProfile,
		MaxParticipants: input.MaxParticipants,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.log.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("type", string(tournament.Type)))
	return tournament, nil
}

// GetByID loads the tournament with its participants and matches assembled
// in parallel.
func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		tournament.Participants = participantsToValues(participants)
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, id, nil)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		tournament.Matches = matchesToValues(matches)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// Join registers the identity as a participant while registration is open.
func (s *tournamentService) Join(ctx context.Context, tournamentID int, identity game.Identity) (*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if count >= tournament.MaxParticipants {
		return nil, ErrTournamentFull
	}

	participant := &models.Participant{TournamentID: tournamentID}
	if identity.UserID != nil {
		if _, err := s.participantRepo.FindByUser(ctx, tournamentID, *identity.UserID); err == nil {
			return nil, ErrRegistrationConflict
		} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, err
		}
		participant.UserID = identity.UserID
	} else {
		alias := strings.TrimSpace(identity.Alias)
		if alias == "" {
			return nil, ErrGuestAliasRequired
		}
		if _, err := s.participantRepo.FindByGuestAlias(ctx, tournamentID, alias); err == nil {
			return nil, ErrRegistrationConflict
		} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, err
		}
		participant.GuestAlias = &alias
	}

	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantAlreadyRegistered) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}
	return participant, nil
}

// Leave withdraws a registration. Once the bracket exists the entry is
// frozen; withdrawal mid-tournament happens by forfeiting matches instead.
func (s *tournamentService) Leave(ctx context.Context, tournamentID int, identity game.Identity) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.Status != models.StatusRegistration {
		return ErrRegistrationNotOpen
	}

	participant, err := s.findParticipant(ctx, tournamentID, identity)
	if err != nil {
		return err
	}
	return s.participantRepo.Delete(ctx, participant.ID)
}

func (s *tournamentService) findParticipant(ctx context.Context, tournamentID int, identity game.Identity) (*models.Participant, error) {
	var participant *models.Participant
	var err error
	if identity.UserID != nil {
		participant, err = s.participantRepo.FindByUser(ctx, tournamentID, *identity.UserID)
	} else {
		participant, err = s.participantRepo.FindByGuestAlias(ctx, tournamentID, identity.Alias)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return participant, nil
}

// Start freezes registration, generates the bracket from a shuffled seeding,
// persists it atomically with the initial standings, and announces the
// matches that became playable.
func (s *tournamentService) Start(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !tournament.CanTransitionTo(models.StatusActive) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, models.StatusActive)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", id, err)
	}
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	seeded := make([]*models.Participant, len(participants))
	copy(seeded, participants)
	rand.Shuffle(len(seeded), func(i, j int) {
		seeded[i], seeded[j] = seeded[j], seeded[i]
	})

	generator, err := brackets.NewGenerator(tournament.Type)
	if err != nil {
		return nil, ErrTournamentInvalidType
	}
	matches, err := generator.GenerateBracket(ctx, brackets.GenerateParams{
		Tournament:   tournament,
		Participants: seeded,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, ErrNotEnoughParticipants
		}
		if errors.Is(err, brackets.ErrBracketSize) {
			return nil, fmt.Errorf("%w: %v", ErrBracketSizeInvalid, err)
		}
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}

	// Activation mutates the in-memory matches before they are persisted,
	// so the batch insert stores the opening round already active.
	bracket := brackets.NewBracket(tournament.Type, matches)
	bracket.ActivateInitial()

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchRepo.CreateBatch(ctx, tx, matches); err != nil {
			return fmt.Errorf("failed to persist bracket: %w", err)
		}
		for _, p := range participants {
			standing := &models.Standing{TournamentID: id, ParticipantID: p.ID}
			if err := s.standingRepo.Create(ctx, tx, standing); err != nil {
				return fmt.Errorf("failed to create standing for participant %d: %w", p.ID, err)
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, tx, id, models.StatusActive)
	})
	if err != nil {
		return nil, err
	}
	tournament.Status = models.StatusActive
	tournament.Participants = participantsToValues(participants)
	tournament.Matches = matchesToValues(matches)

	for _, m := range matches {
		if m.Status == models.MatchStatusActive {
			s.publishMatchStarted(ctx, tournament, m)
		}
	}
	s.log.Info("tournament started",
		slog.Int("tournament_id", id),
		slog.String("type", string(tournament.Type)),
		slog.Int("participants", len(participants)),
		slog.Int("matches", len(matches)))
	return tournament, nil
}

func (s *tournamentService) publishMatchStarted(ctx context.Context, t *models.Tournament, m *models.Match) {
	payload := map[string]interface{}{
		"tournament_id": t.ID,
		"match_uid":     m.BracketUID,
		"room_key":      RoomKeyForMatch(t.ID, m.BracketUID),
	}
	if err := s.publisher.Publish(ctx, notify.SubjectMatchStarted, payload); err != nil {
		s.log.Error("failed to publish match started event",
			slog.String("match_uid", m.BracketUID),
			slog.Any("error", err))
	}
}

func (s *tournamentService) Cancel(ctx context.Context, id int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if !tournament.CanTransitionTo(models.StatusCanceled) {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, models.StatusCanceled)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, models.StatusCanceled); err != nil {
		return err
	}
	s.log.Info("tournament canceled", slog.Int("tournament_id", id))
	return nil
}

func (s *tournamentService) Standings(ctx context.Context, tournamentID int) ([]*models.Standing, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.standingRepo.ListByTournament(ctx, nil, tournamentID, true)
}
