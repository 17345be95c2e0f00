package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dosada05/pong-arena/brackets"
	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/notify"
	"github.com/Dosada05/pong-arena/repositories"
)

type ReportResultInput struct {
	TournamentID        int    `json:"tournament_id"`
	MatchUID            string `json:"match_uid"`
	WinnerParticipantID int    `json:"winner_participant_id"`
	Score1              int    `json:"score1"`
	Score2              int    `json:"score2"`
	Forfeit             bool   `json:"forfeit"`
}

type MatchService interface {
	ReportResult(ctx context.Context, input ReportResultInput) error
	GetByUID(ctx context.Context, tournamentID int, bracketUID string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error)

	// The room engine's view of the service.
	game.MatchDirectory
	game.ResultSink
}

type matchService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.StandingRepository
	publisher       notify.Publisher
	log             *slog.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewMatchService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	publisher notify.Publisher,
	log *slog.Logger,
) MatchService {
	return &matchService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		publisher:       publisher,
		log:             log,
		locks:           make(map[int]*sync.Mutex),
	}
}

// tournamentLock returns the mutex serializing bracket mutations for one
// tournament. Unrelated tournaments never contend.
func (s *matchService) tournamentLock(tournamentID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tournamentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tournamentID] = l
	}
	return l
}

func (s *matchService) GetByUID(ctx context.Context, tournamentID int, bracketUID string) (*models.Match, error) {
	match, err := s.matchRepo.GetByUID(ctx, tournamentID, bracketUID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, status)
}

// ReportResult records a terminal match outcome and advances the bracket:
// the winner (and in double elimination the loser) is routed to the
// destination slot, byes cascade, newly playable matches go active, and once
// every match is terminal the tournament completes with final ranks. All
// persistence happens in one transaction.
func (s *matchService) ReportResult(ctx context.Context, input ReportResultInput) error {
	// Progression is load-apply-persist on a snapshot of the whole bracket.
	// Two rooms of the same tournament can finish at the same moment, so
	// reports for one tournament take turns; otherwise each report would
	// persist a snapshot that never saw the other's routing.
	lock := s.tournamentLock(input.TournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.Status != models.StatusActive {
		return fmt.Errorf("%w: tournament %d is %s", ErrMatchNotActive, tournament.ID, tournament.Status)
	}

	allMatches, err := s.matchRepo.ListByTournament(ctx, input.TournamentID, nil)
	if err != nil {
		return fmt.Errorf("failed to load bracket for tournament %d: %w", input.TournamentID, err)
	}

	status := models.MatchStatusCompleted
	if input.Forfeit {
		status = models.MatchStatusForfeit
	}

	bracket := brackets.NewBracket(tournament.Type, allMatches)
	progress, err := bracket.ApplyResult(input.MatchUID, input.WinnerParticipantID, input.Score1, input.Score2, status)
	if err != nil {
		return mapBracketError(err)
	}

	reported, ok := findMatch(allMatches, input.MatchUID)
	if !ok {
		return ErrMatchNotFound
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, m := range progress.Changed {
			if err := s.persistMatch(ctx, tx, m); err != nil {
				return err
			}
		}
		if err := s.applyStandings(ctx, tx, reported, input); err != nil {
			return err
		}
		if progress.Completed {
			if err := s.completeTournament(ctx, tx, tournament, progress.FinalRanks); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishResultEvents(ctx, tournament, reported, progress)
	return nil
}

func (s *matchService) persistMatch(ctx context.Context, tx *sql.Tx, m *models.Match) error {
	if err := s.matchRepo.UpdateParticipants(ctx, tx, m.ID, m.Participant1ID, m.Participant2ID); err != nil {
		return fmt.Errorf("failed to persist participants of match %s: %w", m.BracketUID, err)
	}
	if m.WinnerID != nil {
		score1, score2 := 0, 0
		if m.Score1 != nil {
			score1 = *m.Score1
		}
		if m.Score2 != nil {
			score2 = *m.Score2
		}
		if err := s.matchRepo.UpdateResult(ctx, tx, m.ID, *m.WinnerID, score1, score2, m.Status); err != nil {
			return fmt.Errorf("failed to persist result of match %s: %w", m.BracketUID, err)
		}
		return nil
	}
	if err := s.matchRepo.UpdateStatus(ctx, tx, m.ID, m.Status); err != nil {
		return fmt.Errorf("failed to persist status of match %s: %w", m.BracketUID, err)
	}
	return nil
}

// applyStandings folds the reported result into both participants'
// aggregates. Forfeits count as a played game.
func (s *matchService) applyStandings(ctx context.Context, tx *sql.Tx, m *models.Match, input ReportResultInput) error {
	if m.Participant1ID == nil || m.Participant2ID == nil {
		return nil
	}
	type line struct {
		participantID          int
		scoreFor, scoreAgainst int
	}
	lines := []line{
		{participantID: *m.Participant1ID, scoreFor: input.Score1, scoreAgainst: input.Score2},
		{participantID: *m.Participant2ID, scoreFor: input.Score2, scoreAgainst: input.Score1},
	}
	for _, l := range lines {
		standing, err := s.standingRepo.GetOrCreate(ctx, tx, input.TournamentID, l.participantID)
		if err != nil {
			return err
		}
		standing.GamesPlayed++
		if l.participantID == input.WinnerParticipantID {
			standing.Wins++
		} else {
			standing.Losses++
		}
		standing.ScoreFor += l.scoreFor
		standing.ScoreAgainst += l.scoreAgainst
		standing.ScoreDifference = standing.ScoreFor - standing.ScoreAgainst
		if err := s.standingRepo.Update(ctx, tx, standing); err != nil {
			return fmt.Errorf("failed to update standing for participant %d: %w", l.participantID, err)
		}
	}
	return nil
}

func (s *matchService) completeTournament(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, finalRanks map[int]int) error {
	for participantID, rank := range finalRanks {
		if err := s.participantRepo.UpdateFinalRank(ctx, tx, participantID, rank); err != nil {
			return fmt.Errorf("failed to store final rank for participant %d: %w", participantID, err)
		}
		standing, err := s.standingRepo.GetOrCreate(ctx, tx, tournament.ID, participantID)
		if err != nil {
			return err
		}
		if err := s.standingRepo.UpdateRank(ctx, tx, standing.ID, rank); err != nil {
			return err
		}
	}
	return s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.StatusCompleted)
}

func (s *matchService) publishResultEvents(ctx context.Context, tournament *models.Tournament, reported *models.Match, progress *brackets.Progress) {
	s.publish(ctx, notify.SubjectMatchFinished, map[string]interface{}{
		"tournament_id": tournament.ID,
		"match_uid":     reported.BracketUID,
		"winner_id":     reported.WinnerID,
		"score1":        reported.Score1,
		"score2":        reported.Score2,
		"forfeit":       reported.Status == models.MatchStatusForfeit,
	})
	for _, m := range progress.Changed {
		if m.Status == models.MatchStatusActive {
			s.publish(ctx, notify.SubjectMatchStarted, map[string]interface{}{
				"tournament_id": tournament.ID,
				"match_uid":     m.BracketUID,
				"room_key":      RoomKeyForMatch(tournament.ID, m.BracketUID),
			})
		}
	}
	if progress.Completed {
		s.publish(ctx, notify.SubjectTournamentCompleted, map[string]interface{}{
			"tournament_id": tournament.ID,
			"final_ranks":   progress.FinalRanks,
		})
		s.log.Info("tournament completed", slog.Int("tournament_id", tournament.ID))
	}
}

func (s *matchService) publish(ctx context.Context, subject string, payload map[string]interface{}) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.log.Error("failed to publish event",
			slog.String("subject", subject),
			slog.Any("error", err))
	}
}

// Binding resolves a room key to its tournament match, implementing the
// directory consulted by the room registry. Keys that do not follow the
// tournament naming scheme are standalone rooms.
func (s *matchService) Binding(ctx context.Context, roomKey string) (*game.RoomBinding, error) {
	tournamentID, bracketUID, ok := parseRoomKey(roomKey)
	if !ok {
		return nil, nil
	}

	match, err := s.matchRepo.GetByUID(ctx, tournamentID, bracketUID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRoomKey, roomKey)
		}
		return nil, err
	}
	if match.Status != models.MatchStatusActive || !match.Ready() {
		return nil, fmt.Errorf("%w: match %s of tournament %d", ErrMatchNotActive, bracketUID, tournamentID)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	p1, err := s.participantRepo.GetByID(ctx, *match.Participant1ID)
	if err != nil {
		return nil, err
	}
	p2, err := s.participantRepo.GetByID(ctx, *match.Participant2ID)
	if err != nil {
		return nil, err
	}

	return &game.RoomBinding{
		MatchUID:     match.BracketUID,
		TournamentID: tournamentID,
		SpeedProfile: tournament.SpeedProfile,
		Participant1: participantRef(p1),
		Participant2: participantRef(p2),
	}, nil
}

// MatchFinished is the result sink fed by finished rooms. Standalone rooms
// carry no match binding and leave no trace.
func (s *matchService) MatchFinished(ctx context.Context, result game.MatchResult) error {
	if result.MatchUID == "" {
		return nil
	}

	match, err := s.matchRepo.GetByUID(ctx, result.TournamentID, result.MatchUID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.Participant1ID == nil || match.Participant2ID == nil {
		return fmt.Errorf("%w: match %s has unfilled slots", ErrMatchNotActive, result.MatchUID)
	}

	// Side scores map to bracket slots through the winner: the room reports
	// which participant won and what each side scored.
	winnerScore, loserScore := result.ScoreLeft, result.ScoreRight
	if result.WinnerSide == models.SideRight {
		winnerScore, loserScore = result.ScoreRight, result.ScoreLeft
	}
	score1, score2 := winnerScore, loserScore
	if result.WinnerParticipantID == *match.Participant2ID {
		score1, score2 = loserScore, winnerScore
	}

	return s.ReportResult(ctx, ReportResultInput{
		TournamentID:        result.TournamentID,
		MatchUID:            result.MatchUID,
		WinnerParticipantID: result.WinnerParticipantID,
		Score1:              score1,
		Score2:              score2,
		Forfeit:             result.Forfeit,
	})
}

func participantRef(p *models.Participant) game.ParticipantRef {
	return game.ParticipantRef{
		ID:         p.ID,
		UserID:     p.UserID,
		GuestAlias: p.GuestAlias,
		Name:       p.DisplayName(),
	}
}

func findMatch(matches []*models.Match, bracketUID string) (*models.Match, bool) {
	for _, m := range matches {
		if m.BracketUID == bracketUID {
			return m, true
		}
	}
	return nil, false
}

func mapBracketError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, brackets.ErrMatchAlreadyScored):
		return fmt.Errorf("%w: %v", ErrResultAlreadyStored, err)
	case errors.Is(err, brackets.ErrMatchNotActive):
		return fmt.Errorf("%w: %v", ErrMatchNotActive, err)
	case errors.Is(err, brackets.ErrWinnerNotInMatch):
		return fmt.Errorf("%w: %v", ErrWinnerNotInMatch, err)
	case errors.Is(err, brackets.ErrInvalidStatus):
		return fmt.Errorf("%w: %v", ErrInvalidMatchStatus, err)
	default:
		return err
	}
}
