package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/pong-arena/models"
)

var ErrStandingNotFound = errors.New("standing not found")

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Standing, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Standing, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	UpdateRank(ctx context.Context, exec SQLExecutor, standingID int, rank int) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, sortByRank bool) ([]*models.Standing, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO standings
			(tournament_id, participant_id, games_played, wins, losses, score_for, score_against, score_difference, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	return executor.QueryRowContext(ctx, query,
		s.TournamentID, s.ParticipantID, s.GamesPlayed, s.Wins, s.Losses,
		s.ScoreFor, s.ScoreAgainst, s.ScoreDifference, s.Rank, s.UpdatedAt,
	).Scan(&s.ID)
}

func (r *postgresStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.Standing, error) {
	var s models.Standing
	err := rowScanner.Scan(
		&s.ID, &s.TournamentID, &s.ParticipantID, &s.GamesPlayed,
		&s.Wins, &s.Losses, &s.ScoreFor, &s.ScoreAgainst,
		&s.ScoreDifference, &s.Rank, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) GetByTournamentAndParticipant(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, participant_id, games_played, wins, losses,
		       score_for, score_against, score_difference, rank, updated_at
		FROM standings
		WHERE tournament_id = $1 AND participant_id = $2`
	row := executor.QueryRowContext(ctx, query, tournamentID, participantID)
	return r.scanStanding(row)
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	standing, err := r.GetByTournamentAndParticipant(ctx, executor, tournamentID, participantID)
	if err != nil {
		if errors.Is(err, ErrStandingNotFound) {
			newStanding := &models.Standing{
				TournamentID:  tournamentID,
				ParticipantID: participantID,
				UpdatedAt:     time.Now(),
			}
			if createErr := r.Create(ctx, executor, newStanding); createErr != nil {
				return nil, fmt.Errorf("failed to create standing for t:%d p:%d: %w", tournamentID, participantID, createErr)
			}
			return newStanding, nil
		}
		return nil, fmt.Errorf("failed to get standing for t:%d p:%d: %w", tournamentID, participantID, err)
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE standings SET
			games_played = $1, wins = $2, losses = $3,
			score_for = $4, score_against = $5, score_difference = $6, rank = $7,
			updated_at = NOW()
		WHERE id = $8`
	result, err := executor.ExecContext(ctx, query,
		s.GamesPlayed, s.Wins, s.Losses,
		s.ScoreFor, s.ScoreAgainst, s.ScoreDifference, s.Rank,
		s.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) UpdateRank(ctx context.Context, exec SQLExecutor, standingID int, rank int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE standings SET rank = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, rank, standingID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, sortByRank bool) ([]*models.Standing, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, participant_id, games_played, wins, losses,
		       score_for, score_against, score_difference, rank, updated_at
		FROM standings
		WHERE tournament_id = $1`

	if sortByRank {
		// Final ranks lead once the completion path has filled them in;
		// the aggregate keys order the rest of a still-running tournament.
		query += ` ORDER BY rank ASC NULLS LAST, wins DESC, score_difference DESC, score_for DESC, participant_id ASC`
	} else {
		query += ` ORDER BY participant_id ASC`
	}

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}

func (r *postgresStandingRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM standings WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}
