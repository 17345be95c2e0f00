package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/pong-arena/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchUIDConflict        = errors.New("bracket uid conflict within tournament")
	ErrMatchInvalidTournament  = errors.New("invalid tournament reference")
	ErrMatchInvalidParticipant = errors.New("invalid participant reference")
)

const matchColumns = `
	id, tournament_id, section, round, match_number, bracket_uid,
	participant1_id, participant2_id, status, winner_id, score1, score2,
	next_match_uid, next_slot, loser_match_uid, loser_slot, is_bye, created_at`

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByUID(ctx context.Context, tournamentID int, bracketUID string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error)
	UpdateParticipants(ctx context.Context, exec SQLExecutor, matchID int, p1, p2 *int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error
	UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, winnerID int, score1, score2 int, status models.MatchStatus) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch persists a generated bracket in one round trip per match,
// inside the caller's transaction so a partial bracket never survives.
func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			tournament_id, section, round, match_number, bracket_uid,
			participant1_id, participant2_id, status, winner_id, score1, score2,
			next_match_uid, next_slot, loser_match_uid, loser_slot, is_bye
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	for _, m := range matches {
		err := executor.QueryRowContext(ctx, query,
			m.TournamentID, m.Section, m.Round, m.MatchNumber, m.BracketUID,
			m.Participant1ID, m.Participant2ID, m.Status, m.WinnerID, m.Score1, m.Score2,
			m.NextMatchUID, m.NextSlot, m.LoserMatchUID, m.LoserSlot, m.IsBye,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return r.handleMatchError(err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByUID(ctx context.Context, tournamentID int, bracketUID string) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND bracket_uid = $2`

	m := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, bracketUID).Scan(
		&m.ID, &m.TournamentID, &m.Section, &m.Round, &m.MatchNumber, &m.BracketUID,
		&m.Participant1ID, &m.Participant2ID, &m.Status, &m.WinnerID, &m.Score1, &m.Score2,
		&m.NextMatchUID, &m.NextSlot, &m.LoserMatchUID, &m.LoserSlot, &m.IsBye, &m.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s of tournament %d: %w", bracketUID, tournamentID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY section, round, match_number")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.Section, &m.Round, &m.MatchNumber, &m.BracketUID,
			&m.Participant1ID, &m.Participant2ID, &m.Status, &m.WinnerID, &m.Score1, &m.Score2,
			&m.NextMatchUID, &m.NextSlot, &m.LoserMatchUID, &m.LoserSlot, &m.IsBye, &m.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

func (r *postgresMatchRepository) UpdateParticipants(ctx context.Context, exec SQLExecutor, matchID int, p1, p2 *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET participant1_id = $1, participant2_id = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, p1, p2, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, winnerID int, score1, score2 int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET winner_id = $1, score1 = $2, score2 = $3, status = $4 WHERE id = $5`
	result, err := executor.ExecContext(ctx, query, winnerID, score1, score2, status, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrMatchUIDConflict
		case "23503":
			if pqErr.Constraint == "matches_tournament_id_fkey" {
				return ErrMatchInvalidTournament
			}
			return ErrMatchInvalidParticipant
		}
	}
	return err
}
