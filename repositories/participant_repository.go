package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/pong-arena/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantAlreadyRegistered = errors.New("participant already registered in this tournament")
	ErrParticipantInvalidTournament = errors.New("invalid tournament reference")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	FindByUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	FindByGuestAlias(ctx context.Context, tournamentID int, alias string) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	UpdateFinalRank(ctx context.Context, exec SQLExecutor, participantID int, rank int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, guest_alias)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID, p.UserID, p.GuestAlias,
	).Scan(&p.ID, &p.CreatedAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, guest_alias, final_rank, created_at
		FROM participants
		WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresParticipantRepository) FindByUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, guest_alias, final_rank, created_at
		FROM participants
		WHERE tournament_id = $1 AND user_id = $2`

	return r.scanOne(r.db.QueryRowContext(ctx, query, tournamentID, userID))
}

func (r *postgresParticipantRepository) FindByGuestAlias(ctx context.Context, tournamentID int, alias string) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, guest_alias, final_rank, created_at
		FROM participants
		WHERE tournament_id = $1 AND guest_alias = $2`

	return r.scanOne(r.db.QueryRowContext(ctx, query, tournamentID, alias))
}

func (r *postgresParticipantRepository) scanOne(row *sql.Row) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.GuestAlias, &p.FinalRank, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, guest_alias, final_rank, created_at
		FROM participants
		WHERE tournament_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.GuestAlias, &p.FinalRank, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM participants WHERE tournament_id = $1`
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateFinalRank(ctx context.Context, exec SQLExecutor, participantID int, rank int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET final_rank = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, rank, participantID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM participants WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrParticipantAlreadyRegistered
		case "23503":
			return ErrParticipantInvalidTournament
		}
	}
	return err
}
