package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/repositories"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- in-memory repository doubles ---

type fakeTournamentRepo struct {
	seq   int
	items map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{items: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	for _, existing := range r.items {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.seq++
	t.ID = r.seq
	t.CreatedAt = time.Now()
	stored := *t
	r.items[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	result := make([]models.Tournament, 0, len(r.items))
	for _, t := range r.items {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeParticipantRepo struct {
	seq   int
	items map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{items: make(map[int]*models.Participant)}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	r.seq++
	p.ID = r.seq
	p.CreatedAt = time.Now()
	stored := *p
	r.items[p.ID] = &stored
	return nil
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) FindByUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	for _, p := range r.items {
		if p.TournamentID == tournamentID && p.UserID != nil && *p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) FindByGuestAlias(ctx context.Context, tournamentID int, alias string) (*models.Participant, error) {
	for _, p := range r.items {
		if p.TournamentID == tournamentID && p.GuestAlias != nil && *p.GuestAlias == alias {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	result := make([]*models.Participant, 0)
	for id := 1; id <= r.seq; id++ {
		if p, ok := r.items[id]; ok && p.TournamentID == tournamentID {
			copied := *p
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.items {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) UpdateFinalRank(ctx context.Context, exec repositories.SQLExecutor, participantID int, rank int) error {
	p, ok := r.items[participantID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	stored := rank
	p.FinalRank = &stored
	return nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.items[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeMatchRepo struct {
	seq   int
	items map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{items: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		r.seq++
		m.ID = r.seq
		m.CreatedAt = time.Now()
		stored := *m
		r.items[m.ID] = &stored
	}
	return nil
}

func (r *fakeMatchRepo) GetByUID(ctx context.Context, tournamentID int, bracketUID string) (*models.Match, error) {
	for _, m := range r.items {
		if m.TournamentID == tournamentID && m.BracketUID == bracketUID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error) {
	result := make([]*models.Match, 0)
	for id := 1; id <= r.seq; id++ {
		m, ok := r.items[id]
		if !ok || m.TournamentID != tournamentID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	return result, nil
}

func (r *fakeMatchRepo) UpdateParticipants(ctx context.Context, exec repositories.SQLExecutor, matchID int, p1, p2 *int) error {
	m, ok := r.items[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Participant1ID = p1
	m.Participant2ID = p2
	return nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, matchID int, status models.MatchStatus) error {
	m, ok := r.items[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, matchID int, winnerID int, score1, score2 int, status models.MatchStatus) error {
	m, ok := r.items[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	w, s1, s2 := winnerID, score1, score2
	m.WinnerID = &w
	m.Score1 = &s1
	m.Score2 = &s2
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for id, m := range r.items {
		if m.TournamentID == tournamentID {
			delete(r.items, id)
		}
	}
	return nil
}

type standingKey struct {
	tournamentID, participantID int
}

type fakeStandingRepo struct {
	seq   int
	items map[standingKey]*models.Standing
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{items: make(map[standingKey]*models.Standing)}
}

func (r *fakeStandingRepo) Create(ctx context.Context, exec repositories.SQLExecutor, s *models.Standing) error {
	r.seq++
	s.ID = r.seq
	s.UpdatedAt = time.Now()
	stored := *s
	r.items[standingKey{s.TournamentID, s.ParticipantID}] = &stored
	return nil
}

func (r *fakeStandingRepo) GetByTournamentAndParticipant(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int) (*models.Standing, error) {
	s, ok := r.items[standingKey{tournamentID, participantID}]
	if !ok {
		return nil, repositories.ErrStandingNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStandingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, tournamentID, participantID int) (*models.Standing, error) {
	if s, ok := r.items[standingKey{tournamentID, participantID}]; ok {
		copied := *s
		return &copied, nil
	}
	s := &models.Standing{TournamentID: tournamentID, ParticipantID: participantID}
	if err := r.Create(ctx, exec, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *fakeStandingRepo) Update(ctx context.Context, exec repositories.SQLExecutor, s *models.Standing) error {
	existing, ok := r.items[standingKey{s.TournamentID, s.ParticipantID}]
	if !ok {
		return repositories.ErrStandingNotFound
	}
	copied := *s
	copied.ID = existing.ID
	r.items[standingKey{s.TournamentID, s.ParticipantID}] = &copied
	return nil
}

func (r *fakeStandingRepo) UpdateRank(ctx context.Context, exec repositories.SQLExecutor, standingID int, rank int) error {
	for _, s := range r.items {
		if s.ID == standingID {
			stored := rank
			s.Rank = &stored
			return nil
		}
	}
	return repositories.ErrStandingNotFound
}

func (r *fakeStandingRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, sortByRank bool) ([]*models.Standing, error) {
	result := make([]*models.Standing, 0)
	for key, s := range r.items {
		if key.tournamentID == tournamentID {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if sortByRank {
			// Mirrors the postgres ordering: rank first, nulls last,
			// then the aggregate keys.
			if (a.Rank == nil) != (b.Rank == nil) {
				return a.Rank != nil
			}
			if a.Rank != nil && *a.Rank != *b.Rank {
				return *a.Rank < *b.Rank
			}
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
			if a.ScoreDifference != b.ScoreDifference {
				return a.ScoreDifference > b.ScoreDifference
			}
			if a.ScoreFor != b.ScoreFor {
				return a.ScoreFor > b.ScoreFor
			}
		}
		return a.ParticipantID < b.ParticipantID
	})
	return result, nil
}

func (r *fakeStandingRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for key := range r.items {
		if key.tournamentID == tournamentID {
			delete(r.items, key)
		}
	}
	return nil
}

type publishedEvent struct {
	subject string
	payload interface{}
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	p.events = append(p.events, publishedEvent{subject: subject, payload: payload})
	return p.err
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) countSubject(subject string) int {
	n := 0
	for _, e := range p.events {
		if e.subject == subject {
			n++
		}
	}
	return n
}
