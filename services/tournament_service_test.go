package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
)

type serviceEnv struct {
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	matches      *fakeMatchRepo
	standings    *fakeStandingRepo
	publisher    *fakePublisher

	tournamentSvc TournamentService
	matchSvc      MatchService
}

func newServiceEnv() *serviceEnv {
	env := &serviceEnv{
		tournaments:  newFakeTournamentRepo(),
		participants: newFakeParticipantRepo(),
		matches:      newFakeMatchRepo(),
		standings:    newFakeStandingRepo(),
		publisher:    &fakePublisher{},
	}
	log := newTestLogger()
	env.tournamentSvc = NewTournamentService(nil, env.tournaments, env.participants, env.matches, env.standings, env.publisher, log)
	env.matchSvc = NewMatchService(nil, env.tournaments, env.participants, env.matches, env.standings, env.publisher, log)
	return env
}

func userIdentity(id int) game.Identity {
	return game.Identity{Key: "user", UserID: &id}
}

func guestIdentity(alias string) game.Identity {
	return game.Identity{Key: "guest:" + alias, Alias: alias}
}

func (env *serviceEnv) createTournament(t *testing.T, tournamentType models.TournamentType, capacity int) *models.Tournament {
	t.Helper()
	tournament, err := env.tournamentSvc.Create(context.Background(), CreateTournamentInput{
		Name:            "Friday Cup",
		Type:            tournamentType,
		MaxParticipants: capacity,
	})
	require.NoError(t, err)
	return tournament
}

func (env *serviceEnv) joinGuests(t *testing.T, tournamentID, n int) {
	t.Helper()
	aliases := []string{"ava", "ben", "cleo", "dan", "eli", "fay", "gus", "hana"}
	for i := 0; i < n; i++ {
		_, err := env.tournamentSvc.Join(context.Background(), tournamentID, guestIdentity(aliases[i]))
		require.NoError(t, err)
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	cases := []struct {
		name    string
		input   CreateTournamentInput
		wantErr error
	}{
		{
			name:    "empty name",
			input:   CreateTournamentInput{Type: models.TypeSingleElimination, MaxParticipants: 8},
			wantErr: ErrTournamentNameRequired,
		},
		{
			name:    "unknown type",
			input:   CreateTournamentInput{Name: "x", Type: "swiss", MaxParticipants: 8},
			wantErr: ErrTournamentInvalidType,
		},
		{
			name:    "unknown speed profile",
			input:   CreateTournamentInput{Name: "x", Type: models.TypeRoundRobin, SpeedProfile: "ludicrous", MaxParticipants: 8},
			wantErr: ErrTournamentInvalidSpeedProfile,
		},
		{
			name:    "capacity below two",
			input:   CreateTournamentInput{Name: "x", Type: models.TypeRoundRobin, MaxParticipants: 1},
			wantErr: ErrTournamentInvalidCapacity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tournamentSvc.Create(ctx, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateTournamentDefaultsProfile(t *testing.T) {
	env := newServiceEnv()

	tournament, err := env.tournamentSvc.Create(context.Background(), CreateTournamentInput{
		Name:            "Evening League",
		Type:            models.TypeRoundRobin,
		MaxParticipants: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SpeedNormal, tournament.SpeedProfile)
	assert.Equal(t, models.StatusRegistration, tournament.Status)
}

func TestCreateTournamentNameConflict(t *testing.T) {
	env := newServiceEnv()
	env.createTournament(t, models.TypeRoundRobin, 4)

	_, err := env.tournamentSvc.Create(context.Background(), CreateTournamentInput{
		Name:            "Friday Cup",
		Type:            models.TypeRoundRobin,
		MaxParticipants: 4,
	})
	assert.ErrorIs(t, err, ErrTournamentNameConflict)
}

func TestJoinRegistrationRules(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 2)

	// Guests need an alias.
	_, err := env.tournamentSvc.Join(ctx, tournament.ID, game.Identity{Key: "guest:"})
	assert.ErrorIs(t, err, ErrGuestAliasRequired)

	// Same user registering twice is a conflict.
	_, err = env.tournamentSvc.Join(ctx, tournament.ID, userIdentity(1))
	require.NoError(t, err)
	_, err = env.tournamentSvc.Join(ctx, tournament.ID, userIdentity(1))
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	// Capacity is enforced.
	_, err = env.tournamentSvc.Join(ctx, tournament.ID, guestIdentity("ava"))
	require.NoError(t, err)
	_, err = env.tournamentSvc.Join(ctx, tournament.ID, guestIdentity("ben"))
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestJoinClosedRegistration(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 2)

	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)

	_, err = env.tournamentSvc.Join(ctx, tournament.ID, guestIdentity("late"))
	assert.ErrorIs(t, err, ErrRegistrationNotOpen)
}

func TestLeaveOnlyDuringRegistration(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 3)

	require.NoError(t, env.tournamentSvc.Leave(ctx, tournament.ID, guestIdentity("cleo")))
	assert.ErrorIs(t, env.tournamentSvc.Leave(ctx, tournament.ID, guestIdentity("cleo")), ErrParticipantNotFound)

	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, env.tournamentSvc.Leave(ctx, tournament.ID, guestIdentity("ava")), ErrRegistrationNotOpen)
}

func TestStartRequiresTwoParticipants(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 1)

	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestStartRejectsDoubleStart(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 2)

	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)
	_, err = env.tournamentSvc.Start(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}

func TestStartRejectsOddDoubleElimination(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeDoubleElimination, 8)
	env.joinGuests(t, tournament.ID, 6)

	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrBracketSizeInvalid)
}

func TestStartGeneratesAndActivatesBracket(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 4)

	started, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, started.Status)
	assert.Len(t, started.Matches, 3)

	matches, err := env.matches.ListByTournament(ctx, tournament.ID, nil)
	require.NoError(t, err)
	active := 0
	for _, m := range matches {
		if m.Status == models.MatchStatusActive {
			active++
			assert.True(t, m.Ready(), "active match %s must have both slots filled", m.BracketUID)
		}
	}
	assert.Equal(t, 2, active, "both opening matches go active")

	standings, err := env.tournamentSvc.Standings(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, standings, 4)

	assert.Equal(t, 2, env.publisher.countSubject("match.started"))
}

func TestStandingsOrderFinalRanksFirst(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)

	// A losers-bracket run can pile up more wins than a higher final rank,
	// and an unranked participant must sort after every ranked one.
	rank1, rank2 := 1, 2
	seed := []*models.Standing{
		{TournamentID: tournament.ID, ParticipantID: 101, Wins: 3, Rank: &rank2},
		{TournamentID: tournament.ID, ParticipantID: 102, Wins: 2, Rank: &rank1},
		{TournamentID: tournament.ID, ParticipantID: 103, Wins: 5},
	}
	for _, s := range seed {
		require.NoError(t, env.standings.Create(ctx, nil, s))
	}

	standings, err := env.tournamentSvc.Standings(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 3)
	order := []int{standings[0].ParticipantID, standings[1].ParticipantID, standings[2].ParticipantID}
	assert.Equal(t, []int{102, 101, 103}, order)
}

func TestCancelFromActive(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeSingleElimination, 4)
	env.joinGuests(t, tournament.ID, 2)
	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)

	require.NoError(t, env.tournamentSvc.Cancel(ctx, tournament.ID))

	stored, err := env.tournamentSvc.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, stored.Status)

	// Terminal states stay terminal.
	assert.ErrorIs(t, env.tournamentSvc.Cancel(ctx, tournament.ID), ErrTournamentInvalidStatusTransition)
}

func TestGetByIDAssemblesRelations(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	tournament := env.createTournament(t, models.TypeRoundRobin, 4)
	env.joinGuests(t, tournament.ID, 3)
	_, err := env.tournamentSvc.Start(ctx, tournament.ID)
	require.NoError(t, err)

	loaded, err := env.tournamentSvc.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Participants, 3)
	assert.Len(t, loaded.Matches, 3, "round robin with three entrants plays every pair")
}
