package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pong-arena/models"
)

func activeUIDs(b *Bracket) []string {
	var out []string
	for _, m := range b.Matches() {
		if m.Status == models.MatchStatusActive {
			out = append(out, m.BracketUID)
		}
	}
	return out
}

func play(t *testing.T, b *Bracket, uid string, winnerID, s1, s2 int) *Progress {
	t.Helper()
	progress, err := b.ApplyResult(uid, winnerID, s1, s2, models.MatchStatusCompleted)
	require.NoError(t, err, "reporting %s", uid)
	return progress
}

func TestSingleEliminationPlayThrough(t *testing.T) {
	matches := generate(t, models.TypeSingleElimination, 4)
	b := NewBracket(models.TypeSingleElimination, matches)
	b.ActivateInitial()

	assert.ElementsMatch(t, []string{"R1M1", "R1M2"}, activeUIDs(b))

	progress := play(t, b, "R1M1", 1, 10, 4)
	assert.False(t, progress.Completed)
	assert.Empty(t, activeUIDs(b), "final waits for the other semifinal of round one")

	play(t, b, "R1M2", 3, 10, 8)
	assert.ElementsMatch(t, []string{"R2M1"}, activeUIDs(b))

	final := play(t, b, "R2M1", 3, 10, 9)
	require.True(t, final.Completed)
	assert.Equal(t, map[int]int{3: 1, 1: 2, 2: 3, 4: 3}, final.FinalRanks,
		"semifinal losers share third place")
}

func TestByeParticipantAutoAdvances(t *testing.T) {
	matches := generate(t, models.TypeSingleElimination, 5)
	b := NewBracket(models.TypeSingleElimination, matches)
	b.ActivateInitial()

	play(t, b, "R1M1", 1, 10, 0)
	play(t, b, "R1M2", 3, 10, 2)
	play(t, b, "R2M1", 1, 10, 5)

	// Participant 5 never played a paired match before the final; byes pushed
	// them straight through.
	var final *models.Match
	for _, m := range b.Matches() {
		if m.Status == models.MatchStatusActive {
			final = m
		}
	}
	require.NotNil(t, final)
	assert.True(t, final.HasParticipant(5))
	assert.True(t, final.HasParticipant(1))

	progress := play(t, b, final.BracketUID, 5, 10, 7)
	require.True(t, progress.Completed)
	assert.Equal(t, 1, progress.FinalRanks[5])
	assert.Equal(t, 2, progress.FinalRanks[1])
}

func TestRoundActivationOrdering(t *testing.T) {
	matches := generate(t, models.TypeSingleElimination, 8)
	b := NewBracket(models.TypeSingleElimination, matches)
	b.ActivateInitial()

	play(t, b, "R1M1", 1, 10, 0)
	play(t, b, "R1M2", 3, 10, 0)

	// R2M1 has both entrants, but round 1 is not finished yet.
	byUID := bracketIndex(b.Matches())
	require.True(t, byUID["R2M1"].Ready())
	assert.Equal(t, models.MatchStatusPending, byUID["R2M1"].Status,
		"a round never activates before the prior round fully completes")

	play(t, b, "R1M3", 5, 10, 0)
	play(t, b, "R1M4", 7, 10, 0)
	assert.ElementsMatch(t, []string{"R2M1", "R2M2"}, activeUIDs(b))
}

func TestDoubleEliminationPlayThrough(t *testing.T) {
	matches := generate(t, models.TypeDoubleElimination, 4)
	b := NewBracket(models.TypeDoubleElimination, matches)
	b.ActivateInitial()
	byUID := bracketIndex(b.Matches())

	play(t, b, "R1M1", 1, 10, 3) // 2 drops to losers
	play(t, b, "R1M2", 3, 10, 6) // 4 drops to losers

	// Scenario: the two round-1 losers meet in losers round 1.
	lr1 := byUID["LR1M1"]
	assert.True(t, lr1.HasParticipant(2))
	assert.True(t, lr1.HasParticipant(4))
	assert.Equal(t, models.MatchStatusActive, lr1.Status)

	play(t, b, "R2M1", 1, 10, 8) // main champion: 1; 3 drops to losers final
	play(t, b, "LR1M1", 2, 10, 9)

	lf := byUID["LR2M1"]
	assert.True(t, lf.HasParticipant(2))
	assert.True(t, lf.HasParticipant(3))
	play(t, b, "LR2M1", 2, 10, 4)

	gf := byUID["GF"]
	assert.True(t, gf.HasParticipant(1), "main-bracket champion reaches the grand final")
	assert.True(t, gf.HasParticipant(2), "losers-bracket champion reaches the grand final")

	progress := play(t, b, "GF", 2, 10, 7)
	require.True(t, progress.Completed)
	assert.Equal(t, map[int]int{2: 1, 1: 2, 3: 3, 4: 4}, progress.FinalRanks)
}

func TestRoundRobinCompletion(t *testing.T) {
	matches := generate(t, models.TypeRoundRobin, 3)
	b := NewBracket(models.TypeRoundRobin, matches)
	b.ActivateInitial()

	require.Len(t, activeUIDs(b), 3, "all round-robin matches are playable at once")

	var progress *Progress
	results := map[string][3]int{
		"RRM1": {1, 10, 5}, // 1 beats 2
		"RRM2": {1, 10, 7}, // 1 beats 3
		"RRM3": {2, 10, 8}, // 2 beats 3
	}
	for _, m := range b.Matches() {
		r := results[m.BracketUID]
		progress = play(t, b, m.BracketUID, r[0], r[1], r[2])
	}

	require.True(t, progress.Completed)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3}, progress.FinalRanks)
}

func TestApplyResultValidation(t *testing.T) {
	matches := generate(t, models.TypeSingleElimination, 4)
	b := NewBracket(models.TypeSingleElimination, matches)

	// Nothing activated yet: reporting a pending match must fail.
	_, err := b.ApplyResult("R1M1", 1, 10, 0, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, ErrMatchNotActive)

	b.ActivateInitial()

	_, err = b.ApplyResult("R9M9", 1, 10, 0, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = b.ApplyResult("R1M1", 99, 10, 0, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	_, err = b.ApplyResult("R1M1", 1, 10, 0, models.MatchStatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	play(t, b, "R1M1", 1, 10, 0)
	_, err = b.ApplyResult("R1M1", 1, 10, 0, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, ErrMatchAlreadyScored, "a completed match cannot be reported twice")
}

func TestForfeitCountsAsTerminal(t *testing.T) {
	matches := generate(t, models.TypeSingleElimination, 2)
	b := NewBracket(models.TypeSingleElimination, matches)
	b.ActivateInitial()

	progress, err := b.ApplyResult("R1M1", 2, 0, 0, models.MatchStatusForfeit)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.Equal(t, 1, progress.FinalRanks[2])
}
