package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pong-arena/models"
)

func newTestSim(t *testing.T, profile models.SpeedProfile) *simState {
	t.Helper()
	return newSimState(profile, rand.New(rand.NewSource(1)))
}

func TestNewSimStateStartsCentered(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)

	assert.Equal(t, CanvasWidth/2, s.BallX)
	assert.Equal(t, CanvasHeight/2, s.BallY)
	assert.Equal(t, (CanvasHeight-PaddleHeight)/2, s.PaddleY[left])
	assert.Equal(t, (CanvasHeight-PaddleHeight)/2, s.PaddleY[right])
	assert.Equal(t, [2]int{0, 0}, s.Scores)
	assert.Equal(t, speedProfiles[models.SpeedNormal].BallSpeed, math.Abs(s.BallVX))
}

func TestSpeedProfilesScaleVelocity(t *testing.T) {
	slow := newTestSim(t, models.SpeedSlow)
	fast := newTestSim(t, models.SpeedFast)

	assert.Greater(t, math.Abs(fast.BallVX), math.Abs(slow.BallVX))
	assert.Greater(t, fast.consts.PaddleSpeed, slow.consts.PaddleSpeed)
}

func TestUnknownProfileFallsBackToNormal(t *testing.T) {
	s := newSimState(models.SpeedProfile("warp"), rand.New(rand.NewSource(1)))
	assert.Equal(t, speedProfiles[models.SpeedNormal], s.consts)
}

func TestPaddleMovementClampedToField(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.PaddleDir[left] = -1
	s.PaddleDir[right] = 1

	// Park the ball so scoring never interferes.
	s.BallVX = 0
	s.BallVY = 0
	for i := 0; i < 200; i++ {
		s.step(1.0 / TickRate)
	}

	assert.Equal(t, 0.0, s.PaddleY[left])
	assert.Equal(t, CanvasHeight-PaddleHeight, s.PaddleY[right])
}

func TestWallBounceReflectsVertical(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.BallX = CanvasWidth / 2
	s.BallY = BallRadius + 1
	s.BallVX = 0
	s.BallVY = -300

	s.step(1.0 / TickRate)

	assert.Greater(t, s.BallVY, 0.0, "vertical velocity should reverse off the top wall")
	assert.GreaterOrEqual(t, s.BallY, BallRadius)

	s.BallY = CanvasHeight - BallRadius - 1
	s.BallVY = 300
	s.step(1.0 / TickRate)
	assert.Less(t, s.BallVY, 0.0, "vertical velocity should reverse off the bottom wall")
}

func TestPaddleBounceReversesHorizontal(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.BallY = s.PaddleY[left] + PaddleHeight/2
	s.BallX = PaddleMargin + PaddleWidth + BallRadius + 2
	s.BallVX = -speedProfiles[models.SpeedNormal].BallSpeed
	s.BallVY = 0

	out := s.step(1.0 / TickRate)

	assert.False(t, out.Scored)
	assert.Greater(t, s.BallVX, 0.0, "horizontal velocity should reverse off the left paddle")
	maxVY := speedProfiles[models.SpeedNormal].BallSpeed * maxVerticalRatio
	assert.LessOrEqual(t, math.Abs(s.BallVY), maxVY)
}

func TestFastBallCannotTunnelThroughPaddle(t *testing.T) {
	// At the fast profile the ball covers more ground per tick than the
	// paddle is deep, so a defended approach must still register contact.
	s := newTestSim(t, models.SpeedFast)
	s.PaddleY[left] = CanvasHeight/2 - PaddleHeight/2
	s.BallY = CanvasHeight / 2
	s.BallX = PaddleMargin + PaddleWidth + BallRadius + 0.5
	s.BallVX = -speedProfiles[models.SpeedFast].BallSpeed
	s.BallVY = 0

	for i := 0; i < 3; i++ {
		out := s.step(1.0 / TickRate)
		require.False(t, out.Scored, "tick %d: goal conceded through an aligned paddle", i+1)
	}

	assert.Greater(t, s.BallVX, 0.0, "horizontal velocity should reverse off the left paddle")
	assert.Equal(t, [2]int{0, 0}, s.Scores)
}

func TestBallPassesMissedPaddle(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.PaddleY[left] = 0 // paddle at the very top
	s.BallY = CanvasHeight - 50
	s.BallX = PaddleMargin + PaddleWidth + BallRadius + 2
	s.BallVX = -2000
	s.BallVY = 0

	out := s.step(1.0 / TickRate)

	require.True(t, out.Scored)
	assert.Equal(t, 1, s.Scores[right])
}

func TestGoalScoresAndServesTowardConcedingSide(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.BallX = CanvasWidth - 1
	s.BallY = 50 // far from the right paddle
	s.BallVX = 600
	s.BallVY = 0

	out := s.step(1.0 / TickRate)

	require.True(t, out.Scored)
	assert.False(t, out.Finished)
	assert.Equal(t, 1, s.Scores[left])
	assert.Equal(t, 0, s.Scores[right])
	assert.Equal(t, CanvasWidth/2, s.BallX, "ball should reset to center after a goal")
	assert.Equal(t, CanvasHeight/2, s.BallY)
	assert.Greater(t, s.BallVX, 0.0, "serve should head toward the side that conceded")
}

func TestMatchEndsAtWinningScore(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.Scores[left] = WinningScore - 1
	s.BallX = CanvasWidth - 1
	s.BallY = 50
	s.BallVX = 600
	s.BallVY = 0

	out := s.step(1.0 / TickRate)

	require.True(t, out.Finished)
	assert.Equal(t, models.SideLeft, out.Winner)
	assert.Equal(t, WinningScore, s.Scores[left])
}

func TestSnapshotMirrorsState(t *testing.T) {
	s := newTestSim(t, models.SpeedNormal)
	s.Scores = [2]int{3, 7}
	s.PaddleY[left] = 120

	snap := s.snapshot()
	assert.Equal(t, s.BallX, snap.Ball.X)
	assert.Equal(t, s.BallY, snap.Ball.Y)
	assert.Equal(t, [2]float64{120, (CanvasHeight - PaddleHeight) / 2}, snap.Paddles)
	assert.Equal(t, [2]int{3, 7}, snap.Scores)
}
