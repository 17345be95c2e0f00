package game

import (
	"math/rand"

	"github.com/Dosada05/pong-arena/models"
)

// Logical canvas. All clients render from these plane coordinates; the
// server state is authoritative and no client-side prediction is assumed.
const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0
	PaddleWidth  = 12.0
	PaddleHeight = 90.0
	PaddleMargin = 20.0
	BallRadius   = 8.0

	TickRate     = 30 // simulation ticks per second
	WinningScore = 10
)

// profileConstants are the per-second base velocities selected by a room's
// speed profile. Immutable for the room's lifetime.
type profileConstants struct {
	BallSpeed   float64
	PaddleSpeed float64
}

var speedProfiles = map[models.SpeedProfile]profileConstants{
	models.SpeedSlow:   {BallSpeed: 240, PaddleSpeed: 300},
	models.SpeedNormal: {BallSpeed: 330, PaddleSpeed: 420},
	models.SpeedFast:   {BallSpeed: 430, PaddleSpeed: 540},
}

const (
	// Bound on the vertical jitter added on paddle contact, as a fraction
	// of the profile ball speed.
	jitterRatio = 0.25
	// Cap on vertical velocity so rallies stay playable.
	maxVerticalRatio = 0.85
	// Serve angle spread, as a fraction of the profile ball speed.
	serveSpreadRatio = 0.5
)

type sideIndex int

const (
	left  sideIndex = 0
	right sideIndex = 1
)

func (i sideIndex) side() models.Side {
	if i == left {
		return models.SideLeft
	}
	return models.SideRight
}

// simState is the authoritative simulation state of one room. It is owned
// exclusively by the room and mutated only inside the tick step; every other
// code path reads it.
type simState struct {
	BallX, BallY   float64
	BallVX, BallVY float64
	PaddleY        [2]float64 // top coordinate, indexed by sideIndex
	PaddleDir      [2]float64 // -1, 0, 1 from player input
	Scores         [2]int

	consts profileConstants
	rng    *rand.Rand
}

// newSimState centers ball and paddles and serves in a random direction.
func newSimState(profile models.SpeedProfile, rng *rand.Rand) *simState {
	consts, ok := speedProfiles[profile]
	if !ok {
		consts = speedProfiles[models.SpeedNormal]
	}
	s := &simState{consts: consts, rng: rng}
	s.PaddleY[left] = (CanvasHeight - PaddleHeight) / 2
	s.PaddleY[right] = (CanvasHeight - PaddleHeight) / 2
	toward := left
	if rng.Intn(2) == 1 {
		toward = right
	}
	s.serve(toward)
	return s
}

// serve resets the ball to center with a fresh direction toward the given
// side, with a bounded random vertical component.
func (s *simState) serve(toward sideIndex) {
	s.BallX = CanvasWidth / 2
	s.BallY = CanvasHeight / 2
	vx := s.consts.BallSpeed
	if toward == left {
		vx = -vx
	}
	s.BallVX = vx
	s.BallVY = (s.rng.Float64()*2 - 1) * s.consts.BallSpeed * serveSpreadRatio
}

// tickOutcome reports what one step produced.
type tickOutcome struct {
	Scored   bool
	Finished bool
	Winner   models.Side
}

// step advances the simulation by dt seconds: paddle movement clamped to the
// field, wall reflection, paddle contact with bounded jitter, goal detection
// with a serve biased toward the side that just conceded, and termination at
// the winning score.
func (s *simState) step(dt float64) tickOutcome {
	for i := range s.PaddleY {
		s.PaddleY[i] += s.PaddleDir[i] * s.consts.PaddleSpeed * dt
		if s.PaddleY[i] < 0 {
			s.PaddleY[i] = 0
		}
		if s.PaddleY[i] > CanvasHeight-PaddleHeight {
			s.PaddleY[i] = CanvasHeight - PaddleHeight
		}
	}

	prevX := s.BallX
	s.BallX += s.BallVX * dt
	s.BallY += s.BallVY * dt

	// Top and bottom walls.
	if s.BallY-BallRadius < 0 {
		s.BallY = BallRadius
		s.BallVY = -s.BallVY
	} else if s.BallY+BallRadius > CanvasHeight {
		s.BallY = CanvasHeight - BallRadius
		s.BallVY = -s.BallVY
	}

	// Paddle contact: reverse horizontal velocity, perturb vertical. The
	// fast profile moves the ball farther per tick than the paddle is deep,
	// so contact is tested against the span swept this step, not just the
	// final position.
	leftFace := PaddleMargin + PaddleWidth
	rightFace := CanvasWidth - PaddleMargin - PaddleWidth
	if s.BallVX < 0 &&
		prevX-BallRadius >= PaddleMargin && s.BallX-BallRadius <= leftFace &&
		s.withinPaddle(left) {
		s.BallX = leftFace + BallRadius
		s.bounce()
	} else if s.BallVX > 0 &&
		prevX+BallRadius <= CanvasWidth-PaddleMargin && s.BallX+BallRadius >= rightFace &&
		s.withinPaddle(right) {
		s.BallX = rightFace - BallRadius
		s.bounce()
	}

	// Goal lines.
	var out tickOutcome
	if s.BallX < 0 {
		s.Scores[right]++
		out.Scored = true
		s.serve(left)
	} else if s.BallX > CanvasWidth {
		s.Scores[left]++
		out.Scored = true
		s.serve(right)
	}

	if s.Scores[left] >= WinningScore {
		out.Finished = true
		out.Winner = models.SideLeft
	} else if s.Scores[right] >= WinningScore {
		out.Finished = true
		out.Winner = models.SideRight
	}
	return out
}

func (s *simState) withinPaddle(i sideIndex) bool {
	return s.BallY+BallRadius >= s.PaddleY[i] && s.BallY-BallRadius <= s.PaddleY[i]+PaddleHeight
}

// bounce reverses horizontal travel and jitters the vertical component
// inside a fixed band to avoid degenerate rallies.
func (s *simState) bounce() {
	s.BallVX = -s.BallVX
	s.BallVY += (s.rng.Float64()*2 - 1) * s.consts.BallSpeed * jitterRatio
	maxVY := s.consts.BallSpeed * maxVerticalRatio
	if s.BallVY > maxVY {
		s.BallVY = maxVY
	}
	if s.BallVY < -maxVY {
		s.BallVY = -maxVY
	}
}

// snapshot builds the broadcast view of the state.
func (s *simState) snapshot() MatchTickPayload {
	return MatchTickPayload{
		Ball:    BallState{X: s.BallX, Y: s.BallY, VX: s.BallVX, VY: s.BallVY},
		Paddles: s.PaddleY,
		Scores:  s.Scores,
	}
}
