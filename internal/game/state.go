package game

import (
	"math/rand"
	"time"

	"github.com/vovakirdan/netpong/internal/core"
)

// State is the full state of one match. It is owned by a single goroutine.
type State struct {
	Mode    Mode
	Width   float64
	Height  float64
	Ball    Ball
	Paddles []Paddle // Left side first, primary before secondary
	Score   Score
	Status  Status
	Winner  Side

	// CountdownMs is the time left before play starts.
	CountdownMs float64
	StartedAt   time.Time
	Ticks       uint64 // Loop ticks since the match was created, one per tick

	played   bool   // PLAYING was reached at least once
	resumeTo Status // Status to restore after a local pause
	rng      *rand.Rand
}

// NewState builds the paddle layout for mode and centres the ball.
// The seed makes serves reproducible.
func NewState(mode Mode, p Params, seed int64) *State {
	s := &State{
		Mode:   mode,
		Width:  p.Width,
		Height: p.Height,
		Status: StatusWaiting,
		rng:    rand.New(rand.NewSource(seed)),
	}

	left, right := mode.Layout()
	s.Paddles = make([]Paddle, 0, left+right)
	for slot := range left {
		s.Paddles = append(s.Paddles, s.newPaddle(SideLeft, Slot(slot), p))
	}
	for slot := range right {
		s.Paddles = append(s.Paddles, s.newPaddle(SideRight, Slot(slot), p))
	}

	s.Ball = Ball{X: p.Width / 2, Y: p.Height / 2, Radius: p.BallRadius}
	return s
}

// newPaddle places a paddle: primaries sit PaddleOffset from their edge,
// secondaries a quarter of the width in from their edge.
func (s *State) newPaddle(side Side, slot Slot, p Params) Paddle {
	var x float64
	switch {
	case side == SideLeft && slot == SlotPrimary:
		x = p.PaddleOffset
	case side == SideLeft:
		x = p.Width / 4
	case slot == SlotPrimary:
		x = p.Width - p.PaddleOffset - p.PaddleWidth
	default:
		x = p.Width - p.Width/4 - p.PaddleWidth
	}
	return Paddle{
		Side:   side,
		Slot:   slot,
		X:      x,
		Y:      (p.Height - p.PaddleHeight) / 2,
		Width:  p.PaddleWidth,
		Height: p.PaddleHeight,
	}
}

// Paddle returns the paddle at (side, slot), or nil if the mode has none.
func (s *State) Paddle(side Side, slot Slot) *Paddle {
	for i := range s.Paddles {
		if s.Paddles[i].Side == side && s.Paddles[i].Slot == slot {
			return &s.Paddles[i]
		}
	}
	return nil
}

// ApplyIntent sets paddle velocities for side from a held-key intent.
// Last call wins; nothing is queued.
func (s *State) ApplyIntent(side Side, in core.Intent, speed float64) {
	if p := s.Paddle(side, SlotPrimary); p != nil {
		p.DY = float64(in.Primary) * speed
	}
	if p := s.Paddle(side, SlotSecondary); p != nil {
		p.DY = float64(in.Secondary) * speed
	}
}

// MovePaddles integrates and clamps the paddles on side only.
// Guests use it for their own paddles between snapshots.
func (s *State) MovePaddles(side Side) {
	for i := range s.Paddles {
		if s.Paddles[i].Side == side {
			s.movePaddle(&s.Paddles[i])
		}
	}
}

func (s *State) movePaddle(p *Paddle) {
	p.Y = core.ClampF(p.Y+p.DY, 0, s.Height-p.Height)
}

// ResetBall serves from the centre at base speed with a random horizontal
// direction and no vertical speed.
func (s *State) ResetBall(p Params) {
	s.Ball.X = s.Width / 2
	s.Ball.Y = s.Height / 2
	s.Ball.VY = 0
	s.Ball.VX = p.BallSpeed
	if s.rng.Intn(2) == 0 {
		s.Ball.VX = -p.BallSpeed
	}
}

// StartCountdown resets the score and arms the pre-play countdown.
func (s *State) StartCountdown(p Params) {
	s.Score.Reset()
	s.Winner = SideNone
	s.played = false
	s.Status = StatusCountdown
	s.CountdownMs = p.CountdownMs
	s.Ball.X, s.Ball.Y = s.Width/2, s.Height/2
	s.Ball.VX, s.Ball.VY = 0, 0
}

// TickCountdown advances the countdown by one tick. When it runs out the
// ball is served and the match starts playing; the return value reports
// that transition.
func (s *State) TickCountdown(p Params) bool {
	if s.Status != StatusCountdown {
		return false
	}
	s.CountdownMs -= p.TickMs()
	if s.CountdownMs > countdownEpsilon {
		return false
	}
	s.CountdownMs = 0
	s.ResetBall(p)
	s.Status = StatusPlaying
	s.played = true
	return true
}

// CountdownSeconds returns the whole seconds left, rounded up, for display.
func (s *State) CountdownSeconds() int {
	if s.CountdownMs <= countdownEpsilon {
		return 0
	}
	return int((s.CountdownMs + 999) / 1000)
}

// Pause suspends a local match. Online matches never pause.
func (s *State) Pause() bool {
	if s.Mode.Online() {
		return false
	}
	if s.Status != StatusPlaying && s.Status != StatusCountdown {
		return false
	}
	s.resumeTo = s.Status
	s.Status = StatusPaused
	return true
}

// Resume restores the status a local pause interrupted.
func (s *State) Resume() bool {
	if s.Status != StatusPaused {
		return false
	}
	s.Status = s.resumeTo
	return true
}

// Forfeit ends the match in favour of remaining. A match that never
// reached PLAYING is recorded as winScore-0; otherwise the current score
// stands. The outcome does not depend on which side left.
func (s *State) Forfeit(remaining Side, winScore int) {
	if s.Status == StatusFinished || !remaining.Valid() {
		return
	}
	if !s.played {
		s.Score.Reset()
		for range winScore {
			s.Score.Point(remaining)
		}
	}
	s.Winner = remaining
	s.Status = StatusFinished
	s.Ball.VX, s.Ball.VY = 0, 0
}

// Finished reports whether the match is over.
func (s *State) Finished() bool {
	return s.Status == StatusFinished
}

// DecayCountdown runs the countdown display on a peer that does not own the
// match: time goes down but the transition to PLAYING is left to the host.
func (s *State) DecayCountdown(p Params) {
	if s.Status != StatusCountdown {
		return
	}
	s.CountdownMs = max(0, s.CountdownMs-p.TickMs())
}

// Conclude records a result announced by the host. Scores only move up.
func (s *State) Conclude(winner Side, left, right int) {
	s.Score.left = max(s.Score.left, left)
	s.Score.right = max(s.Score.right, right)
	if winner.Valid() {
		s.Winner = winner
	}
	s.Status = StatusFinished
	s.Ball.VX, s.Ball.VY = 0, 0
}

// Clone returns a copy for rendering on another goroutine. The copy cannot
// serve balls.
func (s *State) Clone() *State {
	c := *s
	c.Paddles = append([]Paddle(nil), s.Paddles...)
	c.rng = nil
	return &c
}
