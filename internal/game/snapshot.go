package game

import (
	"math"
	"time"

	"github.com/vovakirdan/netpong/internal/core"
)

// Snapshot is the host's authoritative view of a match, as sent to guests.
// It uses value types only so it can be copied freely.
type Snapshot struct {
	Ball      BallView
	Player1   SideView
	Player2   SideView
	Score1    int
	Score2    int
	Status    Status
	Winner    Side
	Timestamp int64 // Host wall clock, Unix milliseconds
}

// BallView is the ball's position and velocity.
type BallView struct {
	X, Y   float64
	DX, DY float64
}

// SideView carries the paddle positions of one side.
// HasSecondary is false in modes where the side has a single paddle.
type SideView struct {
	Y            float64
	SecondaryY   float64
	HasSecondary bool
}

// Snapshot captures the current state.
func (s *State) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Ball:      BallView{X: s.Ball.X, Y: s.Ball.Y, DX: s.Ball.VX, DY: s.Ball.VY},
		Player1:   s.sideView(SideLeft),
		Player2:   s.sideView(SideRight),
		Score1:    s.Score.Left(),
		Score2:    s.Score.Right(),
		Status:    s.Status,
		Winner:    s.Winner,
		Timestamp: now.UnixMilli(),
	}
	return snap
}

func (s *State) sideView(side Side) SideView {
	var v SideView
	if p := s.Paddle(side, SlotPrimary); p != nil {
		v.Y = p.Y
	}
	if p := s.Paddle(side, SlotSecondary); p != nil {
		v.SecondaryY = p.Y
		v.HasSecondary = true
	}
	return v
}

// ApplySnapshot overwrites ball, score, status, winner and every paddle not
// on own with the snapshot's values. Pass SideNone to overwrite all paddles.
// Non-finite numbers are ignored, positions are clamped to the canvas and
// ball speed is clamped to maxSpeed. Scores never go down. Applying the same
// snapshot twice leaves the state unchanged the second time.
func (s *State) ApplySnapshot(snap Snapshot, own Side, maxSpeed float64) {
	b := &s.Ball
	b.X = core.ClampF(finiteOr(snap.Ball.X, b.X), 0, s.Width)
	b.Y = core.ClampF(finiteOr(snap.Ball.Y, b.Y), b.Radius, s.Height-b.Radius)
	b.VX = core.ClampF(finiteOr(snap.Ball.DX, b.VX), -maxSpeed, maxSpeed)
	b.VY = core.ClampF(finiteOr(snap.Ball.DY, b.VY), -maxSpeed, maxSpeed)
	clampSpeed(b, maxSpeed)

	s.Score.left = max(s.Score.left, snap.Score1)
	s.Score.right = max(s.Score.right, snap.Score2)

	if snap.Status.Valid() && snap.Status != StatusPaused {
		s.Status = snap.Status
		if s.Status == StatusPlaying {
			s.played = true
		}
	}
	if snap.Winner.Valid() || snap.Winner == SideNone {
		s.Winner = snap.Winner
	}

	if own != SideLeft {
		s.applySideView(SideLeft, snap.Player1)
	}
	if own != SideRight {
		s.applySideView(SideRight, snap.Player2)
	}
}

func (s *State) applySideView(side Side, v SideView) {
	if p := s.Paddle(side, SlotPrimary); p != nil {
		p.Y = core.ClampF(finiteOr(v.Y, p.Y), 0, s.Height-p.Height)
	}
	if !v.HasSecondary {
		return
	}
	if p := s.Paddle(side, SlotSecondary); p != nil {
		p.Y = core.ClampF(finiteOr(v.SecondaryY, p.Y), 0, s.Height-p.Height)
	}
}

// finiteOr returns v, or fallback when v is NaN or infinite.
func finiteOr(v, fallback float64) float64 {
	if core.Finite(v) {
		return v
	}
	return fallback
}

// Duration returns how long the match has been running at now.
func (s *State) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return max(0, now.Sub(s.StartedAt)).Round(time.Millisecond)
}

// SpeedOf returns the ball's total speed.
func SpeedOf(b Ball) float64 {
	return math.Hypot(b.VX, b.VY)
}
