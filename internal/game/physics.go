package game

import (
	"math"

	"github.com/vovakirdan/netpong/internal/core"
)

// EventKind tags an Event.
type EventKind int

const (
	EventScored EventKind = iota + 1
	EventWallBounce
	EventPaddleHit
	EventGameOver
)

func (k EventKind) String() string {
	switch k {
	case EventScored:
		return "scored"
	case EventWallBounce:
		return "wall_bounce"
	case EventPaddleHit:
		return "paddle_hit"
	case EventGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Event is something that happened during a Step.
// Side is set for scored, paddle hit and game over; Slot for paddle hit.
type Event struct {
	Kind EventKind
	Side Side
	Slot Slot
}

// Step advances a playing match by one fixed tick. It is a no-op in any
// other status. Order: paddles, ball, walls, paddles hit, scoring.
// Ticks is left to the caller's loop.
func Step(s *State, p Params) []Event {
	if s.Status != StatusPlaying {
		return nil
	}

	var events []Event

	for i := range s.Paddles {
		s.movePaddle(&s.Paddles[i])
	}

	b := &s.Ball
	prevX := b.X
	b.X += b.VX
	b.Y += b.VY

	if b.Y-b.Radius < 0 {
		b.Y = b.Radius
		b.VY = math.Abs(b.VY)
		accelerate(b, p)
		events = append(events, Event{Kind: EventWallBounce})
	} else if b.Y+b.Radius > s.Height {
		b.Y = s.Height - b.Radius
		b.VY = -math.Abs(b.VY)
		accelerate(b, p)
		events = append(events, Event{Kind: EventWallBounce})
	}

	if hit := collidePaddles(s, prevX, p); hit != nil {
		events = append(events, Event{Kind: EventPaddleHit, Side: hit.Side, Slot: hit.Slot})
	}

	var scorer Side
	switch {
	case b.X > s.Width-b.Radius:
		scorer = SideLeft
	case b.X < b.Radius:
		scorer = SideRight
	}
	if scorer != SideNone {
		s.Score.Point(scorer)
		events = append(events, Event{Kind: EventScored, Side: scorer})
		if s.Score.Of(scorer) >= p.WinScore {
			s.Status = StatusFinished
			s.Winner = scorer
			b.X, b.Y = s.Width/2, s.Height/2
			b.VX, b.VY = 0, 0
			events = append(events, Event{Kind: EventGameOver, Side: scorer})
		} else {
			s.ResetBall(p)
		}
	}

	return events
}

// collidePaddles tests the ball's swept box, from its previous x to its
// current x, against every paddle. A paddle only returns balls travelling
// towards its own goal, and the previous x must be in front of the paddle's
// centre line; the ball is then snapped just outside the front face.
// At most one paddle is hit per tick.
func collidePaddles(s *State, prevX float64, p Params) *Paddle {
	b := &s.Ball
	swept := core.Box{
		X: math.Min(prevX, b.X) - b.Radius,
		Y: b.Y - b.Radius,
		W: math.Abs(b.X-prevX) + 2*b.Radius,
		H: 2 * b.Radius,
	}

	for i := range s.Paddles {
		pad := &s.Paddles[i]
		if !swept.Intersects(pad.Bounds()) {
			continue
		}

		mid := pad.X + pad.Width/2
		switch pad.Side {
		case SideLeft:
			if b.VX >= 0 || prevX < mid {
				continue
			}
			b.X = pad.Right() + b.Radius
		case SideRight:
			if b.VX <= 0 || prevX > mid {
				continue
			}
			b.X = pad.X - b.Radius
		default:
			continue
		}
		b.VX = -b.VX

		rel := core.ClampF((b.Y-pad.Bounds().CenterY())/(pad.Height/2), -1, 1)
		b.VY = rel * p.BaseVerticalSpeed
		accelerate(b, p)
		return pad
	}
	return nil
}

// Right returns the x of the paddle's right face.
func (p Paddle) Right() float64 {
	return p.X + p.Width
}

// accelerate applies the per-collision speed factor, then clamps the total
// speed to MaxBallSpeed.
func accelerate(b *Ball, p Params) {
	b.VX *= p.SpeedIncrease
	b.VY *= p.SpeedIncrease
	clampSpeed(b, p.MaxBallSpeed)
}

func clampSpeed(b *Ball, limit float64) {
	speed := math.Hypot(b.VX, b.VY)
	if speed > limit && speed > 0 {
		k := limit / speed
		b.VX *= k
		b.VY *= k
	}
}
