// Package game implements the pong rules: match state, the fixed-tick
// physics step, countdown and forfeit rules, the wire snapshot view and
// the computer opponent. Nothing here performs I/O or reads the clock.
package game

import (
	"fmt"

	"github.com/vovakirdan/netpong/internal/core"
)

// Side identifies one half of the court. The zero value means "nobody",
// which is what Winner holds until the match is decided.
type Side int

const (
	SideNone  Side = 0
	SideLeft  Side = 1 // player 1
	SideRight Side = 2 // player 2 (guest, or the AI in vs_ai)
)

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideNone
	}
}

// Valid reports whether s names a real side.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Slot selects one of a player's paddles in multi-paddle modes.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotSecondary
)

// Mode is the game mode string shared with peers on the wire.
type Mode string

const (
	Mode1v1Local  Mode = "1v1_local"
	Mode1v2Local  Mode = "1v2_local"
	Mode2v1Local  Mode = "2v1_local"
	Mode2v2Local  Mode = "2v2_local"
	Mode1v1Online Mode = "1v1_online"
	Mode1v2Online Mode = "1v2_online"
	Mode2v1Online Mode = "2v1_online"
	Mode2v2Online Mode = "2v2_online"
	ModeVsAI      Mode = "vs_ai"
)

// Modes lists every mode in menu order.
var Modes = []Mode{
	Mode1v1Online, Mode1v2Online, Mode2v1Online, Mode2v2Online,
	Mode1v1Local, Mode1v2Local, Mode2v1Local, Mode2v2Local,
	ModeVsAI,
}

// ParseMode converts a wire string to a Mode, rejecting unknown values.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("game: unknown mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Online reports whether the mode is played over the relay.
func (m Mode) Online() bool {
	switch m {
	case Mode1v1Online, Mode1v2Online, Mode2v1Online, Mode2v2Online:
		return true
	default:
		return false
	}
}

// Layout returns the paddle count for the left and right side.
func (m Mode) Layout() (left, right int) {
	switch m {
	case Mode1v2Local, Mode1v2Online:
		return 1, 2
	case Mode2v1Local, Mode2v1Online:
		return 2, 1
	case Mode2v2Local, Mode2v2Online:
		return 2, 2
	default:
		return 1, 1
	}
}

// PaddleCount returns the number of paddles on side.
func (m Mode) PaddleCount(side Side) int {
	l, r := m.Layout()
	if side == SideRight {
		return r
	}
	return l
}

// Title returns a human-readable label such as "2v1 online".
func (m Mode) Title() string {
	if m == ModeVsAI {
		return "vs AI"
	}
	l, r := m.Layout()
	where := "local"
	if m.Online() {
		where = "online"
	}
	return fmt.Sprintf("%dv%d %s", l, r, where)
}

// Status is the match status carried in snapshots as gameState.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusFinished  Status = "finished"
)

// Valid reports whether st is a known status.
func (st Status) Valid() bool {
	switch st {
	case StatusWaiting, StatusCountdown, StatusPlaying, StatusPaused, StatusFinished:
		return true
	default:
		return false
	}
}

// Ball is the single ball in play.
type Ball struct {
	X, Y   float64 // Centre
	VX, VY float64 // Velocity in world units per tick
	Radius float64
}

// Bounds returns the square approximation of the ball used for collisions.
func (b Ball) Bounds() core.Box {
	return core.Box{X: b.X - b.Radius, Y: b.Y - b.Radius, W: 2 * b.Radius, H: 2 * b.Radius}
}

// Paddle is one paddle. X is fixed by the layout; only Y and DY change.
type Paddle struct {
	Side   Side
	Slot   Slot
	X, Y   float64 // Top-left corner
	Width  float64
	Height float64
	DY     float64 // One of -speed, 0, +speed
}

// Bounds returns the paddle rectangle.
func (p Paddle) Bounds() core.Box {
	return core.Box{X: p.X, Y: p.Y, W: p.Width, H: p.Height}
}

// Score holds both counters. Points can only be added.
type Score struct {
	left, right int
}

// Point adds one point to side.
func (s *Score) Point(side Side) {
	switch side {
	case SideLeft:
		s.left++
	case SideRight:
		s.right++
	}
}

// Reset zeroes both counters. Only used at match start.
func (s *Score) Reset() {
	s.left, s.right = 0, 0
}

// Left returns player 1's score.
func (s Score) Left() int { return s.left }

// Right returns player 2's score.
func (s Score) Right() int { return s.right }

// Of returns the score of side.
func (s Score) Of(side Side) int {
	if side == SideRight {
		return s.right
	}
	return s.left
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.left, s.right)
}
