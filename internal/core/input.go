package core

import "time"

// Direction is the vertical intent for a single paddle.
// The numeric value is the sign applied to the paddle speed.
type Direction int8

const (
	DirStop Direction = 0
	DirUp   Direction = -1
	DirDown Direction = 1
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "stop"
	}
}

// DirectionFromDY maps a signed vertical velocity to a direction.
// Only the sign matters; magnitudes from remote peers are never trusted.
func DirectionFromDY(dy float64) Direction {
	switch {
	case dy < 0:
		return DirUp
	case dy > 0:
		return DirDown
	default:
		return DirStop
	}
}

// Intent is everything one player wants their paddles to do this tick.
// It is computed once from the full set of held keys and then applied,
// never mutated piecemeal by individual key handlers.
type Intent struct {
	Primary   Direction
	Secondary Direction
}

// IsZero reports whether the intent stops every paddle.
func (i Intent) IsZero() bool {
	return i.Primary == DirStop && i.Secondary == DirStop
}

// HeldKeys tracks which keys are currently held down.
// Terminals report presses and auto-repeats but no releases, so a key counts
// as held until no repeat has arrived within the hold window.
type HeldKeys struct {
	hold    time.Duration
	pressed map[string]time.Time
}

// NewHeldKeys creates a tracker with the given hold window.
func NewHeldKeys(hold time.Duration) *HeldKeys {
	if hold <= 0 {
		hold = 150 * time.Millisecond
	}
	return &HeldKeys{
		hold:    hold,
		pressed: make(map[string]time.Time),
	}
}

// Press records a press (or auto-repeat) of key at now.
func (h *HeldKeys) Press(key string, now time.Time) {
	h.pressed[key] = now
}

// Release forgets key immediately.
func (h *HeldKeys) Release(key string) {
	delete(h.pressed, key)
}

// Clear releases every key.
func (h *HeldKeys) Clear() {
	clear(h.pressed)
}

// Held reports whether key is still within its hold window at now.
func (h *HeldKeys) Held(key string, now time.Time) bool {
	at, ok := h.pressed[key]
	if !ok {
		return false
	}
	if now.Sub(at) > h.hold {
		delete(h.pressed, key)
		return false
	}
	return true
}

// Direction resolves an up/down key pair. Holding both cancels out.
func (h *HeldKeys) Direction(up, down string, now time.Time) Direction {
	u := h.Held(up, now)
	d := h.Held(down, now)
	switch {
	case u && !d:
		return DirUp
	case d && !u:
		return DirDown
	default:
		return DirStop
	}
}
