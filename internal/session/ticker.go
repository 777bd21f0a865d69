package session

import "time"

// Ticker delivers simulation ticks. Tests substitute a manual ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct {
	t *time.Ticker
}

// NewTicker wraps time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(d)}
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }
func (w *wallTicker) Stop()               { w.t.Stop() }
