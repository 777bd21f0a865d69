package game

import (
	"time"

	"github.com/vovakirdan/netpong/internal/config"
)

// countdownEpsilon absorbs float drift when the countdown approaches zero.
const countdownEpsilon = 1e-6

// Params are the tunables a match is created with.
type Params struct {
	Width, Height float64

	PaddleWidth  float64
	PaddleHeight float64
	PaddleOffset float64
	PaddleSpeed  float64

	BallRadius        float64
	BallSpeed         float64
	BaseVerticalSpeed float64
	SpeedIncrease     float64
	MaxBallSpeed      float64

	WinScore     int
	CountdownMs  float64
	TickRate     int
	SnapshotRate int
}

// NewParams converts the yaml tunables into simulation parameters.
func NewParams(cfg config.PongConfig) Params {
	return Params{
		Width:             float64(cfg.Canvas.Width),
		Height:            float64(cfg.Canvas.Height),
		PaddleWidth:       cfg.Paddles.Width,
		PaddleHeight:      cfg.Paddles.Height,
		PaddleOffset:      cfg.Paddles.Offset,
		PaddleSpeed:       cfg.Physics.PaddleSpeed,
		BallRadius:        cfg.Physics.BallRadius,
		BallSpeed:         cfg.Physics.BallSpeed,
		BaseVerticalSpeed: cfg.Physics.BaseVerticalSpeed,
		SpeedIncrease:     cfg.Physics.SpeedIncrease,
		MaxBallSpeed:      cfg.Physics.MaxBallSpeed,
		WinScore:          cfg.Gameplay.WinScore,
		CountdownMs:       float64(cfg.Gameplay.CountdownMs),
		TickRate:          cfg.Gameplay.TickRate,
		SnapshotRate:      cfg.Gameplay.SnapshotRate,
	}
}

// DefaultParams returns the parameters of the default configuration.
func DefaultParams() Params {
	return NewParams(config.DefaultPongConfig())
}

// TickInterval is the wall-clock period of one simulation tick.
func (p Params) TickInterval() time.Duration {
	return time.Second / time.Duration(max(1, p.TickRate))
}

// TickMs is the countdown decrement applied per tick.
func (p Params) TickMs() float64 {
	return 1000.0 / float64(max(1, p.TickRate))
}

// SnapshotEvery returns how many ticks pass between two snapshots.
func (p Params) SnapshotEvery() int {
	if p.SnapshotRate <= 0 {
		return 1
	}
	return max(1, p.TickRate/p.SnapshotRate)
}
