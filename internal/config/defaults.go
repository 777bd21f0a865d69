package config

import (
	_ "embed"
)

//go:embed defaults/pong.yaml
var defaultPongYAML []byte

// DefaultPongConfig returns the default Pong configuration.
// It mirrors defaults/pong.yaml and backs it up if the embed fails to parse.
func DefaultPongConfig() PongConfig {
	return PongConfig{
		Canvas: PongCanvas{
			Width:  800,
			Height: 600,
		},
		Physics: PongPhysics{
			BallSpeed:         5,
			BaseVerticalSpeed: 5,
			SpeedIncrease:     1.05,
			MaxBallSpeed:      15,
			PaddleSpeed:       6,
			BallRadius:        10,
		},
		Paddles: PongPaddles{
			Width:  10,
			Height: 100,
			Offset: 10,
		},
		Gameplay: PongGameplay{
			WinScore:     5,
			CountdownMs:  5000,
			TickRate:     60,
			SnapshotRate: 30,
		},
		AI: PongAI{
			MinSkill: 0.6,
			MaxSkill: 0.9,
		},
		Difficulty: DifficultyConfig{
			Enabled:      true,
			InitialLevel: 0.0,
			Progression: ProgressionConfig{
				Type:  "time",
				MaxAt: 36000, // 10 minutes at 60fps
			},
		},
	}
}

// DefaultPongYAML returns the embedded default YAML, for `netpong play --dump-config`.
func DefaultPongYAML() []byte {
	return defaultPongYAML
}
