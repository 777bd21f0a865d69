// Package config provides YAML-based game configuration loading, difficulty
// management and layered server configuration for netpong.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PongConfig contains all tunables consumed at match creation.
type PongConfig struct {
	Canvas     PongCanvas       `yaml:"canvas"`
	Physics    PongPhysics      `yaml:"physics"`
	Paddles    PongPaddles      `yaml:"paddles"`
	Gameplay   PongGameplay     `yaml:"gameplay"`
	AI         PongAI           `yaml:"ai"`
	Difficulty DifficultyConfig `yaml:"difficulty"`
}

// PongCanvas defines the world dimensions. Fixed per match.
type PongCanvas struct {
	Width  int `yaml:"width" validate:"gte=200"`
	Height int `yaml:"height" validate:"gte=150"`
}

// PongPhysics defines ball and paddle motion, in world units per tick.
type PongPhysics struct {
	BallSpeed         float64 `yaml:"ball_speed" validate:"gt=0"`
	BaseVerticalSpeed float64 `yaml:"base_vertical_speed" validate:"gte=0"`
	SpeedIncrease     float64 `yaml:"speed_increase" validate:"gte=1"`
	MaxBallSpeed      float64 `yaml:"max_ball_speed" validate:"gtefield=BallSpeed"`
	PaddleSpeed       float64 `yaml:"paddle_speed" validate:"gt=0"`
	BallRadius        float64 `yaml:"ball_radius" validate:"gt=0"`
}

// PongPaddles defines paddle geometry.
type PongPaddles struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
	Offset float64 `yaml:"offset" validate:"gte=0"` // Distance of primary paddles from the edge
}

// PongGameplay defines match rules and loop rates.
type PongGameplay struct {
	WinScore     int `yaml:"win_score" validate:"gte=1"`
	CountdownMs  int `yaml:"countdown_ms" validate:"gte=0"`
	TickRate     int `yaml:"tick_rate" validate:"gte=1,lte=240"`
	SnapshotRate int `yaml:"snapshot_rate" validate:"gte=1,ltefield=TickRate"`
}

// PongAI defines the computer opponent's reaction range (0-1, 1 = perfect).
type PongAI struct {
	MinSkill float64 `yaml:"min_skill" validate:"gte=0,lte=1"`
	MaxSkill float64 `yaml:"max_skill" validate:"gtefield=MinSkill,lte=1"`
}

var validate = validator.New()

// Validate checks struct constraints and cross-section geometry.
func (c PongConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid pong config: %w", err)
	}
	if c.Paddles.Height >= float64(c.Canvas.Height) {
		return fmt.Errorf("config: paddle height %.0f does not fit canvas height %d", c.Paddles.Height, c.Canvas.Height)
	}
	if 2*c.Physics.BallRadius >= float64(c.Canvas.Height) {
		return fmt.Errorf("config: ball radius %.1f does not fit canvas height %d", c.Physics.BallRadius, c.Canvas.Height)
	}
	return nil
}

// DifficultyConfig defines the difficulty progression system.
type DifficultyConfig struct {
	Enabled      bool              `yaml:"enabled"`
	InitialLevel float64           `yaml:"initial_level" validate:"gte=0,lte=1"` // 0.0 = easy, 1.0 = hard
	Progression  ProgressionConfig `yaml:"progression"`
}

// ProgressionConfig defines how difficulty increases over time.
type ProgressionConfig struct {
	Type  string `yaml:"type" validate:"omitempty,oneof=score time none"`
	MaxAt int    `yaml:"max_at" validate:"gte=0"` // Score/ticks at which max difficulty is reached
}

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed"
)

// ParsePreset validates a preset name. Empty means normal.
func ParsePreset(s string) (DifficultyPreset, error) {
	switch p := DifficultyPreset(s); p {
	case "":
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyFixed:
		return p, nil
	default:
		return "", fmt.Errorf("config: unknown difficulty %q", s)
	}
}

// InitialLevelForPreset returns the initial_level for a difficulty preset.
func InitialLevelForPreset(preset DifficultyPreset) float64 {
	switch preset {
	case DifficultyEasy:
		return 0.0
	case DifficultyNormal:
		return 0.3
	case DifficultyHard:
		return 0.7
	default:
		return 0.0
	}
}
