package game

import (
	"math"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/core"
)

// AIController drives the vs_ai opponent. It produces intents exactly like
// a human would, so the physics step treats it as just another player.
type AIController struct {
	side  Side
	curve config.SkillCurve

	target   float64 // Ball y the AI is currently aiming for
	cooldown int     // Ticks until the target is refreshed
}

// NewAIController creates an opponent for side.
func NewAIController(side Side, ai config.PongAI, diff config.DifficultyConfig) *AIController {
	return &AIController{
		side:   side,
		curve:  config.NewSkillCurve(ai, diff),
		target: -1,
	}
}

// Side returns the side the AI plays.
func (a *AIController) Side() Side {
	return a.side
}

// Skill returns the current reaction skill (0-1) on the AI's skill curve.
func (a *AIController) Skill(s *State) float64 {
	return a.curve.Skill(s.Score.Of(a.side.Other()), int(min(s.Ticks, math.MaxInt32)))
}

// Intent decides the AI's paddle direction for this tick.
// A weaker AI refreshes its idea of where the ball is less often and
// tolerates a larger miss before it moves.
func (a *AIController) Intent(s *State) core.Intent {
	pad := s.Paddle(a.side, SlotPrimary)
	if pad == nil || s.Status != StatusPlaying {
		return core.Intent{}
	}
	skill := a.Skill(s)

	incoming := (a.side == SideRight && s.Ball.VX > 0) || (a.side == SideLeft && s.Ball.VX < 0)
	if !incoming {
		// Drift back to the middle between rallies.
		a.target = s.Height / 2
		a.cooldown = 0
	} else if a.cooldown <= 0 || a.target < 0 {
		a.target = s.Ball.Y
		a.cooldown = int((1 - skill) * 20)
	} else {
		a.cooldown--
	}

	diff := a.target - pad.Bounds().CenterY()
	deadZone := pad.Height * (1.2 - skill) / 4
	switch {
	case diff > deadZone:
		return core.Intent{Primary: core.DirDown}
	case diff < -deadZone:
		return core.Intent{Primary: core.DirUp}
	default:
		return core.Intent{}
	}
}
