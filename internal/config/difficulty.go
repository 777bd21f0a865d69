package config

// SkillCurve maps how far a vs_ai match has progressed onto the CPU
// paddle's reaction skill, between PongAI.MinSkill and PongAI.MaxSkill.
type SkillCurve struct {
	minSkill float64
	maxSkill float64
	start    float64 // Level at kickoff, 0-1
	by       string  // "score", "time" or "none"
	maxAt    float64 // Score or ticks at which the curve tops out
}

// NewSkillCurve builds the curve for one match. A disabled progression
// holds the AI at its initial level for the whole match.
func NewSkillCurve(ai PongAI, d DifficultyConfig) SkillCurve {
	c := SkillCurve{
		minSkill: ai.MinSkill,
		maxSkill: ai.MaxSkill,
		start:    clamp01(d.InitialLevel),
		by:       d.Progression.Type,
		maxAt:    float64(max(d.Progression.MaxAt, 1)),
	}
	if !d.Enabled || c.by == "" {
		c.by = "none"
	}
	return c
}

// Progressive reports whether the level moves during the match.
func (c SkillCurve) Progressive() bool {
	return c.by != "none"
}

// Level is the difficulty in [start, 1] after the AI's opponent has scored
// score points over ticks ticks.
func (c SkillCurve) Level(score, ticks int) float64 {
	var progress float64
	switch c.by {
	case "score":
		progress = float64(score) / c.maxAt
	case "time":
		progress = float64(ticks) / c.maxAt
	default:
		return c.start
	}
	return c.start + clamp01(progress)*(1-c.start)
}

// Skill maps Level onto the configured skill range.
func (c SkillCurve) Skill(score, ticks int) float64 {
	return c.minSkill + c.Level(score, ticks)*(c.maxSkill-c.minSkill)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
