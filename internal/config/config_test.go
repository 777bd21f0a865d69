package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaultPongConfigValid(t *testing.T) {
	if err := DefaultPongConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestEmbeddedYAMLMatchesDefaults(t *testing.T) {
	var cfg PongConfig
	if err := yaml.Unmarshal(DefaultPongYAML(), &cfg); err != nil {
		t.Fatalf("embedded yaml does not parse: %v", err)
	}
	if cfg != DefaultPongConfig() {
		t.Errorf("embedded yaml and DefaultPongConfig disagree:\n%+v\n%+v", cfg, DefaultPongConfig())
	}
}

func TestLoadPongCustomPathOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pong.yaml")
	data := []byte("gameplay:\n  win_score: 11\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPong(path)
	if err != nil {
		t.Fatalf("LoadPong: %v", err)
	}
	if cfg.Gameplay.WinScore != 11 {
		t.Errorf("WinScore = %d, expected 11", cfg.Gameplay.WinScore)
	}
	if cfg.Canvas.Width != 800 || cfg.Gameplay.TickRate != 60 {
		t.Errorf("unspecified keys should keep defaults, got %+v", cfg)
	}
}

func TestLoadPongRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"snapshot faster than tick", "gameplay:\n  snapshot_rate: 120\n"},
		{"speed increase below one", "physics:\n  speed_increase: 0.5\n"},
		{"max speed below base", "physics:\n  max_ball_speed: 1\n"},
		{"paddle taller than canvas", "paddles:\n  height: 700\n"},
		{"zero win score", "gameplay:\n  win_score: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pong.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadPong(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadPongMissingCustomPath(t *testing.T) {
	if _, err := LoadPong(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing custom path")
	}
}

func TestParsePreset(t *testing.T) {
	if p, err := ParsePreset(""); err != nil || p != DifficultyNormal {
		t.Errorf("empty preset = %q, %v", p, err)
	}
	if _, err := ParsePreset("nightmare"); err == nil {
		t.Error("unknown preset should fail")
	}
}

func TestApplyPongPreset(t *testing.T) {
	cfg := DefaultPongConfig()
	ApplyPongPreset(&cfg, DifficultyFixed)
	if cfg.Difficulty.Enabled {
		t.Error("fixed preset should disable progression")
	}

	cfg = DefaultPongConfig()
	ApplyPongPreset(&cfg, DifficultyHard)
	if cfg.Difficulty.InitialLevel != 0.7 {
		t.Errorf("hard InitialLevel = %v", cfg.Difficulty.InitialLevel)
	}
	if cfg.AI.MinSkill < 0.8 || cfg.AI.MaxSkill < cfg.AI.MinSkill {
		t.Errorf("hard AI range = %+v", cfg.AI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset produced invalid config: %v", err)
	}
}

func TestSkillCurve(t *testing.T) {
	ai := PongAI{MinSkill: 0.6, MaxSkill: 0.8}
	c := NewSkillCurve(ai, DifficultyConfig{
		Enabled:      true,
		InitialLevel: 0.5,
		Progression:  ProgressionConfig{Type: "time", MaxAt: 100},
	})
	if !c.Progressive() {
		t.Fatal("time curve should progress")
	}

	tests := []struct {
		ticks    int
		expected float64
	}{
		{0, 0.5},
		{50, 0.75},
		{100, 1.0},
		{1000, 1.0},
	}
	for _, tc := range tests {
		if got := c.Level(0, tc.ticks); got != tc.expected {
			t.Errorf("Level(ticks=%d) = %v, expected %v", tc.ticks, got, tc.expected)
		}
	}

	if got := c.Skill(0, 100); got != 0.8 {
		t.Errorf("Skill at max = %v, expected 0.8", got)
	}
	if got := c.Skill(0, 0); got < 0.699 || got > 0.701 {
		t.Errorf("Skill at kickoff = %v, expected 0.7", got)
	}
}

func TestSkillCurveByScore(t *testing.T) {
	c := NewSkillCurve(PongAI{MinSkill: 0, MaxSkill: 1}, DifficultyConfig{
		Enabled:     true,
		Progression: ProgressionConfig{Type: "score", MaxAt: 4},
	})
	if got := c.Level(2, 10000); got != 0.5 {
		t.Errorf("Level(score=2) = %v, expected 0.5", got)
	}
}

func TestSkillCurveDisabled(t *testing.T) {
	c := NewSkillCurve(PongAI{MinSkill: 0, MaxSkill: 1}, DifficultyConfig{
		Enabled:      false,
		InitialLevel: 0.3,
		Progression:  ProgressionConfig{Type: "score", MaxAt: 10},
	})
	if c.Progressive() {
		t.Error("should be fixed")
	}
	if got := c.Level(100, 100); got != 0.3 {
		t.Errorf("fixed Level = %v, expected initial level", got)
	}
}

func TestLoadServerDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadServer("")
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Match.SearchTimeout != 60*time.Second {
		t.Errorf("SearchTimeout = %v", cfg.Match.SearchTimeout)
	}
	if cfg.HTTP.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.HTTP.Addr())
	}
}

func TestLoadServerLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netpong.yaml")
	data := []byte("server:\n  port: 9000\nmatch:\n  search_timeout: 30s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("NETPONG_SERVER_PORT", "9100")
	t.Setenv("NETPONG_LOGGING_LEVEL", "debug")

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.HTTP.Port != 9100 {
		t.Errorf("env should override file: port = %d", cfg.HTTP.Port)
	}
	if cfg.Match.SearchTimeout != 30*time.Second {
		t.Errorf("file should override defaults: search_timeout = %v", cfg.Match.SearchTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Match.SendBuffer != 256 {
		t.Errorf("untouched default changed: send_buffer = %d", cfg.Match.SendBuffer)
	}
}

func TestLoadServerInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NETPONG_LOGGING_LEVEL", "chatty")

	if _, err := LoadServer(""); err == nil {
		t.Error("expected validation error for bad log level")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"NETPONG_SERVER_PORT":          "server.port",
		"NETPONG_MATCH_SEARCH_TIMEOUT": "match.search_timeout",
		"NETPONG_DATABASE_PATH":        "database.path",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, expected %q", in, got, want)
		}
	}
}
