package game

import (
	"testing"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/core"
)

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %q, %v", m, got, err)
		}
	}
	for _, bad := range []string{"", "3v3_online", "VS_AI", "1v1"} {
		if _, err := ParseMode(bad); err == nil {
			t.Errorf("ParseMode(%q) should fail", bad)
		}
	}
}

func TestModeLayout(t *testing.T) {
	tests := []struct {
		mode        Mode
		left, right int
		online      bool
	}{
		{Mode1v1Local, 1, 1, false},
		{Mode1v2Online, 1, 2, true},
		{Mode2v1Local, 2, 1, false},
		{Mode2v2Online, 2, 2, true},
		{ModeVsAI, 1, 1, false},
	}
	p := DefaultParams()
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			l, r := tc.mode.Layout()
			if l != tc.left || r != tc.right {
				t.Errorf("Layout() = %d, %d", l, r)
			}
			if tc.mode.Online() != tc.online {
				t.Errorf("Online() = %v", tc.mode.Online())
			}
			s := NewState(tc.mode, p, 1)
			if len(s.Paddles) != tc.left+tc.right {
				t.Errorf("NewState built %d paddles", len(s.Paddles))
			}
		})
	}
}

func TestPaddlePlacement(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode2v2Local, p, 1)

	tests := []struct {
		side Side
		slot Slot
		x    float64
	}{
		{SideLeft, SlotPrimary, 10},
		{SideLeft, SlotSecondary, 200},
		{SideRight, SlotPrimary, 780},
		{SideRight, SlotSecondary, 590},
	}
	for _, tc := range tests {
		pad := s.Paddle(tc.side, tc.slot)
		if pad == nil {
			t.Fatalf("missing paddle %v/%v", tc.side, tc.slot)
		}
		if pad.X != tc.x {
			t.Errorf("paddle %v/%v at x=%v, expected %v", tc.side, tc.slot, pad.X, tc.x)
		}
		if pad.Y != 250 {
			t.Errorf("paddle %v/%v not centred: y=%v", tc.side, tc.slot, pad.Y)
		}
	}
}

func TestCountdownTakesExactlyTickRateTimesSeconds(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Online, p, 1)
	s.StartCountdown(p)

	ticks := 0
	for {
		ticks++
		if s.TickCountdown(p) {
			break
		}
		if s.Status != StatusCountdown {
			t.Fatalf("left countdown early at tick %d", ticks)
		}
		if s.Ball.VX != 0 {
			t.Fatalf("ball served during countdown at tick %d", ticks)
		}
		if ticks > 1000 {
			t.Fatal("countdown never finished")
		}
	}

	if ticks != 300 {
		t.Errorf("countdown took %d ticks, expected 300", ticks)
	}
	if s.Status != StatusPlaying {
		t.Errorf("status = %s, expected playing", s.Status)
	}
	if s.Ball.VX == 0 {
		t.Error("ball should be served when play starts")
	}
	if s.TickCountdown(p) {
		t.Error("TickCountdown should report false once playing")
	}
}

func TestCountdownSeconds(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Local, p, 1)
	s.StartCountdown(p)
	if got := s.CountdownSeconds(); got != 5 {
		t.Errorf("CountdownSeconds() = %d at start", got)
	}
	for range 61 {
		s.TickCountdown(p)
	}
	if got := s.CountdownSeconds(); got != 4 {
		t.Errorf("CountdownSeconds() = %d after 61 ticks", got)
	}
}

func TestStepIgnoredOutsidePlaying(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Local, p, 1)
	s.StartCountdown(p)
	s.Ball.VX = 5

	if ev := Step(s, p); ev != nil || s.Ball.X != 400 {
		t.Error("Step should not integrate during countdown")
	}
}

func TestForfeitBeforePlaying(t *testing.T) {
	for _, remaining := range []Side{SideLeft, SideRight} {
		t.Run(remaining.String(), func(t *testing.T) {
			p := DefaultParams()
			s := NewState(Mode1v1Online, p, 1)
			s.StartCountdown(p)
			for range 100 {
				s.TickCountdown(p)
			}

			s.Forfeit(remaining, p.WinScore)

			if s.Status != StatusFinished || s.Winner != remaining {
				t.Fatalf("status=%s winner=%s", s.Status, s.Winner)
			}
			if s.Score.Of(remaining) != p.WinScore || s.Score.Of(remaining.Other()) != 0 {
				t.Errorf("score = %s, expected %d-0 for %s", s.Score, p.WinScore, remaining)
			}
		})
	}
}

func TestForfeitWhilePlayingKeepsScore(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Online, p, 1)
	s.StartCountdown(p)
	for !s.TickCountdown(p) {
	}
	s.Score.Point(SideLeft)
	s.Score.Point(SideLeft)
	s.Score.Point(SideRight)

	s.Forfeit(SideRight, p.WinScore)

	if s.Score.Left() != 2 || s.Score.Right() != 1 {
		t.Errorf("score = %s, expected 2-1 to stand", s.Score)
	}
	if s.Winner != SideRight {
		t.Errorf("winner = %s, expected right", s.Winner)
	}
}

func TestForfeitAfterFinishIsNoop(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Online, p, 1)
	s.Status = StatusFinished
	s.Winner = SideLeft

	s.Forfeit(SideRight, p.WinScore)

	if s.Winner != SideLeft {
		t.Error("forfeit overwrote a finished result")
	}
}

func TestPauseLocalOnly(t *testing.T) {
	p := DefaultParams()

	local := NewState(Mode1v1Local, p, 1)
	local.StartCountdown(p)
	if !local.Pause() || local.Status != StatusPaused {
		t.Fatal("local match should pause")
	}
	if local.TickCountdown(p) {
		t.Error("countdown advanced while paused")
	}
	if !local.Resume() || local.Status != StatusCountdown {
		t.Errorf("resume restored %s, expected countdown", local.Status)
	}

	online := NewState(Mode1v1Online, p, 1)
	online.StartCountdown(p)
	if online.Pause() {
		t.Error("online match must not pause")
	}
}

func TestApplyIntent(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode2v1Local, p, 1)

	s.ApplyIntent(SideLeft, core.Intent{Primary: core.DirUp, Secondary: core.DirDown}, p.PaddleSpeed)
	s.ApplyIntent(SideRight, core.Intent{Primary: core.DirDown, Secondary: core.DirUp}, p.PaddleSpeed)

	if dy := s.Paddle(SideLeft, SlotPrimary).DY; dy != -6 {
		t.Errorf("left primary DY = %v", dy)
	}
	if dy := s.Paddle(SideLeft, SlotSecondary).DY; dy != 6 {
		t.Errorf("left secondary DY = %v", dy)
	}
	if dy := s.Paddle(SideRight, SlotPrimary).DY; dy != 6 {
		t.Errorf("right primary DY = %v", dy)
	}

	// Last command wins.
	s.ApplyIntent(SideLeft, core.Intent{}, p.PaddleSpeed)
	if dy := s.Paddle(SideLeft, SlotPrimary).DY; dy != 0 {
		t.Errorf("left primary DY after stop = %v", dy)
	}
}

func TestMovePaddlesOnlyTouchesOneSide(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Online, p, 1)
	s.ApplyIntent(SideLeft, core.Intent{Primary: core.DirUp}, p.PaddleSpeed)
	s.ApplyIntent(SideRight, core.Intent{Primary: core.DirUp}, p.PaddleSpeed)

	s.MovePaddles(SideRight)

	if y := s.Paddle(SideLeft, SlotPrimary).Y; y != 250 {
		t.Errorf("left paddle moved to %v", y)
	}
	if y := s.Paddle(SideRight, SlotPrimary).Y; y != 244 {
		t.Errorf("right paddle at %v, expected 244", y)
	}
}

func TestNewParamsFromConfig(t *testing.T) {
	cfg := config.DefaultPongConfig()
	cfg.Gameplay.TickRate = 120
	cfg.Gameplay.SnapshotRate = 30
	p := NewParams(cfg)

	if p.SnapshotEvery() != 4 {
		t.Errorf("SnapshotEvery() = %d, expected 4", p.SnapshotEvery())
	}
	if DefaultParams().SnapshotEvery() != 2 {
		t.Errorf("default SnapshotEvery() = %d, expected 2", DefaultParams().SnapshotEvery())
	}
}

func TestDecayCountdownNeverStartsPlay(t *testing.T) {
	p := DefaultParams()
	s := NewState(Mode1v1Online, p, 1)
	s.StartCountdown(p)
	for range 400 {
		s.DecayCountdown(p)
	}
	if s.Status != StatusCountdown || s.CountdownMs != 0 {
		t.Errorf("status=%s remaining=%v", s.Status, s.CountdownMs)
	}
}

func TestConclude(t *testing.T) {
	s := NewState(Mode1v1Online, DefaultParams(), 1)
	s.Score.Point(SideLeft)
	s.Conclude(SideRight, 0, 5)
	if !s.Finished() || s.Winner != SideRight || s.Score.Left() != 1 || s.Score.Right() != 5 {
		t.Errorf("Conclude produced %s winner=%s status=%s", s.Score, s.Winner, s.Status)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewState(Mode2v2Local, DefaultParams(), 1)
	c := s.Clone()
	c.Paddles[0].Y = 1
	c.Ball.X = 1
	if s.Paddles[0].Y == 1 || s.Ball.X == 1 {
		t.Error("clone shares memory with the original")
	}
}
