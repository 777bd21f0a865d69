package protocol

import (
	"time"

	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
)

// NewPlayerInput encodes an intent as paddle velocities. paddles is the
// number of paddles the sender controls.
func NewPlayerInput(playerID string, in core.Intent, paddles int, speed float64, now time.Time) PlayerInput {
	msg := PlayerInput{
		PlayerID:  playerID,
		Input:     InputState{Paddle1: PaddleInput{DY: float64(in.Primary) * speed}},
		Timestamp: now.UnixMilli(),
	}
	if paddles > 1 {
		msg.Input.Paddle2 = &PaddleInput{DY: float64(in.Secondary) * speed}
	}
	return msg
}

// Intent recovers the directions from the sign of each dy.
func (m PlayerInput) Intent() core.Intent {
	in := core.Intent{Primary: core.DirectionFromDY(m.Input.Paddle1.DY)}
	if m.Input.Paddle2 != nil {
		in.Secondary = core.DirectionFromDY(m.Input.Paddle2.DY)
	}
	return in
}

// NewGameSync converts a snapshot to its wire form.
func NewGameSync(s game.Snapshot) GameSync {
	return GameSync{
		Ball:      BallState{X: s.Ball.X, Y: s.Ball.Y, DX: s.Ball.DX, DY: s.Ball.DY},
		Player1:   playerState(s.Player1),
		Player2:   playerState(s.Player2),
		Score1:    s.Score1,
		Score2:    s.Score2,
		GameState: string(s.Status),
		Winner:    int(s.Winner),
		Timestamp: s.Timestamp,
	}
}

func playerState(v game.SideView) PlayerState {
	ps := PlayerState{Y: v.Y}
	if v.HasSecondary {
		y := v.SecondaryY
		ps.Paddle2Y = &y
	}
	return ps
}

// Snapshot converts the wire form back to a snapshot.
func (m GameSync) Snapshot() game.Snapshot {
	return game.Snapshot{
		Ball:      game.BallView{X: m.Ball.X, Y: m.Ball.Y, DX: m.Ball.DX, DY: m.Ball.DY},
		Player1:   sideView(m.Player1),
		Player2:   sideView(m.Player2),
		Score1:    m.Score1,
		Score2:    m.Score2,
		Status:    game.Status(m.GameState),
		Winner:    game.Side(m.Winner),
		Timestamp: m.Timestamp,
	}
}

func sideView(ps PlayerState) game.SideView {
	v := game.SideView{Y: ps.Y}
	if ps.Paddle2Y != nil {
		v.SecondaryY = *ps.Paddle2Y
		v.HasSecondary = true
	}
	return v
}

// NewGameEnd builds the final result message for a finished state.
func NewGameEnd(s *game.State, reason string, now time.Time) GameEnd {
	return GameEnd{
		Winner:   int(s.Winner),
		Score1:   s.Score.Left(),
		Score2:   s.Score.Right(),
		Duration: s.Duration(now).Milliseconds(),
		Reason:   reason,
	}
}
