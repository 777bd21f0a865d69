package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/protocol"
)

const waitTimeout = 2 * time.Second

type fakeTransport struct {
	in        chan protocol.Message
	sent      chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan protocol.Message),
		sent: make(chan protocol.Message, 4096),
		done: make(chan struct{}),
	}
}

func (f *fakeTransport) Send(m protocol.Message) error {
	select {
	case f.sent <- m:
	default:
	}
	return nil
}

func (f *fakeTransport) Messages() <-chan protocol.Message { return f.in }
func (f *fakeTransport) Done() <-chan struct{}             { return f.done }

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

// deliver hands m to the session and returns once the loop has taken it.
func (f *fakeTransport) deliver(t *testing.T, m protocol.Message) {
	t.Helper()
	select {
	case f.in <- m:
	case <-time.After(waitTimeout):
		t.Fatalf("session did not read %s", m.Type())
	}
}

// waitFor returns the next sent message matching pred, skipping others.
func (f *fakeTransport) waitFor(t *testing.T, pred func(protocol.Message) bool) protocol.Message {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case m := <-f.sent:
			if pred(m) {
				return m
			}
		case <-deadline:
			t.Fatal("timed out waiting for outbound message")
			return nil
		}
	}
}

func (f *fakeTransport) waitType(t *testing.T, typ protocol.Type) protocol.Message {
	t.Helper()
	return f.waitFor(t, func(m protocol.Message) bool { return m.Type() == typ })
}

func (f *fakeTransport) assertNoneSent(t *testing.T, typ protocol.Type) {
	t.Helper()
	for {
		select {
		case m := <-f.sent:
			assert.NotEqual(t, typ, m.Type())
		default:
			return
		}
	}
}

// manualTicks hands out tickers that all share one unbuffered channel, so
// a send completes only when the session loop takes the tick.
type manualTicks struct {
	c chan time.Time
}

type manualTicker struct {
	c <-chan time.Time
}

func (m manualTicker) C() <-chan time.Time { return m.c }
func (m manualTicker) Stop()               {}

func (m *manualTicks) newTicker(time.Duration) Ticker {
	return manualTicker{c: m.c}
}

func (m *manualTicks) tick(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		select {
		case m.c <- time.Unix(1700000000, 0).Add(time.Duration(i) * time.Millisecond):
		case <-time.After(waitTimeout):
			t.Fatalf("tick %d not consumed", i)
		}
	}
}

type harness struct {
	s     *Session
	tr    *fakeTransport
	ticks *manualTicks
	errc  chan error
}

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

func startOnline(t *testing.T, mode game.Mode) *harness {
	t.Helper()
	tr := newFakeTransport()
	ticks := &manualTicks{c: make(chan time.Time)}
	s, err := NewOnline(tr, Options{
		Name:        "alice",
		Mode:        mode,
		Seed:        1,
		Clock:       fixedClock,
		NewTicker:   ticks.newTicker,
		EventBuffer: 8192,
	})
	require.NoError(t, err)
	return run(t, s, tr, ticks)
}

func startLocal(t *testing.T, mode game.Mode) *harness {
	t.Helper()
	ticks := &manualTicks{c: make(chan time.Time)}
	s, err := NewLocal(Options{
		Mode:        mode,
		Seed:        1,
		Clock:       fixedClock,
		NewTicker:   ticks.newTicker,
		EventBuffer: 8192,
	})
	require.NoError(t, err)
	return run(t, s, nil, ticks)
}

func run(t *testing.T, s *Session, tr *fakeTransport, ticks *manualTicks) *harness {
	h := &harness{s: s, tr: tr, ticks: ticks, errc: make(chan error, 1)}
	go func() { h.errc <- s.Run(context.Background()) }()
	t.Cleanup(func() {
		s.Stop()
		<-s.Done()
	})
	return h
}

func (h *harness) waitEvent(t *testing.T, pred func(Event) bool) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e := <-h.s.Events():
			if pred(e) {
				return e
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func (h *harness) waitPhase(t *testing.T, p Phase) {
	t.Helper()
	h.waitEvent(t, func(e Event) bool { return e.Kind == EventPhaseChanged && e.Phase == p })
}

func (h *harness) matchAs(t *testing.T, host bool) {
	t.Helper()
	h.s.Search()
	join := h.tr.waitType(t, protocol.TypeJoinGame).(protocol.JoinGame)
	assert.Equal(t, "alice", join.Name)
	h.tr.deliver(t, protocol.OpponentFound{MatchID: "m1", Opponent: "bob", IsHost: host, GameMode: join.GameMode})
	h.waitEvent(t, func(e Event) bool { return e.Kind == EventMatched })
}

func syncWith(pred func(protocol.GameSync) bool) func(protocol.Message) bool {
	return func(m protocol.Message) bool {
		gs, ok := m.(protocol.GameSync)
		return ok && pred(gs)
	}
}

func TestNewRejectsWrongModes(t *testing.T) {
	_, err := NewLocal(Options{Mode: game.Mode1v1Online})
	assert.Error(t, err)
	_, err = NewOnline(newFakeTransport(), Options{Mode: game.ModeVsAI})
	assert.Error(t, err)
	_, err = NewOnline(nil, Options{Mode: game.Mode1v1Online})
	assert.Error(t, err)

	bad := config.DefaultPongConfig()
	bad.Gameplay.TickRate = 0
	_, err = NewLocal(Options{Mode: game.Mode1v1Local, Pong: bad})
	assert.Error(t, err)
}

func TestHostStartsCountdownAndPlays(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)

	start := h.tr.waitType(t, protocol.TypeGameStart).(protocol.GameStart)
	assert.Equal(t, 5000, start.CountdownMs)
	h.tr.waitFor(t, syncWith(func(gs protocol.GameSync) bool { return gs.GameState == "countdown" }))

	h.ticks.tick(t, 299)
	h.tr.assertNoneSent(t, protocol.TypeGameEnd)
	h.ticks.tick(t, 1)
	h.tr.waitFor(t, syncWith(func(gs protocol.GameSync) bool { return gs.GameState == "playing" }))
	h.waitPhase(t, PhasePlaying)
}

func TestHostAppliesGuestInput(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)
	h.ticks.tick(t, 300)

	h.tr.deliver(t, protocol.PlayerInput{
		PlayerID: "bob",
		Input:    protocol.InputState{Paddle1: protocol.PaddleInput{DY: 6}},
	})
	h.ticks.tick(t, 4)

	gs := h.tr.waitFor(t, syncWith(func(gs protocol.GameSync) bool { return gs.Player2.Y > 250 })).(protocol.GameSync)
	assert.Equal(t, 250.0, gs.Player1.Y, "host paddle must not move without host intent")
}

func TestHostSendsSnapshotsAtConfiguredRate(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)
	h.ticks.tick(t, 300)
	h.tr.waitFor(t, syncWith(func(gs protocol.GameSync) bool { return gs.GameState == "playing" }))

	h.ticks.tick(t, 20)
	h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Ticks == 320 })
	assert.Equal(t, 10, h.sentSyncs(), "60 Hz ticks with 30 Hz snapshots")
}

// sentSyncs counts the game_sync messages already sent.
func (h *harness) sentSyncs() int {
	count := 0
	for {
		select {
		case m := <-h.tr.sent:
			if m.Type() == protocol.TypeGameSync {
				count++
			}
			continue
		default:
		}
		return count
	}
}

func TestHostTickCountAndSnapshotRateAfterOddCountdown(t *testing.T) {
	pong := config.DefaultPongConfig()
	pong.Gameplay.CountdownMs = 4950 // 297 ticks at 60 Hz
	tr := newFakeTransport()
	ticks := &manualTicks{c: make(chan time.Time)}
	s, err := NewOnline(tr, Options{
		Name:        "alice",
		Mode:        game.Mode1v1Online,
		Pong:        pong,
		Seed:        1,
		Clock:       fixedClock,
		NewTicker:   ticks.newTicker,
		EventBuffer: 8192,
	})
	require.NoError(t, err)
	h := run(t, s, tr, ticks)

	h.matchAs(t, true)
	h.ticks.tick(t, 297)
	h.tr.waitFor(t, syncWith(func(gs protocol.GameSync) bool { return gs.GameState == "playing" }))
	h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Ticks == 297 })
	h.sentSyncs()

	h.ticks.tick(t, 20)
	view := h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Ticks >= 317 }).View
	assert.Equal(t, uint64(317), view.Ticks, "one tick per loop iteration")
	assert.Equal(t, 10, h.sentSyncs(), "60 Hz ticks with 30 Hz snapshots")
}

func TestHostForfeitBeforePlay(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)
	h.ticks.tick(t, 10)

	h.tr.deliver(t, protocol.OpponentDisconnected{})

	end := h.tr.waitType(t, protocol.TypeGameEnd).(protocol.GameEnd)
	assert.Equal(t, protocol.ReasonForfeit, end.Reason)
	assert.Equal(t, 1, end.Winner)
	assert.Equal(t, 5, end.Score1)
	assert.Equal(t, 0, end.Score2)

	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventGameEnded })
	assert.Equal(t, game.SideLeft, evt.Result.Winner)
	assert.Equal(t, protocol.ReasonForfeit, evt.Result.Reason)
}

func TestGuestFollowsHost(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, false)
	h.tr.assertNoneSent(t, protocol.TypeGameStart)

	h.tr.deliver(t, protocol.GameStart{CountdownMs: 5000})
	h.waitPhase(t, PhaseCountdown)

	h.s.SetIntent(core.Intent{Primary: core.DirUp})
	in := h.tr.waitType(t, protocol.TypePlayerInput).(protocol.PlayerInput)
	assert.Equal(t, -6.0, in.Input.Paddle1.DY)
	assert.Nil(t, in.Input.Paddle2)
	assert.Equal(t, "alice", in.PlayerID)

	h.tr.deliver(t, protocol.GameSync{
		Ball:      protocol.BallState{X: 100, Y: 120, DX: 5, DY: 1},
		Player1:   protocol.PlayerState{Y: 40},
		Player2:   protocol.PlayerState{Y: 400},
		Score1:    1,
		GameState: "playing",
	})
	h.waitPhase(t, PhasePlaying)
	view := h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Ball.X == 100 }).View
	assert.Equal(t, 40.0, view.Paddle(game.SideLeft, game.SlotPrimary).Y)
	assert.NotEqual(t, 400.0, view.Paddle(game.SideRight, game.SlotPrimary).Y, "own paddle is never overwritten")
	assert.Equal(t, 1, view.Score.Left())

	// Guest ticks move only its own paddle.
	h.ticks.tick(t, 1)
	view = h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Paddle(game.SideRight, game.SlotPrimary).Y < 250 }).View
	assert.Equal(t, 100.0, view.Ball.X)

	h.tr.deliver(t, protocol.GameEnd{Winner: 2, Score1: 1, Score2: 5, Duration: 42000, Reason: protocol.ReasonCompleted})
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventGameEnded })
	assert.Equal(t, game.SideRight, evt.Result.Winner)
	assert.Equal(t, 5, evt.Result.Score2)
	assert.Equal(t, 42*time.Second, evt.Result.Duration)
}

func TestGuestSendsInputOnlyOnChange(t *testing.T) {
	h := startOnline(t, game.Mode2v2Online)
	h.matchAs(t, false)
	h.tr.deliver(t, protocol.GameStart{CountdownMs: 5000})

	h.s.SetIntent(core.Intent{Primary: core.DirDown, Secondary: core.DirUp})
	in := h.tr.waitType(t, protocol.TypePlayerInput).(protocol.PlayerInput)
	require.NotNil(t, in.Input.Paddle2)
	assert.Equal(t, -6.0, in.Input.Paddle2.DY)

	h.s.SetIntent(core.Intent{Primary: core.DirDown, Secondary: core.DirUp})
	h.s.SetIntent(core.Intent{})
	stop := h.tr.waitType(t, protocol.TypePlayerInput).(protocol.PlayerInput)
	assert.Equal(t, 0.0, stop.Input.Paddle1.DY)
	h.tr.assertNoneSent(t, protocol.TypePlayerInput)
}

func TestGuestIgnoresPlayerInput(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, false)
	h.tr.deliver(t, protocol.GameStart{CountdownMs: 5000})
	h.tr.deliver(t, protocol.PlayerInput{Input: protocol.InputState{Paddle1: protocol.PaddleInput{DY: 6}}})
	h.tr.deliver(t, protocol.GameSync{GameState: "playing", Player1: protocol.PlayerState{Y: 250}, Player2: protocol.PlayerState{Y: 250}})
	h.ticks.tick(t, 5)

	view := h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Status == game.StatusPlaying }).View
	assert.Equal(t, 250.0, view.Paddle(game.SideLeft, game.SlotPrimary).Y)
}

func TestGuestForfeitAfterPlayKeepsScore(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, false)
	h.tr.deliver(t, protocol.GameStart{CountdownMs: 5000})
	h.tr.deliver(t, protocol.GameSync{GameState: "playing", Score1: 3, Score2: 1})

	h.tr.deliver(t, protocol.OpponentDisconnected{})
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventGameEnded })
	assert.Equal(t, game.SideRight, evt.Result.Winner)
	assert.Equal(t, 3, evt.Result.Score1)
	assert.Equal(t, 1, evt.Result.Score2)
	h.tr.assertNoneSent(t, protocol.TypeGameEnd)
}

func TestMatchmakingTimeoutAllowsRetry(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.s.Search()
	h.tr.waitType(t, protocol.TypeJoinGame)

	h.tr.deliver(t, protocol.NewError(protocol.CodeMatchmakingTimeout, "no opponent found"))
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventMatchmakingFailed })
	assert.Equal(t, PhaseInitial, evt.Phase)

	h.s.Search()
	h.tr.waitType(t, protocol.TypeJoinGame)
	h.waitPhase(t, PhaseSearching)
}

func TestConnectionLostDuringMatch(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)
	h.ticks.tick(t, 5)

	require.NoError(t, h.tr.Close())
	h.waitEvent(t, func(e Event) bool { return e.Kind == EventNotice && e.Message == "connection lost" })
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventGameEnded })
	assert.Equal(t, game.SideNone, evt.Result.Winner)

	select {
	case err := <-h.errc:
		t.Fatalf("Run returned early: %v", err)
	default:
	}
	h.s.Stop()
	select {
	case err := <-h.errc:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return after Stop")
	}
}

func TestConnectionLostWhileSearching(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.s.Search()
	h.tr.waitType(t, protocol.TypeJoinGame)

	require.NoError(t, h.tr.Close())
	select {
	case err := <-h.errc:
		assert.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
}

func TestStopSendsLeaveGame(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.s.Search()
	h.tr.waitType(t, protocol.TypeJoinGame)

	h.s.Stop()
	h.tr.waitType(t, protocol.TypeLeaveGame)
	<-h.s.Done()
}

func TestStopBeforeSearchSendsNothing(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.s.Stop()
	<-h.s.Done()
	h.tr.assertNoneSent(t, protocol.TypeLeaveGame)
}

func TestServerErrorBecomesNotice(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.tr.deliver(t, protocol.NewError(protocol.CodeBadMessage, "unreadable"))
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventNotice })
	assert.Equal(t, "unreadable", evt.Message)
}

func TestLocalVsAIRunsAndPauses(t *testing.T) {
	h := startLocal(t, game.ModeVsAI)
	h.waitPhase(t, PhaseCountdown)

	h.ticks.tick(t, 300)
	h.waitPhase(t, PhasePlaying)

	h.s.TogglePause()
	h.waitPhase(t, PhasePaused)
	h.ticks.tick(t, 10)
	view := h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Status == game.StatusPaused }).View
	frozen := view.Ball

	h.ticks.tick(t, 1)
	view = h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot }).View
	assert.Equal(t, frozen, view.Ball)

	h.s.TogglePause()
	h.waitPhase(t, PhasePlaying)
}

func TestLocalMatchFinishes(t *testing.T) {
	pong := config.DefaultPongConfig()
	pong.Gameplay.WinScore = 1
	ticks := &manualTicks{c: make(chan time.Time)}
	s, err := NewLocal(Options{
		Mode:        game.Mode1v1Local,
		Pong:        pong,
		Seed:        3,
		Clock:       fixedClock,
		NewTicker:   ticks.newTicker,
		EventBuffer: 8192,
	})
	require.NoError(t, err)
	h := run(t, s, nil, ticks)

	// Both paddles park at the top, so the straight serve scores.
	s.SetIntent(core.Intent{Primary: core.DirUp})
	s.SetOpponentIntent(core.Intent{Primary: core.DirUp})
	h.ticks.tick(t, 300)
feed:
	for range 400 {
		select {
		case ticks.c <- fixedClock():
		case <-time.After(100 * time.Millisecond):
			break feed
		}
	}
	evt := h.waitEvent(t, func(e Event) bool { return e.Kind == EventGameEnded })
	assert.Equal(t, protocol.ReasonCompleted, evt.Result.Reason)
	assert.True(t, evt.Result.Winner.Valid())
}

func TestTogglePauseIgnoredOnline(t *testing.T) {
	h := startOnline(t, game.Mode1v1Online)
	h.matchAs(t, true)
	h.s.TogglePause()
	h.ticks.tick(t, 1)
	view := h.waitEvent(t, func(e Event) bool { return e.Kind == EventSnapshot && e.View.Ticks == 1 }).View
	assert.Equal(t, game.StatusCountdown, view.Status)
}
