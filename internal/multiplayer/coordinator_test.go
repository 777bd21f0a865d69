package multiplayer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/protocol"
)

type recordingSaver struct {
	mu      sync.Mutex
	results []MatchResultData
}

func (s *recordingSaver) SaveMatchResult(r MatchResultData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *recordingSaver) all() []MatchResultData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MatchResultData(nil), s.results...)
}

type testRelay struct {
	c     *Coordinator
	saver *recordingSaver
	clock time.Time
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	r := &testRelay{saver: &recordingSaver{}, clock: time.Unix(1700000000, 0)}
	r.c = NewCoordinator(CoordinatorConfig{SearchTimeout: time.Minute, CleanupPeriod: time.Second, WinScore: 5}, NewSessionRegistry(), nil)
	r.c.SetResultSaver(r.saver)
	r.c.now = func() time.Time { return r.clock }
	return r
}

func (r *testRelay) connect(id string) *ChannelSession {
	s := NewChannelSession(SessionID(id), 64)
	r.c.sessions.Register(s)
	return s
}

// from delivers msg synchronously, as the coordinator goroutine would.
func (r *testRelay) from(s *ChannelSession, msg protocol.Message) {
	r.c.handleMessage(InboundMsg{SessionID: s.ID(), Message: msg})
}

func (r *testRelay) disconnect(s *ChannelSession) {
	s.Close()
	r.c.sessions.Unregister(s.ID())
	r.c.handleMessage(SessionDisconnectedMsg{SessionID: s.ID()})
}

// results waits for the async saver.
func (r *testRelay) results() []MatchResultData {
	r.c.saves.Wait()
	return r.saver.all()
}

func next(t *testing.T, s *ChannelSession) protocol.Message {
	t.Helper()
	select {
	case m := <-s.Messages():
		return m
	default:
		t.Fatalf("no message for %s", s.ID())
		return nil
	}
}

func assertSilent(t *testing.T, s *ChannelSession) {
	t.Helper()
	select {
	case m := <-s.Messages():
		t.Fatalf("unexpected %s for %s", m.Type(), s.ID())
	default:
	}
}

func expectError(t *testing.T, s *ChannelSession, code string) {
	t.Helper()
	m := next(t, s)
	e, ok := m.(protocol.Error)
	require.True(t, ok, "got %s", m.Type())
	assert.Equal(t, code, e.Code)
}

func join(name string) protocol.JoinGame {
	return protocol.JoinGame{Name: name, GameMode: string(game.Mode1v1Online)}
}

// paired joins two sessions and drains their opponentFound messages.
func (r *testRelay) paired(t *testing.T) (host, guest *ChannelSession) {
	t.Helper()
	host, guest = r.connect("host"), r.connect("guest")
	r.from(host, join("alice"))
	r.from(guest, join("bob"))
	next(t, host)
	next(t, guest)
	return host, guest
}

func TestMatchmakingPairsFirstWaiterAsHost(t *testing.T) {
	r := newTestRelay(t)
	a, b := r.connect("a"), r.connect("b")

	r.from(a, join("alice"))
	assertSilent(t, a)
	assert.Equal(t, 1, r.c.QueueLen())

	r.from(b, join("bob"))
	assert.Equal(t, 0, r.c.QueueLen())
	assert.Equal(t, 1, r.c.MatchCount())

	fa := next(t, a).(protocol.OpponentFound)
	fb := next(t, b).(protocol.OpponentFound)
	assert.True(t, fa.IsHost)
	assert.False(t, fb.IsHost)
	assert.Equal(t, "bob", fa.Opponent)
	assert.Equal(t, "alice", fb.Opponent)
	assert.Equal(t, fa.MatchID, fb.MatchID)
	assert.NotEmpty(t, fa.MatchID)
	assert.Equal(t, "1v1_online", fb.GameMode)
}

func TestMatchmakingKeepsModesApart(t *testing.T) {
	r := newTestRelay(t)
	a, b := r.connect("a"), r.connect("b")
	r.from(a, join("alice"))
	r.from(b, protocol.JoinGame{Name: "bob", GameMode: string(game.Mode2v2Online)})
	assertSilent(t, a)
	assertSilent(t, b)
	assert.Equal(t, 2, r.c.QueueLen())
}

func TestJoinRejections(t *testing.T) {
	r := newTestRelay(t)
	s := r.connect("s")

	r.from(s, protocol.JoinGame{Name: "x", GameMode: "3v3_online"})
	expectError(t, s, protocol.CodeBadMode)

	r.from(s, protocol.JoinGame{Name: "x", GameMode: string(game.ModeVsAI)})
	expectError(t, s, protocol.CodeBadMode)

	r.from(s, protocol.JoinGame{Name: "", GameMode: string(game.Mode1v1Online)})
	expectError(t, s, protocol.CodeBadMessage)

	r.from(s, join("x"))
	r.from(s, join("x"))
	expectError(t, s, protocol.CodeAlreadyJoined)
	assert.Equal(t, 1, r.c.QueueLen())
}

func TestJoinWhileInMatchIsRejected(t *testing.T) {
	r := newTestRelay(t)
	host, _ := r.paired(t)
	r.from(host, join("alice"))
	expectError(t, host, protocol.CodeAlreadyJoined)
}

func TestRelayRoutesByRole(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)

	input := protocol.PlayerInput{PlayerID: "bob", Input: protocol.InputState{Paddle1: protocol.PaddleInput{DY: -6}}}
	r.from(guest, input)
	assert.Equal(t, input, next(t, host))

	r.from(host, input)
	assertSilent(t, guest)
	assertSilent(t, host)

	r.from(host, protocol.GameStart{CountdownMs: 5000})
	assert.Equal(t, protocol.GameStart{CountdownMs: 5000}, next(t, guest))

	gs := protocol.GameSync{GameState: "playing", Score1: 1}
	r.from(host, gs)
	assert.Equal(t, gs, next(t, guest))
}

func TestGuestCannotSendHostMessages(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)

	r.from(guest, protocol.GameSync{GameState: "playing", Score2: 5})
	expectError(t, guest, protocol.CodeNotHost)
	r.from(guest, protocol.GameEnd{Winner: 2, Score2: 5, Reason: protocol.ReasonCompleted})
	expectError(t, guest, protocol.CodeNotHost)
	r.from(guest, protocol.GameStart{})
	expectError(t, guest, protocol.CodeNotHost)

	assertSilent(t, host)
	assert.Equal(t, 1, r.c.MatchCount(), "a rejected message keeps the match alive")
	assert.Empty(t, r.results())
}

func TestServerOnlyMessagesFromPeersAreRejected(t *testing.T) {
	r := newTestRelay(t)
	s := r.connect("s")
	r.from(s, protocol.OpponentDisconnected{})
	expectError(t, s, protocol.CodeBadMessage)
	r.from(s, protocol.NewError("x", "y"))
	expectError(t, s, protocol.CodeBadMessage)
}

func TestMessagesOutsideMatch(t *testing.T) {
	r := newTestRelay(t)
	s := r.connect("s")

	r.from(s, protocol.PlayerInput{})
	assertSilent(t, s)
	r.from(s, protocol.GameEnd{Reason: protocol.ReasonCompleted})
	assertSilent(t, s)
	r.from(s, protocol.LeaveGame{})
	assertSilent(t, s)

	r.from(s, protocol.GameSync{GameState: "playing"})
	expectError(t, s, protocol.CodeNoMatch)
}

func TestGameEndRecordsAndDestroys(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)

	r.from(host, protocol.GameSync{GameState: "playing"})
	next(t, guest)
	r.clock = r.clock.Add(90 * time.Second)
	r.from(host, protocol.GameEnd{Winner: 2, Score1: 3, Score2: 5, Duration: 90000, Reason: protocol.ReasonCompleted})
	next(t, guest)

	assert.Equal(t, 0, r.c.MatchCount())
	res := r.results()
	require.Len(t, res, 1)
	assert.Equal(t, "alice", res[0].Player1Name)
	assert.Equal(t, "bob", res[0].Player2Name)
	assert.Equal(t, "bob", res[0].WinnerName)
	assert.Equal(t, 3, res[0].Score1)
	assert.Equal(t, 5, res[0].Score2)
	assert.Equal(t, protocol.ReasonCompleted, res[0].EndReason)
	assert.Equal(t, 90*time.Second, res[0].Duration)
	assert.Equal(t, game.Mode1v1Online, res[0].Mode)

	// The match is gone.
	r.from(host, protocol.GameSync{GameState: "finished"})
	expectError(t, host, protocol.CodeNoMatch)
}

func TestForfeitBeforePlay(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)

	r.disconnect(guest)
	assert.Equal(t, protocol.OpponentDisconnected{}, next(t, host))

	res := r.results()
	require.Len(t, res, 1)
	assert.Equal(t, protocol.ReasonForfeit, res[0].EndReason)
	assert.Equal(t, "alice", res[0].WinnerName)
	assert.Equal(t, 5, res[0].Score1)
	assert.Equal(t, 0, res[0].Score2)

	// The host's own end notice closes the match without another record.
	r.from(host, protocol.GameEnd{Winner: 1, Score1: 5, Reason: protocol.ReasonForfeit})
	assertSilent(t, host)
	assert.Equal(t, 0, r.c.MatchCount())
	assert.Len(t, r.results(), 1)
}

func TestForfeitAfterPlayKeepsScore(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)
	r.from(host, protocol.GameSync{GameState: "playing", Score1: 1, Score2: 3})
	next(t, guest)

	r.from(host, protocol.LeaveGame{})
	assert.Equal(t, protocol.OpponentDisconnected{}, next(t, guest))

	res := r.results()
	require.Len(t, res, 1)
	assert.Equal(t, "bob", res[0].WinnerName)
	assert.Equal(t, 1, res[0].Score1)
	assert.Equal(t, 3, res[0].Score2)

	// Guest leaves too: the match is destroyed without a second record.
	r.from(guest, protocol.LeaveGame{})
	assert.Equal(t, 0, r.c.MatchCount())
	assert.Len(t, r.results(), 1)
}

func TestBothGoneIsCancelled(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)

	host.Close()
	r.c.sessions.Unregister(host.ID())
	r.disconnect(guest)

	res := r.results()
	require.Len(t, res, 1)
	assert.Equal(t, protocol.ReasonCancelled, res[0].EndReason)
	assert.Empty(t, res[0].WinnerName)
	assert.Equal(t, 0, r.c.MatchCount())
}

func TestRejoinAfterForfeit(t *testing.T) {
	r := newTestRelay(t)
	host, guest := r.paired(t)
	r.disconnect(guest)
	next(t, host)

	r.from(host, join("alice"))
	assertSilent(t, host)
	assert.Equal(t, 1, r.c.QueueLen())
}

func TestLeaveWhileSearching(t *testing.T) {
	r := newTestRelay(t)
	a := r.connect("a")
	r.from(a, join("alice"))
	r.from(a, protocol.LeaveGame{})
	assert.Equal(t, 0, r.c.QueueLen())

	b := r.connect("b")
	r.from(b, join("bob"))
	assertSilent(t, b)
}

func TestDisconnectedWaiterIsSkipped(t *testing.T) {
	r := newTestRelay(t)
	a, b := r.connect("a"), r.connect("b")
	r.from(a, join("alice"))
	a.Close() // gone, but the disconnect has not been processed yet

	r.from(b, join("bob"))
	assertSilent(t, b)
	assert.Equal(t, 1, r.c.QueueLen())
	assert.Equal(t, 0, r.c.MatchCount())
}

func TestSearchTimeout(t *testing.T) {
	r := newTestRelay(t)
	a := r.connect("a")
	r.from(a, join("alice"))

	r.c.cleanupExpiredSearches(r.clock.Add(30 * time.Second))
	assertSilent(t, a)

	r.c.cleanupExpiredSearches(r.clock.Add(61 * time.Second))
	expectError(t, a, protocol.CodeMatchmakingTimeout)
	assert.Equal(t, 0, r.c.QueueLen())

	// Searching again is allowed.
	r.from(a, join("alice"))
	assert.Equal(t, 1, r.c.QueueLen())
}

func TestServeProcessesAndShutsDown(t *testing.T) {
	c := NewCoordinator(DefaultCoordinatorConfig(), NewSessionRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Serve(ctx) }()

	a := c.Connect(16)
	b := c.Connect(16)
	require.NoError(t, a.Send(join("alice")))
	require.NoError(t, b.Send(join("bob")))

	for _, p := range []*LocalPeer{a, b} {
		select {
		case m := <-p.Messages():
			assert.Equal(t, protocol.TypeOpponentFound, m.Type())
		case <-time.After(2 * time.Second):
			t.Fatal("no opponentFound")
		}
	}

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	expected := protocol.NewError(protocol.CodeShuttingDown, "Server is shutting down.")
	assert.Equal(t, expected, <-a.Messages())

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send(protocol.LeaveGame{}), ErrSessionClosed)
	c.Stop()
}
