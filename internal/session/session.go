// Package session runs one peer's side of a match: the host-authoritative
// simulation, the guest's snapshot follower, or a fully local game.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/protocol"
)

// ErrConnectionLost is returned by Run when the transport closes outside a
// match.
var ErrConnectionLost = errors.New("session: connection lost")

// Role is the part this peer plays in a match.
type Role int

const (
	RoleLocal Role = iota
	RoleHost
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "local"
	}
}

// Phase is the peer lifecycle state.
type Phase string

const (
	PhaseInitial   Phase = "initial"
	PhaseSearching Phase = "searching"
	PhaseMatched   Phase = "matched"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhasePaused    Phase = "paused"
	PhaseGameOver  Phase = "game_over"
	PhaseStopped   Phase = "stopped"
)

// inMatch reports whether an opponent is attached to the match.
func (p Phase) inMatch() bool {
	switch p {
	case PhaseMatched, PhaseCountdown, PhasePlaying:
		return true
	}
	return false
}

// Transport is a connection to the relay server.
type Transport interface {
	Send(protocol.Message) error
	Messages() <-chan protocol.Message
	Done() <-chan struct{}
	Close() error
}

// Options configure a Session. Zero values fall back to sensible defaults.
type Options struct {
	Name string
	Mode game.Mode
	Pong config.PongConfig
	Seed int64

	Logger      *log.Logger
	Clock       func() time.Time
	NewTicker   func(time.Duration) Ticker
	EventBuffer int
}

type command int

const (
	cmdSearch command = iota + 1
	cmdTogglePause
)

type intentUpdate struct {
	opponent bool
	intent   core.Intent
}

// Session is one peer's view of one match. All game state is owned by the
// goroutine inside Run; the exported methods only post requests to it.
type Session struct {
	opts      Options
	params    game.Params
	log       *log.Logger
	transport Transport
	events    *eventQueue

	intents chan intentUpdate
	cmds    chan command
	quit    chan struct{}
	done    chan struct{}

	quitOnce sync.Once

	// Owned by Run.
	phase    Phase
	role     Role
	side     game.Side
	mode     game.Mode
	opponent string
	state    *game.State
	ai       *game.AIController
	own      core.Intent
	other    core.Intent
	ticker   Ticker
	tickC    <-chan time.Time
	ended    bool
}

// NewLocal creates a session that simulates a local or vs-AI match.
func NewLocal(opts Options) (*Session, error) {
	if !opts.Mode.Valid() || opts.Mode.Online() {
		return nil, fmt.Errorf("session: %q is not a local mode", opts.Mode)
	}
	return newSession(nil, opts)
}

// NewOnline creates a session that finds and plays a match through t.
func NewOnline(t Transport, opts Options) (*Session, error) {
	if t == nil {
		return nil, errors.New("session: nil transport")
	}
	if !opts.Mode.Online() {
		return nil, fmt.Errorf("session: %q is not an online mode", opts.Mode)
	}
	return newSession(t, opts)
}

func newSession(t Transport, opts Options) (*Session, error) {
	if opts.Pong.Canvas.Width == 0 {
		opts.Pong = config.DefaultPongConfig()
	}
	if err := opts.Pong.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Name == "" {
		opts.Name = "player"
	}

	return &Session{
		opts:      opts,
		params:    game.NewParams(opts.Pong),
		log:       logging.OrDiscard(opts.Logger),
		transport: t,
		events:    newEventQueue(opts.EventBuffer),
		intents:   make(chan intentUpdate, 1),
		cmds:      make(chan command, 8),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		phase:     PhaseInitial,
		mode:      opts.Mode,
	}, nil
}

// Events returns the channel of UI events. Slow readers lose the oldest.
func (s *Session) Events() <-chan Event {
	return s.events.ch
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Params returns the simulation parameters in use.
func (s *Session) Params() game.Params {
	return s.params
}

// SetIntent updates the local player's paddle directions. Only the newest
// value matters, so an unread update is replaced.
func (s *Session) SetIntent(in core.Intent) {
	s.postIntent(intentUpdate{intent: in})
}

// SetOpponentIntent drives the right side in local modes without AI.
func (s *Session) SetOpponentIntent(in core.Intent) {
	s.postIntent(intentUpdate{opponent: true, intent: in})
}

func (s *Session) postIntent(u intentUpdate) {
	for {
		select {
		case s.intents <- u:
			return
		case <-s.done:
			return
		default:
		}
		// Replace the pending value.
		select {
		case <-s.intents:
		default:
		}
	}
}

// Search asks the relay for an opponent.
func (s *Session) Search() {
	s.post(cmdSearch)
}

// TogglePause pauses or resumes a local match.
func (s *Session) TogglePause() {
	s.post(cmdTogglePause)
}

func (s *Session) post(c command) {
	select {
	case s.cmds <- c:
	case <-s.done:
	default:
		s.log.Warn("command dropped, queue full", "command", c)
	}
}

// Stop ends the session. It is safe to call more than once and before Run.
func (s *Session) Stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Run drives the session until Stop, ctx cancellation or a lost
// connection outside a match.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.events.close()
	defer s.stopTicker()

	var msgs <-chan protocol.Message
	var closed <-chan struct{}
	if s.transport != nil {
		msgs = s.transport.Messages()
		closed = s.transport.Done()
	} else {
		s.startLocal()
	}

	for {
		select {
		case <-ctx.Done():
			s.leave()
			return ctx.Err()

		case <-s.quit:
			s.leave()
			return nil

		case c := <-s.cmds:
			s.handleCommand(c)

		case u := <-s.intents:
			s.handleIntent(u)

		case m, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			s.handleMessage(m)

		case <-closed:
			s.drain(msgs)
			closed, msgs = nil, nil
			if err := s.handleConnectionLost(); err != nil {
				return err
			}

		case now := <-s.tickC:
			s.tick(now)
		}
	}
}

// drain handles whatever the transport delivered before it closed.
func (s *Session) drain(msgs <-chan protocol.Message) {
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return
			}
			s.handleMessage(m)
		default:
			return
		}
	}
}

// leave moves to STOPPED and tells the relay, best effort.
func (s *Session) leave() {
	if s.transport != nil && s.phase != PhaseInitial && s.phase != PhaseStopped {
		s.send(protocol.LeaveGame{})
	}
	s.setPhase(PhaseStopped)
}

func (s *Session) handleCommand(c command) {
	switch c {
	case cmdSearch:
		if s.transport == nil {
			s.notice("matchmaking needs an online mode")
			return
		}
		if s.phase != PhaseInitial {
			s.log.Debug("search ignored", "phase", s.phase)
			return
		}
		s.send(protocol.JoinGame{Name: s.opts.Name, GameMode: string(s.mode)})
		s.setPhase(PhaseSearching)

	case cmdTogglePause:
		if s.role != RoleLocal || s.state == nil {
			return
		}
		switch {
		case s.state.Pause():
			s.setPhase(PhasePaused)
		case s.state.Resume():
			s.setPhase(phaseOf(s.state.Status))
		}
		s.publishView()
	}
}

func (s *Session) handleIntent(u intentUpdate) {
	if u.opponent {
		if s.role == RoleLocal {
			s.other = u.intent
		}
		return
	}
	if u.intent == s.own {
		return
	}
	s.own = u.intent
	if s.role == RoleGuest && s.phase.inMatch() {
		s.sendInput()
	}
}

func (s *Session) sendInput() {
	paddles := s.mode.PaddleCount(s.side)
	s.send(protocol.NewPlayerInput(s.opts.Name, s.own, paddles, s.params.PaddleSpeed, s.opts.Clock()))
}

func (s *Session) handleMessage(m protocol.Message) {
	if err := protocol.Validate(m); err != nil {
		s.log.Warn("invalid message dropped", "type", m.Type(), "err", err)
		return
	}

	switch m := m.(type) {
	case protocol.OpponentFound:
		s.onMatched(m)
	case protocol.GameStart:
		s.onGameStart(m)
	case protocol.PlayerInput:
		s.onRemoteInput(m)
	case protocol.GameSync:
		s.onSync(m)
	case protocol.GameEnd:
		s.onGameEnd(m)
	case protocol.OpponentDisconnected:
		s.onOpponentLeft()
	case protocol.Error:
		s.onError(m)
	default:
		s.log.Debug("message ignored", "type", m.Type())
	}
}

func (s *Session) onMatched(m protocol.OpponentFound) {
	if s.phase != PhaseSearching {
		s.log.Warn("unexpected match", "phase", s.phase)
		return
	}
	if mode, err := game.ParseMode(m.GameMode); err == nil && mode.Online() {
		s.mode = mode
	}

	s.opponent = m.Opponent
	s.role, s.side = RoleGuest, game.SideRight
	if m.IsHost {
		s.role, s.side = RoleHost, game.SideLeft
	}
	s.state = game.NewState(s.mode, s.params, s.opts.Seed)
	s.other = core.Intent{}
	s.ended = false

	s.log.Info("matched", "opponent", s.opponent, "role", s.role, "mode", s.mode)
	s.setPhase(PhaseMatched)
	s.events.push(Event{
		Kind:     EventMatched,
		Phase:    s.phase,
		Opponent: s.opponent,
		Role:     s.role,
		Side:     s.side,
		Mode:     s.mode,
		Message:  m.Message,
	})

	if s.role == RoleHost {
		s.send(protocol.GameStart{CountdownMs: int(s.params.CountdownMs)})
		s.beginCountdown()
		s.sendSync(s.opts.Clock())
	}
	s.publishView()
}

func (s *Session) startLocal() {
	s.role, s.side = RoleLocal, game.SideLeft
	s.state = game.NewState(s.mode, s.params, s.opts.Seed)
	if s.mode == game.ModeVsAI {
		s.ai = game.NewAIController(game.SideRight, s.opts.Pong.AI, s.opts.Pong.Difficulty)
	}
	s.beginCountdown()
	s.publishView()
}

func (s *Session) beginCountdown() {
	s.state.StartCountdown(s.params)
	s.setPhase(PhaseCountdown)
	s.startTicker()
}

func (s *Session) onGameStart(m protocol.GameStart) {
	if s.role != RoleGuest || s.phase != PhaseMatched {
		s.log.Warn("game_start ignored", "role", s.role, "phase", s.phase)
		return
	}
	s.beginCountdown()
	s.state.CountdownMs = float64(m.CountdownMs)
	if !s.own.IsZero() {
		s.sendInput()
	}
	s.publishView()
}

func (s *Session) onRemoteInput(m protocol.PlayerInput) {
	if s.role != RoleHost {
		s.log.Warn("player_input ignored", "role", s.role)
		return
	}
	s.other = m.Intent()
}

func (s *Session) onSync(m protocol.GameSync) {
	if s.role != RoleGuest || s.state == nil || s.ended {
		s.log.Debug("game_sync ignored", "role", s.role, "phase", s.phase)
		return
	}
	s.state.ApplySnapshot(m.Snapshot(), s.side, s.params.MaxBallSpeed)

	switch s.state.Status {
	case game.StatusCountdown:
		if s.phase == PhaseMatched {
			s.setPhase(PhaseCountdown)
			s.startTicker()
		}
	case game.StatusPlaying:
		if s.phase != PhasePlaying {
			if s.state.StartedAt.IsZero() {
				s.state.StartedAt = s.opts.Clock()
			}
			s.setPhase(PhasePlaying)
			s.startTicker()
		}
	case game.StatusFinished:
		s.stopTicker()
		s.setPhase(PhaseGameOver)
	}
	s.publishView()
}

func (s *Session) onGameEnd(m protocol.GameEnd) {
	if s.role != RoleGuest || s.state == nil || s.ended {
		s.log.Debug("game_end ignored", "role", s.role, "phase", s.phase)
		return
	}
	s.state.Conclude(game.Side(m.Winner), m.Score1, m.Score2)
	s.conclude(Result{
		Winner:   game.Side(m.Winner),
		Score1:   s.state.Score.Left(),
		Score2:   s.state.Score.Right(),
		Duration: time.Duration(m.Duration) * time.Millisecond,
		Reason:   m.Reason,
	})
}

func (s *Session) onOpponentLeft() {
	if !s.phase.inMatch() || s.ended {
		s.log.Debug("opponent_disconnected ignored", "phase", s.phase)
		return
	}
	s.notice(fmt.Sprintf("%s disconnected", s.opponentName()))
	s.state.Forfeit(s.side, s.params.WinScore)
	s.finish(protocol.ReasonForfeit, s.opts.Clock())
}

func (s *Session) onError(m protocol.Error) {
	if m.Code == protocol.CodeMatchmakingTimeout && s.phase == PhaseSearching {
		s.log.Info("matchmaking timed out")
		s.setPhase(PhaseInitial)
		s.events.push(Event{Kind: EventMatchmakingFailed, Phase: s.phase, Message: m.Message})
		return
	}
	s.log.Warn("server error", "code", m.Code, "message", m.Message)
	s.notice(m.Message)
}

// handleConnectionLost maps a closed transport to GAME_OVER during a match
// or to STOPPED otherwise.
func (s *Session) handleConnectionLost() error {
	s.log.Warn("connection lost", "phase", s.phase)
	s.notice("connection lost")

	if s.phase.inMatch() && !s.ended {
		s.stopTicker()
		s.state.Conclude(game.SideNone, 0, 0)
		s.conclude(s.resultFromState(protocol.ReasonCancelled, s.opts.Clock()))
		return nil
	}
	if s.phase == PhaseGameOver {
		return nil
	}
	s.setPhase(PhaseStopped)
	return ErrConnectionLost
}

func (s *Session) tick(now time.Time) {
	if s.state == nil {
		return
	}
	if s.role == RoleGuest {
		s.guestTick()
	} else {
		s.hostTick(now)
	}
	s.publishView()
}

func (s *Session) hostTick(now time.Time) {
	st := s.state
	st.Ticks++

	st.ApplyIntent(game.SideLeft, s.own, s.params.PaddleSpeed)
	right := s.other
	if s.ai != nil {
		right = s.ai.Intent(st)
	}
	st.ApplyIntent(game.SideRight, right, s.params.PaddleSpeed)

	before := st.Status
	switch st.Status {
	case game.StatusCountdown:
		if st.TickCountdown(s.params) {
			st.StartedAt = now
			s.setPhase(PhasePlaying)
		}
	case game.StatusPlaying:
		for _, ev := range game.Step(st, s.params) {
			if ev.Kind == game.EventScored {
				s.log.Debug("point", "side", ev.Side, "score", st.Score)
			}
		}
	}

	if s.role == RoleHost {
		every := uint64(s.params.SnapshotEvery())
		if st.Status != before || st.Ticks%every == 0 {
			s.sendSync(now)
		}
	}
	if st.Finished() {
		s.finish(protocol.ReasonCompleted, now)
	}
}

func (s *Session) guestTick() {
	st := s.state
	st.ApplyIntent(s.side, s.own, s.params.PaddleSpeed)
	switch st.Status {
	case game.StatusPlaying:
		st.MovePaddles(s.side)
	case game.StatusCountdown:
		st.DecayCountdown(s.params)
	}
}

// finish ends a match this peer owns or has forfeited into. The final
// snapshot has already gone out with the status change.
func (s *Session) finish(reason string, now time.Time) {
	if s.ended {
		return
	}
	s.stopTicker()
	if s.role == RoleHost {
		s.send(protocol.NewGameEnd(s.state, reason, now))
	}
	s.conclude(s.resultFromState(reason, now))
}

func (s *Session) conclude(res Result) {
	s.ended = true
	s.setPhase(PhaseGameOver)
	s.log.Info("match over", "winner", res.Winner, "score", fmt.Sprintf("%d-%d", res.Score1, res.Score2), "reason", res.Reason)
	s.events.push(Event{Kind: EventGameEnded, Phase: s.phase, Result: res})
	s.publishView()
}

func (s *Session) resultFromState(reason string, now time.Time) Result {
	return Result{
		Winner:   s.state.Winner,
		Score1:   s.state.Score.Left(),
		Score2:   s.state.Score.Right(),
		Duration: s.state.Duration(now),
		Reason:   reason,
	}
}

func (s *Session) sendSync(now time.Time) {
	s.send(protocol.NewGameSync(s.state.Snapshot(now)))
}

func (s *Session) send(m protocol.Message) {
	if s.transport == nil {
		return
	}
	if err := s.transport.Send(m); err != nil {
		s.log.Warn("send failed", "type", m.Type(), "err", err)
	}
}

func (s *Session) startTicker() {
	if s.ticker != nil {
		return
	}
	s.ticker = s.opts.NewTicker(s.params.TickInterval())
	s.tickC = s.ticker.C()
}

func (s *Session) stopTicker() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker, s.tickC = nil, nil
}

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.log.Debug("phase", "from", s.phase, "to", p)
	s.phase = p
	s.events.push(Event{Kind: EventPhaseChanged, Phase: p})
}

func (s *Session) publishView() {
	if s.state == nil {
		return
	}
	s.events.push(Event{Kind: EventSnapshot, Phase: s.phase, View: s.state.Clone()})
}

func (s *Session) notice(msg string) {
	s.events.push(Event{Kind: EventNotice, Phase: s.phase, Message: msg})
}

func (s *Session) opponentName() string {
	if s.opponent == "" {
		return "opponent"
	}
	return s.opponent
}

func phaseOf(st game.Status) Phase {
	switch st {
	case game.StatusCountdown:
		return PhaseCountdown
	case game.StatusPlaying:
		return PhasePlaying
	case game.StatusPaused:
		return PhasePaused
	case game.StatusFinished:
		return PhaseGameOver
	}
	return PhaseInitial
}
