package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/protocol"
	"github.com/vovakirdan/netpong/internal/session"
	"github.com/vovakirdan/netpong/internal/storage"
)

// Connector opens a relay connection for one online match.
type Connector func(ctx context.Context) (session.Transport, error)

// MatchOptions configure a MatchModel.
type MatchOptions struct {
	Mode    game.Mode
	Name    string
	Pong    config.PongConfig
	Store   *storage.Store // Optional
	Connect Connector      // Required for online modes
	Logger  *log.Logger
	FPS     int
}

// Every match model gets an id so messages from a model the user already
// left are not applied to its successor.
var matchSeq atomic.Int64

type (
	connectedMsg struct {
		id        int64
		transport session.Transport
	}
	connectFailedMsg struct {
		id  int64
		err error
	}
	sessionEventMsg struct {
		id  int64
		evt session.Event
	}
	sessionEndedMsg struct {
		id  int64
		err error
	}
)

// MatchModel plays one match through a session.Session.
type MatchModel struct {
	id     int64
	opts   MatchOptions
	log    *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	sess   *session.Session

	keys   MatchKeyMap
	held   *core.HeldKeys
	help   help.Model
	screen *core.Screen
	width  int
	height int

	phase      session.Phase
	side       game.Side
	role       session.Role
	opponent   string
	view       *game.State
	result     *session.Result
	notice     string
	connecting bool
	ended      bool
	scoreSaved bool

	backToMenu bool
	rematch    bool
	quitting   bool
}

// NewMatchModel prepares a match. Nothing runs until Init.
func NewMatchModel(parent context.Context, opts MatchOptions, width, height int) MatchModel {
	ctx, cancel := context.WithCancel(parent)
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	m := MatchModel{
		id:     matchSeq.Add(1),
		opts:   opts,
		log:    logging.OrDiscard(opts.Logger),
		ctx:    ctx,
		cancel: cancel,
		keys:   DefaultMatchKeyMap(),
		held:   core.NewHeldKeys(0),
		help:   help.New(),
		screen: core.NewScreen(width, max(1, height-2)),
		width:  width,
		height: height,
		phase:  session.PhaseInitial,
		side:   game.SideLeft,
	}
	m.help.Width = width

	if !opts.Mode.Online() {
		sess, err := session.NewLocal(m.sessionOptions())
		if err != nil {
			m.notice = err.Error()
			m.ended = true
			return m
		}
		m.sess = sess
		return m
	}
	if opts.Connect == nil {
		m.notice = "no relay configured"
		m.ended = true
		return m
	}
	m.connecting = true
	return m
}

func (m MatchModel) sessionOptions() session.Options {
	return session.Options{
		Name:   m.opts.Name,
		Mode:   m.opts.Mode,
		Pong:   m.opts.Pong,
		Logger: m.log,
	}
}

// Init implements tea.Model.
func (m MatchModel) Init() tea.Cmd {
	switch {
	case m.connecting:
		return tea.Batch(m.connectCmd(), frameCmd(m.id, m.opts.FPS))
	case m.sess != nil:
		return tea.Batch(m.runCmd(nil), m.listenCmd(), frameCmd(m.id, m.opts.FPS))
	}
	return nil
}

func (m MatchModel) connectCmd() tea.Cmd {
	id, ctx, connect := m.id, m.ctx, m.opts.Connect
	return func() tea.Msg {
		t, err := connect(ctx)
		if err != nil {
			return connectFailedMsg{id: id, err: err}
		}
		if ctx.Err() != nil {
			_ = t.Close()
			return nil
		}
		return connectedMsg{id: id, transport: t}
	}
}

// runCmd runs the session to completion and releases its transport.
func (m MatchModel) runCmd(t session.Transport) tea.Cmd {
	id, ctx, sess := m.id, m.ctx, m.sess
	return func() tea.Msg {
		err := sess.Run(ctx)
		if t != nil {
			_ = t.Close()
		}
		return sessionEndedMsg{id: id, err: err}
	}
}

func (m MatchModel) listenCmd() tea.Cmd {
	id, sess := m.id, m.sess
	return func() tea.Msg {
		select {
		case evt := <-sess.Events():
			return sessionEventMsg{id: id, evt: evt}
		case <-sess.Done():
			select {
			case evt := <-sess.Events():
				return sessionEventMsg{id: id, evt: evt}
			default:
				return nil
			}
		}
	}
}

// owns reports whether msg belongs to this model.
func (m MatchModel) owns(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case frameTick:
		return msg.id == m.id
	case connectedMsg:
		return msg.id == m.id
	case connectFailedMsg:
		return msg.id == m.id
	case sessionEventMsg:
		return msg.id == m.id
	case sessionEndedMsg:
		return msg.id == m.id
	}
	return true
}

// Update implements tea.Model.
func (m MatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.owns(msg) {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.screen.Resize(msg.Width, max(1, msg.Height-2))
		m.help.Width = msg.Width

	case frameTick:
		if m.ended || m.quitting || m.backToMenu || m.rematch {
			return m, nil
		}
		if m.sess != nil {
			own, other := m.keys.Intents(m.held, m.opts.Mode, msg.at)
			m.sess.SetIntent(own)
			if twoLocalPlayers(m.opts.Mode) {
				m.sess.SetOpponentIntent(other)
			}
		}
		return m, frameCmd(m.id, m.opts.FPS)

	case connectedMsg:
		m.connecting = false
		sess, err := session.NewOnline(msg.transport, m.sessionOptions())
		if err != nil {
			_ = msg.transport.Close()
			m.notice = err.Error()
			m.ended = true
			return m, nil
		}
		m.sess = sess
		sess.Search()
		return m, tea.Batch(m.runCmd(msg.transport), m.listenCmd())

	case connectFailedMsg:
		m.connecting = false
		m.ended = true
		m.notice = fmt.Sprintf("Could not reach the relay: %v", msg.err)
		m.log.Warn("relay connect failed", "err", msg.err)

	case sessionEventMsg:
		m.applyEvent(msg.evt)
		return m, m.listenCmd()

	case sessionEndedMsg:
		m.ended = true
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.notice = msg.err.Error()
		}
	}
	return m, nil
}

func (m *MatchModel) applyEvent(evt session.Event) {
	switch evt.Kind {
	case session.EventPhaseChanged:
		m.phase = evt.Phase
	case session.EventMatched:
		m.phase = session.PhaseMatched
		m.role = evt.Role
		m.side = evt.Side
		m.opponent = evt.Opponent
		m.notice = ""
	case session.EventSnapshot:
		m.view = evt.View
	case session.EventGameEnded:
		r := evt.Result
		m.result = &r
		m.saveScore(r)
	case session.EventNotice:
		m.notice = evt.Message
	case session.EventMatchmakingFailed:
		m.phase = session.PhaseInitial
		m.notice = evt.Message
	}
}

// saveScore records the left player's score for local modes.
func (m *MatchModel) saveScore(r session.Result) {
	if m.scoreSaved || m.opts.Store == nil || m.opts.Mode.Online() || r.Reason != protocol.ReasonCompleted {
		return
	}
	m.scoreSaved = true
	if _, err := m.opts.Store.SaveScore(m.opts.Mode, m.opts.Name, r.Score1); err != nil {
		m.log.Error("failed to save score", "mode", m.opts.Mode, "err", err)
	}
}

func (m MatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stop()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.stop()
		m.backToMenu = true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Pause):
		if m.sess != nil && !m.opts.Mode.Online() {
			m.sess.TogglePause()
		}

	case key.Matches(msg, m.keys.Confirm):
		switch {
		case m.phase == session.PhaseGameOver || (m.ended && !m.connecting):
			m.stop()
			m.rematch = true
		case m.sess != nil && m.opts.Mode.Online() && m.phase == session.PhaseInitial:
			m.notice = ""
			m.sess.Search()
		}

	case m.keys.IsPaddleKey(msg.String()):
		m.held.Press(msg.String(), time.Now())
	}
	return m, nil
}

// stop ends the session. Its transport is closed once Run returns.
func (m *MatchModel) stop() {
	if m.sess != nil {
		m.sess.Stop()
	}
	m.cancel()
}

// View implements tea.Model.
func (m MatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.view != nil {
		game.Render(m.screen, m.view, m.hud())
		b.WriteString(RenderScreen(m.screen))
	} else {
		b.WriteString(m.lobbyView())
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m MatchModel) hud() game.HUD {
	me := m.opts.Name
	switch {
	case m.opts.Mode == game.ModeVsAI:
		return game.HUD{LeftName: me, RightName: "CPU", Own: game.SideLeft, Banner: m.banner()}
	case !m.opts.Mode.Online():
		return game.HUD{LeftName: me, RightName: "Player 2", Banner: m.banner()}
	case m.side == game.SideRight:
		return game.HUD{LeftName: m.opponent, RightName: me, Own: game.SideRight, Banner: m.banner()}
	default:
		return game.HUD{LeftName: me, RightName: m.opponent, Own: game.SideLeft, Banner: m.banner()}
	}
}

func (m MatchModel) banner() string {
	if m.result == nil {
		return ""
	}
	switch m.result.Reason {
	case protocol.ReasonForfeit:
		return "opponent left"
	case protocol.ReasonCancelled:
		return "match cancelled"
	}
	return ""
}

func (m MatchModel) statusLine() string {
	parts := []string{accentStyle.Render(m.opts.Mode.Title())}
	if m.opts.Mode.Online() && m.role != session.RoleLocal {
		parts = append(parts, fmt.Sprintf("%s vs %s", m.role, m.opponent))
	}
	parts = append(parts, string(m.phase))
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	return strings.Join(parts, "  |  ")
}

// lobbyView is shown before the first snapshot arrives.
func (m MatchModel) lobbyView() string {
	top := max(0, m.height/2-4)
	pad := strings.Repeat("\n", top)

	title := m.opts.Mode.Title()
	switch {
	case m.connecting:
		return pad + lines(m.width, titleStyle.Render("CONNECTING"), "", "Reaching the relay...")
	case m.ended:
		return pad + lines(m.width, titleStyle.Render(strings.ToUpper(title)), "", "Enter: try again  |  Esc: menu")
	}

	switch m.phase {
	case session.PhaseInitial:
		return pad + lines(m.width, titleStyle.Render(strings.ToUpper(title)), "", "Press enter to find an opponent")
	case session.PhaseSearching:
		return pad + lines(m.width, titleStyle.Render("SEARCHING"), "", fmt.Sprintf("Waiting for a %s opponent...", title), "", "Esc: cancel")
	case session.PhaseMatched:
		return pad + lines(m.width, titleStyle.Render("MATCHED"), "",
			fmt.Sprintf("Playing %s as %s (%s side)", m.opponent, m.role, m.side), "", "Get ready!")
	}
	return pad + lines(m.width, "Starting...")
}

// Mode returns the mode being played.
func (m MatchModel) Mode() game.Mode {
	return m.opts.Mode
}

// BackToMenu reports whether the user left for the menu.
func (m MatchModel) BackToMenu() bool {
	return m.backToMenu
}

// WantsRematch reports whether the user asked to play the mode again.
func (m MatchModel) WantsRematch() bool {
	return m.rematch
}

// IsQuitting reports whether the user asked to quit.
func (m MatchModel) IsQuitting() bool {
	return m.quitting
}

// discard releases resources carried by a message addressed to a model
// that is no longer active.
func discard(msg tea.Msg) {
	if c, ok := msg.(connectedMsg); ok {
		_ = c.transport.Close()
	}
}
