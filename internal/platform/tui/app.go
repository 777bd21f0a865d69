package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/protocol"
	"github.com/vovakirdan/netpong/internal/storage"
)

// AppOptions configure the top-level program.
type AppOptions struct {
	Name    string
	Pong    config.PongConfig
	Store   *storage.Store // Optional
	Connect Connector      // nil disables online modes
	Logger  *log.Logger
	FPS     int

	// Mode, when set, skips the menu and starts a match right away.
	Mode game.Mode

	Width  int
	Height int
}

type view int

const (
	viewMenu view = iota
	viewMatch
	viewScores
)

// App manages the full flow: menu -> match -> menu, plus the scoreboard.
type App struct {
	ctx    context.Context
	opts   AppOptions
	width  int
	height int

	current view
	menu    MenuModel
	match   MatchModel
	scores  ScoreboardModel

	quitting bool
}

// NewApp creates the top-level model. ctx bounds every match it starts.
func NewApp(ctx context.Context, opts AppOptions) App {
	opts.Name = PlayerName(opts.Name)
	m := App{
		ctx:    ctx,
		opts:   opts,
		width:  opts.Width,
		height: opts.Height,
	}
	m.menu = NewMenuModel(opts.Connect != nil, m.width, m.height)
	if opts.Mode.Valid() {
		m.startMatch(opts.Mode)
	}
	return m
}

// PlayerName trims name to something the relay accepts.
func PlayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "player"
	}
	if r := []rune(name); len(r) > protocol.MaxNameLength {
		name = string(r[:protocol.MaxNameLength])
	}
	return name
}

func (m *App) startMatch(mode game.Mode) {
	m.match = NewMatchModel(m.ctx, MatchOptions{
		Mode:    mode,
		Name:    m.opts.Name,
		Pong:    m.opts.Pong,
		Store:   m.opts.Store,
		Connect: m.opts.Connect,
		Logger:  m.opts.Logger,
		FPS:     m.opts.FPS,
	}, m.width, m.height)
	m.current = viewMatch
}

func (m *App) showMenu() {
	m.menu = NewMenuModel(m.opts.Connect != nil, m.width, m.height)
	m.current = viewMenu
}

// Init implements tea.Model.
func (m App) Init() tea.Cmd {
	if m.current == viewMatch {
		return m.match.Init()
	}
	return m.menu.Init()
}

// stale reports whether msg was produced by a match that is no longer shown.
func (m App) stale(msg tea.Msg) bool {
	switch msg.(type) {
	case frameTick, connectedMsg, connectFailedMsg, sessionEventMsg, sessionEndedMsg:
		return m.current != viewMatch || !m.match.owns(msg)
	}
	return false
}

// Update implements tea.Model.
func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.stale(msg) {
		discard(msg)
		return m, nil
	}
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = wsm.Width, wsm.Height
	}

	switch m.current {
	case viewMatch:
		return m.updateMatch(msg)
	case viewScores:
		return m.updateScores(msg)
	}
	return m.updateMenu(msg)
}

func (m App) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	newMenu, cmd := m.menu.Update(msg)
	if menu, ok := newMenu.(MenuModel); ok {
		m.menu = menu
	}

	switch {
	case m.menu.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.menu.Selected() != nil:
		m.startMatch(m.menu.Selected().Mode)
		return m, m.match.Init()
	case m.menu.WantsScoreboard():
		m.scores = NewScoreboardModel(m.opts.Store, m.width, m.height)
		m.current = viewScores
		return m, m.scores.Init()
	}
	return m, cmd
}

func (m App) updateMatch(msg tea.Msg) (tea.Model, tea.Cmd) {
	newMatch, cmd := m.match.Update(msg)
	if match, ok := newMatch.(MatchModel); ok {
		m.match = match
	}

	switch {
	case m.match.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.match.BackToMenu():
		m.showMenu()
		return m, m.menu.Init()
	case m.match.WantsRematch():
		m.startMatch(m.match.Mode())
		return m, m.match.Init()
	}
	return m, cmd
}

func (m App) updateScores(msg tea.Msg) (tea.Model, tea.Cmd) {
	newScores, cmd := m.scores.Update(msg)
	if scores, ok := newScores.(ScoreboardModel); ok {
		m.scores = scores
	}

	switch {
	case m.scores.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	case m.scores.IsGoingBack():
		m.showMenu()
		return m, m.menu.Init()
	}
	return m, cmd
}

// View implements tea.Model.
func (m App) View() string {
	if m.quitting {
		return ""
	}
	switch m.current {
	case viewMatch:
		return m.match.View()
	case viewScores:
		return m.scores.View()
	}
	return m.menu.View()
}

// Run starts the program on the local terminal and blocks until it exits.
func Run(ctx context.Context, opts AppOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewApp(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
