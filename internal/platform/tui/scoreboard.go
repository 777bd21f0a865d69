package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/storage"
)

// Scoreboard layout constants
const (
	minWidthForSidebar = 80  // Minimum width to show the board list
	sidebarWidth       = 22  // Width of the board list
	maxRows            = 100 // Max rows to load
)

// board is one page of the scoreboard: high scores for a local mode, or
// the relay's recent online results.
type board struct {
	title  string
	mode   game.Mode
	online bool
}

func boards() []board {
	out := make([]board, 0, len(game.Modes)+1)
	for _, mode := range game.Modes {
		if !mode.Online() {
			out = append(out, board{title: mode.Title(), mode: mode})
		}
	}
	return append(out, board{title: "Online results", online: true})
}

// ScoreboardKeyMap defines the key bindings for the scoreboard.
type ScoreboardKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextBoard key.Binding
	PrevBoard key.Binding
	Back      key.Binding
	Quit      key.Binding
}

// ShortHelp implements help.KeyMap.
func (k ScoreboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextBoard, k.PrevBoard, k.Back}
}

// FullHelp implements help.KeyMap.
func (k ScoreboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextBoard, k.PrevBoard},
		{k.Back, k.Quit},
	}
}

// DefaultScoreboardKeyMap returns default key bindings.
func DefaultScoreboardKeyMap() ScoreboardKeyMap {
	return ScoreboardKeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		NextBoard: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next board")),
		PrevBoard: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("S-tab", "prev board")),
		Back:      key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc/b", "back")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ScoreboardModel shows local high scores and online match history.
type ScoreboardModel struct {
	boards      []board
	cursor      int
	store       *storage.Store
	rows        []table.Row
	loadErr     error
	table       table.Model
	help        help.Model
	keys        ScoreboardKeyMap
	width       int
	height      int
	quitting    bool
	goingBack   bool
	showSidebar bool
}

// NewScoreboardModel creates a scoreboard over store, which may be nil.
func NewScoreboardModel(store *storage.Store, width, height int) ScoreboardModel {
	m := ScoreboardModel{
		boards:      boards(),
		store:       store,
		keys:        DefaultScoreboardKeyMap(),
		help:        help.New(),
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.load()
	return m
}

func (m ScoreboardModel) current() board {
	return m.boards[m.cursor]
}

func (m *ScoreboardModel) columns() []table.Column {
	avail := m.width - 6
	if m.showSidebar {
		avail -= sidebarWidth + 3
	}
	if m.current().online {
		players := max(16, avail-12-12-10-12)
		return []table.Column{
			{Title: "When", Width: 12},
			{Title: "Mode", Width: 12},
			{Title: "Players", Width: players},
			{Title: "Score", Width: 10},
			{Title: "Result", Width: 12},
		}
	}
	player := max(12, min(24, avail-6-8-14))
	return []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "Player", Width: player},
		{Title: "Score", Width: 8},
		{Title: "Date", Width: 14},
	}
}

// load reads the current board's rows and rebuilds the table.
func (m *ScoreboardModel) load() {
	m.rows, m.loadErr = nil, nil
	if m.store != nil {
		if b := m.current(); b.online {
			m.rows, m.loadErr = m.onlineRows()
		} else {
			m.rows, m.loadErr = m.scoreRows(b.mode)
		}
	}

	t := table.New(
		table.WithColumns(m.columns()),
		table.WithRows(m.rows),
		table.WithFocused(true),
		table.WithHeight(max(3, m.height-8)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	m.table = t
}

func (m *ScoreboardModel) scoreRows(mode game.Mode) ([]table.Row, error) {
	scores, err := m.store.TopScores(mode, maxRows)
	if err != nil {
		return nil, err
	}
	rows := make([]table.Row, len(scores))
	for i, s := range scores {
		rows[i] = table.Row{
			fmt.Sprintf("#%d", i+1),
			s.Player,
			fmt.Sprintf("%d", s.Score),
			s.CreatedAt.Local().Format("Jan 02 15:04"),
		}
	}
	return rows, nil
}

func (m *ScoreboardModel) onlineRows() ([]table.Row, error) {
	matches, err := m.store.RecentOnlineMatches(maxRows)
	if err != nil {
		return nil, err
	}
	rows := make([]table.Row, len(matches))
	for i, r := range matches {
		result := r.EndReason
		if r.WinnerName != "" {
			result = r.WinnerName + " won"
		}
		rows[i] = table.Row{
			r.CreatedAt.Local().Format("Jan 02 15:04"),
			string(r.Mode),
			fmt.Sprintf("%s v %s", r.Player1Name, r.Player2Name),
			fmt.Sprintf("%d-%d", r.Score1, r.Score2),
			result,
		}
	}
	return rows, nil
}

// Init implements tea.Model.
func (m ScoreboardModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ScoreboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			return m, nil

		case key.Matches(msg, m.keys.NextBoard):
			m.cursor = (m.cursor + 1) % len(m.boards)
			m.load()
			return m, nil

		case key.Matches(msg, m.keys.PrevBoard):
			m.cursor = (m.cursor - 1 + len(m.boards)) % len(m.boards)
			m.load()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.help.Width = msg.Width
		m.load()
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ScoreboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := "SCORES - " + m.current().title
	b.WriteString(titleStyle.MarginBottom(1).Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	if m.showSidebar {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			box.Width(sidebarWidth).Render(m.sidebar()), "  ", box.Render(m.tableContent())))
	} else {
		b.WriteString(centerText(fmt.Sprintf("< %s >", m.current().title), m.width))
		b.WriteString("\n\n")
		b.WriteString(box.Render(m.tableContent()))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m ScoreboardModel) sidebar() string {
	var sb strings.Builder
	sb.WriteString("Boards\n")
	sb.WriteString(strings.Repeat("-", sidebarWidth-4))
	sb.WriteString("\n")
	for i, bd := range m.boards {
		cursor, style := "  ", lipgloss.NewStyle()
		if i == m.cursor {
			cursor, style = "> ", style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		name := bd.title
		if limit := sidebarWidth - 6; len(name) > limit {
			name = name[:limit-1] + "."
		}
		sb.WriteString(style.Render(cursor + name))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m ScoreboardModel) tableContent() string {
	empty := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)
	switch {
	case m.store == nil:
		return empty.Render("No score database is open.")
	case m.loadErr != nil:
		return empty.Render("Could not load scores:\n" + m.loadErr.Error())
	case len(m.rows) == 0 && m.current().online:
		return empty.Render("No online matches recorded yet.")
	case len(m.rows) == 0:
		return empty.Render("No scores recorded yet.\nPlay a match to set one!")
	}
	return m.table.View()
}

// IsGoingBack reports whether the user returned to the menu.
func (m ScoreboardModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting reports whether the user asked to quit.
func (m ScoreboardModel) IsQuitting() bool {
	return m.quitting
}
