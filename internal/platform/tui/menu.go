package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/netpong/internal/game"
)

// MenuItem is one selectable mode.
type MenuItem struct {
	Mode    game.Mode
	Enabled bool
}

// MenuModel picks a game mode.
type MenuModel struct {
	items  []MenuItem
	cursor int
	width  int
	height int
	keys   MenuKeyMap
	help   help.Model
	notice string

	quitting       bool
	selected       *MenuItem
	openScoreboard bool
}

// NewMenuModel lists every mode. Online modes are disabled when no relay
// is reachable.
func NewMenuModel(online bool, width, height int) MenuModel {
	items := make([]MenuItem, 0, len(game.Modes))
	for _, mode := range game.Modes {
		items = append(items, MenuItem{Mode: mode, Enabled: online || !mode.Online()})
	}
	return MenuModel{
		items:  items,
		width:  width,
		height: height,
		keys:   DefaultMenuKeyMap(),
		help:   help.New(),
	}
}

// Init implements tea.Model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m MenuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.notice = ""

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		m.notice = ""

	case key.Matches(msg, m.keys.Select):
		item := m.items[m.cursor]
		if !item.Enabled {
			m.notice = "Online play needs a relay: run with --url or connect over SSH."
			return m, nil
		}
		m.selected = &item

	case key.Matches(msg, m.keys.Scoreboard):
		m.openScoreboard = true
	}
	return m, nil
}

// View implements tea.Model.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText(titleStyle.Render("N E T P O N G"), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Select a mode", m.width))
	b.WriteString("\n\n")

	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-22s", cursor, item.Mode.Title())
		switch {
		case !item.Enabled:
			line = dimStyle.Render(line + " (offline)")
		case i == m.cursor:
			line = accentStyle.Render(line)
		}
		b.WriteString(centerText(line, m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(centerText(noticeStyle.Render(m.notice), m.width))
		b.WriteString("\n")
	}
	b.WriteString(centerText(m.help.View(m.keys), m.width))
	return b.String()
}

// Selected returns the chosen item, or nil.
func (m MenuModel) Selected() *MenuItem {
	return m.selected
}

// IsQuitting reports whether the user asked to quit.
func (m MenuModel) IsQuitting() bool {
	return m.quitting
}

// WantsScoreboard reports whether the user asked for the scoreboard.
func (m MenuModel) WantsScoreboard() bool {
	return m.openScoreboard
}
