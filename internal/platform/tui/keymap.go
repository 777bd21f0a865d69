package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"

	"github.com/vovakirdan/netpong/internal/core"
	"github.com/vovakirdan/netpong/internal/game"
)

// MatchKeyMap holds the in-match bindings. The left-hand keys drive this
// player's paddles; the arrow and right-hand keys drive the second local
// player, or double as this player's keys when there is none.
type MatchKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Up2        key.Binding
	Down2      key.Binding
	OpponentUp key.Binding
	OpponentDn key.Binding
	OpponentU2 key.Binding
	OpponentD2 key.Binding
	Pause      key.Binding
	Confirm    key.Binding
	Back       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultMatchKeyMap returns the default bindings.
func DefaultMatchKeyMap() MatchKeyMap {
	return MatchKeyMap{
		Up:         key.NewBinding(key.WithKeys("w"), key.WithHelp("w/s", "paddle")),
		Down:       key.NewBinding(key.WithKeys("s")),
		Up2:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e/d", "2nd paddle")),
		Down2:      key.NewBinding(key.WithKeys("d")),
		OpponentUp: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "right paddle")),
		OpponentDn: key.NewBinding(key.WithKeys("down")),
		OpponentU2: key.NewBinding(key.WithKeys("o"), key.WithHelp("o/l", "right 2nd")),
		OpponentD2: key.NewBinding(key.WithKeys("l")),
		Pause:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Confirm:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search/rematch")),
		Back:       key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "menu")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k MatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Pause, k.Confirm, k.Back, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k MatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Up2, k.OpponentUp, k.OpponentU2},
		{k.Pause, k.Confirm, k.Back, k.Help, k.Quit},
	}
}

// IsPaddleKey reports whether s belongs to a paddle binding and should be
// tracked as held rather than handled as a command.
func (k MatchKeyMap) IsPaddleKey(s string) bool {
	for _, b := range []key.Binding{k.Up, k.Down, k.Up2, k.Down2, k.OpponentUp, k.OpponentDn, k.OpponentU2, k.OpponentD2} {
		for _, bk := range b.Keys() {
			if bk == s {
				return true
			}
		}
	}
	return false
}

// Intents resolves held keys into this player's intent and, for local
// two-player modes, the right-hand player's.
func (k MatchKeyMap) Intents(held *core.HeldKeys, mode game.Mode, now time.Time) (own, opponent core.Intent) {
	own = core.Intent{
		Primary:   direction(held, k.Up, k.Down, now),
		Secondary: direction(held, k.Up2, k.Down2, now),
	}
	right := core.Intent{
		Primary:   direction(held, k.OpponentUp, k.OpponentDn, now),
		Secondary: direction(held, k.OpponentU2, k.OpponentD2, now),
	}

	if twoLocalPlayers(mode) {
		return own, right
	}
	// Alone at the keyboard: the arrows steer too.
	if own.Primary == core.DirStop {
		own.Primary = right.Primary
	}
	if own.Secondary == core.DirStop {
		own.Secondary = right.Secondary
	}
	return own, core.Intent{}
}

// twoLocalPlayers reports whether both sides are played from one keyboard.
func twoLocalPlayers(mode game.Mode) bool {
	return !mode.Online() && mode != game.ModeVsAI
}

func direction(held *core.HeldKeys, up, down key.Binding, now time.Time) core.Direction {
	u := anyHeld(held, up, now)
	d := anyHeld(held, down, now)
	switch {
	case u && !d:
		return core.DirUp
	case d && !u:
		return core.DirDown
	default:
		return core.DirStop
	}
}

func anyHeld(held *core.HeldKeys, b key.Binding, now time.Time) bool {
	for _, k := range b.Keys() {
		if held.Held(k, now) {
			return true
		}
	}
	return false
}

// MenuKeyMap holds the menu bindings.
type MenuKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	Scoreboard key.Binding
	Quit       key.Binding
}

// DefaultMenuKeyMap returns the default menu bindings.
func DefaultMenuKeyMap() MenuKeyMap {
	return MenuKeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k", "w"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j", "s"), key.WithHelp("↓/j", "down")),
		Select:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "play")),
		Scoreboard: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "scores")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k MenuKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Scoreboard, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k MenuKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
