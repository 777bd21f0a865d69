// Package tui is the terminal front end: a Bubble Tea program that lets a
// player pick a mode, play locally or through the relay, and browse scores.
// The same program is served over SSH by SSHServer.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameTick drives key polling and redraws for one match model; the
// simulation itself runs on the session's own ticker.
type frameTick struct {
	id int64
	at time.Time
}

func frameCmd(id int64, fps int) tea.Cmd {
	if fps <= 0 {
		fps = 60
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return frameTick{id: id, at: t}
	})
}
