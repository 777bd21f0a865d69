package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netpong/internal/core"
)

// palette maps each court role to an ANSI color.
var palette = [...]lipgloss.Style{
	core.ColorDefault:   lipgloss.NewStyle(),
	core.ColorNet:       fg("245"),
	core.ColorPaddle:    fg("7"),
	core.ColorOwnPaddle: fg("14").Bold(true),
	core.ColorBall:      fg("11"),
}

func fg(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

// Shared text styles.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func styleFor(c core.Color) lipgloss.Style {
	if c.Valid() {
		return palette[c]
	}
	return palette[core.ColorDefault]
}

// RenderScreen converts a Screen buffer to a styled string. Runs of cells
// sharing a color are emitted under one escape sequence.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	var run strings.Builder
	for y := range s.Height() {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < s.Width(); {
			color := s.GetCell(x, y).Color
			run.Reset()
			for ; x < s.Width(); x++ {
				cell := s.GetCell(x, y)
				if cell.Color != color {
					break
				}
				run.WriteRune(cell.Rune)
			}
			if color == core.ColorDefault {
				sb.WriteString(run.String())
				continue
			}
			sb.WriteString(styleFor(color).Render(run.String()))
		}
	}
	return sb.String()
}

// centerText centers text within width columns.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}

// lines centers each line and joins them.
func lines(width int, ls ...string) string {
	var b strings.Builder
	for _, l := range ls {
		b.WriteString(centerText(l, width))
		b.WriteByte('\n')
	}
	return b.String()
}
