package game

import (
	"fmt"

	"github.com/vovakirdan/netpong/internal/core"
)

// Visual characters for rendering
const (
	PaddleChar = '█'
	BallChar   = '●'
	NetChar    = '│'
)

// HUD carries the labels drawn around the court.
type HUD struct {
	LeftName  string
	RightName string
	Own       Side   // Highlighted side, SideNone for local play
	Banner    string // Optional line shown under a finished match
}

// Render draws the state onto dst. Row 0 is the score line; the court
// fills the rest, scaled from world units to cells.
func Render(dst *core.Screen, s *State, hud HUD) {
	dst.Clear()
	w, h := dst.Width(), dst.Height()
	if w < 10 || h < 5 || s.Width <= 0 || s.Height <= 0 {
		return
	}
	court := core.NewRect(0, 1, w, h-1)
	sx := float64(court.W) / s.Width
	sy := float64(court.H) / s.Height

	// Draw center line (net)
	centerX := w / 2
	for y := court.Y; y < court.Bottom(); y += 2 {
		dst.SetColored(centerX, y, NetChar, core.ColorNet)
	}

	for _, p := range s.Paddles {
		color := core.ColorPaddle
		if hud.Own != SideNone && p.Side == hud.Own {
			color = core.ColorOwnPaddle
		}
		x := court.X + int(p.X*sx)
		top := court.Y + int(p.Y*sy)
		length := max(1, int((p.Y+p.Height)*sy)-int(p.Y*sy))
		dst.DrawVLine(x, top, length, PaddleChar, color)
	}

	if s.Status == StatusPlaying || s.Status == StatusPaused {
		bx := core.Clamp(court.X+int(s.Ball.X*sx), 0, w-1)
		by := core.Clamp(court.Y+int(s.Ball.Y*sy), court.Y, court.Bottom()-1)
		dst.SetColored(bx, by, BallChar, core.ColorBall)
	}

	// Draw scores
	dst.DrawText(centerX-5, 0, fmt.Sprintf("%d", s.Score.Left()))
	dst.DrawText(centerX+4, 0, fmt.Sprintf("%d", s.Score.Right()))
	dst.DrawText(1, 0, hud.LeftName)
	dst.DrawText(w-1-len([]rune(hud.RightName)), 0, hud.RightName)

	switch s.Status {
	case StatusWaiting:
		drawCenteredMessage(dst, "WAITING", "Get ready")
	case StatusCountdown:
		drawCenteredMessage(dst, fmt.Sprintf("%d", s.CountdownSeconds()), s.Mode.Title())
	case StatusPaused:
		drawCenteredMessage(dst, "PAUSED", "Press P to resume")
	case StatusFinished:
		winner := hud.LeftName
		if s.Winner == SideRight {
			winner = hud.RightName
		}
		sub := fmt.Sprintf("%d - %d", s.Score.Left(), s.Score.Right())
		if hud.Banner != "" {
			sub += "  |  " + hud.Banner
		}
		drawCenteredMessage(dst, fmt.Sprintf("%s WINS!", winner), sub)
	}
}

// drawCenteredMessage draws a message box in the center of the screen.
func drawCenteredMessage(dst *core.Screen, title, subtitle string) {
	w := dst.Width()
	h := dst.Height()

	boxW := min(max(len([]rune(title)), len([]rune(subtitle)))+4, w)
	boxH := 5
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	dst.DrawRect(core.NewRect(boxX, boxY, boxW, boxH), ' ')
	dst.DrawBox(core.NewRect(boxX, boxY, boxW, boxH))

	titleX := boxX + (boxW-len([]rune(title)))/2
	dst.DrawText(titleX, boxY+1, title)

	subtitleX := boxX + (boxW-len([]rune(subtitle)))/2
	dst.DrawText(subtitleX, boxY+3, subtitle)
}
