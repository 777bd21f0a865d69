package core

// Color is the role a screen cell plays on the court. Front ends map roles
// to whatever their terminal can show.
type Color uint8

const (
	ColorDefault   Color = iota // Text and borders
	ColorNet                    // Dashed center line
	ColorPaddle                 // Any paddle
	ColorOwnPaddle              // Paddles this peer controls
	ColorBall

	colorCount
)

// Valid reports whether c is a known role.
func (c Color) Valid() bool {
	return c < colorCount
}
