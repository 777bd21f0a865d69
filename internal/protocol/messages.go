// Package protocol defines the JSON messages exchanged between peers and the
// relay. Messages form a closed set: every kind implements Message, and
// Decode rejects any type tag it does not know.
package protocol

// Type is the value of the "type" field on the wire.
type Type string

const (
	TypeJoinGame             Type = "join-game"
	TypeOpponentFound        Type = "opponentFound"
	TypeGameStart            Type = "game_start"
	TypePlayerInput          Type = "player_input"
	TypeGameSync             Type = "game_sync"
	TypeOpponentDisconnected Type = "opponent_disconnected"
	TypeGameEnd              Type = "game_end"
	TypeLeaveGame            Type = "leave_game"
	TypeError                Type = "error"
)

// Error codes carried in Error.Code.
const (
	CodeBadMode            = "bad_mode"
	CodeBadMessage         = "bad_message"
	CodeAlreadyJoined      = "already_joined"
	CodeNoMatch            = "no_match"
	CodeNotHost            = "not_host"
	CodeMatchmakingTimeout = "matchmaking_timeout"
	CodeRateLimited        = "rate_limited"
	CodeShuttingDown       = "shutting_down"
)

// End reasons carried in GameEnd.Reason.
const (
	ReasonCompleted = "completed"
	ReasonForfeit   = "forfeit"
	ReasonCancelled = "cancelled"
)

// Message is implemented by every wire message.
type Message interface {
	Type() Type
	isMessage()
}

// JoinGame asks the relay to queue the sender for a match.
type JoinGame struct {
	Name     string `json:"name" validate:"required,max=24"`
	GameMode string `json:"gameMode" validate:"mode"`
}

// OpponentFound tells a queued player who they play and which role they hold.
type OpponentFound struct {
	MatchID  string `json:"matchId,omitempty"`
	Opponent string `json:"opponent"`
	IsHost   bool   `json:"isHost"`
	GameMode string `json:"gameMode"`
	Message  string `json:"message,omitempty"`
}

// GameStart is sent by the host when the countdown begins.
type GameStart struct {
	CountdownMs int `json:"countdownMs" validate:"gte=0"`
}

// PlayerInput carries a guest's paddle directions to the host.
// Only the sign of each dy is meaningful.
type PlayerInput struct {
	PlayerID  string     `json:"playerId"`
	Input     InputState `json:"input"`
	Timestamp int64      `json:"timestamp"`
}

// InputState holds per-paddle velocities. Paddle2 is set in modes where the
// sender controls two paddles.
type InputState struct {
	Paddle1 PaddleInput  `json:"paddle1"`
	Paddle2 *PaddleInput `json:"paddle2,omitempty"`
}

// PaddleInput is one paddle's vertical velocity.
type PaddleInput struct {
	DY float64 `json:"dy" validate:"finite"`
}

// GameSync is the host's authoritative snapshot.
type GameSync struct {
	Ball      BallState   `json:"ball"`
	Player1   PlayerState `json:"player1"`
	Player2   PlayerState `json:"player2"`
	Score1    int         `json:"score1"`
	Score2    int         `json:"score2"`
	GameState string      `json:"gameState" validate:"status"`
	Winner    int         `json:"winner,omitempty" validate:"gte=0,lte=2"`
	Timestamp int64       `json:"timestamp"`
}

// BallState is the ball's position and velocity.
type BallState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PlayerState is one side's paddle positions.
type PlayerState struct {
	Y        float64  `json:"y"`
	Paddle2Y *float64 `json:"paddle2Y,omitempty"`
}

// OpponentDisconnected is sent by the relay when the other peer is gone.
type OpponentDisconnected struct{}

// GameEnd announces the final result. Duration is in milliseconds.
type GameEnd struct {
	Winner   int    `json:"winner" validate:"gte=0,lte=2"`
	Score1   int    `json:"score1" validate:"gte=0"`
	Score2   int    `json:"score2" validate:"gte=0"`
	Duration int64  `json:"duration"`
	Reason   string `json:"reason" validate:"oneof=completed forfeit cancelled"`
}

// LeaveGame is a peer's best-effort goodbye.
type LeaveGame struct{}

// Error reports a recoverable problem to a peer.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (JoinGame) Type() Type             { return TypeJoinGame }
func (OpponentFound) Type() Type        { return TypeOpponentFound }
func (GameStart) Type() Type            { return TypeGameStart }
func (PlayerInput) Type() Type          { return TypePlayerInput }
func (GameSync) Type() Type             { return TypeGameSync }
func (OpponentDisconnected) Type() Type { return TypeOpponentDisconnected }
func (GameEnd) Type() Type              { return TypeGameEnd }
func (LeaveGame) Type() Type            { return TypeLeaveGame }
func (Error) Type() Type                { return TypeError }

func (JoinGame) isMessage()             {}
func (OpponentFound) isMessage()        {}
func (GameStart) isMessage()            {}
func (PlayerInput) isMessage()          {}
func (GameSync) isMessage()             {}
func (OpponentDisconnected) isMessage() {}
func (GameEnd) isMessage()              {}
func (LeaveGame) isMessage()            {}
func (Error) isMessage()                {}

// HostOnly reports whether only the host of a match may send m.
func HostOnly(m Message) bool {
	switch m.(type) {
	case GameSync, GameStart, GameEnd:
		return true
	default:
		return false
	}
}

// NewError builds an Error message.
func NewError(code, message string) Error {
	return Error{Code: code, Message: message}
}
