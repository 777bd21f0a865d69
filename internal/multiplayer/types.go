// Package multiplayer is the relay side of online play: matchmaking, the
// match registry and the input relay between a match's host and guest.
// The server never simulates a match; it routes messages and records results.
package multiplayer

import (
	"time"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/protocol"
)

// SessionID uniquely identifies a connected peer.
type SessionID string

// MatchID uniquely identifies a match in the registry.
type MatchID string

// MatchResultSaver persists finished matches.
// This allows the coordinator to save results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResultData) error
}

// MatchResultData contains match result data for persistence.
type MatchResultData struct {
	MatchID     string
	Mode        game.Mode
	Player1Name string
	Player2Name string
	Score1      int
	Score2      int
	WinnerName  string // Empty when nobody won
	EndReason   string
	Duration    time.Duration
	EndedAt     time.Time
}

// Observer receives coordinator activity for metrics.
type Observer interface {
	QueueDepth(n int)
	ActiveMatches(n int)
	MatchEnded(mode game.Mode, reason string)
	MessageRelayed(t protocol.Type)
	MessageRejected(code string)
}

type nopObserver struct{}

func (nopObserver) QueueDepth(int)               {}
func (nopObserver) ActiveMatches(int)            {}
func (nopObserver) MatchEnded(game.Mode, string) {}
func (nopObserver) MessageRelayed(protocol.Type) {}
func (nopObserver) MessageRejected(string)       {}
