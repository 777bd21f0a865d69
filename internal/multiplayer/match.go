package multiplayer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/protocol"
)

// Player is one side of a match as the relay sees it.
type Player struct {
	Session SessionHandle
	Name    string
	left    bool
}

// Match is a paired host and guest. The host is player 1 (left side).
type Match struct {
	ID        MatchID
	Mode      game.Mode
	Host      *Player
	Guest     *Player
	CreatedAt time.Time
	StartedAt time.Time

	// Last state relayed from the host, used to record forfeits.
	score1, score2 int
	played         bool
	recorded       bool
}

// PlayerOf returns the player attached to id and whether it is the host.
func (m *Match) PlayerOf(id SessionID) (p *Player, isHost bool) {
	switch id {
	case m.Host.Session.ID():
		return m.Host, true
	case m.Guest.Session.ID():
		return m.Guest, false
	}
	return nil, false
}

// Opponent returns the other player in the match.
func (m *Match) Opponent(id SessionID) *Player {
	if id == m.Host.Session.ID() {
		return m.Guest
	}
	return m.Host
}

// observe tracks the host's view of the match from a relayed snapshot.
func (m *Match) observe(gs protocol.GameSync, now time.Time) {
	m.score1 = max(m.score1, gs.Score1)
	m.score2 = max(m.score2, gs.Score2)
	if game.Status(gs.GameState) == game.StatusPlaying && !m.played {
		m.played = true
		m.StartedAt = now
	}
}

// forfeitResult builds the record for a match the opponent of remaining
// walked out of. Unplayed matches count as a full win.
func (m *Match) forfeitResult(remaining *Player, winScore int, now time.Time) MatchResultData {
	s1, s2 := m.score1, m.score2
	if !m.played {
		s1, s2 = 0, 0
		if remaining == m.Host {
			s1 = winScore
		} else {
			s2 = winScore
		}
	}
	return m.result(s1, s2, remaining.Name, protocol.ReasonForfeit, now)
}

func (m *Match) result(score1, score2 int, winner, reason string, now time.Time) MatchResultData {
	var d time.Duration
	if !m.StartedAt.IsZero() {
		d = now.Sub(m.StartedAt).Round(time.Millisecond)
	}
	return MatchResultData{
		MatchID:     string(m.ID),
		Mode:        m.Mode,
		Player1Name: m.Host.Name,
		Player2Name: m.Guest.Name,
		Score1:      score1,
		Score2:      score2,
		WinnerName:  winner,
		EndReason:   reason,
		Duration:    d,
		EndedAt:     now,
	}
}

// Registry holds live matches and the session-to-match index.
// Thread-safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	matches  map[MatchID]*Match
	bySessID map[SessionID]MatchID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		matches:  make(map[MatchID]*Match),
		bySessID: make(map[SessionID]MatchID),
	}
}

// Create registers a new match under a fresh id.
func (r *Registry) Create(mode game.Mode, host, guest *Player, now time.Time) *Match {
	m := &Match{
		ID:        MatchID(uuid.NewString()),
		Mode:      mode,
		Host:      host,
		Guest:     guest,
		CreatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.ID] = m
	r.bySessID[host.Session.ID()] = m.ID
	r.bySessID[guest.Session.ID()] = m.ID
	return m
}

// Get returns a match by id.
func (r *Registry) Get(id MatchID) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	return m, ok
}

// BySession returns the match a session is attached to.
func (r *Registry) BySession(id SessionID) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mid, ok := r.bySessID[id]
	if !ok {
		return nil, false
	}
	m, ok := r.matches[mid]
	return m, ok
}

// Detach removes a session from its match without destroying the match.
func (r *Registry) Detach(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySessID, id)
}

// Remove destroys a match and detaches its players.
func (r *Registry) Remove(id MatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return
	}
	for _, p := range []*Player{m.Host, m.Guest} {
		if r.bySessID[p.Session.ID()] == id {
			delete(r.bySessID, p.Session.ID())
		}
	}
	delete(r.matches, id)
}

// Count returns the number of live matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// Matches returns a snapshot of the live matches.
func (r *Registry) Matches() []*Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	return out
}
