package multiplayer

import (
	"time"

	"github.com/vovakirdan/netpong/internal/game"
)

// waiting is a session queued for an opponent.
type waiting struct {
	player   *Player
	mode     game.Mode
	queuedAt time.Time
}

// Queue is the matchmaking queue: first come, first served, per mode.
// It is owned by the coordinator goroutine.
type Queue struct {
	byMode map[game.Mode][]*waiting
	index  map[SessionID]game.Mode
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		byMode: make(map[game.Mode][]*waiting),
		index:  make(map[SessionID]game.Mode),
	}
}

// Contains reports whether id is waiting.
func (q *Queue) Contains(id SessionID) bool {
	_, ok := q.index[id]
	return ok
}

// Push enqueues a player for mode.
func (q *Queue) Push(p *Player, mode game.Mode, now time.Time) {
	q.byMode[mode] = append(q.byMode[mode], &waiting{player: p, mode: mode, queuedAt: now})
	q.index[p.Session.ID()] = mode
}

// PopOpponent removes and returns the longest-waiting player for mode.
func (q *Queue) PopOpponent(mode game.Mode) (*Player, bool) {
	list := q.byMode[mode]
	if len(list) == 0 {
		return nil, false
	}
	w := list[0]
	q.byMode[mode] = list[1:]
	delete(q.index, w.player.Session.ID())
	return w.player, true
}

// Remove drops id from the queue. It reports whether id was queued.
func (q *Queue) Remove(id SessionID) bool {
	mode, ok := q.index[id]
	if !ok {
		return false
	}
	delete(q.index, id)
	list := q.byMode[mode]
	for i, w := range list {
		if w.player.Session.ID() == id {
			q.byMode[mode] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return true
}

// Expire removes and returns players queued before cutoff.
func (q *Queue) Expire(cutoff time.Time) []*Player {
	var expired []*Player
	for mode, list := range q.byMode {
		kept := list[:0]
		for _, w := range list {
			if w.queuedAt.Before(cutoff) {
				expired = append(expired, w.player)
				delete(q.index, w.player.Session.ID())
				continue
			}
			kept = append(kept, w)
		}
		q.byMode[mode] = kept
	}
	return expired
}

// Len returns the number of waiting players.
func (q *Queue) Len() int {
	return len(q.index)
}
