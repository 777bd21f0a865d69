package session

import (
	"sync"
	"time"

	"github.com/vovakirdan/netpong/internal/game"
)

// EventKind tags an Event.
type EventKind int

const (
	EventPhaseChanged EventKind = iota + 1
	EventMatched
	EventSnapshot
	EventGameEnded
	EventNotice
	EventMatchmakingFailed
)

// Event is published to the front end on Session.Events.
type Event struct {
	Kind  EventKind
	Phase Phase

	// Set on EventMatched.
	Opponent string
	Role     Role
	Side     game.Side
	Mode     game.Mode

	// Set on EventSnapshot: a private copy the receiver may keep.
	View *game.State

	// Set on EventGameEnded.
	Result Result

	// Human-readable text for notices and failures.
	Message string
}

// Result is the outcome of a finished match as seen by this peer.
type Result struct {
	Winner   game.Side
	Score1   int
	Score2   int
	Duration time.Duration
	Reason   string
}

// eventQueue is a bounded channel that drops its oldest entry when full,
// so a slow front end never stalls the tick loop.
type eventQueue struct {
	ch       chan Event
	done     chan struct{}
	doneOnce sync.Once
}

func newEventQueue(size int) *eventQueue {
	if size < 1 {
		size = 64 // Default buffer size
	}
	return &eventQueue{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

func (q *eventQueue) push(evt Event) {
	select {
	case <-q.done:
		return
	default:
	}

	select {
	case q.ch <- evt:
	default:
		// Buffer full, drop oldest and retry
		select {
		case <-q.ch:
		default:
		}
		select {
		case q.ch <- evt:
		default:
		}
	}
}

func (q *eventQueue) close() {
	q.doneOnce.Do(func() {
		close(q.done)
	})
}
