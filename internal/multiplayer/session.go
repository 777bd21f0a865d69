package multiplayer

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vovakirdan/netpong/internal/protocol"
)

// ErrSessionClosed is returned when sending on a closed peer.
var ErrSessionClosed = errors.New("multiplayer: session closed")

// SessionHandle is the transport-neutral interface for communicating with a session.
// It allows the coordinator to send messages without depending on WebSocket or SSH.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Send queues a message for the peer.
	// Must be non-blocking; implementations should use buffered channels.
	Send(msg protocol.Message)

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}
}

// ChannelSession is a SessionHandle implementation using Go channels.
// Used for in-process peers such as SSH players.
type ChannelSession struct {
	id       SessionID
	messages chan protocol.Message
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based session handle.
// bufferSize controls how many messages can be buffered before dropping.
func NewChannelSession(id SessionID, bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64 // Default buffer size
	}
	return &ChannelSession{
		id:       id,
		messages: make(chan protocol.Message, bufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send delivers a message to the session.
// If the buffer is full, the oldest message is dropped to prevent blocking.
func (s *ChannelSession) Send(msg protocol.Message) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.messages <- msg:
	default:
		select {
		case <-s.messages:
		default:
		}
		select {
		case s.messages <- msg:
		default:
		}
	}
}

// Messages returns the channel to receive messages from.
func (s *ChannelSession) Messages() <-chan protocol.Message {
	return s.messages
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SessionRegistry tracks connected sessions.
// Thread-safe for concurrent access.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[SessionID]SessionHandle),
	}
}

// Register adds a session to the registry.
func (r *SessionRegistry) Register(session SessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
}

// Unregister removes a session from the registry.
func (r *SessionRegistry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get retrieves a session by ID.
func (r *SessionRegistry) Get(id SessionID) (SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// LocalPeer is an in-process connection to a Coordinator. It satisfies the
// peer-side transport contract, so a terminal session can play against
// WebSocket peers without a network hop.
type LocalPeer struct {
	coord     *Coordinator
	session   *ChannelSession
	closeOnce sync.Once
}

// Connect registers a new in-process peer with the coordinator.
func (c *Coordinator) Connect(bufferSize int) *LocalPeer {
	s := NewChannelSession(SessionID(uuid.NewString()), bufferSize)
	c.sessions.Register(s)
	return &LocalPeer{coord: c, session: s}
}

// ID returns the peer's session id.
func (p *LocalPeer) ID() SessionID {
	return p.session.ID()
}

// Send hands msg to the coordinator.
func (p *LocalPeer) Send(msg protocol.Message) error {
	select {
	case <-p.session.Done():
		return ErrSessionClosed
	default:
	}
	p.coord.Send(InboundMsg{SessionID: p.session.ID(), Message: msg})
	return nil
}

// Messages returns what the coordinator sends to this peer.
func (p *LocalPeer) Messages() <-chan protocol.Message {
	return p.session.Messages()
}

// Done closes when the peer is closed.
func (p *LocalPeer) Done() <-chan struct{} {
	return p.session.Done()
}

// Close disconnects the peer. Safe to call multiple times.
func (p *LocalPeer) Close() error {
	p.closeOnce.Do(func() {
		p.session.Close()
		p.coord.sessions.Unregister(p.session.ID())
		p.coord.Send(SessionDisconnectedMsg{SessionID: p.session.ID()})
	})
	return nil
}
