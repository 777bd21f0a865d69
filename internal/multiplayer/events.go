package multiplayer

import "github.com/vovakirdan/netpong/internal/protocol"

// CoordinatorMessage represents a message from a session to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// InboundMsg carries a decoded protocol message from a session.
type InboundMsg struct {
	SessionID SessionID
	Message   protocol.Message
}

func (InboundMsg) coordinatorMessage() {}

// SessionDisconnectedMsg is sent when a session's connection is gone.
type SessionDisconnectedMsg struct {
	SessionID SessionID
}

func (SessionDisconnectedMsg) coordinatorMessage() {}
