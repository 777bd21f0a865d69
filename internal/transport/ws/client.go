// Package ws carries the netpong protocol over WebSocket text frames: the
// relay side registers each connection with a multiplayer.Coordinator, and
// Dial gives a session.Session its network transport.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/netpong/internal/multiplayer"
	"github.com/vovakirdan/netpong/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultMaxMessageBytes = 64 * 1024
)

// Drop directions reported to the Observer.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Client is one relay-side WebSocket connection. It implements
// multiplayer.SessionHandle.
type Client struct {
	id      multiplayer.SessionID
	conn    *websocket.Conn
	coord   *multiplayer.Coordinator
	send    chan protocol.Message
	limiter *rate.Limiter
	obs     Observer
	log     *log.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:      multiplayer.SessionID(uuid.NewString()),
		conn:    conn,
		coord:   s.coord,
		send:    make(chan protocol.Message, s.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(s.cfg.InputRate), s.cfg.InputBurst),
		obs:     s.obs,
		log:     s.log,
		done:    make(chan struct{}),
	}
}

// ID returns the session id assigned at upgrade.
func (c *Client) ID() multiplayer.SessionID {
	return c.id
}

// Done closes when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues msg for the write pump. When the buffer is full the oldest
// queued message is dropped.
func (c *Client) Send(msg protocol.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
		c.obs.MessageDropped(DirectionOutbound)
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.obs.MessageDropped(DirectionOutbound)
	}
}

func (c *Client) start(maxBytes int64) {
	go c.writePump()
	go c.readPump(maxBytes)
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.coord.Sessions().Unregister(c.id)
		c.coord.Send(multiplayer.SessionDisconnectedMsg{SessionID: c.id})
		c.obs.ConnectionClosed()
		c.log.Debug("connection closed", "session", c.id)
	})
}

// readPump decodes frames and hands them to the coordinator.
func (c *Client) readPump(maxBytes int64) {
	defer func() {
		c.shutdown()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxBytes)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("failed to set read deadline", "err", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("unexpected websocket close", "session", c.id, "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			c.reject(protocol.CodeBadMessage, "expected a text frame")
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Debug("undecodable frame", "session", c.id, "err", err)
			if errors.Is(err, protocol.ErrUnknownType) {
				c.reject(protocol.CodeBadMessage, "unknown message type")
			} else {
				c.reject(protocol.CodeBadMessage, "malformed message")
			}
			continue
		}

		if !c.limiter.Allow() {
			c.obs.MessageDropped(DirectionInbound)
			// A dropped input is superseded by the next one.
			if _, isInput := msg.(protocol.PlayerInput); !isInput {
				c.reject(protocol.CodeRateLimited, "slow down")
			}
			continue
		}

		c.coord.Send(multiplayer.InboundMsg{SessionID: c.id, Message: msg})
	}
}

// writePump encodes queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			data, err := protocol.Encode(msg)
			if err != nil {
				c.log.Error("failed to encode message", "type", msg.Type(), "err", err)
				continue
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write failed", "session", c.id, "err", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			data, err := protocol.Encode(msg)
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) reject(code, message string) {
	c.obs.MessageRejected(code)
	c.Send(protocol.NewError(code, message))
}
