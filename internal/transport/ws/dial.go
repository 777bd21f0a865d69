package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/multiplayer"
	"github.com/vovakirdan/netpong/internal/protocol"
)

const inboxSize = 64

// Conn is the peer side of a relay connection. It implements
// session.Transport.
type Conn struct {
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex
	inbox   chan protocol.Message

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a relay at url (ws:// or wss://).
func Dial(ctx context.Context, url string, logger *log.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	wsConn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Conn{
		conn:  wsConn,
		log:   logging.OrDiscard(logger),
		inbox: make(chan protocol.Message, inboxSize),
		done:  make(chan struct{}),
	}
	wsConn.SetPingHandler(func(data string) error {
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		err := wsConn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	go c.readLoop()
	return c, nil
}

// Send encodes and writes msg.
func (c *Conn) Send(msg protocol.Message) error {
	select {
	case <-c.done:
		return multiplayer.ErrSessionClosed
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Messages delivers decoded relay messages in arrival order.
func (c *Conn) Messages() <-chan protocol.Message {
	return c.inbox
}

// Done closes when the connection is lost or closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the connection down. Safe to call
// multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		close(c.done)
	})
	return err
}

func (c *Conn) readLoop() {
	defer func() { _ = c.Close() }()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("relay connection lost", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Debug("dropping undecodable relay frame", "err", err)
			continue
		}
		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		}
	}
}
