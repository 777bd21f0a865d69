package tui

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpong/internal/multiplayer"
	"github.com/vovakirdan/netpong/internal/session"
	"github.com/vovakirdan/netpong/internal/transport/ws"
)

// LocalConnector attaches each online match to an in-process coordinator.
// It is what the SSH front end uses.
func LocalConnector(coord *multiplayer.Coordinator, bufferSize int) Connector {
	return func(ctx context.Context) (session.Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return coord.Connect(bufferSize), nil
	}
}

// WSConnector dials a relay's WebSocket endpoint for each online match.
func WSConnector(url string, logger *log.Logger) Connector {
	return func(ctx context.Context) (session.Transport, error) {
		conn, err := ws.Dial(ctx, url, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
