package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/ssh"
)

// Listener is the lifecycle shared by *http.Server and the wish SSH server.
type Listener interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// ListenerService adapts a blocking ListenAndServe to suture.Service.
type ListenerService struct {
	server          Listener
	shutdownTimeout time.Duration
	name            string
}

// NewListenerService wraps server. name identifies it in supervisor logs.
func NewListenerService(name string, server Listener, shutdownTimeout time.Duration) *ListenerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ListenerService{server: server, shutdownTimeout: shutdownTimeout, name: name}
}

// Serve implements suture.Service. A normal close after ctx is cancelled
// returns ctx.Err().
func (s *ListenerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !isServerClosed(err) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", s.name, err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already cancelled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", s.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *ListenerService) String() string {
	return s.name
}

func isServerClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed) || errors.Is(err, ssh.ErrServerClosed)
}
