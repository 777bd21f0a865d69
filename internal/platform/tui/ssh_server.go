package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/logging"
)

// DefaultSSHIdleTimeout closes sessions with no input for this long.
const DefaultSSHIdleTimeout = 30 * time.Minute

// SSHServer serves the App to every SSH client that requests a PTY. Online
// matches go through the in-process coordinator behind opts.Connect.
type SSHServer struct {
	config config.SSHConfig
	server *ssh.Server
	opts   AppOptions
	logger *log.Logger
}

// NewSSHServer creates a Wish server. opts is the template for every
// session; Name and the terminal size are filled in per connection.
// The host key is generated at cfg.KeyPath if missing.
func NewSSHServer(cfg config.SSHConfig, opts AppOptions) (*SSHServer, error) {
	srv := &SSHServer{
		config: cfg,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.KeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Addr()),
		wish.WithHostKeyPath(cfg.KeyPath),
		wish.WithIdleTimeout(DefaultSSHIdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates an App for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "netpong needs an interactive terminal (try ssh -t)")
		return nil, nil
	}

	opts := s.opts
	opts.Name = sshSession.User()
	opts.Width = pty.Window.Width
	opts.Height = pty.Window.Height
	opts.Mode = ""

	return NewApp(sshSession.Context(), opts), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		start := time.Now()
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
			"duration", time.Since(start).Round(time.Second),
		)
	}
}

// ListenAndServe blocks until the server is shut down. It returns
// ssh.ErrServerClosed after Shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Addr())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting sessions and waits for open ones until ctx ends.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Addr()
}
