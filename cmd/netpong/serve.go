package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/netpong/internal/api"
	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/metrics"
	"github.com/vovakirdan/netpong/internal/multiplayer"
	"github.com/vovakirdan/netpong/internal/platform/tui"
	"github.com/vovakirdan/netpong/internal/storage"
	"github.com/vovakirdan/netpong/internal/supervisor"
	"github.com/vovakirdan/netpong/internal/transport/ws"
)

var (
	flagWithSSH    bool
	flagPongConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket relay server",
	Long: `Run the relay: it pairs players who ask for the same mode, makes the
longest-waiting one the host, and forwards messages inside each match.
Finished, forfeited and cancelled matches are recorded in the results
database.

Endpoints:
  /ws                         - WebSocket peers
  /healthz                    - Liveness plus queue and match counts
  /metrics                    - Prometheus metrics
  /api/matches?limit=N        - Recent match results
  /api/players/{name}/matches - One player's results
  /api/stats                  - Result counts by mode and end reason

Configuration is read from --config, ./netpong.yaml or
/etc/netpong/netpong.yaml, then NETPONG_* environment variables
(e.g. NETPONG_SERVER_PORT=9000).

Examples:
  netpong serve
  netpong serve --config ./netpong.yaml
  netpong serve --ssh          # also accept ssh players on the same relay`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagWithSSH, "ssh", false, "Also serve the terminal peer over SSH")
	serveCmd.Flags().StringVar(&flagPongConfig, "pong", "", "Path to Pong tunables YAML")
}

// relay bundles the pieces every relay-hosting command needs.
type relay struct {
	cfg     *config.ServerConfig
	pong    config.PongConfig
	log     *log.Logger
	store   *storage.Store
	metrics *metrics.Metrics
	coord   *multiplayer.Coordinator
	tree    *supervisor.Tree
}

func newRelay() (*relay, error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New("netpong", cfg.Logging.Level)

	pong, err := config.LoadPong(flagPongConfig)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	coord := multiplayer.NewCoordinator(multiplayer.CoordinatorConfig{
		SearchTimeout: cfg.Match.SearchTimeout,
		CleanupPeriod: cfg.Match.CleanupInterval,
		WinScore:      pong.Gameplay.WinScore,
	}, multiplayer.NewSessionRegistry(), logger.WithPrefix("relay"))
	coord.SetResultSaver(store)
	coord.SetObserver(m)

	tree := supervisor.NewTree(logging.Slog(logger.WithPrefix("supervisor")), supervisor.DefaultTreeConfig())
	tree.AddRelayService(coord)

	return &relay{
		cfg:     cfg,
		pong:    pong,
		log:     logger,
		store:   store,
		metrics: m,
		coord:   coord,
		tree:    tree,
	}, nil
}

func (r *relay) addSSH() error {
	srv, err := tui.NewSSHServer(r.cfg.SSH, tui.AppOptions{
		Pong:    r.pong,
		Store:   r.store,
		Connect: tui.LocalConnector(r.coord, r.cfg.Match.SendBuffer),
		Logger:  r.log.WithPrefix("ssh"),
	})
	if err != nil {
		return err
	}
	r.tree.AddFrontend(supervisor.NewListenerService("ssh", srv, r.cfg.HTTP.ShutdownTimeout))
	r.log.Info("ssh enabled", "address", srv.Addr())
	return nil
}

// run supervises everything until SIGINT or SIGTERM, then stops the
// coordinator so waiting peers hear it is shutting down.
func (r *relay) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := r.tree.Serve(ctx)
	r.coord.Stop()
	if cerr := r.store.Close(); cerr != nil {
		r.log.Warn("failed to close results database", "err", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("relay stopped: %w", err)
	}
	r.log.Info("shut down")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	r, err := newRelay()
	if err != nil {
		return err
	}

	wsServer := ws.NewServer(r.coord, r.cfg.Match, r.cfg.HTTP.CORSOrigins, r.log.WithPrefix("ws"))
	wsServer.SetObserver(r.metrics)

	httpServer := &http.Server{
		Addr: r.cfg.HTTP.Addr(),
		Handler: api.NewRouter(api.Options{
			Config:    r.cfg.HTTP,
			Store:     r.store,
			Relay:     r.coord,
			WebSocket: wsServer,
			Metrics:   r.metrics.Handler(),
			Logger:    r.log.WithPrefix("http"),
		}),
		ReadHeaderTimeout: r.cfg.HTTP.ReadTimeout,
	}
	r.tree.AddFrontend(supervisor.NewListenerService("http", httpServer, r.cfg.HTTP.ShutdownTimeout))

	if flagWithSSH {
		if err := r.addSSH(); err != nil {
			r.store.Close()
			return err
		}
	}

	r.log.Info("relay listening", "address", httpServer.Addr, "ws", "/ws")
	return r.run(cmd.Context())
}
