package ws

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/multiplayer"
)

// Observer receives connection-level counters. *metrics.Metrics satisfies it.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageDropped(direction string)
	MessageRejected(code string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()      {}
func (nopObserver) ConnectionClosed()      {}
func (nopObserver) MessageDropped(string)  {}
func (nopObserver) MessageRejected(string) {}

// Server upgrades HTTP requests and attaches each connection to a coordinator.
type Server struct {
	coord    *multiplayer.Coordinator
	cfg      config.MatchConfig
	origins  []string
	upgrader websocket.Upgrader
	obs      Observer
	log      *log.Logger
}

// NewServer builds the /ws handler. origins lists accepted browser origins;
// "*" accepts any. Requests without an Origin header (terminal clients) are
// always accepted.
func NewServer(coord *multiplayer.Coordinator, cfg config.MatchConfig, origins []string, logger *log.Logger) *Server {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = config.DefaultServerConfig().Match.SendBuffer
	}
	if cfg.InputRate <= 0 {
		cfg.InputRate = config.DefaultServerConfig().Match.InputRate
	}
	if cfg.InputBurst < 1 {
		cfg.InputBurst = config.DefaultServerConfig().Match.InputBurst
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}

	s := &Server{
		coord:   coord,
		cfg:     cfg,
		origins: origins,
		obs:     nopObserver{},
		log:     logging.OrDiscard(logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// SetObserver installs connection metrics.
func (s *Server) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.obs = o
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := newClient(s, conn)
	s.coord.Sessions().Register(client)
	s.obs.ConnectionOpened()
	s.log.Debug("connection opened", "session", client.ID(), "remote", r.RemoteAddr)
	client.start(s.cfg.MaxMessageBytes)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.log.Warn("websocket origin rejected", "origin", origin)
	return false
}
