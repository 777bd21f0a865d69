// Package api is the relay's HTTP surface: the WebSocket endpoint, health,
// Prometheus metrics and a read-only JSON view of recorded matches.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/storage"
)

// ResultStore is the read side of the results database.
type ResultStore interface {
	RecentOnlineMatches(limit int) ([]storage.OnlineMatchResult, error)
	PlayerMatchHistory(name string, limit int) ([]storage.OnlineMatchResult, error)
	GetMatchStats() (*storage.MatchStats, error)
}

// Relay reports live matchmaking state.
type Relay interface {
	QueueLen() int
	MatchCount() int
}

// Options wire the router to the rest of the server.
type Options struct {
	Config    config.HTTPConfig
	Store     ResultStore  // Optional; /api answers 503 without it
	Relay     Relay        // Required
	WebSocket http.Handler // Mounted at /ws
	Metrics   http.Handler // Mounted at /metrics; optional
	Logger    *log.Logger
}

// NewRouter builds the chi router.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		store: opts.Store,
		relay: opts.Relay,
		log:   logging.OrDiscard(opts.Logger),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.Config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	if opts.WebSocket != nil {
		r.Method(http.MethodGet, "/ws", opts.WebSocket)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	limit, window := opts.Config.APIRateLimit, opts.Config.APIRateWindow
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(limit, window))
		r.Use(requestLogger(h.log))
		r.Get("/matches", h.matches)
		r.Get("/players/{name}/matches", h.playerMatches)
		r.Get("/stats", h.stats)
	})

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
