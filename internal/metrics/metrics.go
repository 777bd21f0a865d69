// Package metrics exposes relay activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/multiplayer"
	"github.com/vovakirdan/netpong/internal/protocol"
)

// Metrics holds the relay's collectors. It implements multiplayer.Observer.
type Metrics struct {
	registry *prometheus.Registry

	queueDepth        prometheus.Gauge
	activeMatches     prometheus.Gauge
	matchesEnded      *prometheus.CounterVec
	messagesRelayed   *prometheus.CounterVec
	messagesRejected  *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
}

var _ multiplayer.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netpong_matchmaking_queue_depth",
			Help: "Players currently waiting for an opponent",
		}),
		activeMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netpong_active_matches",
			Help: "Matches currently in the registry",
		}),
		matchesEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpong_matches_ended_total",
			Help: "Matches ended, by mode and end reason",
		}, []string{"mode", "reason"}),
		messagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpong_messages_relayed_total",
			Help: "Messages forwarded between peers, by type",
		}, []string{"type"}),
		messagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpong_messages_rejected_total",
			Help: "Messages answered with a protocol error, by code",
		}, []string{"code"}),
		messagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netpong_messages_dropped_total",
			Help: "Messages dropped by full buffers or rate limits, by direction",
		}, []string{"direction"}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netpong_websocket_connections_active",
			Help: "Open WebSocket connections",
		}),
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netpong_websocket_connections_total",
			Help: "WebSocket connections accepted",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) QueueDepth(n int)    { m.queueDepth.Set(float64(n)) }
func (m *Metrics) ActiveMatches(n int) { m.activeMatches.Set(float64(n)) }

func (m *Metrics) MatchEnded(mode game.Mode, reason string) {
	m.matchesEnded.WithLabelValues(string(mode), reason).Inc()
}

func (m *Metrics) MessageRelayed(t protocol.Type) {
	m.messagesRelayed.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) MessageRejected(code string) {
	m.messagesRejected.WithLabelValues(code).Inc()
}

// MessageDropped counts a message lost to backpressure or rate limiting.
func (m *Metrics) MessageDropped(direction string) {
	m.messagesDropped.WithLabelValues(direction).Inc()
}

// ConnectionOpened tracks an accepted WebSocket connection.
func (m *Metrics) ConnectionOpened() {
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

// ConnectionClosed tracks a closed WebSocket connection.
func (m *Metrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}
