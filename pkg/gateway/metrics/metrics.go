// Package metrics exposes Prometheus instrumentation for the tutor gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's collectors. It satisfies the engine's Metrics
// interface.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions  prometheus.Gauge
	sessionsStarted prometheus.Counter
	sessionsPurged  prometheus.Counter
	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
}

// New creates a registry with all gateway collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "luna_active_sessions",
			Help: "Number of live practice sessions.",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luna_sessions_started_total",
			Help: "Total practice sessions started.",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luna_sessions_purged_total",
			Help: "Total sessions removed by the cleanup sweeper.",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luna_turns_total",
			Help: "Turn pipeline runs by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "luna_turn_duration_seconds",
			Help:    "Wall time of one full turn pipeline run.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeSessions,
		m.sessionsStarted,
		m.sessionsPurged,
		m.turns,
		m.turnDuration,
	)
	return m
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) SessionRemoved() {
	m.activeSessions.Dec()
}

func (m *Metrics) TurnProcessed(outcome string, elapsed time.Duration) {
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SessionsPurged(count int) {
	m.sessionsPurged.Add(float64(count))
}
