package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	lookups    *prometheus.HistogramVec
	sessions   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		lookups: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_request_duration_seconds",
			Help:    "Latency of storefront product and stock lookups.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_sessions_open",
			Help: "Cart stores currently held in memory.",
		}),
	}
	m.registry.MustRegister(m.operations, m.lookups, m.sessions)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) ObserveLookup(endpoint string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(endpoint, outcome(err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
