package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for voice connection lifecycle.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveConnections  prometheus.Gauge
	ConnectionsCreated prometheus.Counter
	JoinFailures       prometheus.Counter
	JoinDuration       prometheus.Histogram
	Disconnects        *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sgrvoice_active_connections",
			Help: "Current number of live guild voice connections",
		}),
		ConnectionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sgrvoice_connections_created_total",
			Help: "Total number of voice connections established",
		}),
		JoinFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sgrvoice_join_failures_total",
			Help: "Total number of failed voice channel joins",
		}),
		JoinDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sgrvoice_join_duration_seconds",
			Help:    "Time taken to join a voice channel",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		Disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sgrvoice_disconnects_total",
			Help: "Total number of voice disconnects by reason",
		}, []string{"reason"}),
	}
}

// ConnectionCreated records a successful join that took d.
func (m *Metrics) ConnectionCreated(d time.Duration) {
	if m == nil {
		return
	}
	m.ConnectionsCreated.Inc()
	m.ActiveConnections.Inc()
	m.JoinDuration.Observe(d.Seconds())
}

// JoinFailed records a failed join.
func (m *Metrics) JoinFailed() {
	if m == nil {
		return
	}
	m.JoinFailures.Inc()
}

// Disconnected records a teardown for the given reason.
func (m *Metrics) Disconnected(reason string) {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
	m.Disconnects.WithLabelValues(reason).Inc()
}
