package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records registry call outcomes and latency.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

// NewMetrics registers the registry metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the registry metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wmoned_registry_request_duration_seconds",
			Help:    "Duration of registry calls by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_registry_requests_total",
			Help: "Registry calls by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: ok, upstream_error, timeout, malformed
	}
}

func (m *Metrics) observe(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
	m.Requests.WithLabelValues(op, outcome).Inc()
}
