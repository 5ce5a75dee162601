package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Dropped         prometheus.Counter
	PersistFailures *prometheus.CounterVec
}

// NewMetrics registers audit metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers audit metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_audit_events_emitted_total",
			Help: "Total number of audit events persisted, by category",
		}, []string{"category"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "wmoned_audit_events_dropped_total",
			Help: "Total number of buffered audit events dropped because the buffer was full",
		}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_audit_persist_failures_total",
			Help: "Total number of audit events that failed to persist, by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) incEmitted(category string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(category).Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) incPersistFailures(category string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(category).Inc()
}
