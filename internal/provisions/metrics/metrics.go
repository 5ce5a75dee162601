package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the provisions module.
type Metrics struct {
	// Entitlements produced by normalization and kept by the eligibility filter
	EntitlementsNormalized prometheus.Histogram
	EntitlementsReturned   prometheus.Histogram

	// Lookup outcomes: ok, upstream_error, malformed, internal
	Lookups *prometheus.CounterVec

	DocumentDownloads *prometheus.CounterVec
}

// New registers the provisions metrics with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the provisions metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	buckets := []float64{0, 1, 2, 5, 10, 25, 50, 100}
	return &Metrics{
		EntitlementsNormalized: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wmoned_entitlements_normalized",
			Help:    "Entitlements produced per lookup before the eligibility filter",
			Buckets: buckets,
		}),
		EntitlementsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wmoned_entitlements_returned",
			Help:    "Entitlements returned per lookup",
			Buckets: buckets,
		}),
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_provision_lookups_total",
			Help: "Provision lookups by outcome",
		}, []string{"outcome"}),
		DocumentDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wmoned_document_downloads_total",
			Help: "Document downloads by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveLookup records the result sizes of a successful lookup.
func (m *Metrics) ObserveLookup(normalized, returned int) {
	if m != nil {
		m.EntitlementsNormalized.Observe(float64(normalized))
		m.EntitlementsReturned.Observe(float64(returned))
		m.Lookups.WithLabelValues("ok").Inc()
	}
}

// IncrementLookupFailure records a failed lookup.
func (m *Metrics) IncrementLookupFailure(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

// IncrementDocumentDownload records a document download outcome.
func (m *Metrics) IncrementDocumentDownload(outcome string) {
	if m != nil {
		m.DocumentDownloads.WithLabelValues(outcome).Inc()
	}
}
