package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes used as the outcome label.
const (
	OutcomeLoaded  = "loaded"
	OutcomePresent = "already_present"
	OutcomeFailed  = "failed"
)

// Metrics holds the ingestion collectors.
type Metrics struct {
	Records       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	BatchRetries  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "proceres_ingest_records_total",
			Help: "Dataset records processed by ingestion, by outcome.",
		}, []string{"outcome"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "proceres_ingest_batch_duration_seconds",
			Help:    "Wall time spent committing one ingestion batch.",
			Buckets: prometheus.DefBuckets,
		}),
		BatchRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "proceres_ingest_batch_retries_total",
			Help: "Batch transactions retried after a datastore failure.",
		}),
	}
}

func (m *Metrics) observe(r batchResult) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(OutcomeLoaded).Add(float64(r.loaded))
	m.Records.WithLabelValues(OutcomePresent).Add(float64(r.present))
	m.Records.WithLabelValues(OutcomeFailed).Add(float64(len(r.failures)))
}
