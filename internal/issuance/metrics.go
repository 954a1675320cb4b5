package issuance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for issuance.
type Metrics struct {
	Issued        *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	IndexPending  prometheus.Counter
	ReconcileLost prometheus.Counter
	BatchSize     prometheus.Histogram
	Duration      *prometheus.HistogramVec
}

// NewMetrics registers issuance metrics with reg. A nil reg leaves them
// unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_issuance_certificates_total",
			Help: "Certificates minted, by mode",
		}, []string{"mode"}), // mode: "single", "batch"

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_issuance_failures_total",
			Help: "Failed issuances by stage",
		}, []string{"stage", "mode"}),

		IndexPending: f.NewCounter(prometheus.CounterOpts{
			Name: "certledger_issuance_index_pending_total",
			Help: "Minted certificates whose index write failed",
		}),

		ReconcileLost: f.NewCounter(prometheus.CounterOpts{
			Name: "certledger_issuance_reconcile_publish_failures_total",
			Help: "Reconciliation items that could not be published",
		}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "certledger_issuance_batch_size",
			Help:    "Number of payloads per batch issuance",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),

		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certledger_issuance_duration_seconds",
			Help:    "End to end issuance latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"mode"}),
	}
}

func (m *Metrics) IncIssued(mode string, n int) {
	if m != nil {
		m.Issued.WithLabelValues(mode).Add(float64(n))
	}
}

func (m *Metrics) IncFailure(stage Stage, mode string) {
	if m != nil {
		m.Failures.WithLabelValues(string(stage), mode).Inc()
	}
}

func (m *Metrics) IncIndexPending() {
	if m != nil {
		m.IndexPending.Inc()
	}
}

func (m *Metrics) IncReconcileLost() {
	if m != nil {
		m.ReconcileLost.Inc()
	}
}

func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}

func (m *Metrics) ObserveDuration(mode string, d time.Duration) {
	if m != nil {
		m.Duration.WithLabelValues(mode).Observe(d.Seconds())
	}
}
