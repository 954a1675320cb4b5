package legacy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Outcomes            *prometheus.CounterVec
	RecognitionDuration prometheus.Histogram
	LogFailures         prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_legacy_verifications_total",
			Help: "Legacy document verifications by outcome",
		}, []string{"outcome"}),

		RecognitionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "certledger_legacy_recognition_duration_seconds",
			Help:    "Time spent recognizing document text",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		LogFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "certledger_legacy_log_failures_total",
			Help: "Legacy verifications whose audit entry could not be written",
		}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m != nil {
		m.RecognitionDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncLogFailure() {
	if m != nil {
		m.LogFailures.Inc()
	}
}
