package resolution

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for resolution.
type Metrics struct {
	Outcomes      *prometheus.CounterVec
	Degraded      *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_resolution_outcomes_total",
			Help: "Resolutions by outcome",
		}, []string{"outcome"}),

		Degraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_resolution_degraded_total",
			Help: "Resolutions served without one of the enrichment sources",
		}, []string{"source"}), // source: "content", "index"

		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certledger_resolution_fetch_duration_seconds",
			Help:    "Per-source fetch latency during resolution",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncDegraded(source Source) {
	if m != nil {
		m.Degraded.WithLabelValues(string(source)).Inc()
	}
}

func (m *Metrics) ObserveFetch(source Source, d time.Duration) {
	if m != nil {
		m.FetchDuration.WithLabelValues(string(source)).Observe(d.Seconds())
	}
}
