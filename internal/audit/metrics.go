package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for verification log writes.
type Metrics struct {
	Recorded              *prometheus.CounterVec
	Dropped               *prometheus.CounterVec
	PersistFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
	QueueDepth            prometheus.Gauge
	PersistDurationMillis prometheus.Histogram
}

// NewMetrics registers the recorder metrics with reg. A nil registerer
// creates unregistered collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verification_log_recorded_total",
			Help: "Verification log entries persisted, by source",
		}, []string{"source"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verification_log_dropped_total",
			Help: "Verification log entries dropped without persisting, by reason",
		}, []string{"reason"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "certledger_verification_log_persist_failures_total",
			Help: "Verification log writes that failed",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "certledger_verification_log_circuit_breaker_state",
			Help: "Verification log circuit breaker state (0=closed, 1=open)",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "certledger_verification_log_queue_depth",
			Help: "Entries waiting to be written",
		}),
		PersistDurationMillis: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "certledger_verification_log_persist_duration_ms",
			Help:    "Verification log write latency in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		}),
	}
}

func (m *Metrics) IncRecorded(source string) {
	m.Recorded.WithLabelValues(source).Inc()
}

func (m *Metrics) IncDropped(reason string) {
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) ObservePersistDuration(ms float64) {
	m.PersistDurationMillis.Observe(ms)
}
