// Package audit writes verification log entries off the request path.
//
// Record enqueues and returns immediately; a single worker drains the queue
// into the sink. Write persists synchronously with a context detached from
// the caller, so a cancelled request still leaves its trace. Every failure is
// logged, counted, and handed to the error callback; none is silently lost.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/circuit"
)

var (
	ErrQueueFull   = errors.New("verification log queue full")
	ErrCircuitOpen = errors.New("verification log circuit open")
	ErrClosed      = errors.New("verification log recorder closed")
)

// Sink persists verification log entries. index.Store satisfies it.
type Sink interface {
	AppendVerificationLog(ctx context.Context, entry models.VerificationLogEntry) error
}

// ErrorHandler is called for every entry that could not be persisted.
type ErrorHandler func(entry models.VerificationLogEntry, err error)

type Recorder struct {
	sink     Sink
	logger   *slog.Logger
	metrics  *Metrics
	breaker  *circuit.Breaker
	onError  ErrorHandler
	timeout  time.Duration
	capacity int
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan models.VerificationLogEntry
	wg     sync.WaitGroup
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Recorder) { r.breaker = b }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Recorder) { r.onError = h }
}

// WithWriteTimeout bounds each sink write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithQueueSize sets the async buffer capacity.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func NewRecorder(sink Sink, opts ...Option) (*Recorder, error) {
	if sink == nil {
		return nil, fmt.Errorf("verification log sink is required")
	}
	r := &Recorder{
		sink:     sink,
		timeout:  5 * time.Second,
		capacity: 1024,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("verification_log", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
	}
	r.queue = make(chan models.VerificationLogEntry, r.capacity)
	r.wg.Add(1)
	go r.run()
	return r, nil
}

// Record enqueues entry for background persistence and never blocks.
func (r *Recorder) Record(entry models.VerificationLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.fail(entry, ErrClosed, "closed")
		return
	}
	select {
	case r.queue <- entry:
		r.metrics.SetQueueDepth(len(r.queue))
	default:
		r.fail(entry, ErrQueueFull, "queue_full")
	}
}

// Write persists entry synchronously. Cancellation of ctx does not abort the
// write; only the recorder's write timeout does.
func (r *Recorder) Write(ctx context.Context, entry models.VerificationLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	return r.persist(context.WithoutCancel(ctx), entry)
}

// Close stops accepting entries and waits for the queue to drain.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for entry := range r.queue {
		r.metrics.SetQueueDepth(len(r.queue))
		_ = r.persist(context.Background(), entry)
	}
}

func (r *Recorder) persist(ctx context.Context, entry models.VerificationLogEntry) error {
	if !r.breaker.Allow() {
		r.fail(entry, ErrCircuitOpen, "circuit_open")
		return ErrCircuitOpen
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	err := r.sink.AppendVerificationLog(ctx, entry)
	r.metrics.ObservePersistDuration(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		r.metrics.IncPersistFailures()
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.Error("verification log circuit opened", "breaker", r.breaker.Name())
			r.metrics.SetCircuitBreakerState(true)
		}
		r.fail(entry, err, "persist_failed")
		return err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.Info("verification log circuit closed", "breaker", r.breaker.Name())
		r.metrics.SetCircuitBreakerState(false)
	}
	r.metrics.IncRecorded(string(entry.Source))
	return nil
}

func (r *Recorder) fail(entry models.VerificationLogEntry, err error, reason string) {
	if reason != "persist_failed" {
		r.metrics.IncDropped(reason)
	}
	attrs := []any{"reason", reason, "source", entry.Source, "outcome", entry.Outcome, "error", err}
	if entry.TokenID != nil {
		attrs = append(attrs, "certificate_id", entry.TokenID.String())
	}
	r.logger.Warn("verification log entry not persisted", attrs...)
	if r.onError != nil {
		r.onError(entry, err)
	}
}
