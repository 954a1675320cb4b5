package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger is the subset of the ledger the worker reads.
type Ledger interface {
	Get(ctx context.Context, id models.CertificateID) (models.Certificate, error)
	NextID(ctx context.Context) (models.CertificateID, error)
}

// Content is the subset of the content store the worker reads.
type Content interface {
	Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error)
}

// Index is the subset of the index the worker writes.
type Index interface {
	UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error)
}

// Metrics counts reconciliation outcomes.
type Metrics struct {
	Reconciled *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Reconciled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_reconcile_items_total",
			Help: "Reconciliation attempts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Inc(result string) {
	m.Reconciled.WithLabelValues(result).Inc()
}

// Worker rebuilds index rows from the ledger and the content store.
type Worker struct {
	ledger  Ledger
	content Content
	index   Index
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(ledger Ledger, content Content, index Index, opts ...Option) (*Worker, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if content == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index store is required")
	}
	w := &Worker{ledger: ledger, content: content, index: index}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	return w, nil
}

// Reconcile upserts the index row for item.ID from authoritative sources.
// When the payload is unavailable the row is written from the ledger core
// alone; a later pass fills the rest.
func (w *Worker) Reconcile(ctx context.Context, item Item) error {
	cert, err := w.ledger.Get(ctx, item.ID)
	if err != nil {
		w.metrics.Inc("ledger_error")
		if errors.Is(err, sentinel.ErrNotFound) {
			w.logger.Error("reconcile item references unknown certificate", "certificate_id", item.ID.String())
		}
		return fmt.Errorf("reconcile %s: read ledger: %w", item.ID, err)
	}
	if item.Pointer != "" && item.Pointer != cert.Pointer {
		w.logger.Warn("reconcile item pointer disagrees with ledger; using ledger",
			"certificate_id", cert.ID.String(),
			"item_pointer", item.Pointer,
			"pointer", cert.Pointer,
		)
	}

	payload := models.Payload{
		IssuedTo:  cert.HolderName,
		Issuer:    cert.IssuerName,
		IssueDate: cert.IssueDate,
	}
	partial := false
	if data, err := w.content.Get(ctx, cert.Pointer); err != nil {
		partial = true
		w.logger.Warn("payload unavailable during reconcile",
			"certificate_id", cert.ID.String(),
			"pointer", cert.Pointer,
			"error", err,
		)
	} else if p, err := models.UnmarshalPayload(data); err != nil {
		partial = true
		w.logger.Warn("payload undecodable during reconcile",
			"certificate_id", cert.ID.String(),
			"pointer", cert.Pointer,
			"error", err,
		)
	} else {
		payload = p
	}

	rec := models.NewIndexRecord(cert.ID, cert.Pointer, payload, item.TxRef)
	rec.Revoked = cert.Revoked
	if _, err := w.index.UpsertCertificate(ctx, rec); err != nil {
		w.metrics.Inc("index_error")
		return fmt.Errorf("reconcile %s: upsert: %w", item.ID, err)
	}
	if partial {
		w.metrics.Inc("partial")
	} else {
		w.metrics.Inc("ok")
	}
	w.logger.Debug("certificate reconciled", "certificate_id", cert.ID.String(), "partial", partial)
	return nil
}

// Run consumes src until ctx is cancelled. Failed items are logged; the
// source decides whether they are retried.
func (w *Worker) Run(ctx context.Context, src Source) error {
	w.logger.Info("reconcile worker started")
	defer w.logger.Info("reconcile worker stopped")
	err := src.Consume(ctx, func(ctx context.Context, item Item) error {
		if err := w.Reconcile(ctx, item); err != nil {
			w.logger.Error("reconcile failed",
				"certificate_id", item.ID.String(),
				"reason", item.Reason,
				"error", err,
			)
			return err
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RebuildReport summarizes a ledger walk.
type RebuildReport struct {
	From       models.CertificateID
	To         models.CertificateID
	Reconciled int
	Failed     []models.CertificateID
	Duration   time.Duration
}

// Rebuild reconciles every id in [from, NextID). It keeps going past
// individual failures and reports them.
func (w *Worker) Rebuild(ctx context.Context, from models.CertificateID) (RebuildReport, error) {
	start := time.Now()
	next, err := w.ledger.NextID(ctx)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("rebuild: read next id: %w", err)
	}
	report := RebuildReport{From: from, To: next}
	for id := from; id < next; id++ {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		if err := w.Reconcile(ctx, Item{ID: id, Reason: ReasonRebuild, At: time.Now()}); err != nil {
			w.logger.Warn("rebuild item failed", "certificate_id", id.String(), "error", err)
			report.Failed = append(report.Failed, id)
			continue
		}
		report.Reconciled++
	}
	report.Duration = time.Since(start)
	w.logger.Info("index rebuild finished",
		"from", from.String(),
		"to", next.String(),
		"reconciled", report.Reconciled,
		"failed", len(report.Failed),
	)
	return report, nil
}
