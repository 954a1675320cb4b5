// Package issuance coordinates writing a certificate across the content
// store, the ledger, and the index.
//
// The ledger is authoritative: once it confirms a mint the certificate
// exists, whatever happens to the index afterwards. Index failures are
// reported on the result and handed to the reconciler instead of failing
// the issuance.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"certledger/internal/certificate/models"
	"certledger/internal/content"
	"certledger/internal/ledger"
	"certledger/internal/reconcile"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/sentinel"
)

const (
	DefaultUploadConcurrency = 4
	DefaultMaxBatchSize      = 50
	DefaultLandedScanDepth   = 256

	modeSingle = "single"
	modeBatch  = "batch"
)

// IssueResult describes one minted certificate.
type IssueResult struct {
	ID         models.CertificateID
	Pointer    models.ContentPointer
	GatewayURL string
	Payload    models.Payload
	// IndexPending is set when the index write failed. The certificate exists
	// on the ledger and has been queued for reconciliation.
	IndexPending bool
	IndexError   string
}

// BatchResult lists minted certificates in input order.
type BatchResult struct {
	Range models.IDRange
	Items []IssueResult
}

// Service issues and revokes certificates.
type Service struct {
	ledger     Ledger
	content    ContentStore
	index      IndexStore
	reconciler ReconcilePublisher

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time

	uploadConcurrency int
	maxBatchSize      int
	landedScanDepth   int

	inflight *inflight
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithUploadConcurrency bounds concurrent content uploads in a batch.
func WithUploadConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.uploadConcurrency = n
		}
	}
}

func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithLandedScanDepth bounds how many ledger entries CheckLanded inspects.
func WithLandedScanDepth(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.landedScanDepth = n
		}
	}
}

// WithClock overrides the payload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(l Ledger, c ContentStore, idx IndexStore, reconciler ReconcilePublisher, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if c == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("index store is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile publisher is required")
	}
	s := &Service{
		ledger:            l,
		content:           c,
		index:             idx,
		reconciler:        reconciler,
		now:               time.Now,
		uploadConcurrency: DefaultUploadConcurrency,
		maxBatchSize:      DefaultMaxBatchSize,
		landedScanDepth:   DefaultLandedScanDepth,
		inflight:          newInflight(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("certledger/issuance")
	}
	return s, nil
}

// MaxBatchSize is the largest batch IssueBatch accepts.
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// =============================================================================
// Issue
// =============================================================================

// IssueOne uploads the payload, mints it, and indexes it.
func (s *Service) IssueOne(ctx context.Context, p models.Payload) (IssueResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "issuance.IssueOne")
	defer span.End()

	prepared, err := s.prepare(p)
	if err != nil {
		s.metrics.IncFailure(StageValidation, modeSingle)
		return IssueResult{}, s.spanErr(span, err)
	}
	span.SetAttributes(attribute.String("pointer", prepared.pointer.String()))

	release, err := s.inflight.acquire(prepared.pointer)
	if err != nil {
		return IssueResult{}, s.spanErr(span, err)
	}
	defer release()

	ptr, err := s.upload(ctx, prepared.data)
	if err != nil {
		s.metrics.IncFailure(StageContentUpload, modeSingle)
		s.logger.ErrorContext(ctx, "payload upload failed", "stage", StageContentUpload, "error", err)
		return IssueResult{}, s.spanErr(span, stageFailure(StageContentUpload, -1, nil, err))
	}

	id, err := s.mint(ctx, prepared.payload.MintRequest(ptr))
	if err != nil {
		s.metrics.IncFailure(StageLedgerMint, modeSingle)
		s.logger.ErrorContext(ctx, "ledger mint failed",
			"stage", StageLedgerMint,
			"pointer", ptr,
			"indeterminate", ledger.IsIndeterminate(err),
			"error", err,
		)
		return IssueResult{}, s.spanErr(span, stageFailure(StageLedgerMint, -1, []models.ContentPointer{ptr}, err))
	}
	span.SetAttributes(attribute.String("certificate_id", id.String()))

	res := s.indexOne(ctx, id, ptr, prepared.payload)
	s.metrics.IncIssued(modeSingle, 1)
	s.metrics.ObserveDuration(modeSingle, time.Since(start))
	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", id.String(),
		"pointer", ptr,
		"index_pending", res.IndexPending,
	)
	return res, nil
}

// IssueBatch uploads every payload, mints them in a single ledger call, and
// indexes each one. Any upload failure aborts before the ledger is touched.
// Item i of the result carries identifier Range.First+i.
func (s *Service) IssueBatch(ctx context.Context, payloads []models.Payload) (BatchResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "issuance.IssueBatch", trace.WithAttributes(attribute.Int("batch_size", len(payloads))))
	defer span.End()

	if len(payloads) == 0 {
		s.metrics.IncFailure(StageValidation, modeBatch)
		return BatchResult{}, s.spanErr(span, dErrors.New(dErrors.CodeValidation, "batch is empty"))
	}
	if len(payloads) > s.maxBatchSize {
		s.metrics.IncFailure(StageValidation, modeBatch)
		return BatchResult{}, s.spanErr(span, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("batch of %d exceeds the limit of %d certificates", len(payloads), s.maxBatchSize)))
	}
	s.metrics.ObserveBatchSize(len(payloads))

	prepared := make([]preparedPayload, len(payloads))
	keys := make([]models.ContentPointer, len(payloads))
	for i, p := range payloads {
		pp, err := s.prepare(p)
		if err != nil {
			s.metrics.IncFailure(StageValidation, modeBatch)
			return BatchResult{}, s.spanErr(span, dErrors.Wrap(&itemError{item: i, err: err}, dErrors.CodeValidation,
				fmt.Sprintf("certificate %d is invalid", i+1)))
		}
		prepared[i] = pp
		keys[i] = pp.pointer
	}

	release, err := s.inflight.acquire(keys...)
	if err != nil {
		return BatchResult{}, s.spanErr(span, err)
	}
	defer release()

	pointers, err := s.uploadAll(ctx, prepared)
	if err != nil {
		item := -1
		var ie *itemError
		if errors.As(err, &ie) {
			item = ie.item
		}
		s.metrics.IncFailure(StageContentUpload, modeBatch)
		s.logger.ErrorContext(ctx, "batch upload failed, nothing minted",
			"stage", StageContentUpload,
			"item", item,
			"error", err,
		)
		return BatchResult{}, s.spanErr(span, stageFailure(StageContentUpload, item, nil, err))
	}

	reqs := make([]models.MintRequest, len(prepared))
	for i, pp := range prepared {
		reqs[i] = pp.payload.MintRequest(pointers[i])
	}
	rng, err := s.batchMint(ctx, reqs)
	if err != nil {
		s.metrics.IncFailure(StageLedgerMint, modeBatch)
		s.logger.ErrorContext(ctx, "ledger batch mint failed",
			"stage", StageLedgerMint,
			"indeterminate", ledger.IsIndeterminate(err),
			"error", err,
		)
		return BatchResult{}, s.spanErr(span, stageFailure(StageLedgerMint, -1, pointers, err))
	}
	if rng.Count != len(reqs) {
		// the ledger confirmed something other than what was asked; the ids
		// exist, so index what was returned and let reconciliation repair
		s.logger.ErrorContext(ctx, "ledger returned unexpected range size",
			"expected", len(reqs),
			"got", rng.Count,
			"first", rng.First.String(),
		)
	}

	items := make([]IssueResult, min(rng.Count, len(reqs)))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.uploadConcurrency)
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			items[i] = s.indexOne(ctx, rng.At(i), pointers[i], prepared[i].payload)
		}()
	}
	wg.Wait()

	pending := 0
	for _, it := range items {
		if it.IndexPending {
			pending++
		}
	}
	s.metrics.IncIssued(modeBatch, len(items))
	s.metrics.ObserveDuration(modeBatch, time.Since(start))
	s.logger.InfoContext(ctx, "certificate batch issued",
		"first", rng.First.String(),
		"count", rng.Count,
		"index_pending", pending,
	)
	return BatchResult{Range: rng, Items: items}, nil
}

type preparedPayload struct {
	payload models.Payload
	data    []byte
	pointer models.ContentPointer
}

// prepare validates and normalizes the payload and computes its pointer.
func (s *Service) prepare(p models.Payload) (preparedPayload, error) {
	if err := p.Validate(); err != nil {
		return preparedPayload{}, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if p.IssuerAddress.IsZero() {
		return preparedPayload{}, dErrors.New(dErrors.CodeValidation, "issuer wallet address is required")
	}
	issuer, err := models.ParseWalletAddress(string(p.IssuerAddress))
	if err != nil {
		return preparedPayload{}, dErrors.Wrap(err, dErrors.CodeValidation, "issuer wallet address is invalid")
	}
	p.IssuerAddress = issuer
	if !p.RecipientAddress.IsZero() {
		recipient, err := models.ParseWalletAddress(string(p.RecipientAddress))
		if err != nil {
			return preparedPayload{}, dErrors.Wrap(err, dErrors.CodeValidation, "recipient wallet address is invalid")
		}
		p.RecipientAddress = recipient
	}
	if p.Timestamp == 0 {
		p.Timestamp = s.now().UnixMilli()
	}
	data, err := p.Marshal()
	if err != nil {
		return preparedPayload{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize payload")
	}
	ptr, err := content.PointerFor(data)
	if err != nil {
		return preparedPayload{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive content pointer")
	}
	return preparedPayload{payload: p, data: data, pointer: ptr}, nil
}

func (s *Service) upload(ctx context.Context, data []byte) (models.ContentPointer, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.upload")
	defer span.End()
	ptr, err := s.content.Put(ctx, data)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return ptr, nil
}

// uploadAll stores every payload, cancelling outstanding uploads on the
// first failure. Pointers are aligned with the input.
func (s *Service) uploadAll(ctx context.Context, prepared []preparedPayload) ([]models.ContentPointer, error) {
	pointers := make([]models.ContentPointer, len(prepared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.uploadConcurrency)
	for i, pp := range prepared {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &itemError{item: i, err: err}
			}
			ptr, err := s.upload(gctx, pp.data)
			if err != nil {
				return &itemError{item: i, err: err}
			}
			pointers[i] = ptr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pointers, nil
}

func (s *Service) mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.mint")
	defer span.End()
	id, err := s.ledger.Mint(ctx, req)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return id, nil
}

func (s *Service) batchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.batchMint", trace.WithAttributes(attribute.Int("count", len(reqs))))
	defer span.End()
	rng, err := s.ledger.BatchMint(ctx, reqs)
	if err != nil {
		span.RecordError(err)
		return models.IDRange{}, err
	}
	return rng, nil
}

// indexOne writes the index row. Failure is recorded on the result and the
// id is queued for reconciliation.
func (s *Service) indexOne(ctx context.Context, id models.CertificateID, ptr models.ContentPointer, p models.Payload) IssueResult {
	res := IssueResult{
		ID:         id,
		Pointer:    ptr,
		GatewayURL: s.content.GatewayURL(ptr),
		Payload:    p,
	}
	ctx, span := s.tracer.Start(ctx, "issuance.index")
	defer span.End()

	if _, err := s.index.UpsertCertificate(ctx, models.NewIndexRecord(id, ptr, p, "")); err != nil {
		span.RecordError(err)
		res.IndexPending = true
		res.IndexError = err.Error()
		s.metrics.IncIndexPending()
		s.logger.WarnContext(ctx, "index write failed after mint",
			"certificate_id", id.String(),
			"pointer", ptr,
			"error", err,
		)
		s.queueReconcile(ctx, reconcile.Item{ID: id, Pointer: ptr, Reason: reconcile.ReasonIndexWriteFailed})
	}
	return res
}

func (s *Service) queueReconcile(ctx context.Context, item reconcile.Item) {
	item.At = s.now()
	if err := s.reconciler.Publish(context.WithoutCancel(ctx), item); err != nil {
		s.metrics.IncReconcileLost()
		s.logger.ErrorContext(ctx, "failed to queue reconciliation; run a rebuild to recover",
			"certificate_id", item.ID.String(),
			"reason", item.Reason,
			"error", err,
		)
	}
}

// =============================================================================
// Revoke
// =============================================================================

// Revoke marks the certificate revoked on the ledger and mirrors it into the
// index. Only the ledger write can fail the call.
func (s *Service) Revoke(ctx context.Context, id models.CertificateID) error {
	ctx, span := s.tracer.Start(ctx, "issuance.Revoke", trace.WithAttributes(attribute.String("certificate_id", id.String())))
	defer span.End()

	if err := s.ledger.Revoke(ctx, id); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return s.spanErr(span, dErrors.Wrap(err, dErrors.CodeCertificateNotFound, "certificate not found"))
		case ledger.IsIndeterminate(err):
			return s.spanErr(span, dErrors.Wrap(err, dErrors.CodeLedgerTimeout, "revocation not confirmed in time; check status before retrying"))
		default:
			return s.spanErr(span, dErrors.Wrap(err, dErrors.CodeLedgerWriteFailed, "failed to revoke certificate on ledger"))
		}
	}

	if err := s.index.MarkRevoked(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "index revoke mirror failed",
			"certificate_id", id.String(),
			"error", err,
		)
		s.queueReconcile(ctx, reconcile.Item{ID: id, Reason: reconcile.ReasonIndexWriteFailed})
	}
	s.logger.InfoContext(ctx, "certificate revoked", "certificate_id", id.String())
	return nil
}

// =============================================================================
// Landed check
// =============================================================================

// CheckLanded reports whether a payload pointer was minted, for callers
// recovering from an indeterminate mint. It consults the index first and
// then scans the most recent ledger entries.
func (s *Service) CheckLanded(ctx context.Context, ptr models.ContentPointer) (models.CertificateID, bool, error) {
	if _, err := content.ParsePointer(ptr); err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInvalidPointer, "invalid content pointer")
	}

	rec, err := s.index.QueryByPointer(ctx, ptr)
	switch {
	case err == nil && rec.HasTokenID():
		return *rec.TokenID, true, nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		s.logger.WarnContext(ctx, "index unavailable during landed check, scanning ledger", "pointer", ptr, "error", err)
	}

	next, err := s.ledger.NextID(ctx)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeLedgerReadFailed, "failed to read ledger")
	}
	for scanned := 0; next > 0 && scanned < s.landedScanDepth; scanned++ {
		next--
		cert, err := s.ledger.Get(ctx, next)
		if err != nil {
			return 0, false, dErrors.Wrap(err, dErrors.CodeLedgerReadFailed, "failed to read ledger")
		}
		if cert.Pointer == ptr {
			return cert.ID, true, nil
		}
	}
	return 0, false, nil
}

// =============================================================================
// Helpers
// =============================================================================

// stageFailure wraps err so that every failure carries CodeIssuanceFailed
// and the outermost code says which store failed.
func stageFailure(stage Stage, item int, pointers []models.ContentPointer, err error) error {
	se := &StageError{
		Stage:         stage,
		Item:          item,
		Pointers:      pointers,
		Indeterminate: ledger.IsIndeterminate(err),
		Err:           err,
	}
	failed := dErrors.Wrap(se, dErrors.CodeIssuanceFailed, "certificate issuance failed")
	switch {
	case se.Indeterminate:
		return dErrors.Wrap(failed, dErrors.CodeLedgerTimeout, "ledger did not confirm in time; the certificate may exist")
	case errors.Is(err, content.ErrInvalidPointer):
		return dErrors.Wrap(failed, dErrors.CodeInvalidPointer, "content store returned an invalid pointer")
	case stage == StageContentUpload:
		return dErrors.Wrap(failed, dErrors.CodeContentUnavailable, "failed to upload certificate payload")
	case stage == StageLedgerMint:
		return dErrors.Wrap(failed, dErrors.CodeLedgerWriteFailed, "failed to mint certificate")
	default:
		return failed
	}
}

func (s *Service) spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// StageOf extracts the failing stage from an issuance error.
func StageOf(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// inflight rejects a second issuance of a payload while the first is still
// writing to the ledger.
type inflight struct {
	mu   sync.Mutex
	keys map[models.ContentPointer]struct{}
}

func newInflight() *inflight {
	return &inflight{keys: make(map[models.ContentPointer]struct{})}
}

func (f *inflight) acquire(ptrs ...models.ContentPointer) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make([]models.ContentPointer, 0, len(ptrs))
	seen := make(map[models.ContentPointer]struct{}, len(ptrs))
	for _, p := range ptrs {
		if _, ok := f.keys[p]; ok {
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("issuance of %s is already in progress", p))
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			unique = append(unique, p)
		}
	}
	for _, p := range unique {
		f.keys[p] = struct{}{}
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range unique {
			delete(f.keys, p)
		}
	}, nil
}
