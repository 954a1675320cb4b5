// Package resolution assembles a single certificate view from the ledger,
// the content store, and the index.
//
// Field precedence is ledger, then payload, then index. Only the ledger can
// fail a resolution; the other two degrade the view and set flags.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"certledger/internal/certificate/models"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/sentinel"
)

const DefaultFetchTimeout = 5 * time.Second

// View is the merged certificate as shown to a verifier.
type View struct {
	ID         Sourced[models.CertificateID]  `json:"id"`
	Pointer    Sourced[models.ContentPointer] `json:"pointer"`
	HolderName Sourced[string]                `json:"holderName"`
	IssuerName Sourced[string]                `json:"issuerName"`
	IssueDate  Sourced[string]                `json:"issueDate"`
	Revoked    Sourced[bool]                  `json:"revoked"`

	Name              Sourced[string]               `json:"name"`
	Organization      Sourced[string]               `json:"organization"`
	CertificateType   Sourced[string]               `json:"certificateType"`
	AdditionalDetails Sourced[string]               `json:"additionalDetails"`
	ExpiryDate        Sourced[string]               `json:"expiryDate"`
	RollNumber        Sourced[string]               `json:"rollNumber"`
	IssuerAddress     Sourced[models.WalletAddress] `json:"issuerAddress"`
	RecipientAddress  Sourced[models.WalletAddress] `json:"recipientAddress"`
	TxRef             Sourced[string]               `json:"txRef"`

	Status     models.Status `json:"status"`
	GatewayURL string        `json:"gatewayUrl"`

	PayloadUnavailable bool   `json:"payloadUnavailable"`
	PayloadError       string `json:"payloadError,omitempty"`
	IndexUnavailable   bool   `json:"indexUnavailable"`
	IndexMissing       bool   `json:"indexMissing"`
	IndexError         string `json:"indexError,omitempty"`
}

// Degraded reports whether any enrichment source was unavailable.
func (v View) Degraded() bool {
	return v.PayloadUnavailable || v.IndexUnavailable
}

// Service resolves certificates.
type Service struct {
	ledger   Ledger
	content  ContentStore
	index    IndexStore
	recorder AuditRecorder

	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	now          func() time.Time
	fetchTimeout time.Duration
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFetchTimeout bounds each enrichment fetch. The ledger read is bounded
// only by the caller's context.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func New(l Ledger, c ContentStore, idx IndexStore, recorder AuditRecorder, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if c == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("index store is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	s := &Service{
		ledger:       l,
		content:      c,
		index:        idx,
		recorder:     recorder,
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("certledger/resolution")
	}
	return s, nil
}

// Resolve returns the merged view of id. An unknown id fails with
// CodeCertificateNotFound and is never looked up elsewhere.
func (s *Service) Resolve(ctx context.Context, id models.CertificateID, req models.Requester) (View, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.Resolve", trace.WithAttributes(attribute.String("certificate_id", id.String())))
	defer span.End()

	cert, err := s.readLedger(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := models.OutcomeError
		if dErrors.HasCode(err, dErrors.CodeCertificateNotFound) {
			outcome = models.OutcomeNotFound
		}
		s.metrics.IncOutcome(string(outcome))
		s.record(id, outcome, err.Error(), req)
		return View{}, err
	}

	var (
		payload    models.Payload
		payloadErr error
		rec        models.IndexRecord
		indexErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, payloadErr = s.fetchPayload(gctx, cert.Pointer)
		return nil
	})
	g.Go(func() error {
		rec, indexErr = s.fetchIndex(gctx, id)
		return nil
	})
	_ = g.Wait()

	view := s.merge(cert, payload, payloadErr, rec, indexErr)
	if view.PayloadUnavailable {
		s.metrics.IncDegraded(FromContent)
		s.logger.WarnContext(ctx, "payload unavailable during resolution",
			"certificate_id", id.String(),
			"pointer", cert.Pointer,
			"error", payloadErr,
		)
	}
	if view.IndexUnavailable {
		s.metrics.IncDegraded(FromIndex)
		s.logger.WarnContext(ctx, "index unavailable during resolution",
			"certificate_id", id.String(),
			"error", indexErr,
		)
	}
	span.SetAttributes(
		attribute.Bool("payload_unavailable", view.PayloadUnavailable),
		attribute.Bool("index_unavailable", view.IndexUnavailable),
		attribute.Bool("index_missing", view.IndexMissing),
	)

	outcome := models.OutcomeVerified
	msg := "Certificate found on ledger."
	if view.Revoked.Value {
		outcome = models.OutcomeRevoked
		msg = "Certificate has been revoked by the issuer."
	}
	s.metrics.IncOutcome(string(outcome))
	s.record(id, outcome, msg, req)
	return view, nil
}

// readLedger fetches the certificate and its revocation flag concurrently.
func (s *Service) readLedger(ctx context.Context, id models.CertificateID) (models.Certificate, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFetch(FromLedger, time.Since(start)) }()

	var (
		cert    models.Certificate
		revoked bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.ledger.Get(gctx, id)
		if err != nil {
			return err
		}
		cert = c
		return nil
	})
	g.Go(func() error {
		r, err := s.ledger.IsRevoked(gctx, id)
		if err != nil {
			return err
		}
		revoked = r
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Certificate{}, dErrors.Wrap(err, dErrors.CodeCertificateNotFound, "certificate not found")
		}
		return models.Certificate{}, dErrors.Wrap(err, dErrors.CodeLedgerReadFailed, "failed to read certificate from ledger")
	}
	cert.Revoked = cert.Revoked || revoked
	return cert, nil
}

func (s *Service) fetchPayload(ctx context.Context, ptr models.ContentPointer) (models.Payload, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.fetchPayload")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	start := time.Now()
	defer func() { s.metrics.ObserveFetch(FromContent, time.Since(start)) }()

	data, err := s.content.Get(ctx, ptr)
	if err != nil {
		span.RecordError(err)
		return models.Payload{}, err
	}
	p, err := models.UnmarshalPayload(data)
	if err != nil {
		span.RecordError(err)
		return models.Payload{}, errors.Join(sentinel.ErrCorrupt, err)
	}
	return p, nil
}

func (s *Service) fetchIndex(ctx context.Context, id models.CertificateID) (models.IndexRecord, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.fetchIndex")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	start := time.Now()
	defer func() { s.metrics.ObserveFetch(FromIndex, time.Since(start)) }()

	rec, err := s.index.QueryByIdentifier(ctx, id)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
	}
	return rec, err
}

// merge applies ledger > content > index precedence per field.
func (s *Service) merge(cert models.Certificate, p models.Payload, payloadErr error, rec models.IndexRecord, indexErr error) View {
	hasPayload := payloadErr == nil
	hasIndex := indexErr == nil

	v := View{
		ID:         ledgerValue(cert.ID),
		Pointer:    ledgerValue(cert.Pointer),
		HolderName: pick(ledgerValue(cert.HolderName), from(FromContent, p.IssuedTo, hasPayload), from(FromIndex, rec.IssuedTo, hasIndex)),
		IssuerName: pick(ledgerValue(cert.IssuerName), from(FromContent, p.Issuer, hasPayload), from(FromIndex, rec.Issuer, hasIndex)),
		IssueDate:  pick(ledgerValue(cert.IssueDate), from(FromContent, p.IssueDate, hasPayload), from(FromIndex, rec.IssueDate, hasIndex)),
		Revoked:    ledgerValue(cert.Revoked),

		Name:              pick(from(FromContent, p.Name, hasPayload), from(FromIndex, rec.Name, hasIndex)),
		Organization:      pick(from(FromContent, p.Organization, hasPayload), from(FromIndex, rec.Organization, hasIndex)),
		CertificateType:   pick(from(FromContent, p.CertificateType, hasPayload), from(FromIndex, rec.CertificateType, hasIndex)),
		AdditionalDetails: pick(from(FromContent, p.AdditionalDetails, hasPayload), from(FromIndex, rec.AdditionalDetails, hasIndex)),
		ExpiryDate:        pick(from(FromContent, p.ExpiryDate, hasPayload), from(FromIndex, rec.ExpiryDate, hasIndex)),
		RollNumber:        pick(from(FromContent, p.RollNumber, hasPayload), from(FromIndex, rec.RollNumber, hasIndex)),
		IssuerAddress:     pick(from(FromContent, p.IssuerAddress, hasPayload), from(FromIndex, rec.IssuerAddress, hasIndex)),
		RecipientAddress:  pick(from(FromContent, p.RecipientAddress, hasPayload), from(FromIndex, rec.RecipientAddress, hasIndex)),
		TxRef:             pick(from(FromIndex, rec.TxRef, hasIndex)),

		GatewayURL: s.content.GatewayURL(cert.Pointer),
	}
	if !hasPayload {
		v.PayloadUnavailable = true
		v.PayloadError = payloadErr.Error()
	}
	if !hasIndex {
		if errors.Is(indexErr, sentinel.ErrNotFound) {
			v.IndexMissing = true
		} else {
			v.IndexUnavailable = true
			v.IndexError = indexErr.Error()
		}
	}
	v.Status = models.StatusAt(v.Revoked.Value, v.ExpiryDate.Value, s.now())
	return v
}

// record hands the log entry to the recorder. It never blocks the caller.
func (s *Service) record(id models.CertificateID, outcome models.Outcome, msg string, req models.Requester) {
	tokenID := id
	s.recorder.Record(models.VerificationLogEntry{
		ID:        uuid.New(),
		Timestamp: s.now(),
		Source:    models.SourceResolution,
		TokenID:   &tokenID,
		Outcome:   outcome,
		Message:   msg,
		Requester: req,
	})
}
