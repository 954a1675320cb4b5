// Package httptransport is the HTTP surface of certledger. Handlers decode
// requests, call the services, and translate results; they hold no business
// logic.
package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/internal/issuance"
	"certledger/internal/legacy"
	"certledger/internal/resolution"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/requestcontext"
)

// MaxDocumentBytes bounds legacy document and CSV uploads.
const MaxDocumentBytes = 10 << 20

// IssuanceService issues and revokes certificates.
type IssuanceService interface {
	IssueOne(ctx context.Context, p models.Payload) (issuance.IssueResult, error)
	IssueBatch(ctx context.Context, payloads []models.Payload) (issuance.BatchResult, error)
	Revoke(ctx context.Context, id models.CertificateID) error
	MaxBatchSize() int
}

// ResolutionService resolves a certificate identifier to a view.
type ResolutionService interface {
	Resolve(ctx context.Context, id models.CertificateID, req models.Requester) (resolution.View, error)
}

// LegacyVerifier classifies legacy documents.
type LegacyVerifier interface {
	Verify(ctx context.Context, doc legacy.Document, req models.Requester, progress func(float64)) legacy.Result
}

// IndexReader serves listings straight from the index.
type IndexReader interface {
	QueryByIssuer(ctx context.Context, issuer models.WalletAddress) ([]models.IndexRecord, error)
	Search(ctx context.Context, q index.SearchQuery) ([]models.IndexRecord, error)
	Stats(ctx context.Context, issuer models.WalletAddress, now time.Time) (models.IssuerStats, error)
	QueryRecentLog(ctx context.Context, n int) ([]models.VerificationLogEntry, error)
	VerificationHistory(ctx context.Context, id models.CertificateID) ([]models.VerificationLogEntry, error)
}

// Handler wires certificate endpoints to the services.
type Handler struct {
	issuance   IssuanceService
	resolution ResolutionService
	legacy     LegacyVerifier
	index      IndexReader
	logger     *slog.Logger
}

// New constructs a handler with its dependencies.
func New(iss IssuanceService, res ResolutionService, leg LegacyVerifier, idx IndexReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Handler{
		issuance:   iss,
		resolution: res,
		legacy:     leg,
		index:      idx,
		logger:     logger,
	}
}

// Register mounts the public read endpoints on r and the issuer-only write
// endpoints behind requireIssuer.
func (h *Handler) Register(r chi.Router, requireIssuer func(http.Handler) http.Handler) {
	r.Get("/certificates/search", h.HandleSearch)
	r.Get("/certificates/{id}", h.HandleResolve)
	r.Get("/certificates/{id}/verifications", h.HandleVerificationHistory)
	r.Get("/issuers/{address}/certificates", h.HandleIssuerCertificates)
	r.Get("/issuers/{address}/stats", h.HandleIssuerStats)
	r.Post("/legacy/verify", h.HandleLegacyVerify)
	r.Get("/verifications/recent", h.HandleRecentVerifications)

	r.Group(func(r chi.Router) {
		r.Use(requireIssuer)
		r.Post("/certificates", h.HandleIssue)
		r.Post("/certificates/batch", h.HandleIssueBatch)
		r.Post("/certificates/batch/csv", h.HandleIssueCSV)
		r.Post("/certificates/{id}/revoke", h.HandleRevoke)
	})
}

func certificateIDParam(r *http.Request) (models.CertificateID, error) {
	id, err := models.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid certificate id")
	}
	return id, nil
}

func issuerParam(r *http.Request) (models.WalletAddress, error) {
	addr, err := models.ParseWalletAddress(chi.URLParam(r, "address"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid issuer address")
	}
	return addr, nil
}

// indexError translates an index failure. The index is a cache, so its
// outages surface as 503 rather than as missing data.
func indexError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeIndexUnavailable, msg)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.Is(err, dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeNotFound,
		dErrors.CodeCertificateNotFound, dErrors.CodeConflict) {
		h.logger.WarnContext(ctx, msg, attrs...)
	} else {
		h.logger.ErrorContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
