package httptransport

import (
	"net/http"
	"strconv"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/internal/issuance"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// HandleIssue handles POST /certificates.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	issuer := requestcontext.Principal(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.issuance.IssueOne(ctx, req.Payload(issuer))
	if err != nil {
		attrs := []any{"issuer", issuer}
		if se, ok := issuance.StageOf(err); ok {
			attrs = append(attrs, "stage", se.Stage)
		}
		h.fail(ctx, w, "certificate issuance failed", err, attrs...)
		return
	}

	h.logger.InfoContext(ctx, "certificate issued",
		"request_id", requestID,
		"certificate_id", res.ID,
		"pointer", res.Pointer,
		"index_pending", res.IndexPending,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromIssueResult(res))
}

// HandleIssueBatch handles POST /certificates/batch.
func (h *Handler) HandleIssueBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	issuer := requestcontext.Principal(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchIssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.issueBatch(w, r, req.Payloads(issuer), nil)
}

// HandleIssueCSV handles POST /certificates/batch/csv. Rows that fail
// validation are reported and skipped; the remaining rows are minted as one
// batch.
func (h *Handler) HandleIssueCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer := requestcontext.Principal(ctx)

	body, err := uploadBody(r, "file")
	if err != nil {
		h.fail(ctx, w, "failed to read csv upload", err)
		return
	}
	defer body.Close()

	payloads, rowErrors, err := issuance.ParseCSV(body)
	if err != nil {
		h.fail(ctx, w, "failed to parse csv upload", err)
		return
	}
	if len(payloads) == 0 {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, BatchResponse{RowErrors: rowErrors, Certificates: []IssueResponse{}})
		return
	}
	for i := range payloads {
		payloads[i].IssuerAddress = issuer
	}
	h.issueBatch(w, r, payloads, rowErrors)
}

func (h *Handler) issueBatch(w http.ResponseWriter, r *http.Request, payloads []models.Payload, rowErrors []issuance.RowError) {
	ctx := r.Context()
	if limit := h.issuance.MaxBatchSize(); len(payloads) > limit {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			"batch exceeds the maximum of "+strconv.Itoa(limit)+" certificates"))
		return
	}

	res, err := h.issuance.IssueBatch(ctx, payloads)
	if err != nil {
		attrs := []any{"batch_size", len(payloads)}
		if se, ok := issuance.StageOf(err); ok {
			attrs = append(attrs, "stage", se.Stage, "item", se.Item)
		}
		h.fail(ctx, w, "batch issuance failed", err, attrs...)
		return
	}

	h.logger.InfoContext(ctx, "certificate batch issued",
		"request_id", requestcontext.RequestID(ctx),
		"first_id", res.Range.First,
		"count", res.Range.Count,
		"skipped_rows", len(rowErrors),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromBatchResult(res, rowErrors))
}

// HandleResolve handles GET /certificates/{id}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := certificateIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.resolution.Resolve(ctx, id, requestcontext.Requester(ctx))
	if err != nil {
		h.fail(ctx, w, "certificate resolution failed", err, "certificate_id", id)
		return
	}
	if view.Degraded() {
		h.logger.WarnContext(ctx, "certificate resolved with degraded sources",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_id", id,
			"payload_unavailable", view.PayloadUnavailable,
			"index_unavailable", view.IndexUnavailable,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleRevoke handles POST /certificates/{id}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := certificateIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.issuance.Revoke(ctx, id); err != nil {
		h.fail(ctx, w, "certificate revocation failed", err, "certificate_id", id)
		return
	}

	h.logger.InfoContext(ctx, "certificate revoked",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", id,
		"principal", requestcontext.Principal(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerificationHistory handles GET /certificates/{id}/verifications.
func (h *Handler) HandleVerificationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := certificateIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.index.VerificationHistory(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to load verification history", indexError(err, "verification history unavailable"), "certificate_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromLogEntries(entries))
}

// HandleSearch handles GET /certificates/search?q=&issuer=&limit=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := index.SearchQuery{Term: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("issuer"); raw != "" {
		addr, err := models.ParseWalletAddress(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid issuer address"))
			return
		}
		q.IssuerAddress = addr
	}
	limit, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q.Limit = limit

	recs, err := h.index.Search(ctx, q.Normalize())
	if err != nil {
		h.fail(ctx, w, "certificate search failed", indexError(err, "search unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecords(recs, requestcontext.Now(ctx)))
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}
