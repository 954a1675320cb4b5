package httptransport

import (
	"net/http"

	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// HandleIssuerCertificates handles GET /issuers/{address}/certificates.
func (h *Handler) HandleIssuerCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := issuerParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recs, err := h.index.QueryByIssuer(ctx, issuer)
	if err != nil {
		h.fail(ctx, w, "failed to list issuer certificates", indexError(err, "issuer listing unavailable"), "issuer", issuer)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecords(recs, requestcontext.Now(ctx)))
}

// HandleIssuerStats handles GET /issuers/{address}/stats.
func (h *Handler) HandleIssuerStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := issuerParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.index.Stats(ctx, issuer, requestcontext.Now(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to compute issuer stats", indexError(err, "issuer stats unavailable"), "issuer", issuer)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
