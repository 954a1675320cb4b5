package httptransport

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"certledger/internal/legacy"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/httputil"
	"certledger/pkg/requestcontext"
)

// HandleLegacyVerify handles POST /legacy/verify. The document is either the
// raw body (text/plain, or an image type for OCR) or a multipart "document"
// field. The response is always 200 with the classification, including Error.
func (h *Handler) HandleLegacyVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := readDocument(r)
	if err != nil {
		h.fail(ctx, w, "failed to read legacy document", err)
		return
	}

	res := h.legacy.Verify(ctx, doc, requestcontext.Requester(ctx), nil)
	h.logger.InfoContext(ctx, "legacy document verified",
		"request_id", requestcontext.RequestID(ctx),
		"outcome", res.Outcome,
		"roll_number", res.Extracted.RollNumber,
		"logged", res.Logged,
	)
	httputil.WriteJSON(w, http.StatusOK, fromLegacyResult(res, requestcontext.Now(ctx)))
}

// HandleRecentVerifications handles GET /verifications/recent?limit=.
func (h *Handler) HandleRecentVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.index.QueryRecentLog(ctx, limit)
	if err != nil {
		h.fail(ctx, w, "failed to load recent verifications", indexError(err, "verification log unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromLogEntries(entries))
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// uploadBody returns the named multipart file, or the raw body for other
// content types.
func uploadBody(r *http.Request, field string) (io.ReadCloser, error) {
	if !isMultipart(r) {
		return io.NopCloser(io.LimitReader(r.Body, MaxDocumentBytes)), nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, MaxDocumentBytes)
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "missing "+field+" upload")
	}
	return f, nil
}

func readDocument(r *http.Request) (legacy.Document, error) {
	if !isMultipart(r) {
		data, err := io.ReadAll(io.LimitReader(r.Body, MaxDocumentBytes))
		if err != nil {
			return legacy.Document{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document")
		}
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		return legacy.Document{ContentType: mt, Data: data}, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxDocumentBytes)
	f, hdr, err := r.FormFile("document")
	if err != nil {
		return legacy.Document{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "missing document upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return legacy.Document{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document")
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	return legacy.Document{Filename: hdr.Filename, ContentType: mt, Data: data}, nil
}
