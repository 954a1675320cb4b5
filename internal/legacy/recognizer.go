package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Document is the uploaded certificate scan or its text.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Recognizer turns a document into raw text. progress receives values in
// [0, 1] and may be nil.
type Recognizer interface {
	Recognize(ctx context.Context, doc Document, progress func(float64)) (string, error)
}

// ErrUnsupportedDocument is returned when a recognizer cannot read the
// document type.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// TextRecognizer accepts documents that are already text.
type TextRecognizer struct{}

func (TextRecognizer) Recognize(ctx context.Context, doc Document, progress func(float64)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.ContentType != "" && !strings.HasPrefix(doc.ContentType, "text/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, doc.ContentType)
	}
	if !utf8.Valid(doc.Data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedDocument)
	}
	if progress != nil {
		progress(1)
	}
	return string(doc.Data), nil
}

// HTTPRecognizer posts images and PDFs to an OCR service that answers with
// {"text": "..."}. Text documents are handled locally.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
	text     TextRecognizer
}

func NewHTTPRecognizer(endpoint string, timeout time.Duration) *HTTPRecognizer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPRecognizer{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, doc Document, progress func(float64)) (string, error) {
	if strings.HasPrefix(doc.ContentType, "text/") {
		return r.text.Recognize(ctx, doc, progress)
	}
	if progress != nil {
		progress(0)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := doc.Filename
	if name == "" {
		name = "document"
	}
	fw, err := mw.CreateFormFile("document", name)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	if _, err := fw.Write(doc.Data); err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if progress != nil {
		progress(1)
	}
	return out.Text, nil
}
