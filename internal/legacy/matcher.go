// Package legacy verifies certificates issued before the ledger existed by
// reading the identifier and holder name off a recognized document and
// checking them against the index.
//
// Every invocation produces exactly one verification log entry, whatever the
// outcome.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"
)

const DefaultLogTimeout = 5 * time.Second

// State is a step of the matcher state machine.
type State string

const (
	StateIdle             State = "Idle"
	StateExtracting       State = "Extracting"
	StateExtractionFailed State = "ExtractionFailed"
	StateExtracted        State = "Extracted"
	StateNotFound         State = "NotFound"
	StateNameMismatch     State = "NameMismatch"
	StateVerified         State = "Verified"
	StateLookupFailed     State = "LookupFailed"
	StateLogged           State = "Logged"
)

const (
	msgNoIdentifier = "Could not extract identifier from the document."
	msgConflicting  = "Document contains conflicting identifier or name fields."
	msgMismatch     = "Record found, but the name does not match. Potential tampering detected."
	msgVerified     = "Certificate is authentic and matches official records."
)

// IndexStore resolves legacy identifiers.
type IndexStore interface {
	QueryByLegacyKey(ctx context.Context, key string) (models.IndexRecord, error)
}

// AuditWriter persists a log entry synchronously.
type AuditWriter interface {
	Write(ctx context.Context, entry models.VerificationLogEntry) error
}

// Result is the classification shown to the caller.
type Result struct {
	Outcome   models.Outcome
	Message   string
	States    []State
	Extracted models.ExtractedDetails
	Record    *models.IndexRecord
	LogID     uuid.UUID
	Logged    bool
	LogError  string
}

// Final returns the last state reached.
func (r Result) Final() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}

// Matcher runs legacy verifications.
type Matcher struct {
	recognizer Recognizer
	index      IndexStore
	audit      AuditWriter

	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
	logTimeout time.Duration
	strict     bool
}

type Option func(*Matcher)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Matcher) { m.metrics = metrics }
}

func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

func WithLogTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.logTimeout = d
		}
	}
}

// WithStrictExtraction classifies documents with conflicting labeled fields
// as Error instead of taking the first occurrence.
func WithStrictExtraction(strict bool) Option {
	return func(m *Matcher) { m.strict = strict }
}

func New(recognizer Recognizer, index IndexStore, audit AuditWriter, opts ...Option) (*Matcher, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index store is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit writer is required")
	}
	m := &Matcher{
		recognizer: recognizer,
		index:      index,
		audit:      audit,
		now:        time.Now,
		logTimeout: DefaultLogTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return m, nil
}

// Verify recognizes doc, classifies it, and logs the attempt. The log write
// survives cancellation of ctx; its failure is reported on the result and
// never changes the classification.
func (m *Matcher) Verify(ctx context.Context, doc Document, req models.Requester, progress func(float64)) Result {
	res := Result{States: []State{StateIdle}}

	res.enter(StateExtracting)
	start := time.Now()
	text, err := m.recognizer.Recognize(ctx, doc, progress)
	m.metrics.ObserveRecognition(time.Since(start))
	if err != nil {
		res.enter(StateExtractionFailed)
		res.Outcome = models.OutcomeError
		res.Message = recognitionMessage(err)
		m.logger.WarnContext(ctx, "document recognition failed", "error", err)
		return m.finish(ctx, res, req)
	}

	m.classify(ctx, &res, text)
	return m.finish(ctx, res, req)
}

// VerifyText skips recognition for callers that already hold the text.
func (m *Matcher) VerifyText(ctx context.Context, text string, req models.Requester) Result {
	res := Result{States: []State{StateIdle, StateExtracting}}
	m.classify(ctx, &res, text)
	return m.finish(ctx, res, req)
}

func (m *Matcher) classify(ctx context.Context, res *Result, text string) {
	res.Extracted = Extract(text)
	if res.Extracted.RollNumber == "" {
		res.enter(StateExtractionFailed)
		res.Outcome = models.OutcomeError
		res.Message = msgNoIdentifier
		return
	}
	if m.strict && res.Extracted.Ambiguous {
		res.enter(StateExtractionFailed)
		res.Outcome = models.OutcomeError
		res.Message = msgConflicting
		return
	}
	res.enter(StateExtracted)

	rec, err := m.index.QueryByLegacyKey(ctx, res.Extracted.RollNumber)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		res.enter(StateNotFound)
		res.Outcome = models.OutcomeNotFound
		res.Message = fmt.Sprintf("No official record found for identifier: %s.", res.Extracted.RollNumber)
	case err != nil:
		// an unreachable index says nothing about whether the record exists
		res.enter(StateLookupFailed)
		res.Outcome = models.OutcomeError
		res.Message = fmt.Sprintf("Index unavailable: %v", err)
		m.logger.WarnContext(ctx, "legacy lookup failed", "roll_number", res.Extracted.RollNumber, "error", err)
	case res.Extracted.Name != "" && !namesMatch(res.Extracted.Name, rec.IssuedTo):
		res.enter(StateNameMismatch)
		res.Outcome = models.OutcomeMismatch
		res.Message = msgMismatch
		res.Record = &rec
	default:
		res.enter(StateVerified)
		res.Outcome = models.OutcomeVerified
		res.Message = msgVerified
		res.Record = &rec
	}
}

// finish writes the single log entry for this invocation.
func (m *Matcher) finish(ctx context.Context, res Result, req models.Requester) Result {
	entry := models.VerificationLogEntry{
		ID:           uuid.New(),
		Timestamp:    m.now(),
		Source:       models.SourceLegacy,
		ExtractedKey: res.Extracted.RollNumber,
		Outcome:      res.Outcome,
		Message:      res.Message,
		Requester:    req,
		Extracted:    &res.Extracted,
	}
	if res.Record != nil {
		recID := res.Record.ID
		entry.MatchedRecordID = &recID
		entry.TokenID = res.Record.TokenID
	}
	res.LogID = entry.ID

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.logTimeout)
	defer cancel()
	if err := m.audit.Write(logCtx, entry); err != nil {
		res.LogError = err.Error()
		m.metrics.IncLogFailure()
		m.logger.ErrorContext(ctx, "legacy verification was not logged",
			"outcome", res.Outcome,
			"roll_number", res.Extracted.RollNumber,
			"error", err,
		)
	} else {
		res.Logged = true
		res.enter(StateLogged)
	}
	m.metrics.IncOutcome(string(res.Outcome))
	return res
}

func recognitionMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Recognition was cancelled before an identifier was extracted."
	case errors.Is(err, context.DeadlineExceeded):
		return "Recognition timed out before an identifier was extracted."
	case errors.Is(err, ErrUnsupportedDocument):
		return err.Error()
	default:
		return "Could not read text from the document."
	}
}
