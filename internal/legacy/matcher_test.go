package legacy

//go:generate mockgen -source=matcher.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"certledger/internal/audit"
	"certledger/internal/certificate/models"
	indexstore "certledger/internal/index/store"
	"certledger/internal/legacy/mocks"
	"certledger/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	verifiedText = "STATE BOARD OF EDUCATION\nRoll No: R100\nName: Jane Doe\nYear: 2011"
	mismatchText = "STATE BOARD OF EDUCATION\nRoll No: R100\nName: John Smith"
	unknownText  = "Roll No: R999\nName: Jane Doe"
	noIDText     = "Certificate of Participation\nName: Jane Doe"
)

// =============================================================================
// Classification against a real index and recorder
// =============================================================================

type MatcherSuite struct {
	suite.Suite
	index    *indexstore.InMemoryStore
	recorder *audit.Recorder
	matcher  *Matcher
	record   models.IndexRecord
}

func TestMatcherSuite(t *testing.T) {
	suite.Run(t, new(MatcherSuite))
}

func (s *MatcherSuite) SetupTest() {
	s.index = indexstore.NewInMemory()
	rec, err := audit.NewRecorder(s.index, audit.WithMetrics(audit.NewMetrics(nil)))
	s.Require().NoError(err)
	s.recorder = rec
	m, err := New(TextRecognizer{}, s.index, s.recorder, WithMetrics(NewMetrics(nil)))
	s.Require().NoError(err)
	s.matcher = m

	s.record, err = s.index.UpsertCertificate(context.Background(), models.IndexRecord{
		RollNumber:   "R100",
		IssuedTo:     "Jane Doe",
		Issuer:       "State Board",
		Organization: "State Board of Education",
	})
	s.Require().NoError(err)
}

func (s *MatcherSuite) TearDownTest() {
	s.recorder.Close()
}

func (s *MatcherSuite) verify(text string) Result {
	return s.matcher.Verify(context.Background(), Document{ContentType: "text/plain", Data: []byte(text)}, models.Requester{IP: "192.0.2.1"}, nil)
}

func (s *MatcherSuite) TestVerified() {
	res := s.verify(verifiedText)
	s.Equal(models.OutcomeVerified, res.Outcome)
	s.Equal(msgVerified, res.Message)
	s.Require().NotNil(res.Record)
	s.Equal(s.record.ID, res.Record.ID)
	s.True(res.Logged)
	s.Equal([]State{StateIdle, StateExtracting, StateExtracted, StateVerified, StateLogged}, res.States)

	logs := s.index.Logs()
	s.Require().Len(logs, 1)
	s.Equal(models.SourceLegacy, logs[0].Source)
	s.Equal("R100", logs[0].ExtractedKey)
	s.Require().NotNil(logs[0].MatchedRecordID)
	s.Equal(s.record.ID, *logs[0].MatchedRecordID)
	s.Require().NotNil(logs[0].Extracted)
	s.Equal(verifiedText, logs[0].Extracted.FullText)
	s.Equal("Jane Doe", logs[0].Extracted.Name)
}

func (s *MatcherSuite) TestVerifiedIgnoresNameCase() {
	res := s.verify("Roll No: R100\nName: JANE DOE")
	s.Equal(models.OutcomeVerified, res.Outcome)
}

func (s *MatcherSuite) TestVerifiedWithoutName() {
	res := s.verify("Roll No: R100")
	s.Equal(models.OutcomeVerified, res.Outcome)
}

func (s *MatcherSuite) TestMismatch() {
	res := s.verify(mismatchText)
	s.Equal(models.OutcomeMismatch, res.Outcome)
	s.Equal(msgMismatch, res.Message)
	s.Equal(StateLogged, res.Final())
	s.Contains(res.States, StateNameMismatch)

	logs := s.index.Logs()
	s.Require().Len(logs, 1)
	s.Equal(models.OutcomeMismatch, logs[0].Outcome)
	s.NotNil(logs[0].MatchedRecordID)
}

func (s *MatcherSuite) TestNotFound() {
	res := s.verify(unknownText)
	s.Equal(models.OutcomeNotFound, res.Outcome)
	s.Contains(res.Message, "R999")
	s.Nil(res.Record)

	logs := s.index.Logs()
	s.Require().Len(logs, 1)
	s.Nil(logs[0].MatchedRecordID)
}

func (s *MatcherSuite) TestLegacyKeyIsCaseSensitive() {
	res := s.verify("Roll No: r100")
	s.Equal(models.OutcomeNotFound, res.Outcome)
}

func (s *MatcherSuite) TestErrorWithoutIdentifier() {
	res := s.verify(noIDText)
	s.Equal(models.OutcomeError, res.Outcome)
	s.Equal(msgNoIdentifier, res.Message)
	s.Contains(res.States, StateExtractionFailed)

	logs := s.index.Logs()
	s.Require().Len(logs, 1)
	s.Equal(models.OutcomeError, logs[0].Outcome)
	s.Equal(noIDText, logs[0].Extracted.FullText)
}

func (s *MatcherSuite) TestEveryInvocationLogsOnce() {
	texts := []string{verifiedText, mismatchText, unknownText, noIDText, "", verifiedText}
	for _, text := range texts {
		s.verify(text)
	}
	s.matcher.Verify(context.Background(), Document{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}, models.Requester{}, nil)
	s.Len(s.index.Logs(), len(texts)+1)
}

func (s *MatcherSuite) TestStrictExtraction() {
	conflicting := "Roll No: R100\nName: Jane Doe\nRoll No: R555"

	res := s.verify(conflicting)
	s.Equal(models.OutcomeVerified, res.Outcome)
	s.True(res.Extracted.Ambiguous)

	strict, err := New(TextRecognizer{}, s.index, s.recorder, WithStrictExtraction(true))
	s.Require().NoError(err)
	res = strict.VerifyText(context.Background(), conflicting, models.Requester{})
	s.Equal(models.OutcomeError, res.Outcome)
	s.Equal(msgConflicting, res.Message)
	s.True(res.Logged)
}

func (s *MatcherSuite) TestIndexUnavailableIsNotNotFound() {
	s.index.SetUnavailable(errors.New("too many connections"))

	res := s.verify(verifiedText)
	s.Equal(models.OutcomeError, res.Outcome)
	s.Contains(res.Message, "too many connections")
	s.Contains(res.States, StateLookupFailed)
	// the log lives in the same store, so it fails too
	s.False(res.Logged)
	s.NotEmpty(res.LogError)
}

// =============================================================================
// Collaborator behaviour with mocks
// =============================================================================

type MatcherMockSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	index *mocks.MockIndexStore
	audit *mocks.MockAuditWriter
}

func TestMatcherMockSuite(t *testing.T) {
	suite.Run(t, new(MatcherMockSuite))
}

func (s *MatcherMockSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.index = mocks.NewMockIndexStore(s.ctrl)
	s.audit = mocks.NewMockAuditWriter(s.ctrl)
}

type recognizerFunc func(ctx context.Context, doc Document, progress func(float64)) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, doc Document, progress func(float64)) (string, error) {
	return f(ctx, doc, progress)
}

func (s *MatcherMockSuite) TestNoLookupWithoutIdentifier() {
	m, err := New(TextRecognizer{}, s.index, s.audit)
	s.Require().NoError(err)
	s.audit.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	// no QueryByLegacyKey expectation: a lookup fails the test

	res := m.VerifyText(context.Background(), noIDText, models.Requester{})
	s.Equal(models.OutcomeError, res.Outcome)
}

func (s *MatcherMockSuite) TestLogSurvivesCancellationAfterExtraction() {
	ctx, cancel := context.WithCancel(context.Background())
	rec := recognizerFunc(func(context.Context, Document, func(float64)) (string, error) {
		return verifiedText, nil
	})
	m, err := New(rec, s.index, s.audit, WithLogTimeout(time.Second))
	s.Require().NoError(err)

	s.index.EXPECT().QueryByLegacyKey(gomock.Any(), "R100").DoAndReturn(func(context.Context, string) (models.IndexRecord, error) {
		cancel()
		return models.IndexRecord{RollNumber: "R100", IssuedTo: "Jane Doe"}, nil
	})
	s.audit.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, entry models.VerificationLogEntry) error {
		s.NoError(ctx.Err())
		_, hasDeadline := ctx.Deadline()
		s.True(hasDeadline)
		s.Equal(models.OutcomeVerified, entry.Outcome)
		return nil
	})

	res := m.Verify(ctx, Document{}, models.Requester{}, nil)
	s.Equal(models.OutcomeVerified, res.Outcome)
	s.True(res.Logged)
}

func (s *MatcherMockSuite) TestCancelledRecognitionIsLoggedAsError() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := recognizerFunc(func(ctx context.Context, _ Document, progress func(float64)) (string, error) {
		progress(0.3)
		return "", ctx.Err()
	})
	m, err := New(rec, s.index, s.audit)
	s.Require().NoError(err)

	s.audit.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, entry models.VerificationLogEntry) error {
		s.Equal(models.OutcomeError, entry.Outcome)
		s.Empty(entry.Extracted.FullText)
		return nil
	})

	var seen []float64
	res := m.Verify(ctx, Document{}, models.Requester{}, func(p float64) { seen = append(seen, p) })
	s.Equal(models.OutcomeError, res.Outcome)
	s.Contains(res.Message, "cancelled")
	s.Equal([]float64{0.3}, seen)
	s.True(res.Logged)
}

func (s *MatcherMockSuite) TestLogFailureKeepsClassification() {
	m, err := New(TextRecognizer{}, s.index, s.audit)
	s.Require().NoError(err)
	s.index.EXPECT().QueryByLegacyKey(gomock.Any(), "R999").Return(models.IndexRecord{}, sentinel.ErrNotFound)
	s.audit.EXPECT().Write(gomock.Any(), gomock.Any()).Return(audit.ErrCircuitOpen)

	res := m.VerifyText(context.Background(), unknownText, models.Requester{})
	s.Equal(models.OutcomeNotFound, res.Outcome)
	s.False(res.Logged)
	s.Equal(audit.ErrCircuitOpen.Error(), res.LogError)
	s.Equal(StateNotFound, res.Final())
}

func (s *MatcherMockSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.index, s.audit)
	s.Error(err)
	_, err = New(TextRecognizer{}, nil, s.audit)
	s.Error(err)
	_, err = New(TextRecognizer{}, s.index, nil)
	s.Error(err)
}
