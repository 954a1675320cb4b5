package resolution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"certledger/internal/audit"
	"certledger/internal/certificate/models"
	contentstore "certledger/internal/content/store"
	indexstore "certledger/internal/index/store"
	ledgerstore "certledger/internal/ledger/store"
	dErrors "certledger/pkg/domain-errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type ResolveSuite struct {
	suite.Suite
	ledger   *ledgerstore.InMemoryLedger
	content  *contentstore.InMemoryStore
	index    *indexstore.InMemoryStore
	logs     *indexstore.InMemoryStore
	recorder *audit.Recorder
	service  *Service
}

func TestResolveSuite(t *testing.T) {
	suite.Run(t, new(ResolveSuite))
}

func (s *ResolveSuite) SetupTest() {
	s.ledger = ledgerstore.NewInMemory()
	s.content = contentstore.NewInMemory("https://gateway.example")
	s.index = indexstore.NewInMemory()
	s.logs = indexstore.NewInMemory()
	rec, err := audit.NewRecorder(s.logs, audit.WithMetrics(audit.NewMetrics(nil)))
	s.Require().NoError(err)
	s.recorder = rec
	svc, err := New(s.ledger, s.content, s.index, s.recorder,
		WithMetrics(NewMetrics(nil)),
		WithClock(func() time.Time { return now }),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ResolveSuite) TearDownTest() {
	s.recorder.Close()
}

// drainLogs closes the recorder so every queued entry is persisted.
func (s *ResolveSuite) drainLogs() []models.VerificationLogEntry {
	s.recorder.Close()
	return s.logs.Logs()
}

func (s *ResolveSuite) issue(p models.Payload, txRef string) models.CertificateID {
	ctx := context.Background()
	data, err := p.Marshal()
	s.Require().NoError(err)
	ptr, err := s.content.Put(ctx, data)
	s.Require().NoError(err)
	id, err := s.ledger.Mint(ctx, p.MintRequest(ptr))
	s.Require().NoError(err)
	_, err = s.index.UpsertCertificate(ctx, models.NewIndexRecord(id, ptr, p, txRef))
	s.Require().NoError(err)
	return id
}

func payload() models.Payload {
	return models.Payload{
		Name:            "Diploma in Engineering",
		IssuedTo:        "Grace Hopper",
		Issuer:          "Naval College",
		Organization:    "Naval College",
		IssueDate:       "2024-05-20",
		ExpiryDate:      "2030-05-20",
		CertificateType: "diploma",
		RollNumber:      "NC-42",
		IssuerAddress:   "0x00000000000000000000000000000000000000Aa",
	}
}

func (s *ResolveSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.content, s.index, s.recorder)
	s.Error(err)
	_, err = New(s.ledger, nil, s.index, s.recorder)
	s.Error(err)
	_, err = New(s.ledger, s.content, nil, s.recorder)
	s.Error(err)
	_, err = New(s.ledger, s.content, s.index, nil)
	s.Error(err)
}

// =============================================================================
// Happy path and provenance
// =============================================================================

func (s *ResolveSuite) TestResolveMergesAllSources() {
	id := s.issue(payload(), "0xfeed")

	view, err := s.service.Resolve(context.Background(), id, models.Requester{IP: "10.0.0.1"})
	s.Require().NoError(err)

	s.Equal(Sourced[models.CertificateID]{Value: id, Source: FromLedger}, view.ID)
	s.Equal(FromLedger, view.HolderName.Source)
	s.Equal("Grace Hopper", view.HolderName.Value)
	s.Equal(FromLedger, view.Revoked.Source)
	s.Equal(FromContent, view.Name.Source)
	s.Equal("Diploma in Engineering", view.Name.Value)
	s.Equal(FromContent, view.ExpiryDate.Source)
	s.Equal(FromIndex, view.TxRef.Source)
	s.Equal("0xfeed", view.TxRef.Value)
	s.Equal(models.StatusValid, view.Status)
	s.Equal("https://gateway.example/ipfs/"+string(view.Pointer.Value), view.GatewayURL)
	s.False(view.Degraded())
	s.False(view.IndexMissing)

	logs := s.drainLogs()
	s.Require().Len(logs, 1)
	s.Equal(models.OutcomeVerified, logs[0].Outcome)
	s.Equal(models.SourceResolution, logs[0].Source)
	s.Require().NotNil(logs[0].TokenID)
	s.Equal(id, *logs[0].TokenID)
	s.Equal("10.0.0.1", logs[0].Requester.IP)
}

// =============================================================================
// Degradation
// =============================================================================

func (s *ResolveSuite) TestResolveDegradesWithUnreachableIndex() {
	id := s.issue(payload(), "0xfeed")
	s.index.SetUnavailable(errors.New("dial tcp: connection refused"))

	view, err := s.service.Resolve(context.Background(), id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.IndexUnavailable)
	s.NotEmpty(view.IndexError)
	s.False(view.IndexMissing)
	s.Equal("Grace Hopper", view.HolderName.Value)
	s.Equal(FromContent, view.Name.Source)
	s.True(view.TxRef.IsMissing())

	s.Len(s.drainLogs(), 1)
}

func (s *ResolveSuite) TestResolveFallsBackToIndexWithoutPayload() {
	id := s.issue(payload(), "")
	s.content.SetOffline(true)

	view, err := s.service.Resolve(context.Background(), id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.PayloadUnavailable)
	s.Equal(FromIndex, view.Name.Source)
	s.Equal("Diploma in Engineering", view.Name.Value)
	s.Equal(FromLedger, view.IssuerName.Source)
}

func (s *ResolveSuite) TestResolveWithOnlyLedger() {
	id := s.issue(payload(), "")
	s.content.SetOffline(true)
	s.index.SetUnavailable(errors.New("down"))

	view, err := s.service.Resolve(context.Background(), id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.PayloadUnavailable)
	s.True(view.IndexUnavailable)
	s.Equal("Grace Hopper", view.HolderName.Value)
	s.True(view.Name.IsMissing())
	s.True(view.ExpiryDate.IsMissing())
	s.Equal(models.StatusValid, view.Status)
}

func (s *ResolveSuite) TestResolveFlagsMissingIndexRow() {
	ctx := context.Background()
	p := payload()
	data, err := p.Marshal()
	s.Require().NoError(err)
	ptr, err := s.content.Put(ctx, data)
	s.Require().NoError(err)
	id, err := s.ledger.Mint(ctx, p.MintRequest(ptr))
	s.Require().NoError(err)

	view, err := s.service.Resolve(ctx, id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.IndexMissing)
	s.False(view.IndexUnavailable)
	s.Equal(FromContent, view.RollNumber.Source)
}

// =============================================================================
// Failure and revocation
// =============================================================================

func (s *ResolveSuite) TestResolveUnknownIDFailsClosed() {
	// a stale index row for the id must not be used to answer
	stale := models.CertificateID(999999)
	_, err := s.index.UpsertCertificate(context.Background(), models.IndexRecord{TokenID: &stale, Name: "forged"})
	s.Require().NoError(err)
	s.issue(payload(), "")

	_, err = s.service.Resolve(context.Background(), 999999, models.Requester{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCertificateNotFound))

	logs := s.drainLogs()
	s.Require().Len(logs, 1)
	s.Equal(models.OutcomeNotFound, logs[0].Outcome)
}

func (s *ResolveSuite) TestResolveLedgerFailurePropagates() {
	id := s.issue(payload(), "")
	s.ledger.FailReads(errors.New("rpc unavailable"))

	_, err := s.service.Resolve(context.Background(), id, models.Requester{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLedgerReadFailed))

	logs := s.drainLogs()
	s.Require().Len(logs, 1)
	s.Equal(models.OutcomeError, logs[0].Outcome)
}

func (s *ResolveSuite) TestResolveRevocationFromLedger() {
	ctx := context.Background()
	id := s.issue(payload(), "")
	s.Require().NoError(s.ledger.Revoke(ctx, id))

	// index not yet mirrored; the ledger still wins
	rec, err := s.index.QueryByIdentifier(ctx, id)
	s.Require().NoError(err)
	s.False(rec.Revoked)

	view, err := s.service.Resolve(ctx, id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.Revoked.Value)
	s.Equal(models.StatusRevoked, view.Status)

	s.Require().NoError(s.ledger.Revoke(ctx, id))
	view, err = s.service.Resolve(ctx, id, models.Requester{})
	s.Require().NoError(err)
	s.True(view.Revoked.Value)

	logs := s.drainLogs()
	s.Require().Len(logs, 2)
	s.Equal(models.OutcomeRevoked, logs[0].Outcome)
}

func (s *ResolveSuite) TestResolveExpiredStatus() {
	p := payload()
	p.ExpiryDate = "2025-01-01"
	id := s.issue(p, "")

	view, err := s.service.Resolve(context.Background(), id, models.Requester{})
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, view.Status)
}

func TestPick(t *testing.T) {
	got := pick(
		Sourced[string]{Source: Missing},
		from(FromContent, "", true),
		from(FromIndex, "indexed", true),
	)
	if got.Source != FromIndex || got.Value != "indexed" {
		t.Fatalf("expected index value, got %+v", got)
	}
	if !pick[string]().IsMissing() {
		t.Fatalf("expected missing with no candidates")
	}
}
