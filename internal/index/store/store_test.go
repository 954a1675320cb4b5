package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/pkg/platform/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const issuerWallet = models.WalletAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

// IndexStoreSuite runs the same behavioural checks against every embedded adapter.
type IndexStoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) index.Store
	store    index.Store
}

func TestInMemoryIndexStore(t *testing.T) {
	suite.Run(t, &IndexStoreSuite{newStore: func(*testing.T) index.Store { return NewInMemory() }})
}

func TestSQLiteIndexStore(t *testing.T) {
	suite.Run(t, &IndexStoreSuite{newStore: func(t *testing.T) index.Store {
		s, err := NewSQLite("")
		if err != nil {
			t.Fatalf("open sqlite index: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	}})
}

func (s *IndexStoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func tokenID(v uint64) *models.CertificateID {
	id := models.CertificateID(v)
	return &id
}

func record(id *models.CertificateID, ptr string) models.IndexRecord {
	return models.IndexRecord{
		TokenID:         id,
		Pointer:         models.ContentPointer(ptr),
		Name:            "BSc Computer Science",
		IssuedTo:        "Grace Hopper",
		Issuer:          "Registrar",
		Organization:    "Yale University",
		IssueDate:       "2024-05-01",
		CertificateType: "degree",
		IssuerAddress:   issuerWallet,
	}
}

// ==== upsert reconciliation keys ====

func (s *IndexStoreSuite) TestUpsertMergesByTokenID() {
	ctx := context.Background()
	first, err := s.store.UpsertCertificate(ctx, record(tokenID(1), "ptr-1"))
	s.Require().NoError(err)

	update := models.IndexRecord{TokenID: tokenID(1), TxRef: "0xabc"}
	second, err := s.store.UpsertCertificate(ctx, update)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal("0xabc", second.TxRef)
	s.Equal("Grace Hopper", second.IssuedTo)

	recs, err := s.store.QueryByIssuer(ctx, issuerWallet)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *IndexStoreSuite) TestUpsertMatchesPendingRowByPointer() {
	ctx := context.Background()
	pending, err := s.store.UpsertCertificate(ctx, record(nil, "ptr-pending"))
	s.Require().NoError(err)

	linked, err := s.store.UpsertCertificate(ctx, record(tokenID(7), "ptr-pending"))
	s.Require().NoError(err)
	s.Equal(pending.ID, linked.ID)

	got, err := s.store.QueryByIdentifier(ctx, 7)
	s.Require().NoError(err)
	s.Equal(pending.ID, got.ID)
}

func (s *IndexStoreSuite) TestUpsertAdoptsLegacyRowByRollNumber() {
	ctx := context.Background()
	legacy := models.IndexRecord{Name: "Diploma", IssuedTo: "Alan Turing", RollNumber: "CS-2020-042"}
	old, err := s.store.UpsertCertificate(ctx, legacy)
	s.Require().NoError(err)

	rec := record(tokenID(3), "ptr-legacy")
	rec.RollNumber = "CS-2020-042"
	adopted, err := s.store.UpsertCertificate(ctx, rec)
	s.Require().NoError(err)
	s.Equal(old.ID, adopted.ID)
	s.Equal(models.ContentPointer("ptr-legacy"), adopted.Pointer)
}

func (s *IndexStoreSuite) TestDistinctTokensSharingAPayloadStayDistinct() {
	ctx := context.Background()
	a, err := s.store.UpsertCertificate(ctx, record(tokenID(10), "same-ptr"))
	s.Require().NoError(err)
	b, err := s.store.UpsertCertificate(ctx, record(tokenID(11), "same-ptr"))
	s.Require().NoError(err)
	s.NotEqual(a.ID, b.ID)
}

// ==== queries ====

func (s *IndexStoreSuite) TestQueries() {
	ctx := context.Background()
	legacy := models.IndexRecord{Name: "Diploma", IssuedTo: "Alan Turing", RollNumber: "CS-2020-042"}
	_, err := s.store.UpsertCertificate(ctx, legacy)
	s.Require().NoError(err)
	_, err = s.store.UpsertCertificate(ctx, record(tokenID(1), "ptr-1"))
	s.Require().NoError(err)
	second := record(tokenID(2), "ptr-2")
	second.IssuedTo = "Katherine Johnson"
	second.Organization = "NASA Langley"
	_, err = s.store.UpsertCertificate(ctx, second)
	s.Require().NoError(err)

	s.Run("unknown identifier is not found", func() {
		_, err := s.store.QueryByIdentifier(ctx, 999999)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.False(index.IsUnavailable(err))
	})

	s.Run("legacy key match is exact and case-sensitive", func() {
		got, err := s.store.QueryByLegacyKey(ctx, "CS-2020-042")
		s.Require().NoError(err)
		s.Equal("Alan Turing", got.IssuedTo)

		_, err = s.store.QueryByLegacyKey(ctx, "cs-2020-042")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("issuer listing is newest first", func() {
		recs, err := s.store.QueryByIssuer(ctx, issuerWallet)
		s.Require().NoError(err)
		s.Require().Len(recs, 2)
		s.Equal("Katherine Johnson", recs[0].IssuedTo)
	})

	s.Run("search is case-insensitive across fields", func() {
		recs, err := s.store.Search(ctx, index.SearchQuery{Term: "langley"})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("Katherine Johnson", recs[0].IssuedTo)

		recs, err = s.store.Search(ctx, index.SearchQuery{Term: "TURING"})
		s.Require().NoError(err)
		s.Len(recs, 1)

		recs, err = s.store.Search(ctx, index.SearchQuery{Term: "hopper", IssuerAddress: "0x0000000000000000000000000000000000000001"})
		s.Require().NoError(err)
		s.Empty(recs)
	})

	s.Run("pointer lookup", func() {
		got, err := s.store.QueryByPointer(ctx, "ptr-2")
		s.Require().NoError(err)
		s.Equal(tokenID(2), got.TokenID)
	})
}

func (s *IndexStoreSuite) TestMarkRevokedAndStats() {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	_, err := s.store.UpsertCertificate(ctx, record(tokenID(1), "valid"))
	s.Require().NoError(err)
	_, err = s.store.UpsertCertificate(ctx, record(tokenID(2), "revoked"))
	s.Require().NoError(err)
	expired := record(tokenID(3), "expired")
	expired.ExpiryDate = "2025-01-01"
	_, err = s.store.UpsertCertificate(ctx, expired)
	s.Require().NoError(err)

	s.Require().NoError(s.store.MarkRevoked(ctx, 2))
	s.ErrorIs(s.store.MarkRevoked(ctx, 404), sentinel.ErrNotFound)

	// a later upsert must not un-revoke the row
	_, err = s.store.UpsertCertificate(ctx, record(tokenID(2), "revoked"))
	s.Require().NoError(err)
	got, err := s.store.QueryByIdentifier(ctx, 2)
	s.Require().NoError(err)
	s.True(got.Revoked)

	stats, err := s.store.Stats(ctx, issuerWallet, now)
	s.Require().NoError(err)
	s.Equal(models.IssuerStats{Total: 3, Valid: 1, Revoked: 1, Expired: 1}, stats)
}

// ==== verification log ====

func (s *IndexStoreSuite) TestVerificationLog() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, outcome := range []models.Outcome{models.OutcomeVerified, models.OutcomeNotFound, models.OutcomeRevoked} {
		err := s.store.AppendVerificationLog(ctx, models.VerificationLogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Source:    models.SourceResolution,
			TokenID:   tokenID(uint64(i % 2)),
			Outcome:   outcome,
			Requester: models.Requester{IP: "10.0.0.1", Browser: "Firefox"},
		})
		s.Require().NoError(err)
	}
	err := s.store.AppendVerificationLog(ctx, models.VerificationLogEntry{
		Timestamp:    base.Add(time.Hour),
		Source:       models.SourceLegacy,
		ExtractedKey: "CS-1",
		Outcome:      models.OutcomeMismatch,
		Extracted:    &models.ExtractedDetails{RollNumber: "CS-1", Name: "Bob", FullText: "Roll No: CS-1"},
	})
	s.Require().NoError(err)

	recent, err := s.store.QueryRecentLog(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(models.OutcomeMismatch, recent[0].Outcome)
	s.Require().NotNil(recent[0].Extracted)
	s.Equal("Bob", recent[0].Extracted.Name)
	s.Equal(models.OutcomeRevoked, recent[1].Outcome)

	history, err := s.store.VerificationHistory(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.OutcomeRevoked, history[0].Outcome)
	s.Equal("Firefox", history[0].Requester.Browser)
}

func TestInMemoryStoreUnavailable(t *testing.T) {
	s := NewInMemory()
	s.SetUnavailable(errors.New("connection refused"))

	_, err := s.QueryByIdentifier(context.Background(), 1)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	assert.True(t, index.IsUnavailable(err))
}
