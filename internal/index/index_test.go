package index

import (
	"testing"
	"time"

	"certledger/internal/certificate/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	id := models.CertificateID(5)
	existing := models.IndexRecord{
		ID:        uuid.New(),
		Name:      "Old name",
		IssuedTo:  "Ada",
		Revoked:   true,
		CreatedAt: created,
	}
	incoming := models.IndexRecord{
		ID:       uuid.New(),
		TokenID:  &id,
		Name:     "New name",
		Pointer:  "bafk",
		Revoked:  false,
		IssuedTo: "",
	}

	got := Merge(existing, incoming, now)

	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, "New name", got.Name)
	assert.Equal(t, "Ada", got.IssuedTo)
	assert.Equal(t, &id, got.TokenID)
	assert.True(t, got.Revoked, "revocation is one-way")
}

func TestFindMatchPriority(t *testing.T) {
	one, two := models.CertificateID(1), models.CertificateID(2)
	rows := []models.IndexRecord{
		{RollNumber: "R-1"},
		{Pointer: "p"},
		{TokenID: &one, Pointer: "q"},
	}

	i, kind := FindMatch(rows, models.IndexRecord{TokenID: &one, Pointer: "p", RollNumber: "R-1"})
	assert.Equal(t, 2, i)
	assert.Equal(t, MatchTokenID, kind)

	i, kind = FindMatch(rows, models.IndexRecord{TokenID: &two, Pointer: "p"})
	assert.Equal(t, 1, i)
	assert.Equal(t, MatchPointer, kind)

	i, kind = FindMatch(rows, models.IndexRecord{TokenID: &two, Pointer: "q"})
	assert.Equal(t, -1, i)
	assert.Equal(t, MatchNone, kind)

	i, kind = FindMatch(rows, models.IndexRecord{Pointer: "new", RollNumber: "R-1"})
	assert.Equal(t, 0, i)
	assert.Equal(t, MatchLegacyKey, kind)
}

func TestSearchQuery(t *testing.T) {
	q := SearchQuery{Term: "  Yale ", Limit: 1000}.Normalize()
	assert.Equal(t, "Yale", q.Term)
	assert.Equal(t, DefaultSearchLimit, q.Limit)

	rec := models.IndexRecord{Organization: "Yale University", IssuerAddress: "0xA"}
	assert.True(t, q.Matches(rec))
	q.IssuerAddress = "0xB"
	assert.False(t, q.Matches(rec))
}
