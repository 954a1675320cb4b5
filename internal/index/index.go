// Package index is the mutable, searchable copy of certificate data and the
// append-only verification log.
//
// The index is never authoritative. Any failure other than not-found wraps
// sentinel.ErrUnavailable, and callers must not read it as "the certificate
// does not exist".
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"
)

// DefaultSearchLimit caps search results when the caller does not.
const DefaultSearchLimit = 50

// Store is the relational index.
type Store interface {
	// UpsertCertificate inserts rec or merges it into the existing row for the
	// same logical certificate, matched by token id, then pointer, then legacy
	// key on pointer-less rows.
	UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error)
	QueryByIssuer(ctx context.Context, issuer models.WalletAddress) ([]models.IndexRecord, error)
	QueryByIdentifier(ctx context.Context, id models.CertificateID) (models.IndexRecord, error)
	QueryByPointer(ctx context.Context, ptr models.ContentPointer) (models.IndexRecord, error)
	QueryByLegacyKey(ctx context.Context, key string) (models.IndexRecord, error)
	Search(ctx context.Context, q SearchQuery) ([]models.IndexRecord, error)
	MarkRevoked(ctx context.Context, id models.CertificateID) error
	Stats(ctx context.Context, issuer models.WalletAddress, now time.Time) (models.IssuerStats, error)

	AppendVerificationLog(ctx context.Context, entry models.VerificationLogEntry) error
	QueryRecentLog(ctx context.Context, n int) ([]models.VerificationLogEntry, error)
	VerificationHistory(ctx context.Context, id models.CertificateID) ([]models.VerificationLogEntry, error)
}

// SearchQuery is a case-insensitive free-text search over holder, recipient,
// issuer and organization.
type SearchQuery struct {
	Term          string
	IssuerAddress models.WalletAddress
	Limit         int
}

// Normalize trims the term and applies the default limit.
func (q SearchQuery) Normalize() SearchQuery {
	q.Term = strings.TrimSpace(q.Term)
	if q.Limit <= 0 || q.Limit > DefaultSearchLimit {
		q.Limit = DefaultSearchLimit
	}
	return q
}

// Matches reports whether rec satisfies the query. Used by stores without a
// query engine.
func (q SearchQuery) Matches(rec models.IndexRecord) bool {
	if !q.IssuerAddress.IsZero() && rec.IssuerAddress != q.IssuerAddress {
		return false
	}
	if q.Term == "" {
		return true
	}
	term := strings.ToLower(q.Term)
	for _, f := range []string{rec.Name, rec.IssuedTo, rec.Issuer, rec.Organization} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Merge folds incoming into existing. Non-empty incoming fields win, the
// surrogate id and creation time are kept, and revocation never flips back.
func Merge(existing, incoming models.IndexRecord, now time.Time) models.IndexRecord {
	out := existing
	if incoming.TokenID != nil {
		id := *incoming.TokenID
		out.TokenID = &id
	}
	setString(&out.Pointer, incoming.Pointer)
	setString(&out.Name, incoming.Name)
	setString(&out.IssuedTo, incoming.IssuedTo)
	setString(&out.Issuer, incoming.Issuer)
	setString(&out.Organization, incoming.Organization)
	setString(&out.IssueDate, incoming.IssueDate)
	setString(&out.ExpiryDate, incoming.ExpiryDate)
	setString(&out.CertificateType, incoming.CertificateType)
	setString(&out.AdditionalDetails, incoming.AdditionalDetails)
	setString(&out.IssuerAddress, incoming.IssuerAddress)
	setString(&out.RecipientAddress, incoming.RecipientAddress)
	setString(&out.RollNumber, incoming.RollNumber)
	setString(&out.TxRef, incoming.TxRef)
	out.Revoked = existing.Revoked || incoming.Revoked
	out.UpdatedAt = now
	return out
}

func setString[T ~string](dst *T, v T) {
	if v != "" {
		*dst = v
	}
}

// MatchKind names which reconciliation key matched an existing row.
type MatchKind string

const (
	MatchNone      MatchKind = ""
	MatchTokenID   MatchKind = "token_id"
	MatchPointer   MatchKind = "pointer"
	MatchLegacyKey MatchKind = "legacy_key"
)

// Unavailable wraps a backend failure.
func Unavailable(op string, err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: index %s: %w", sentinel.ErrUnavailable, op, err)
}

// IsUnavailable reports whether err is an index outage rather than a miss.
func IsUnavailable(err error) bool {
	return err != nil && !errors.Is(err, sentinel.ErrNotFound)
}

// ClampLimit bounds a log listing size.
func ClampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 500 {
		return 500
	}
	return n
}

// FindMatch returns the position of the row incoming should merge into, in
// reconciliation-key priority order, or -1.
func FindMatch(rows []models.IndexRecord, incoming models.IndexRecord) (int, MatchKind) {
	if incoming.TokenID != nil {
		for i, r := range rows {
			if r.TokenID != nil && *r.TokenID == *incoming.TokenID {
				return i, MatchTokenID
			}
		}
	}
	if incoming.Pointer != "" {
		for i, r := range rows {
			if r.Pointer == incoming.Pointer && (r.TokenID == nil || incoming.TokenID == nil) {
				return i, MatchPointer
			}
		}
	}
	if incoming.RollNumber != "" {
		for i, r := range rows {
			if r.RollNumber == incoming.RollNumber && r.Pointer == "" && r.TokenID == nil {
				return i, MatchLegacyKey
			}
		}
	}
	return -1, MatchNone
}
