package models

import (
	"time"

	"github.com/google/uuid"
)

// IndexRecord is the denormalized, searchable copy of a certificate. It may
// predate the ledger (legacy rows without a TokenID) or lag behind it.
type IndexRecord struct {
	ID                uuid.UUID
	TokenID           *CertificateID
	Pointer           ContentPointer
	Name              string
	IssuedTo          string
	Issuer            string
	Organization      string
	IssueDate         string
	ExpiryDate        string
	CertificateType   string
	AdditionalDetails string
	IssuerAddress     WalletAddress
	RecipientAddress  WalletAddress
	RollNumber        string
	TxRef             string
	Revoked           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasTokenID reports whether the record is linked to a ledger identifier.
func (r IndexRecord) HasTokenID() bool { return r.TokenID != nil }

// NewIndexRecord builds the index row for a freshly minted certificate.
func NewIndexRecord(id CertificateID, ptr ContentPointer, p Payload, txRef string) IndexRecord {
	tokenID := id
	return IndexRecord{
		TokenID:           &tokenID,
		Pointer:           ptr,
		Name:              p.Name,
		IssuedTo:          p.IssuedTo,
		Issuer:            p.Issuer,
		Organization:      p.Organization,
		IssueDate:         p.IssueDate,
		ExpiryDate:        p.ExpiryDate,
		CertificateType:   p.CertificateType,
		AdditionalDetails: p.AdditionalDetails,
		IssuerAddress:     p.IssuerAddress,
		RecipientAddress:  p.RecipientAddress,
		RollNumber:        p.RollNumber,
		TxRef:             txRef,
	}
}

// Status is the lifecycle state shown to verifiers.
type Status string

const (
	StatusValid   Status = "valid"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// StatusAt derives the status from the revoked flag and an optional expiry
// date. Revocation takes priority over expiry.
func StatusAt(revoked bool, expiryDate string, now time.Time) Status {
	if revoked {
		return StatusRevoked
	}
	if expiryDate != "" {
		if exp, err := time.Parse(DateLayout, expiryDate); err == nil && !exp.After(now) {
			return StatusExpired
		}
	}
	return StatusValid
}

// IssuerStats summarizes an issuer's certificates by status.
type IssuerStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Revoked int `json:"revoked"`
	Expired int `json:"expired"`
}

// Add counts one certificate in the matching bucket.
func (s *IssuerStats) Add(status Status) {
	s.Total++
	switch status {
	case StatusRevoked:
		s.Revoked++
	case StatusExpired:
		s.Expired++
	default:
		s.Valid++
	}
}
