package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a verification attempt.
type Outcome string

const (
	OutcomeVerified Outcome = "Verified"
	OutcomeRevoked  Outcome = "Revoked"
	OutcomeNotFound Outcome = "NotFound"
	OutcomeMismatch Outcome = "Mismatch"
	OutcomeError    Outcome = "Error"
)

// VerificationSource names the path that produced a log entry.
type VerificationSource string

const (
	SourceResolution VerificationSource = "resolution"
	SourceLegacy     VerificationSource = "legacy"
)

// Requester describes who asked for a verification.
type Requester struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Principal string `json:"principal,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ExtractedDetails holds what the legacy matcher pulled out of a document.
type ExtractedDetails struct {
	RollNumber string `json:"extractedRollNumber,omitempty"`
	Name       string `json:"extractedName,omitempty"`
	FullText   string `json:"fullText"`
	Ambiguous  bool   `json:"ambiguous,omitempty"`
}

// VerificationLogEntry is one append-only audit record of a verification
// attempt. Entries are never updated after insertion.
type VerificationLogEntry struct {
	ID              uuid.UUID
	Timestamp       time.Time
	Source          VerificationSource
	TokenID         *CertificateID
	ExtractedKey    string
	Outcome         Outcome
	Message         string
	Requester       Requester
	MatchedRecordID *uuid.UUID
	Extracted       *ExtractedDetails
}
