package httptransport

import (
	"time"

	"github.com/google/uuid"

	"certledger/internal/certificate/models"
	"certledger/internal/issuance"
	"certledger/internal/legacy"
)

// IssueResponse describes one minted certificate.
type IssueResponse struct {
	ID           models.CertificateID  `json:"id"`
	Pointer      models.ContentPointer `json:"pointer"`
	GatewayURL   string                `json:"gatewayUrl"`
	IndexPending bool                  `json:"indexPending,omitempty"`
	IndexError   string                `json:"indexError,omitempty"`
}

func fromIssueResult(r issuance.IssueResult) IssueResponse {
	return IssueResponse{
		ID:           r.ID,
		Pointer:      r.Pointer,
		GatewayURL:   r.GatewayURL,
		IndexPending: r.IndexPending,
		IndexError:   r.IndexError,
	}
}

// BatchResponse lists minted certificates in input order.
type BatchResponse struct {
	FirstID      models.CertificateID `json:"firstId"`
	Count        int                  `json:"count"`
	Certificates []IssueResponse      `json:"certificates"`
	RowErrors    []issuance.RowError  `json:"rowErrors,omitempty"`
}

func fromBatchResult(r issuance.BatchResult, rowErrors []issuance.RowError) BatchResponse {
	items := make([]IssueResponse, len(r.Items))
	for i, it := range r.Items {
		items[i] = fromIssueResult(it)
	}
	return BatchResponse{
		FirstID:      r.Range.First,
		Count:        r.Range.Count,
		Certificates: items,
		RowErrors:    rowErrors,
	}
}

// RecordResponse is an index row as shown in listings.
type RecordResponse struct {
	ID                uuid.UUID             `json:"id"`
	TokenID           *models.CertificateID `json:"tokenId,omitempty"`
	Pointer           models.ContentPointer `json:"pointer,omitempty"`
	Name              string                `json:"name"`
	IssuedTo          string                `json:"issuedTo"`
	Issuer            string                `json:"issuer"`
	Organization      string                `json:"organization"`
	IssueDate         string                `json:"issueDate"`
	ExpiryDate        string                `json:"expiryDate,omitempty"`
	CertificateType   string                `json:"certificateType"`
	AdditionalDetails string                `json:"additionalDetails,omitempty"`
	IssuerAddress     models.WalletAddress  `json:"issuerAddress,omitempty"`
	RecipientAddress  models.WalletAddress  `json:"recipientAddress,omitempty"`
	RollNumber        string                `json:"rollNumber,omitempty"`
	TxRef             string                `json:"txRef,omitempty"`
	Status            models.Status         `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func fromRecord(r models.IndexRecord, now time.Time) RecordResponse {
	return RecordResponse{
		ID:                r.ID,
		TokenID:           r.TokenID,
		Pointer:           r.Pointer,
		Name:              r.Name,
		IssuedTo:          r.IssuedTo,
		Issuer:            r.Issuer,
		Organization:      r.Organization,
		IssueDate:         r.IssueDate,
		ExpiryDate:        r.ExpiryDate,
		CertificateType:   r.CertificateType,
		AdditionalDetails: r.AdditionalDetails,
		IssuerAddress:     r.IssuerAddress,
		RecipientAddress:  r.RecipientAddress,
		RollNumber:        r.RollNumber,
		TxRef:             r.TxRef,
		Status:            models.StatusAt(r.Revoked, r.ExpiryDate, now),
		CreatedAt:         r.CreatedAt,
	}
}

func fromRecords(recs []models.IndexRecord, now time.Time) []RecordResponse {
	out := make([]RecordResponse, len(recs))
	for i, r := range recs {
		out[i] = fromRecord(r, now)
	}
	return out
}

// LogEntryResponse is one verification log entry.
type LogEntryResponse struct {
	ID              uuid.UUID                 `json:"id"`
	Timestamp       time.Time                 `json:"timestamp"`
	Source          models.VerificationSource `json:"source"`
	TokenID         *models.CertificateID     `json:"tokenId,omitempty"`
	ExtractedKey    string                    `json:"extractedKey,omitempty"`
	Outcome         models.Outcome            `json:"outcome"`
	Message         string                    `json:"message,omitempty"`
	Requester       models.Requester          `json:"requester"`
	MatchedRecordID *uuid.UUID                `json:"matchedRecordId,omitempty"`
	Extracted       *models.ExtractedDetails  `json:"extracted,omitempty"`
}

func fromLogEntries(entries []models.VerificationLogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = LogEntryResponse{
			ID:              e.ID,
			Timestamp:       e.Timestamp,
			Source:          e.Source,
			TokenID:         e.TokenID,
			ExtractedKey:    e.ExtractedKey,
			Outcome:         e.Outcome,
			Message:         e.Message,
			Requester:       e.Requester,
			MatchedRecordID: e.MatchedRecordID,
			Extracted:       e.Extracted,
		}
	}
	return out
}

// LegacyResponse is the classification of a legacy document.
type LegacyResponse struct {
	Outcome   models.Outcome          `json:"outcome"`
	Message   string                  `json:"message"`
	Extracted models.ExtractedDetails `json:"extracted"`
	Record    *RecordResponse         `json:"record,omitempty"`
	LogID     uuid.UUID               `json:"logId"`
	Logged    bool                    `json:"logged"`
	LogError  string                  `json:"logError,omitempty"`
}

func fromLegacyResult(r legacy.Result, now time.Time) LegacyResponse {
	resp := LegacyResponse{
		Outcome:   r.Outcome,
		Message:   r.Message,
		Extracted: r.Extracted,
		LogID:     r.LogID,
		Logged:    r.Logged,
		LogError:  r.LogError,
	}
	if r.Record != nil {
		rec := fromRecord(*r.Record, now)
		resp.Record = &rec
	}
	return resp
}
