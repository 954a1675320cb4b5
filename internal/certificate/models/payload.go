package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for issue and expiry dates.
const DateLayout = "2006-01-02"

// Payload is the full certificate record stored in the content-addressed store.
// Its pointer is derived from the bytes returned by Marshal, so the field order
// and encoding here are part of the storage format.
type Payload struct {
	Name              string        `json:"name"`
	IssuedTo          string        `json:"issuedTo"`
	Issuer            string        `json:"issuer"`
	Organization      string        `json:"organization"`
	IssueDate         string        `json:"issueDate"`
	ExpiryDate        string        `json:"expiryDate,omitempty"`
	CertificateType   string        `json:"certificateType"`
	AdditionalDetails string        `json:"additionalDetails,omitempty"`
	RollNumber        string        `json:"rollNumber,omitempty"`
	RecipientAddress  WalletAddress `json:"recipientAddress,omitempty"`
	IssuerAddress     WalletAddress `json:"issuerAddress"`
	Timestamp         int64         `json:"timestamp"`
}

// Marshal serializes the payload deterministically.
func (p Payload) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

// UnmarshalPayload decodes bytes read back from the content store.
func UnmarshalPayload(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// MintRequest projects the ledger core fields out of the payload. The ledger
// records the recipient as the holder of the certificate.
func (p Payload) MintRequest(ptr ContentPointer) MintRequest {
	return MintRequest{
		Pointer:    ptr,
		HolderName: p.IssuedTo,
		IssuerName: p.Issuer,
		IssueDate:  p.IssueDate,
	}
}

// Validate checks the fields every issued certificate must carry.
func (p Payload) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", p.Name},
		{"issuedTo", p.IssuedTo},
		{"issueDate", p.IssueDate},
		{"issuer", p.Issuer},
		{"organization", p.Organization},
		{"certificateType", p.CertificateType},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := time.Parse(DateLayout, p.IssueDate); err != nil {
		return fmt.Errorf("issueDate must be YYYY-MM-DD: %w", err)
	}
	if p.ExpiryDate != "" {
		if _, err := time.Parse(DateLayout, p.ExpiryDate); err != nil {
			return fmt.Errorf("expiryDate must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}
