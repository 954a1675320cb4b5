package httptransport

import (
	"strings"

	"certledger/internal/certificate/models"
	dErrors "certledger/pkg/domain-errors"
)

// IssueRequest is the HTTP request body for POST /certificates. The issuer
// wallet comes from the authenticated principal, never from the body.
type IssueRequest struct {
	Name              string `json:"name"`
	IssuedTo          string `json:"issuedTo"`
	Issuer            string `json:"issuer"`
	Organization      string `json:"organization"`
	IssueDate         string `json:"issueDate"`
	ExpiryDate        string `json:"expiryDate,omitempty"`
	CertificateType   string `json:"certificateType"`
	AdditionalDetails string `json:"additionalDetails,omitempty"`
	RollNumber        string `json:"rollNumber,omitempty"`
	RecipientAddress  string `json:"recipientAddress,omitempty"`
}

// Validate trims the request. Field rules are enforced by the issuance
// service so JSON and CSV uploads share them.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for _, f := range []*string{
		&r.Name, &r.IssuedTo, &r.Issuer, &r.Organization, &r.IssueDate,
		&r.ExpiryDate, &r.CertificateType, &r.AdditionalDetails, &r.RollNumber, &r.RecipientAddress,
	} {
		*f = strings.TrimSpace(*f)
	}
	return nil
}

// Payload converts the request into a payload issued by issuer.
func (r *IssueRequest) Payload(issuer models.WalletAddress) models.Payload {
	return models.Payload{
		Name:              r.Name,
		IssuedTo:          r.IssuedTo,
		Issuer:            r.Issuer,
		Organization:      r.Organization,
		IssueDate:         r.IssueDate,
		ExpiryDate:        r.ExpiryDate,
		CertificateType:   r.CertificateType,
		AdditionalDetails: r.AdditionalDetails,
		RollNumber:        r.RollNumber,
		RecipientAddress:  models.WalletAddress(r.RecipientAddress),
		IssuerAddress:     issuer,
	}
}

// BatchIssueRequest is the HTTP request body for POST /certificates/batch: a
// JSON array of certificates, minted in order.
type BatchIssueRequest []IssueRequest

func (r *BatchIssueRequest) Validate() error {
	if r == nil || len(*r) == 0 {
		return dErrors.New(dErrors.CodeValidation, "batch must contain at least one certificate")
	}
	for i := range *r {
		if err := (*r)[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Payloads converts every entry, in order.
func (r BatchIssueRequest) Payloads(issuer models.WalletAddress) []models.Payload {
	out := make([]models.Payload, len(r))
	for i := range r {
		out[i] = r[i].Payload(issuer)
	}
	return out
}
