package issuance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"certledger/internal/certificate/models"
	dErrors "certledger/pkg/domain-errors"
)

var (
	requiredColumns = []string{"name", "issuedTo", "issueDate", "issuer", "organization", "certificateType"}
	optionalColumns = []string{"expiryDate", "additionalDetails", "rollNumber", "recipientAddress"}
)

// RowError reports a CSV row that was not turned into a payload. Line is the
// 1-based line in the file, counting the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParseCSV reads a batch upload. The first row is a header naming the
// columns; names match case-insensitively and unknown columns are ignored.
// Rows that fail validation are reported and left out of the result.
// IssuerAddress is not read from the file.
func ParseCSV(r io.Reader) ([]models.Payload, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "csv file is empty")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read csv header")
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[strings.ToLower(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("csv header is missing columns: %s", strings.Join(missing, ", ")))
	}

	var (
		payloads []models.Payload
		rowErrs  []RowError
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rowErrs = append(rowErrs, RowError{Line: pe.StartLine, Message: pe.Err.Error()})
				continue
			}
			return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read csv")
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			i, ok := cols[strings.ToLower(name)]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		p := models.Payload{
			Name:              field("name"),
			IssuedTo:          field("issuedTo"),
			Issuer:            field("issuer"),
			Organization:      field("organization"),
			IssueDate:         field("issueDate"),
			ExpiryDate:        field("expiryDate"),
			CertificateType:   field("certificateType"),
			AdditionalDetails: field("additionalDetails"),
			RollNumber:        field("rollNumber"),
			RecipientAddress:  models.WalletAddress(field("recipientAddress")),
		}
		if err := p.Validate(); err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
			continue
		}
		if !p.RecipientAddress.IsZero() {
			if _, err := models.ParseWalletAddress(string(p.RecipientAddress)); err != nil {
				rowErrs = append(rowErrs, RowError{Line: line, Message: "recipientAddress is not a valid wallet address"})
				continue
			}
		}
		payloads = append(payloads, p)
	}
	return payloads, rowErrs, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
