package issuance

import (
	"fmt"

	"certledger/internal/certificate/models"
)

// Stage names the step of an issuance that failed.
type Stage string

const (
	StageValidation    Stage = "validation"
	StageContentUpload Stage = "content_upload"
	StageLedgerMint    Stage = "ledger_mint"
)

// StageError describes a failed issuance. Nothing was minted unless
// Indeterminate is set, in which case the mint may have landed and
// Pointers identify the payloads to look for with CheckLanded.
type StageError struct {
	Stage         Stage
	Item          int // batch position of the failing payload, -1 when not item specific
	Pointers      []models.ContentPointer
	Indeterminate bool
	Err           error
}

func (e *StageError) Error() string {
	if e.Item >= 0 {
		return fmt.Sprintf("issuance failed at %s (item %d): %v", e.Stage, e.Item, e.Err)
	}
	return fmt.Sprintf("issuance failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// itemError tags an error with its batch position.
type itemError struct {
	item int
	err  error
}

func (e *itemError) Error() string { return fmt.Sprintf("item %d: %v", e.item, e.err) }

func (e *itemError) Unwrap() error { return e.err }
