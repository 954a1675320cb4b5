// Package ledger is the port to the authoritative certificate ledger.
//
// The ledger owns existence and revocation. Writes block until confirmation
// and are atomic: a batch either allocates every identifier or none. When
// confirmation does not arrive in time the outcome is unknown, and callers
// must treat the write as possibly applied.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"certledger/internal/certificate/models"
	"certledger/pkg/platform/sentinel"
)

// ErrWriteFailed marks a write the ledger definitely did not apply.
var ErrWriteFailed = errors.New("ledger write failed")

// Client reads and writes certificates on the ledger.
type Client interface {
	Mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error)
	BatchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error)
	Revoke(ctx context.Context, id models.CertificateID) error
	Get(ctx context.Context, id models.CertificateID) (models.Certificate, error)
	IsRevoked(ctx context.Context, id models.CertificateID) (bool, error)
	// NextID returns the identifier the next mint will receive. Every id
	// below it exists.
	NextID(ctx context.Context) (models.CertificateID, error)
}

// WriteFailed wraps a definite write rejection.
func WriteFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
}

// Indeterminate wraps a confirmation timeout. The write may or may not have
// been applied.
func Indeterminate(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", sentinel.ErrTimeout, op, err)
}

// IsIndeterminate reports whether err leaves the outcome of a write unknown.
func IsIndeterminate(err error) bool {
	return errors.Is(err, sentinel.ErrTimeout)
}

// CertificateNotFound is returned by Get and IsRevoked for ids that were
// never minted.
func CertificateNotFound(id models.CertificateID) error {
	return fmt.Errorf("certificate %s: %w", id, sentinel.ErrNotFound)
}

// ValidateBatch rejects empty batches and entries without a pointer.
func ValidateBatch(reqs []models.MintRequest) error {
	if len(reqs) == 0 {
		return errors.New("batch is empty")
	}
	for i, r := range reqs {
		if r.Pointer.IsZero() {
			return fmt.Errorf("batch item %d has no content pointer", i)
		}
	}
	return nil
}
