// Package reconcile repairs the index from the ledger and the content store.
//
// Issuance publishes an Item whenever a certificate landed on the ledger but
// its index write failed. The Worker consumes those items, and can also walk
// the whole ledger to rebuild the index from scratch.
package reconcile

import (
	"context"
	"time"

	"certledger/internal/certificate/models"
)

// Reason explains why an item was published.
type Reason string

const (
	ReasonIndexWriteFailed Reason = "index_write_failed"
	ReasonRebuild          Reason = "rebuild"
	ReasonManual           Reason = "manual"
)

// Item identifies a certificate whose index row needs repair.
type Item struct {
	ID      models.CertificateID  `json:"id"`
	Pointer models.ContentPointer `json:"pointer"`
	Reason  Reason                `json:"reason"`
	TxRef   string                `json:"txRef,omitempty"`
	At      time.Time             `json:"at"`
}

// Publisher hands items to the reconciliation queue.
type Publisher interface {
	Publish(ctx context.Context, item Item) error
}

// Source delivers queued items to a handler until ctx is cancelled.
type Source interface {
	Consume(ctx context.Context, handle func(ctx context.Context, item Item) error) error
}
