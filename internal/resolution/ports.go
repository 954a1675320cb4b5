package resolution

import (
	"context"

	"certledger/internal/certificate/models"
)

// Ledger is the authoritative source for existence and revocation.
type Ledger interface {
	Get(ctx context.Context, id models.CertificateID) (models.Certificate, error)
	IsRevoked(ctx context.Context, id models.CertificateID) (bool, error)
}

// ContentStore serves payload bytes by pointer.
type ContentStore interface {
	Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error)
	GatewayURL(ptr models.ContentPointer) string
}

// IndexStore is consulted for fields the ledger and payload do not carry.
type IndexStore interface {
	QueryByIdentifier(ctx context.Context, id models.CertificateID) (models.IndexRecord, error)
}

// AuditRecorder accepts verification log entries without blocking.
type AuditRecorder interface {
	Record(entry models.VerificationLogEntry)
}
