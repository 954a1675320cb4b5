package issuance

import (
	"context"

	"certledger/internal/certificate/models"
	"certledger/internal/reconcile"
)

// Ledger is the authoritative store that assigns certificate identifiers.
type Ledger interface {
	Mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error)
	BatchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error)
	Revoke(ctx context.Context, id models.CertificateID) error
	Get(ctx context.Context, id models.CertificateID) (models.Certificate, error)
	NextID(ctx context.Context) (models.CertificateID, error)
}

// ContentStore holds serialized payloads by content pointer.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (models.ContentPointer, error)
	GatewayURL(ptr models.ContentPointer) string
}

// IndexStore is the searchable copy written after the ledger confirms.
type IndexStore interface {
	UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error)
	QueryByPointer(ctx context.Context, ptr models.ContentPointer) (models.IndexRecord, error)
	MarkRevoked(ctx context.Context, id models.CertificateID) error
}

// ReconcilePublisher receives identifiers whose index write failed.
type ReconcilePublisher interface {
	Publish(ctx context.Context, item reconcile.Item) error
}
