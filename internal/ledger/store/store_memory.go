package store

import (
	"context"
	"sync"

	"certledger/internal/certificate/models"
	"certledger/internal/ledger"
)

// InMemoryLedger simulates the certificate contract in process. Faults can be
// injected to exercise the callers' failure paths.
type InMemoryLedger struct {
	mu        sync.RWMutex
	certs     []models.Certificate
	writeErr  error
	readErr   error
	timeout   bool
	mintCalls int
	batchCall int
}

// NewInMemory creates an empty ledger. The first minted id is 0.
func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{}
}

func (l *InMemoryLedger) Mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mintCalls++
	if err := l.writeFault("mint"); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, ledger.WriteFailed("mint", err)
	}
	id := l.append(req)
	if l.timeout {
		return 0, ledger.Indeterminate("mint", context.DeadlineExceeded)
	}
	return id, nil
}

func (l *InMemoryLedger) BatchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error) {
	if err := ledger.ValidateBatch(reqs); err != nil {
		return models.IDRange{}, ledger.WriteFailed("batch mint", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batchCall++
	if err := l.writeFault("batch mint"); err != nil {
		return models.IDRange{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.IDRange{}, ledger.WriteFailed("batch mint", err)
	}
	first := models.CertificateID(len(l.certs))
	for _, r := range reqs {
		l.append(r)
	}
	if l.timeout {
		return models.IDRange{}, ledger.Indeterminate("batch mint", context.DeadlineExceeded)
	}
	return models.IDRange{First: first, Count: len(reqs)}, nil
}

func (l *InMemoryLedger) Revoke(ctx context.Context, id models.CertificateID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writeFault("revoke"); err != nil {
		return err
	}
	if uint64(id) >= uint64(len(l.certs)) {
		return ledger.CertificateNotFound(id)
	}
	l.certs[id].Revoked = true
	return nil
}

func (l *InMemoryLedger) Get(ctx context.Context, id models.CertificateID) (models.Certificate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.readErr != nil {
		return models.Certificate{}, l.readErr
	}
	if uint64(id) >= uint64(len(l.certs)) {
		return models.Certificate{}, ledger.CertificateNotFound(id)
	}
	return l.certs[id], nil
}

func (l *InMemoryLedger) IsRevoked(ctx context.Context, id models.CertificateID) (bool, error) {
	cert, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return cert.Revoked, nil
}

func (l *InMemoryLedger) NextID(ctx context.Context) (models.CertificateID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.readErr != nil {
		return 0, l.readErr
	}
	return models.CertificateID(len(l.certs)), nil
}

// FailWrites makes every write return err wrapped as a definite failure.
// Pass nil to clear.
func (l *InMemoryLedger) FailWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// FailReads makes Get, IsRevoked and NextID return err. Pass nil to clear.
func (l *InMemoryLedger) FailReads(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readErr = err
}

// TimeOutWrites applies writes but reports them as unconfirmed.
func (l *InMemoryLedger) TimeOutWrites(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeout = on
}

// Calls returns how many Mint and BatchMint calls were made.
func (l *InMemoryLedger) Calls() (mint, batch int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mintCalls, l.batchCall
}

func (l *InMemoryLedger) writeFault(op string) error {
	if l.writeErr != nil {
		return ledger.WriteFailed(op, l.writeErr)
	}
	return nil
}

func (l *InMemoryLedger) append(req models.MintRequest) models.CertificateID {
	id := models.CertificateID(len(l.certs))
	l.certs = append(l.certs, models.Certificate{
		ID:         id,
		Pointer:    req.Pointer,
		HolderName: req.HolderName,
		IssuerName: req.IssuerName,
		IssueDate:  req.IssueDate,
	})
	return id
}
