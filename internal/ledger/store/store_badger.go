package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"certledger/internal/certificate/models"
	"certledger/internal/ledger"
	"certledger/pkg/platform/sentinel"

	badger "github.com/dgraph-io/badger/v4"
)

var (
	nextIDKey  = []byte("ledger/next")
	certPrefix = []byte("ledger/cert/")
)

const maxConflictRetries = 5

// BadgerLedger is an append-only local ledger. Each mint or batch is a single
// badger transaction, and a successful commit is the confirmation.
type BadgerLedger struct {
	db *badger.DB
}

// NewBadger wraps an open badger database. The caller owns the database lifecycle.
func NewBadger(db *badger.DB) *BadgerLedger {
	return &BadgerLedger{db: db}
}

type certRecord struct {
	Pointer    string `json:"ptr"`
	HolderName string `json:"holder"`
	IssuerName string `json:"issuer"`
	IssueDate  string `json:"issueDate"`
	Revoked    bool   `json:"revoked"`
}

func certKey(id models.CertificateID) []byte {
	key := make([]byte, len(certPrefix)+8)
	copy(key, certPrefix)
	binary.BigEndian.PutUint64(key[len(certPrefix):], uint64(id))
	return key
}

func (l *BadgerLedger) Mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error) {
	r, err := l.mint(ctx, "mint", []models.MintRequest{req})
	if err != nil {
		return 0, err
	}
	return r.First, nil
}

func (l *BadgerLedger) BatchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error) {
	if err := ledger.ValidateBatch(reqs); err != nil {
		return models.IDRange{}, ledger.WriteFailed("batch mint", err)
	}
	return l.mint(ctx, "batch mint", reqs)
}

func (l *BadgerLedger) mint(ctx context.Context, op string, reqs []models.MintRequest) (models.IDRange, error) {
	var out models.IDRange
	err := l.update(ctx, func(txn *badger.Txn) error {
		first, err := readNextID(txn)
		if err != nil {
			return err
		}
		for i, r := range reqs {
			rec, err := json.Marshal(certRecord{
				Pointer:    string(r.Pointer),
				HolderName: r.HolderName,
				IssuerName: r.IssuerName,
				IssueDate:  r.IssueDate,
			})
			if err != nil {
				return err
			}
			if err := txn.Set(certKey(first+models.CertificateID(i)), rec); err != nil {
				return err
			}
		}
		out = models.IDRange{First: first, Count: len(reqs)}
		return writeNextID(txn, first+models.CertificateID(len(reqs)))
	})
	if err != nil {
		return models.IDRange{}, ledger.WriteFailed(op, err)
	}
	return out, nil
}

func (l *BadgerLedger) Revoke(ctx context.Context, id models.CertificateID) error {
	err := l.update(ctx, func(txn *badger.Txn) error {
		rec, err := readCert(txn, id)
		if err != nil {
			return err
		}
		if rec.Revoked {
			return nil
		}
		rec.Revoked = true
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(certKey(id), b)
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return ledger.CertificateNotFound(id)
	}
	if err != nil {
		return ledger.WriteFailed("revoke", err)
	}
	return nil
}

func (l *BadgerLedger) Get(ctx context.Context, id models.CertificateID) (models.Certificate, error) {
	var rec certRecord
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readCert(txn, id)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Certificate{}, ledger.CertificateNotFound(id)
	}
	if err != nil {
		return models.Certificate{}, fmt.Errorf("read certificate %s: %w", id, err)
	}
	return models.Certificate{
		ID:         id,
		Pointer:    models.ContentPointer(rec.Pointer),
		HolderName: rec.HolderName,
		IssuerName: rec.IssuerName,
		IssueDate:  rec.IssueDate,
		Revoked:    rec.Revoked,
	}, nil
}

func (l *BadgerLedger) IsRevoked(ctx context.Context, id models.CertificateID) (bool, error) {
	cert, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return cert.Revoked, nil
}

func (l *BadgerLedger) NextID(ctx context.Context) (models.CertificateID, error) {
	var next models.CertificateID
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		next, err = readNextID(txn)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read next id: %w", err)
	}
	return next, nil
}

// update retries on transaction conflicts so concurrent mints serialize.
func (l *BadgerLedger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = l.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func readNextID(txn *badger.Txn) (models.CertificateID, error) {
	item, err := txn.Get(nextIDKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var next models.CertificateID
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: next id has %d bytes", sentinel.ErrCorrupt, len(val))
		}
		next = models.CertificateID(binary.BigEndian.Uint64(val))
		return nil
	})
	return next, err
}

func writeNextID(txn *badger.Txn, next models.CertificateID) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(next))
	return txn.Set(nextIDKey, buf[:])
}

func readCert(txn *badger.Txn, id models.CertificateID) (certRecord, error) {
	item, err := txn.Get(certKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return certRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return certRecord{}, err
	}
	var rec certRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}
