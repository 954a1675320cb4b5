package store

import (
	"context"
	"errors"

	"certledger/internal/certificate/models"
	"certledger/internal/content"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "content/"

// BadgerStore keeps payloads as badger values keyed by pointer.
type BadgerStore struct {
	db      *badger.DB
	gateway string
}

// NewBadger wraps an open badger database. The caller owns the database lifecycle.
func NewBadger(db *badger.DB, gateway string) *BadgerStore {
	return &BadgerStore{db: db, gateway: gateway}
}

func badgerKey(ptr models.ContentPointer) []byte {
	return []byte(badgerKeyPrefix + string(ptr))
}

func (s *BadgerStore) Put(ctx context.Context, data []byte) (models.ContentPointer, error) {
	ptr, err := content.PointerFor(data)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(ptr))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(ptr), data)
	})
	if err != nil {
		return "", content.Unavailable("put", err)
	}
	return ptr, nil
}

func (s *BadgerStore) Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error) {
	if _, err := content.ParsePointer(ptr); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(ptr))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, content.NotFound(ptr)
	}
	if err != nil {
		return nil, content.Unavailable("get", err)
	}
	if err := content.Verify(ptr, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BadgerStore) GatewayURL(ptr models.ContentPointer) string {
	return content.GatewayURL(s.gateway, ptr)
}
