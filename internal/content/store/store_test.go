package store

import (
	"context"
	"testing"

	"certledger/internal/certificate/models"
	"certledger/internal/content"
	"certledger/internal/platform/badgerdb"
	"certledger/pkg/platform/sentinel"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// ContentStoreSuite runs the same behavioural checks against every local adapter.
type ContentStoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) (content.Store, func(ptr models.ContentPointer, data []byte))
	store    content.Store
	corrupt  func(ptr models.ContentPointer, data []byte)
}

func TestInMemoryContentStore(t *testing.T) {
	suite.Run(t, &ContentStoreSuite{
		newStore: func(t *testing.T) (content.Store, func(models.ContentPointer, []byte)) {
			s := NewInMemory("")
			return s, s.Overwrite
		},
	})
}

func TestBadgerContentStore(t *testing.T) {
	suite.Run(t, &ContentStoreSuite{
		newStore: func(t *testing.T) (content.Store, func(models.ContentPointer, []byte)) {
			db, err := badgerdb.Open("", nil)
			if err != nil {
				t.Fatalf("open badger: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			corrupt := func(ptr models.ContentPointer, data []byte) {
				_ = db.Update(func(txn *badger.Txn) error {
					return txn.Set(badgerKey(ptr), data)
				})
			}
			return NewBadger(db, "http://gw.local"), corrupt
		},
	})
}

func (s *ContentStoreSuite) SetupTest() {
	s.store, s.corrupt = s.newStore(s.T())
}

func (s *ContentStoreSuite) TestPutIsIdempotent() {
	ctx := context.Background()
	data := []byte(`{"name":"Diploma"}`)

	first, err := s.store.Put(ctx, data)
	s.Require().NoError(err)
	second, err := s.store.Put(ctx, data)
	s.Require().NoError(err)

	s.Equal(first, second)

	got, err := s.store.Get(ctx, first)
	s.Require().NoError(err)
	s.Equal(data, got)
}

func (s *ContentStoreSuite) TestGet() {
	ctx := context.Background()

	s.Run("unknown pointer is unavailable", func() {
		ptr, err := content.PointerFor([]byte("never stored"))
		s.Require().NoError(err)
		_, err = s.store.Get(ctx, ptr)
		s.ErrorIs(err, sentinel.ErrUnavailable)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("malformed pointer is invalid, not unavailable", func() {
		_, err := s.store.Get(ctx, "definitely-not-a-cid")
		s.ErrorIs(err, content.ErrInvalidPointer)
		s.NotErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("corrupt replica is unavailable", func() {
		ptr, err := s.store.Put(ctx, []byte("original"))
		s.Require().NoError(err)
		s.corrupt(ptr, []byte("tampered"))

		_, err = s.store.Get(ctx, ptr)
		s.ErrorIs(err, sentinel.ErrUnavailable)
		s.ErrorIs(err, sentinel.ErrCorrupt)
	})
}

func (s *ContentStoreSuite) TestGatewayURL() {
	ptr, err := s.store.Put(context.Background(), []byte("x"))
	s.Require().NoError(err)
	s.Contains(s.store.GatewayURL(ptr), "/ipfs/"+string(ptr))
}

func TestInMemoryStoreOffline(t *testing.T) {
	s := NewInMemory("")
	s.SetOffline(true)

	_, err := s.Put(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Zero(t, s.Len())
}
