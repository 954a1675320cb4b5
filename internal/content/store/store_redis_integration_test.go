//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"certledger/internal/content/store"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type CachedStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *store.InMemoryStore
	cache *store.CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = store.NewInMemory("")
	s.cache = store.NewCached(s.inner, s.redis.Client, store.WithCacheTTL(time.Minute))
}

func (s *CachedStoreSuite) TestServesFromCacheWhenBackendIsDown() {
	ctx := context.Background()
	ptr, err := s.cache.Put(ctx, []byte(`{"name":"cached"}`))
	s.Require().NoError(err)

	s.inner.SetOffline(true)

	got, err := s.cache.Get(ctx, ptr)
	s.Require().NoError(err)
	s.Equal(`{"name":"cached"}`, string(got))
}

func (s *CachedStoreSuite) TestReadThroughFillsCache() {
	ctx := context.Background()
	ptr, err := s.inner.Put(ctx, []byte("cold"))
	s.Require().NoError(err)

	_, err = s.cache.Get(ctx, ptr)
	s.Require().NoError(err)

	s.inner.SetOffline(true)
	got, err := s.cache.Get(ctx, ptr)
	s.Require().NoError(err)
	s.Equal("cold", string(got))
}

func (s *CachedStoreSuite) TestCorruptCacheEntryFallsBackToBackend() {
	ctx := context.Background()
	ptr, err := s.cache.Put(ctx, []byte("genuine"))
	s.Require().NoError(err)
	s.Require().NoError(s.redis.Client.Set(ctx, "content:"+string(ptr), "forged", 0).Err())

	got, err := s.cache.Get(ctx, ptr)
	s.Require().NoError(err)
	s.Equal("genuine", string(got))

	s.inner.SetOffline(true)
	got, err = s.cache.Get(ctx, ptr)
	s.Require().NoError(err)
	s.Equal("genuine", string(got))
}

func (s *CachedStoreSuite) TestMissEverywhereIsUnavailable() {
	ctx := context.Background()
	ptr, err := s.inner.Put(ctx, []byte("x"))
	s.Require().NoError(err)
	s.inner.SetOffline(true)

	_, err = s.cache.Get(ctx, ptr)
	s.ErrorIs(err, sentinel.ErrUnavailable)
}
