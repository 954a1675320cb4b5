package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"certledger/internal/certificate/models"
	"certledger/internal/content"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certledger_content_cache_lookups_total",
		Help: "Content cache lookups by result",
	}, []string{"result"})
)

const cacheKeyPrefix = "content:"

// CachedStore is a redis read-through cache in front of another content
// store. Payloads are immutable, so entries are never invalidated; the TTL
// only bounds memory.
type CachedStore struct {
	inner  content.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// CachedStoreOption configures a CachedStore.
type CachedStoreOption func(*CachedStore)

func WithCacheTTL(ttl time.Duration) CachedStoreOption {
	return func(s *CachedStore) { s.ttl = ttl }
}

func WithCacheLogger(logger *slog.Logger) CachedStoreOption {
	return func(s *CachedStore) { s.logger = logger }
}

// NewCached wraps inner with a redis cache.
func NewCached(inner content.Store, client *redis.Client, opts ...CachedStoreOption) *CachedStore {
	s := &CachedStore{
		inner:  inner,
		client: client,
		ttl:    24 * time.Hour,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *CachedStore) Put(ctx context.Context, data []byte) (models.ContentPointer, error) {
	ptr, err := s.inner.Put(ctx, data)
	if err != nil {
		return "", err
	}
	s.fill(ctx, ptr, data)
	return ptr, nil
}

func (s *CachedStore) Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error) {
	if _, err := content.ParsePointer(ptr); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, cacheKeyPrefix+string(ptr)).Bytes()
	switch {
	case err == nil:
		if verr := content.Verify(ptr, data); verr == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return data, nil
		}
		s.logger.Warn("discarding corrupt cache entry", "pointer", ptr)
		_ = s.client.Del(ctx, cacheKeyPrefix+string(ptr)).Err()
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("content cache read failed", "pointer", ptr, "error", err)
	}
	cacheLookups.WithLabelValues("miss").Inc()

	data, err = s.inner.Get(ctx, ptr)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, ptr, data)
	return data, nil
}

func (s *CachedStore) GatewayURL(ptr models.ContentPointer) string {
	return s.inner.GatewayURL(ptr)
}

func (s *CachedStore) fill(ctx context.Context, ptr models.ContentPointer, data []byte) {
	if err := s.client.Set(ctx, cacheKeyPrefix+string(ptr), data, s.ttl).Err(); err != nil {
		s.logger.Warn("content cache write failed", "pointer", ptr, "error", err)
	}
}
