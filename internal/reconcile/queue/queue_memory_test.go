package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certledger/internal/certificate/models"
	"certledger/internal/reconcile"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		q := NewInMemory(1)
		defer q.Close()
		require.NoError(t, q.Publish(ctx, reconcile.Item{ID: 1}))
		assert.ErrorIs(t, q.Publish(ctx, reconcile.Item{ID: 2}), ErrQueueFull)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("closed queue rejects publish", func(t *testing.T) {
		q := NewInMemory(1)
		q.Close()
		q.Close()
		assert.ErrorIs(t, q.Publish(ctx, reconcile.Item{ID: 1}), ErrQueueClosed)
	})

	t.Run("consume drains in order and skips failures", func(t *testing.T) {
		q := NewInMemory(4)
		for id := range 3 {
			require.NoError(t, q.Publish(ctx, reconcile.Item{ID: models.CertificateID(id)}))
		}
		q.Close()

		var seen []uint64
		err := q.Consume(ctx, func(_ context.Context, item reconcile.Item) error {
			seen = append(seen, uint64(item.ID))
			if item.ID == 1 {
				return errors.New("boom")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 1, 2}, seen)
	})

	t.Run("consume returns on cancel", func(t *testing.T) {
		q := NewInMemory(1)
		defer q.Close()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := q.Consume(cctx, func(context.Context, reconcile.Item) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
