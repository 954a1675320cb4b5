//go:build integration

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certledger/internal/certificate/models"
	"certledger/internal/platform/kafka"
	"certledger/internal/platform/kafka/consumer"
	"certledger/internal/reconcile"
	"certledger/pkg/testutil/containers"
)

func TestKafkaQueueRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "reconcile-" + uuid.NewString()
	require.NoError(t, kafka.EnsureTopic(ctx, rp.Brokers, topic, 1, 1))

	producer, err := kafka.NewProducer(rp.Brokers, nil)
	require.NoError(t, err)
	defer producer.Close()
	pub := NewKafkaPublisher(producer, topic)

	sent := []reconcile.Item{
		{ID: 7, Pointer: models.ContentPointer("ptr-7"), Reason: reconcile.ReasonIndexWriteFailed, At: time.Now().UTC()},
		{ID: 8, Reason: reconcile.ReasonManual, At: time.Now().UTC()},
	}
	for _, item := range sent {
		require.NoError(t, pub.Publish(ctx, item))
	}
	// poison records are skipped, not retried
	require.NoError(t, producer.Produce(ctx, topic, []byte("bad"), []byte("{")))

	c, err := consumer.New(rp.Brokers, "group-"+uuid.NewString(), []string{topic})
	require.NoError(t, err)
	defer c.Close()
	src := NewKafkaSource(c, nil)

	got := make(chan reconcile.Item, len(sent))
	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- src.Consume(consumeCtx, func(_ context.Context, item reconcile.Item) error {
			got <- item
			return nil
		})
	}()

	for i := range sent {
		select {
		case item := <-got:
			assert.Equal(t, sent[i].ID, item.ID)
			assert.Equal(t, sent[i].Pointer, item.Pointer)
			assert.Equal(t, sent[i].Reason, item.Reason)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for item %d", i)
		}
	}
	stop()
	err = <-done
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled), "unexpected consume error: %v", err)
	}
}
