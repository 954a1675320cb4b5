package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"certledger/internal/platform/kafka"
	"certledger/internal/platform/kafka/consumer"
	"certledger/internal/reconcile"
)

// KafkaPublisher writes items as JSON records keyed by certificate id, so
// repairs for one certificate stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, item reconcile.Item) error {
	value, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal reconcile item: %w", err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(item.ID.String()), value)
}

// KafkaSource consumes items from a consumer group.
type KafkaSource struct {
	consumer *consumer.Consumer
	logger   *slog.Logger
}

func NewKafkaSource(c *consumer.Consumer, logger *slog.Logger) *KafkaSource {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &KafkaSource{consumer: c, logger: logger}
}

func (s *KafkaSource) Consume(ctx context.Context, handle func(ctx context.Context, item reconcile.Item) error) error {
	return s.consumer.Run(ctx, consumer.HandlerFunc(func(ctx context.Context, msg *consumer.Message) error {
		var item reconcile.Item
		if err := json.Unmarshal(msg.Value, &item); err != nil {
			// poison record; retrying cannot help
			s.logger.Error("discarding malformed reconcile item",
				"key", string(msg.Key),
				"offset", msg.Offset,
				"error", err,
			)
			return nil
		}
		return handle(ctx, item)
	}))
}
