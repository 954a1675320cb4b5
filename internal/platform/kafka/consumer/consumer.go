// Package consumer runs a franz-go consumer group and hands each record to a
// Handler, committing offsets only after the handler has seen the record.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Handler processes one message. A returned error is retried up to the
// consumer's retry budget, then the message is logged and skipped.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

type Consumer struct {
	client  *kgo.Client
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) { c.logger = logger }
}

// WithRetry sets how many times a failing message is retried and the pause
// between attempts.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(c *Consumer) {
		c.retries = retries
		c.backoff = backoff
	}
}

// New joins group and subscribes to topics.
func New(brokers []string, group string, topics []string, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if group == "" {
		return nil, errors.New("consumer group is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{
		client:  client,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		retries: 3,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			c.handle(ctx, h, rec)
		})
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka offset commit failed", "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, rec *kgo.Record) {
	msg := &Message{
		Topic:     rec.Topic,
		Key:       rec.Key,
		Value:     rec.Value,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Timestamp: rec.Timestamp,
	}
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err = h.Handle(ctx, msg); err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
	c.logger.Error("kafka message skipped after retries",
		"topic", msg.Topic,
		"key", string(msg.Key),
		"offset", msg.Offset,
		"error", err,
	)
}

func (c *Consumer) Close() {
	c.client.Close()
}
