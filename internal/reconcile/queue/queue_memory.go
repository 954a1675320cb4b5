package queue

import (
	"context"
	"errors"
	"sync"

	"certledger/internal/reconcile"
)

var (
	ErrQueueClosed = errors.New("reconcile queue closed")
	ErrQueueFull   = errors.New("reconcile queue full")
)

// InMemoryQueue is a buffered channel queue for single-process deployments.
// Items are lost on restart; Rebuild recovers them from the ledger.
type InMemoryQueue struct {
	mu     sync.RWMutex
	closed bool
	ch     chan reconcile.Item
}

func NewInMemory(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &InMemoryQueue{ch: make(chan reconcile.Item, capacity)}
}

// Publish enqueues without blocking.
func (q *InMemoryQueue) Publish(ctx context.Context, item reconcile.Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume delivers items until ctx is cancelled or the queue is closed and
// drained. Failed items are not redelivered.
func (q *InMemoryQueue) Consume(ctx context.Context, handle func(ctx context.Context, item reconcile.Item) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-q.ch:
			if !ok {
				return nil
			}
			_ = handle(ctx, item)
		}
	}
}

// Len returns the number of queued items.
func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}

func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
