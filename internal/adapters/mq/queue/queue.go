// Package queue provides a bounded in-memory queue with non-blocking
// enqueue and channel-based dequeue. The shot intake and the scene presenter
// both run on it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/shootsim/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultName          = "default"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed and the item was not enqueued.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns a channel that will receive items as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close stops accepting items. Items already queued are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	c := config{capacity: defaultQueueCapacity, name: defaultName}
	for _, opt := range opts {
		opt(&c)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, c.capacity),
		capacity: c.capacity,
		name:     c.name,
	}
	metrics.UpdateQueueSize(q.name, 0)
	return q
}

// Enqueue adds an item to the queue without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped(q.name, "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueDropped(q.name, "context_cancelled")
		return false
	}

	select {
	case q.items <- item:
		metrics.UpdateQueueSize(q.name, len(q.items))
		return true
	default:
		metrics.RecordQueueDropped(q.name, "full")
		return false
	}
}

// Dequeue returns a channel that will receive items as they become available.
// Several consumers may dequeue concurrently; each item is delivered once.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case item, ok := <-q.items:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(q.name, len(q.items))
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Capacity returns the maximum number of queued items.
func (q *InMemoryQueue[T]) Capacity() int {
	return q.capacity
}

// Close stops accepting items. Consumers drain what is left and then see
// their dequeue channel closed.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
