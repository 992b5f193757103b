// Package queue defines the contract for enqueuing and consuming punch
// notifications.
//
// A notification is enqueued after a punch is persisted; workers drain
// the queue to derive the user's new status and feed the live feed.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/jornada/fichaje/internal/domain/model"
	"github.com/jornada/fichaje/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
)

// Notification is the payload type flowing through the queue: the punch
// as it was stored.
type Notification = model.PunchEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notification. A false return means the queue was
	// full or closed and the notification was dropped.
	Enqueue(ctx context.Context, n Notification) bool

	// Dequeue returns a channel delivering notifications until the
	// queue is closed.
	Dequeue(ctx context.Context) <-chan Notification

	// Len returns the current number of queued notifications.
	Len(ctx context.Context) int

	// Close stops the queue. Nothing can be enqueued afterwards and
	// dequeue channels drain then close.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notifications chan Notification
	capacity      int
	bufferSize    int
	mu            sync.RWMutex
	closed        bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.notifications = make(chan Notification, q.bufferSize)

	// Seed the gauges so the first scrape sees the configured capacity.
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a notification to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notification) bool {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordQueueProcessingLatency(float64(latency))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.notifications) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.notifications <- n:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.notifications)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive notifications as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notification {
	// The wrapper goroutine keeps the size gauges current per delivery.
	dequeueChan := make(chan Notification)
	go func() {
		defer close(dequeueChan)
		for n := range q.notifications {
			select {
			case dequeueChan <- n:
				metrics.RecordQueueDequeue()
				currentSize := len(q.notifications)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued notifications.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.notifications)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops the queue. Idempotent.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.notifications)
	q.closed = true

	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
