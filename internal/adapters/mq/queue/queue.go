// Package queue holds asynchronous generation jobs until a worker takes them.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/courtside/pkg/metrics"
)

const defaultCapacity = 1_000

var (
	// ErrFull is returned when the queue is at capacity.
	ErrFull = errors.New("generation queue is full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("generation queue is closed")
)

// Job asks for an event's schedule to be generated with a seed.
type Job struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	Seed       string    `json:"seed"`
	Regenerate bool      `json:"regenerate"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is a bounded FIFO of generation jobs.
type Queue interface {
	// Enqueue never blocks. It fails with ErrFull, ErrClosed or the
	// context's error.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// InMemoryQueue implements Queue on a buffered channel sized to its capacity.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an empty queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return reject("closed", ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return reject("context_cancelled", err)
	}
	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		return reject("capacity_exceeded", ErrFull)
	}
}

func reject(kind string, err error) error {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", kind)
	return err
}

// Dequeue returns a channel that receives jobs in arrival order.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of jobs waiting.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting jobs. Jobs already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
