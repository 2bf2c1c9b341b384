package taskqueue

import (
	"context"
	"sync"
)

// InMemoryQueue holds dispatched activity tasks in process memory.
//
// The engine enqueues while holding the instance lock that the dispatcher's
// CompleteActivity call will later contend for, so Enqueue must never block
// on queue pressure: the queue is unbounded and Enqueue always succeeds.
// Dequeue hands each task to exactly one caller, in enqueue order.
type InMemoryQueue struct {
	mu    sync.Mutex
	tasks []Task

	// wake carries at most one pending signal; a dispatcher woken by it
	// re-signals when tasks remain, so no enqueue is ever lost on waiters.
	wake chan struct{}
}

// NewInMemoryQueue creates an empty queue. capacity sizes the initial
// backing buffer only; it is not a limit. capacity <= 0 picks a default.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &InMemoryQueue{
		tasks: make([]Task, 0, capacity),
		wake:  make(chan struct{}, 1),
	}
}

var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		if t, ok := q.pop(); ok {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// pop claims the oldest task, if any. When tasks remain afterwards it
// re-signals so a concurrent waiter also gets to run.
func (q *InMemoryQueue) pop() (*Task, bool) {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	remaining := len(q.tasks)
	if remaining == 0 {
		// Drop the drained backing array so consumed tasks get collected.
		q.tasks = nil
	}
	q.mu.Unlock()

	if remaining > 0 {
		q.signal()
	}
	return &t, true
}

func (q *InMemoryQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
