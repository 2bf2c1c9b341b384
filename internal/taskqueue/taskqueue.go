package taskqueue

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"
)

func init() {
	gob.Register([]string{})
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// Task is one activity invocation awaiting dispatch. Every task corresponds
// to exactly one TaskScheduled history event; the engine enqueues it only
// when that event is first appended, which keeps dispatch at-most-once per
// (instance, task id) pair.
type Task struct {
	// ID uniquely identifies the queue entry.
	ID string

	// InstanceID and TaskID locate the TaskScheduled decision this task
	// fulfills.
	InstanceID string
	TaskID     int64

	ActivityName string
	Input        any

	EnqueuedAt time.Time
}

// Queue is a simple async activity task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}

// EncodeTask gob-encodes a whole Task for backends that store tasks as
// opaque blobs. Custom activity input types must be gob-registered by the
// application.
func EncodeTask(t Task) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTask is the inverse of EncodeTask.
func DecodeTask(data []byte) (*Task, error) {
	var t Task
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
