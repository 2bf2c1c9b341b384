package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	coreq "github.com/velhonen/orka/internal/taskqueue"
)

// blockInterval bounds each BRPOP call so a dispatcher notices context
// cancellation without waiting on the server to release the connection.
const blockInterval = time.Second

// RedisQueue carries activity tasks between the engine and dispatchers
// through a single Redis list at <prefix>tasks.
//
// A replay pass appends each newly scheduled task once (LPUSH of the
// gob-encoded Task), and BRPOP removes an entry atomically, so every task is
// claimed by exactly one dispatcher even with many consumers on the list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue constructs a Redis-backed Queue. An empty prefix defaults
// to "orka:"; deployments sharing one Redis database should pick distinct
// prefixes per engine.
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "orka:"
	}
	return &RedisQueue{
		client: client,
		key:    prefix + "tasks",
	}
}

var _ coreq.Queue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, t coreq.Task) error {
	data, err := coreq.EncodeTask(t)
	if err != nil {
		return fmt.Errorf("encode task %s/%d: %w", t.InstanceID, t.TaskID, err)
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Dequeue claims the oldest task, blocking in bounded BRPOP rounds until one
// is available or ctx is cancelled. An undecodable entry is a poisoned queue
// and surfaces as an error rather than being retried.
func (q *RedisQueue) Dequeue(ctx context.Context) (*coreq.Task, error) {
	for {
		res, err := q.client.BRPop(ctx, blockInterval, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// Block interval elapsed with nothing queued.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				continue
			}
		case err != nil:
			return nil, err
		}

		// BRPop yields [key, value].
		if len(res) != 2 {
			return nil, fmt.Errorf("brpop %s: unexpected reply of %d elements", q.key, len(res))
		}
		task, err := coreq.DecodeTask([]byte(res[1]))
		if err != nil {
			return nil, fmt.Errorf("decode task from %s: %w", q.key, err)
		}
		return task, nil
	}
}

// Len reports the current list length. It is advisory only; a Redis error
// reads as an empty queue since the Queue contract has no error channel here.
func (q *RedisQueue) Len() int {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
