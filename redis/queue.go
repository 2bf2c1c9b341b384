package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/velhonen/orka"

	rqueue "github.com/velhonen/orka/redis/internal/taskqueue"
)

// NewRedisQueue returns the activity task queue used by Redis-backed
// engines, for wiring dispatchers in other processes:
//
//	eng := redisorka.NewRedisEngine(client)
//	q := redisorka.NewRedisQueue(client, "orka:")
//	d, _ := orka.NewDispatcher(eng, q, nil)
func NewRedisQueue(client *redis.Client, prefix string) orka.Queue {
	return rqueue.NewRedisQueue(client, prefix)
}
