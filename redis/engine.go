package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/velhonen/orka/internal/engine"
	"github.com/velhonen/orka/internal/persistence"
	"github.com/velhonen/orka/pkg/api"

	corep "github.com/velhonen/orka/redis/internal/persistence"
	rqueue "github.com/velhonen/orka/redis/internal/taskqueue"
)

// NewRedisEngine returns an Engine that persists instances, histories and
// activity tasks in Redis under the "orka:" key prefix.
func NewRedisEngine(client *redis.Client) api.Engine {
	return NewRedisEngineWithObserver(client, nil)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given Observer.
func NewRedisEngineWithObserver(client *redis.Client, obs api.Observer) api.Engine {
	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.Persistence{
			Instances: corep.NewRedisInstanceStore(client, "orka:"),
			History:   corep.NewRedisHistoryStore(client, "orka:"),
		},
		Queue:    rqueue.NewRedisQueue(client, "orka:"),
		Observer: obs,
	})
}
