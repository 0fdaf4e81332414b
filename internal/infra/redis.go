// README: Redis client initialization for the change feed and the notification queue.
package infra

import (
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// AsynqRedisOpt returns the connection options the notification queue uses.
func AsynqRedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}
