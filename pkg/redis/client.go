package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/khamis1992/rental-notify/config"
)

// NewClient returns the Redis client backing the dedup fast path.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
