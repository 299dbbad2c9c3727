// Package dedup suppresses repeat sends to the same recipient for the same
// rule within a trailing window. The notification log is the authoritative
// source; Redis sits in front as a fast path and fails open.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogSource answers whether a send attempt was recorded for the pair within
// the trailing window, regardless of its status. A prior failed send still
// counts: persistently-failing recipients must not cause send storms.
type LogSource interface {
	ExistsRecent(ctx context.Context, ruleID, recipientID int64, window time.Duration) (bool, error)
}

// Cache is the fast-path key store in front of the log lookup.
type Cache interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
}

type Guard struct {
	logs   LogSource
	cache  Cache
	window time.Duration
	logger *zap.Logger
}

func NewGuard(logs LogSource, cache Cache, window time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		logs:   logs,
		cache:  cache,
		window: window,
		logger: logger,
	}
}

func key(ruleID, recipientID int64) string {
	return fmt.Sprintf("dedup:%d:%d", ruleID, recipientID)
}

// AlreadyNotified reports whether the (rule, recipient) pair was attempted
// within the window. Cache errors fall through to the log; a log error is
// logged and treated as "not notified" so a degraded store never blocks the
// whole run.
func (g *Guard) AlreadyNotified(ctx context.Context, ruleID, recipientID int64) bool {
	if g.cache != nil {
		hit, err := g.cache.Exists(ctx, key(ruleID, recipientID))
		if err != nil {
			g.logger.Warn("Dedup cache check failed, falling back to log",
				zap.Int64("rule_id", ruleID),
				zap.Int64("recipient_id", recipientID),
				zap.Error(err),
			)
		} else if hit {
			return true
		}
	}

	found, err := g.logs.ExistsRecent(ctx, ruleID, recipientID, g.window)
	if err != nil {
		g.logger.Warn("Dedup log lookup failed, allowing send",
			zap.Int64("rule_id", ruleID),
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
		return false
	}
	return found
}

// MarkNotified primes the fast path after an attempt was logged. Failures
// are harmless: the log lookup still holds the truth.
func (g *Guard) MarkNotified(ctx context.Context, ruleID, recipientID int64) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key(ruleID, recipientID), g.window); err != nil {
		g.logger.Warn("Failed to prime dedup cache",
			zap.Int64("rule_id", ruleID),
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
	}
}

// RedisCache adapts a redis client to the Cache interface.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, 1, ttl).Err()
}
