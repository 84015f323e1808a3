package respcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"supportbot-engine/internal/common/logger"
)

const redisKeyPrefix = "resp:"

// RedisCache shares one response cache across engine replicas. Expiry is
// server-side TTL. Backend errors degrade to a miss so the pipeline keeps
// working without Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisCache{client: client, ttl: ttl, logger: log}
}

func (c *RedisCache) Get(ctx context.Context, language, utterance string) ([]byte, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+cacheKey(language, utterance)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("response cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, language, utterance string, payload []byte) error {
	return c.client.Set(ctx, redisKeyPrefix+cacheKey(language, utterance), payload, c.ttl).Err()
}

// Len counts cached responses. Scanning is acceptable here: the value only
// feeds operational stats, never the hot path.
func (c *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count := 0
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("response cache scan failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return count
}
