package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"honeypot-lab/internal/config"
	"honeypot-lab/pkg/logger"
)

// Key prefixes
const (
	KeyRateLimitPrefix = "ratelimit:"
)

// RedisCache wraps the Redis client. It only backs request rate limiting and
// readiness; conversation state stays in process memory.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
	now       func() time.Time
}

// NewRedis creates a new Redis client and checks the connection
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Ping reports whether Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// CheckRateLimit counts one request for key in the current fixed window.
// Returns (allowed, remaining, resetTime, error).
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := c.now()
	windowKey, resetTime := rateLimitWindow(key, now, window)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, c.key(windowKey))
	pipe.Expire(ctx, c.key(windowKey), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, resetTime, nil
}

// rateLimitWindow returns the counter key for the window containing now and
// the time that window ends.
func rateLimitWindow(key string, now time.Time, window time.Duration) (string, time.Time) {
	if window < time.Second {
		window = time.Second
	}
	size := int64(window / time.Second)
	slot := now.Unix() / size
	return fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, slot), time.Unix((slot+1)*size, 0)
}
