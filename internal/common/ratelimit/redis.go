package ratelimit

import (
	"context"
	"fmt"
	"time"

	pkgerrors "execjudge/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"maxRetries"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	PoolSize     int           `yaml:"poolSize"`
	MinIdleConns int           `yaml:"minIdleConns"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// FixedWindowLimiter counts requests per key in Redis, shared across replicas.
type FixedWindowLimiter struct {
	client  redis.Cmdable
	prefix  string
	max     int
	window  time.Duration
	timeout time.Duration
}

// NewFixedWindowLimiter creates a Redis backed limiter.
func NewFixedWindowLimiter(client redis.Cmdable, prefix string, max int, window, timeout time.Duration) *FixedWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &FixedWindowLimiter{client: client, prefix: prefix, max: max, window: window, timeout: timeout}
}

// Allow increments the window counter for key and rejects once it passes max.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) error {
	if l.client == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit store is unavailable")
	}
	if l.max <= 0 {
		return nil
	}
	fullKey := l.prefix + key

	ctxRedis, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	acquired, err := l.client.SetNX(ctxRedis, fullKey, 1, l.window).Result()
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	count := int64(1)
	if !acquired {
		count, err = l.client.Incr(ctxRedis, fullKey).Result()
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		// a key that lost its TTL would otherwise block forever
		ttl, ttlErr := l.client.TTL(ctxRedis, fullKey).Result()
		if ttlErr == nil && ttl < 0 {
			_ = l.client.Expire(ctxRedis, fullKey, l.window).Err()
		}
	}
	if count > int64(l.max) {
		return pkgerrors.New(pkgerrors.TooManyRequests).WithDetail("key", key)
	}
	return nil
}
