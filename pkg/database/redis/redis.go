package redis

import (
	"context"
	"fmt"
	"time"

	"smartCart/pkg/config"
	"smartCart/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	pingAttempts = 3
	pingBackoff  = 500 * time.Millisecond
)

// NewRedisClient opens the pool shared by the caches, guardrail counters, locks
// and the cycle queue. Guardrails fail closed without redis, so startup waits
// for a successful ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 4,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}

		logger.Warn("redis ping failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("context error: %w", ctx.Err())
		case <-time.After(pingBackoff * time.Duration(attempt)):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis: %w", err)
}

// CloseRedisClient closes the Redis connection
func CloseRedisClient(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}

	return nil
}
