package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// Store is the redis-backed TTL key-value store behind every engine cache and
// the cycle sessions.
type Store struct {
	client *redis.Client
}

var _ cache.Store = (*Store)(nil)

func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	return val, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s in Redis: %w", key, err)
	}

	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys from Redis: %w", err)
	}

	return nil
}
