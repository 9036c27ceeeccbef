// Package cache holds the JSON helpers the engine uses on top of a TTL key-value store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartCart/domain"
)

// Store is a TTL-backed key-value store. Get returns domain.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// GetJSON loads and decodes key. ok is false on a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return out, false, nil
		}
		return out, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return out, true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
