package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"smartCart/business/autoaction"

	"github.com/redis/go-redis/v9"
)

// GuardrailStore keeps cooldown markers and daily action counters. Every call
// reads live state; nothing here is cached.
type GuardrailStore struct {
	client *redis.Client
}

var _ autoaction.GuardrailStore = (*GuardrailStore)(nil)

func NewGuardrailStore(client *redis.Client) *GuardrailStore {
	return &GuardrailStore{client: client}
}

// CooldownRemaining is zero when no cooldown is set.
func (g *GuardrailStore) CooldownRemaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cooldown: %w", err)
	}
	// -2 missing key, -1 no expiry
	if ttl < 0 {
		if ttl == -1 {
			return time.Duration(math.MaxInt64), nil
		}
		return 0, nil
	}

	return ttl, nil
}

// ReserveCooldown sets the marker only if absent; false means another caller won.
func (g *GuardrailStore) ReserveCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve cooldown: %w", err)
	}

	return ok, nil
}

func (g *GuardrailStore) ReleaseCooldown(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release cooldown: %w", err)
	}

	return nil
}

func (g *GuardrailStore) DailyCount(ctx context.Context, key string) (int64, error) {
	val, err := g.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read daily counter: %w", err)
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt daily counter %s: %w", key, err)
	}

	return n, nil
}

// IncrementDaily bumps the counter and sets its expiry on first use.
func (g *GuardrailStore) IncrementDaily(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment daily counter: %w", err)
	}

	return incr.Val(), nil
}

// ReleaseDaily gives back one slot; the counter never goes below zero.
func (g *GuardrailStore) ReleaseDaily(ctx context.Context, key string) error {
	if err := releaseDailyScript.Run(ctx, g.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("failed to release daily counter: %w", err)
	}

	return nil
}

var releaseDailyScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)
