package redis

import (
	"context"
	"fmt"
	"time"

	"smartCart/business/orchestrator"
	"smartCart/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out per-key exclusive sections that expire on their own if
// the holder dies.
type Locker struct {
	client *redis.Client
}

var _ orchestrator.Locker = (*Locker)(nil)

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire returns a release token, or domain.ErrLockNotHeld when the key is taken.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", domain.ErrLockNotHeld
	}

	return token, nil
}

// Release frees key if token still owns it. An expired or stolen lock
// reports domain.ErrLockNotHeld.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrLockNotHeld
	}

	return nil
}
