package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartCart/business/autoaction"
	"smartCart/business/orchestrator"
	"smartCart/domain"
	"smartCart/pkg/logger"
)

const lockRetryInterval = 50 * time.Millisecond

// LockedCartStore serializes cart mutations per user. Reads pass through.
type LockedCartStore struct {
	next   autoaction.CartStore
	locker orchestrator.Locker
	ttl    time.Duration
	wait   time.Duration
}

var _ autoaction.CartStore = (*LockedCartStore)(nil)

// NewLockedCartStore wraps next. Mutations wait up to ttl for the user's lock.
func NewLockedCartStore(next autoaction.CartStore, locker orchestrator.Locker, ttl time.Duration) *LockedCartStore {
	return &LockedCartStore{next: next, locker: locker, ttl: ttl, wait: ttl}
}

func cartLockKey(userID uint) string {
	return fmt.Sprintf("lock:cart:%d", userID)
}

func (s *LockedCartStore) GetCart(ctx context.Context, userID uint) (domain.Cart, error) {
	return s.next.GetCart(ctx, userID)
}

func (s *LockedCartStore) AddItem(ctx context.Context, userID uint, req domain.AddItemRequest) (domain.CartItem, error) {
	var item domain.CartItem
	err := s.withLock(ctx, userID, func() error {
		var err error
		item, err = s.next.AddItem(ctx, userID, req)
		return err
	})
	return item, err
}

func (s *LockedCartStore) RemoveItem(ctx context.Context, userID uint, itemID uint64) error {
	return s.withLock(ctx, userID, func() error {
		return s.next.RemoveItem(ctx, userID, itemID)
	})
}

func (s *LockedCartStore) withLock(ctx context.Context, userID uint, fn func() error) error {
	key := cartLockKey(userID)
	token, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Warn("release cart lock failed", "user_id", userID, "error", err)
		}
	}()

	return fn()
}

func (s *LockedCartStore) acquire(ctx context.Context, key string) (string, error) {
	deadline := time.Now().Add(s.wait)
	for {
		token, err := s.locker.Acquire(ctx, key, s.ttl)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, domain.ErrLockNotHeld) {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("cart busy: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context error: %w", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}
