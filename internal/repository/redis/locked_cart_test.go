package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smartCart/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	seq      int
	acquires int
	releases int
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotHeld
	}
	l.seq++
	token := string(rune('a' + l.seq))
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return domain.ErrLockNotHeld
	}
	delete(l.held, key)
	l.releases++
	return nil
}

type fakeCartStore struct {
	mu        sync.Mutex
	inFlight  int
	maxFlight int
	addErr    error
}

func (f *fakeCartStore) GetCart(_ context.Context, userID uint) (domain.Cart, error) {
	return domain.Cart{UserID: userID}, nil
}

func (f *fakeCartStore) AddItem(_ context.Context, userID uint, req domain.AddItemRequest) (domain.CartItem, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.addErr != nil {
		return domain.CartItem{}, f.addErr
	}
	return domain.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func (f *fakeCartStore) RemoveItem(context.Context, uint, uint64) error {
	return domain.ErrNotFound
}

func TestLockedCartStore_SerializesMutationsPerUser(t *testing.T) {
	locker := newMemLocker()
	inner := &fakeCartStore{}
	store := NewLockedCartStore(inner, locker, 2*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddItem(context.Background(), 7, domain.AddItemRequest{ProductID: 1, Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inner.maxFlight)
	assert.Equal(t, 4, locker.releases)
	assert.Empty(t, locker.held)
}

func TestLockedCartStore_ReleasesOnFailure(t *testing.T) {
	locker := newMemLocker()
	inner := &fakeCartStore{addErr: errors.New("constraint violation")}
	store := NewLockedCartStore(inner, locker, time.Second)

	_, err := store.AddItem(context.Background(), 7, domain.AddItemRequest{ProductID: 1, Quantity: 1})
	require.Error(t, err)

	err = store.RemoveItem(context.Background(), 7, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 2, locker.releases)
	assert.Empty(t, locker.held)
}

func TestLockedCartStore_GivesUpWhenBusy(t *testing.T) {
	locker := newMemLocker()
	locker.held[cartLockKey(7)] = "someone-else"
	store := NewLockedCartStore(&fakeCartStore{}, locker, 120*time.Millisecond)

	_, err := store.AddItem(context.Background(), 7, domain.AddItemRequest{ProductID: 1, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrLockNotHeld)
	assert.Greater(t, locker.acquires, 1)

	cart, err := store.GetCart(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), cart.UserID)
}
