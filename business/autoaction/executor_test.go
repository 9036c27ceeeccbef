package autoaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartCart/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeCatalog struct {
	products map[uint64]domain.Product
	calls    int
}

func (f *fakeCatalog) GetByID(_ context.Context, id uint64) (domain.Product, error) {
	f.calls++
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeCart struct {
	items     []domain.CartItem
	nextID    uint64
	addErr    error
	removeErr error
	adds      int
	removes   int
}

func (f *fakeCart) GetCart(_ context.Context, userID uint) (domain.Cart, error) {
	return domain.Cart{UserID: userID, Items: append([]domain.CartItem(nil), f.items...)}, nil
}

func (f *fakeCart) AddItem(_ context.Context, userID uint, req domain.AddItemRequest) (domain.CartItem, error) {
	f.adds++
	if f.addErr != nil {
		return domain.CartItem{}, f.addErr
	}
	f.nextID++
	it := domain.CartItem{ID: f.nextID, UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeCart) RemoveItem(_ context.Context, _ uint, itemID uint64) error {
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, it := range f.items {
		if it.ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeGuardrails struct {
	cooldowns map[string]time.Duration
	daily     map[string]int64
	calls     int
	// reserveFails simulates a concurrent cycle taking the cooldown first
	reserveFails bool
}

func newGuardrails() *fakeGuardrails {
	return &fakeGuardrails{cooldowns: map[string]time.Duration{}, daily: map[string]int64{}}
}

func (f *fakeGuardrails) CooldownRemaining(_ context.Context, key string) (time.Duration, error) {
	f.calls++
	return f.cooldowns[key], nil
}

func (f *fakeGuardrails) ReserveCooldown(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.calls++
	if f.reserveFails {
		return false, nil
	}
	if f.cooldowns[key] > 0 {
		return false, nil
	}
	f.cooldowns[key] = ttl
	return true, nil
}

func (f *fakeGuardrails) ReleaseCooldown(_ context.Context, key string) error {
	delete(f.cooldowns, key)
	return nil
}

func (f *fakeGuardrails) DailyCount(_ context.Context, key string) (int64, error) {
	f.calls++
	return f.daily[key], nil
}

func (f *fakeGuardrails) IncrementDaily(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.calls++
	f.daily[key]++
	return f.daily[key], nil
}

func (f *fakeGuardrails) ReleaseDaily(_ context.Context, key string) error {
	if f.daily[key] > 0 {
		f.daily[key]--
	}
	return nil
}

type fakeInteractions struct {
	rejected map[uint64]bool
	calls    int
}

func (f *fakeInteractions) HasEvent(_ context.Context, _ uint, productID uint64, _ domain.InteractionType, _ time.Time) (bool, error) {
	f.calls++
	return f.rejected[productID], nil
}

type fakeLogs struct {
	rows    map[uuid.UUID]*domain.ActionLog
	order   []uuid.UUID
	counts  []domain.ActionTypeCount
	marks   int
	failAll bool
}

func newLogs() *fakeLogs {
	return &fakeLogs{rows: map[uuid.UUID]*domain.ActionLog{}}
}

func (f *fakeLogs) Create(_ context.Context, row *domain.ActionLog) error {
	if f.failAll {
		return errors.New("db down")
	}
	cp := *row
	f.rows[row.ID] = &cp
	f.order = append(f.order, row.ID)
	return nil
}

func (f *fakeLogs) GetForUser(_ context.Context, id uuid.UUID, userID uint) (domain.ActionLog, error) {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return domain.ActionLog{}, domain.ErrNotFound
	}
	return *row, nil
}

func (f *fakeLogs) MarkReversed(_ context.Context, id uuid.UUID, userID uint, reason string, at time.Time) (bool, error) {
	f.marks++
	row, ok := f.rows[id]
	if !ok || row.UserID != userID || row.AutoReversed {
		return false, nil
	}
	row.AutoReversed = true
	row.ReverseReason = reason
	row.ReversedAt = &at
	return true, nil
}

func (f *fakeLogs) CountByOutcome(context.Context, domain.ActionLogFilter) ([]domain.ActionTypeCount, error) {
	return f.counts, nil
}

func (f *fakeLogs) last() *domain.ActionLog {
	if len(f.order) == 0 {
		return nil
	}
	return f.rows[f.order[len(f.order)-1]]
}

// ---- helpers ----

type fixture struct {
	catalog      *fakeCatalog
	cart         *fakeCart
	guardrails   *fakeGuardrails
	interactions *fakeInteractions
	logs         *fakeLogs
	exec         *Executor
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newFixture(products ...domain.Product) *fixture {
	f := &fixture{
		catalog:      &fakeCatalog{products: map[uint64]domain.Product{}},
		cart:         &fakeCart{},
		guardrails:   newGuardrails(),
		interactions: &fakeInteractions{rejected: map[uint64]bool{}},
		logs:         newLogs(),
	}
	for _, p := range products {
		f.catalog.products[p.ID] = p
	}
	f.exec = NewExecutor(f.catalog, f.cart, f.guardrails, f.interactions, f.logs, DefaultConfig())
	f.exec.now = func() time.Time { return fixedNow }
	return f
}

func product(id uint64, price float64, stock int64) domain.Product {
	return domain.Product{
		ID:              id,
		ProductName:     "item",
		ProductCategory: "snacks",
		NormalPrice:     price,
		Stock:           stock,
		IsActive:        true,
	}
}

func addToCart(productID uint64, price float64, qty int) domain.AutoActionRequest {
	return domain.AutoActionRequest{
		ActionType: domain.ActionAddToCart,
		UserID:     11,
		ProductID:  &productID,
		Price:      &price,
		Quantity:   &qty,
		Reason:     "closes free shipping gap",
		Strategy:   domain.StrategyThresholdPush,
	}
}

// ---- execute ----

func TestExecute_PriceCeilingDeniesWithoutLookups(t *testing.T) {
	f := newFixture(product(1, 600, 10))

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 600, 1))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "exceeds auto-add limit")
	assert.Equal(t, 0, f.catalog.calls)
	assert.Equal(t, 0, f.guardrails.calls)
	assert.Equal(t, 0, f.interactions.calls)
	assert.Equal(t, 0, f.cart.adds)
}

func TestExecute_InsufficientStock(t *testing.T) {
	f := newFixture(product(1, 100, 3))

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 5))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "insufficient stock")
	assert.Equal(t, 0, f.guardrails.calls)
	assert.Equal(t, 0, f.cart.adds)
}

func TestExecute_Success(t *testing.T) {
	f := newFixture(product(1, 100, 10))

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)

	require.True(t, res.Success)
	require.NotNil(t, res.ActionID)
	require.NotNil(t, res.CanUndo)
	assert.True(t, *res.CanUndo)
	assert.Equal(t, 1, f.cart.adds)

	row := f.logs.rows[*res.ActionID]
	require.NotNil(t, row)
	assert.True(t, row.Success)
	assert.False(t, row.AutoReversed)
	assert.JSONEq(t, `[
		{"name":"price_ceiling","passed":true},
		{"name":"product_validity","passed":true},
		{"name":"cooldown","passed":true},
		{"name":"daily_cap","passed":true},
		{"name":"restricted_category","passed":true},
		{"name":"recent_rejection","passed":true}
	]`, string(row.GuardrailChecks))

	assert.Equal(t, 24*time.Hour, f.guardrails.cooldowns["guardrail:cooldown:11:ADD_TO_CART:1"])
	assert.Equal(t, int64(1), f.guardrails.daily["guardrail:daily:11:2026-04-02"])
}

func TestExecute_GuardrailDenials(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		message string
	}{
		{
			name: "unknown product",
			setup: func(f *fixture) {
				delete(f.catalog.products, 1)
			},
			message: "product not found",
		},
		{
			name: "inactive product",
			setup: func(f *fixture) {
				p := f.catalog.products[1]
				p.IsActive = false
				f.catalog.products[1] = p
			},
			message: "not active",
		},
		{
			name: "live price above ceiling",
			setup: func(f *fixture) {
				p := f.catalog.products[1]
				p.NormalPrice = 550
				f.catalog.products[1] = p
			},
			message: "exceeds auto-add limit",
		},
		{
			name: "cooldown",
			setup: func(f *fixture) {
				f.guardrails.cooldowns["guardrail:cooldown:11:ADD_TO_CART:1"] = 89*time.Minute + 30*time.Second
			},
			message: "cooldown active: 90 minutes remaining",
		},
		{
			name: "daily cap",
			setup: func(f *fixture) {
				f.guardrails.daily["guardrail:daily:11:2026-04-02"] = 3
			},
			message: "daily auto-action limit reached",
		},
		{
			name: "restricted category",
			setup: func(f *fixture) {
				p := f.catalog.products[1]
				p.ProductCategory = "Alcohol"
				f.catalog.products[1] = p
			},
			message: "restricted",
		},
		{
			name: "recent rejection",
			setup: func(f *fixture) {
				f.interactions.rejected[1] = true
			},
			message: "recently rejected",
		},
		{
			name: "lost concurrent reservation",
			setup: func(f *fixture) {
				f.guardrails.reserveFails = true
			},
			message: "cooldown active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(product(1, 100, 10))
			tt.setup(f)

			res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
			require.NoError(t, err)

			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.message)
			assert.Nil(t, res.ActionID)
			assert.Equal(t, 0, f.cart.adds)

			row := f.logs.last()
			require.NotNil(t, row, "denied attempts are audited")
			assert.False(t, row.Success)
			assert.False(t, row.AutoReversed)
		})
	}
}

func TestExecute_FirstFailureWins(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	f.guardrails.cooldowns["guardrail:cooldown:11:ADD_TO_CART:1"] = time.Hour
	f.guardrails.daily["guardrail:daily:11:2026-04-02"] = 9
	f.interactions.rejected[1] = true

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)

	assert.Contains(t, res.Message, "cooldown active")
	assert.Equal(t, 0, f.interactions.calls)
}

func TestExecute_AdvisoryActionsDoNotMutate(t *testing.T) {
	f := newFixture(product(1, 900, 10))
	pid := uint64(1)

	res, err := f.exec.ExecuteAutoAction(context.Background(), domain.AutoActionRequest{
		ActionType: domain.ActionSuggestGift,
		UserID:     11,
		ProductID:  &pid,
		Reason:     "gift threshold reached",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, *res.CanUndo)
	assert.Equal(t, 0, f.cart.adds)

	res, err = f.exec.ExecuteAutoAction(context.Background(), domain.AutoActionRequest{
		ActionType: domain.ActionShowReassurance,
		UserID:     11,
		Reason:     "hesitating",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.False(t, *res.CanUndo)
}

func TestExecute_RejectsMalformedRequests(t *testing.T) {
	f := newFixture()

	res, err := f.exec.ExecuteAutoAction(context.Background(), domain.AutoActionRequest{ActionType: "TELEPORT", UserID: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "unsupported action type")

	res, err = f.exec.ExecuteAutoAction(context.Background(), domain.AutoActionRequest{ActionType: domain.ActionAddToCart, UserID: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "product_id is required")
}

func TestExecute_MutationFailureIsLoggedAsReversed(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	f.cart.addErr = errors.New("cart locked")

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "cart locked")

	row := f.logs.last()
	require.NotNil(t, row)
	assert.False(t, row.Success)
	assert.True(t, row.AutoReversed)
	assert.Contains(t, row.ReverseReason, "cart locked")
	assert.NotContains(t, f.guardrails.cooldowns, "guardrail:cooldown:11:ADD_TO_CART:1")
}

func TestExecute_FailedMutationsDoNotUseDailySlots(t *testing.T) {
	f := newFixture(product(1, 100, 10), product(2, 100, 10), product(3, 100, 10), product(4, 100, 10))
	f.cart.addErr = errors.New("cart busy")

	for id := uint64(1); id <= 3; id++ {
		res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(id, 100, 1))
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, int64(0), f.guardrails.daily["guardrail:daily:11:2026-04-02"])
	assert.Empty(t, f.cart.items)

	f.cart.addErr = nil
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(4, 100, 1))
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, int64(1), f.guardrails.daily["guardrail:daily:11:2026-04-02"])
}

func TestExecute_AuditFailureStillReportsExecution(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	f.logs.failAll = true

	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.ActionID)
	assert.False(t, *res.CanUndo)
}

func TestExecute_CanceledContext(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.exec.ExecuteAutoAction(ctx, addToCart(1, 100, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, f.catalog.calls)
}

// ---- reverse ----

func TestReverse_IsIdempotent(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 2))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, f.cart.items, 1)

	first, err := f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Empty(t, f.cart.items)
	assert.Equal(t, 1, f.cart.removes)

	second, err := f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "")
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "already reversed")
	assert.Equal(t, 1, f.cart.removes)

	row := f.logs.rows[*res.ActionID]
	assert.True(t, row.AutoReversed)
	assert.Equal(t, "reversed by user", row.ReverseReason)
	require.NotNil(t, row.ReversedAt)
}

func TestReverse_ToleratesLineAlreadyRemoved(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)
	f.cart.items = nil

	out, err := f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "changed mind")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 0, f.cart.removes)
}

func TestReverse_ToleratesNotFoundOnRemove(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)
	f.cart.removeErr = domain.ErrNotFound

	out, err := f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "")
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestReverse_LeavesOtherLinesAlone(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)
	f.cart.items[0].Quantity = 4 // shopper changed the line afterwards

	out, err := f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 0, f.cart.removes)
	assert.Len(t, f.cart.items, 1)
}

func TestReverse_NotFoundAndForeignUser(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	res, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 100, 1))
	require.NoError(t, err)

	_, err = f.exec.ReverseAutoAction(context.Background(), 11, uuid.New(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := f.exec.ReverseAutoAction(context.Background(), 99, *res.ActionID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, out.Success)
	assert.Equal(t, 0, f.logs.marks)
}

func TestReverse_DeniedAndNonUndoableActions(t *testing.T) {
	f := newFixture(product(1, 100, 10))
	_, err := f.exec.ExecuteAutoAction(context.Background(), addToCart(1, 600, 1))
	require.NoError(t, err)
	denied := f.logs.last()

	out, err := f.exec.ReverseAutoAction(context.Background(), 11, denied.ID, "")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, msgNotExecuted, out.Message)

	res, err := f.exec.ExecuteAutoAction(context.Background(), domain.AutoActionRequest{
		ActionType: domain.ActionShowReassurance, UserID: 11, Reason: "idle",
	})
	require.NoError(t, err)
	out, err = f.exec.ReverseAutoAction(context.Background(), 11, *res.ActionID, "")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, msgCannotUndo, out.Message)
}

// ---- analytics ----

func TestAnalytics_ZeroTotalHasZeroRates(t *testing.T) {
	f := newFixture()

	a, err := f.exec.GetAutoActionAnalytics(context.Background(), domain.ActionLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.TotalActions)
	assert.Equal(t, 0.0, a.ReversalRate)
	assert.Equal(t, 0.0, a.SuccessRate)
}

func TestAnalytics_Aggregates(t *testing.T) {
	f := newFixture()
	f.logs.counts = []domain.ActionTypeCount{
		{ActionType: domain.ActionAddToCart, Success: true, Count: 6},
		{ActionType: domain.ActionAddToCart, Success: true, AutoReversed: true, Count: 2},
		{ActionType: domain.ActionAddToCart, Success: false, Count: 1},
		{ActionType: domain.ActionAddToCart, Success: false, AutoReversed: true, Count: 1},
		{ActionType: domain.ActionSuggestGift, Success: true, Count: 10},
	}

	a, err := f.exec.GetAutoActionAnalytics(context.Background(), domain.ActionLogFilter{})
	require.NoError(t, err)

	assert.Equal(t, int64(20), a.TotalActions)
	assert.Equal(t, int64(18), a.Executed)
	assert.Equal(t, int64(2), a.Reversed)
	assert.Equal(t, int64(1), a.Denied)
	assert.Equal(t, int64(1), a.Failed)
	assert.InDelta(t, 0.9, a.SuccessRate, 1e-9)
	assert.InDelta(t, 0.1, a.ReversalRate, 1e-9)
	assert.Equal(t, int64(10), a.ByActionType[domain.ActionAddToCart])
	assert.Equal(t, int64(2), a.ReversedByType[domain.ActionAddToCart])
}
