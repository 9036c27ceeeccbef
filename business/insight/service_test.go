package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCarts struct {
	cart  domain.Cart
	err   error
	calls int
}

func (f *fakeCarts) GetCart(_ context.Context, userID uint) (domain.Cart, error) {
	f.calls++
	if f.err != nil {
		return domain.Cart{}, f.err
	}
	c := f.cart
	c.UserID = userID
	return c, nil
}

type fakeInteractions struct {
	latest    *domain.InteractionEvent
	removals  []domain.InteractionEvent
	err       error
	listCalls int
}

func (f *fakeInteractions) LatestEvent(_ context.Context, _ uint, _ []domain.InteractionType) (domain.InteractionEvent, error) {
	if f.err != nil {
		return domain.InteractionEvent{}, f.err
	}
	if f.latest == nil {
		return domain.InteractionEvent{}, domain.ErrNotFound
	}
	return *f.latest, nil
}

func (f *fakeInteractions) ListEvents(_ context.Context, _ uint, _ []domain.InteractionType, since time.Time) ([]domain.InteractionEvent, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.InteractionEvent
	for _, e := range f.removals {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePromotions struct {
	groups []domain.PromoGroup
	err    error
}

func (f *fakePromotions) ActiveGroups(context.Context, time.Time) ([]domain.PromoGroup, error) {
	return f.groups, f.err
}

type fakeHistory struct {
	rows []domain.CartInsight
}

func (f *fakeHistory) AppendInsights(_ context.Context, rows []domain.CartInsight) error {
	f.rows = append(f.rows, rows...)
	return nil
}

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(carts *fakeCarts, inter *fakeInteractions) *Service {
	s := NewService(carts, inter, nil, nil, nil, DefaultConfig())
	s.now = func() time.Time { return testNow }
	return s
}

func item(productID, categoryID uint64, price float64, qty int) domain.CartItem {
	return domain.CartItem{
		ProductID:  productID,
		CategoryID: categoryID,
		UnitPrice:  price,
		Quantity:   qty,
		UpdatedAt:  testNow.Add(-time.Hour),
	}
}

func byType(signals []domain.CartSignal, t domain.SignalType) []domain.CartSignal {
	var out []domain.CartSignal
	for _, s := range signals {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func TestAnalyzeCart_ThresholdOneUnitBelowIsHigh(t *testing.T) {
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 10, 300, 1), item(2, 11, 198, 1)}}}
	s := newTestService(carts, &fakeInteractions{})

	signals, err := s.AnalyzeCart(context.Background(), 7)
	require.NoError(t, err)

	near := byType(signals, domain.SignalThresholdNear)
	require.Len(t, near, 1)
	assert.Equal(t, domain.SeverityHigh, near[0].Severity)
	meta, ok := near[0].Metadata.(domain.ThresholdMetadata)
	require.True(t, ok)
	assert.Equal(t, "free_shipping", meta.Name)
	assert.Equal(t, int64(100), meta.GapMinor)
}

func TestAnalyzeCart_ThresholdReachedIsAbsent(t *testing.T) {
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 10, 299, 1), item(2, 11, 200, 1)}}}
	s := newTestService(carts, &fakeInteractions{})

	signals, err := s.AnalyzeCart(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, byType(signals, domain.SignalThresholdNear))
}

func TestAnalyzeCart_ThresholdSeverityByWindow(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected []domain.Severity
	}{
		{"outside window", 250, nil},
		{"medium window", 350, []domain.Severity{domain.SeverityMedium}},
		{"high window", 460, []domain.Severity{domain.SeverityHigh}},
		{"gift medium", 850, []domain.Severity{domain.SeverityMedium}},
		{"past both", 1200, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 10, tt.value, 1), item(2, 10, 0, 1)}}}
			s := newTestService(carts, &fakeInteractions{})

			signals, err := s.AnalyzeCart(context.Background(), 1)
			require.NoError(t, err)

			var got []domain.Severity
			for _, sig := range byType(signals, domain.SignalThresholdNear) {
				got = append(got, sig.Severity)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAnalyzeCart_GiftEligibility(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		severity domain.Severity
		reached  bool
		present  bool
	}{
		{"far below", 700, "", false, false},
		{"within window", 850, domain.SeverityMedium, false, true},
		{"at threshold", 999, domain.SeverityHigh, true, true},
		{"past threshold", 1500, domain.SeverityHigh, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 10, tt.value, 1), item(2, 10, 0, 1)}}}
			s := newTestService(carts, &fakeInteractions{})

			signals, err := s.AnalyzeCart(context.Background(), 1)
			require.NoError(t, err)

			gift := byType(signals, domain.SignalGiftEligible)
			if !tt.present {
				assert.Empty(t, gift)
				return
			}
			require.Len(t, gift, 1)
			assert.Equal(t, tt.severity, gift[0].Severity)
			assert.Equal(t, tt.reached, gift[0].Metadata.(domain.GiftMetadata).Reached)
		})
	}
}

func TestAnalyzeCart_BundleOpportunityForSingleUnit(t *testing.T) {
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(5, 42, 120, 1)}}}
	s := newTestService(carts, &fakeInteractions{})

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)

	bundle := byType(signals, domain.SignalBundleOpportunity)
	require.Len(t, bundle, 1)
	assert.Equal(t, domain.BundleMetadata{ProductID: 5, CategoryID: 42}, bundle[0].Metadata)

	carts.cart.Items[0].Quantity = 2
	s = newTestService(carts, &fakeInteractions{})
	signals, err = s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, byType(signals, domain.SignalBundleOpportunity))
}

func TestAnalyzeCart_Hesitation(t *testing.T) {
	tests := []struct {
		name     string
		idle     time.Duration
		severity domain.Severity
	}{
		{"recent", 5 * time.Minute, ""},
		{"exactly ten", 10 * time.Minute, ""},
		{"low", 15 * time.Minute, domain.SeverityLow},
		{"medium", 25 * time.Minute, domain.SeverityMedium},
		{"high", 45 * time.Minute, domain.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inter := &fakeInteractions{latest: &domain.InteractionEvent{
				EventType: domain.InteractionCartAdd,
				CreatedAt: testNow.Add(-tt.idle),
			}}
			s := newTestService(&fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 10, 3)}}}, inter)

			signals, err := s.AnalyzeCart(context.Background(), 1)
			require.NoError(t, err)

			h := byType(signals, domain.SignalHesitation)
			if tt.severity == "" {
				assert.Empty(t, h)
				return
			}
			require.Len(t, h, 1)
			assert.Equal(t, tt.severity, h[0].Severity)
		})
	}
}

func TestAnalyzeCart_NoActivityMeansNoHesitation(t *testing.T) {
	s := newTestService(&fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 10, 3)}}}, &fakeInteractions{})

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, byType(signals, domain.SignalHesitation))
}

func TestAnalyzeCart_PriceSensitivity(t *testing.T) {
	inter := &fakeInteractions{removals: []domain.InteractionEvent{
		{ProductID: 8, Price: 400, CreatedAt: testNow.Add(-time.Hour)},
		{ProductID: 9, Price: 300, CreatedAt: testNow.Add(-2 * time.Hour)},
	}}
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 100, 2)}}}
	s := newTestService(carts, inter)

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)

	ps := byType(signals, domain.SignalPriceSensitivity)
	require.Len(t, ps, 1)
	meta := ps[0].Metadata.(domain.PriceSensitivityMetadata)
	assert.InDelta(t, 350.0, meta.AvgRemovedPrice, 0.001)
	assert.InDelta(t, 100.0, meta.AvgCartPrice, 0.001)
	assert.Equal(t, 2, meta.Removals)
}

func TestAnalyzeCart_PriceSensitivityNeedsTwoRemovals(t *testing.T) {
	inter := &fakeInteractions{removals: []domain.InteractionEvent{
		{ProductID: 8, Price: 900, CreatedAt: testNow.Add(-time.Hour)},
		{ProductID: 9, Price: 900, CreatedAt: testNow.Add(-8 * 24 * time.Hour)},
	}}
	s := newTestService(&fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 100, 2)}}}, inter)

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, byType(signals, domain.SignalPriceSensitivity))
}

func TestAnalyzeCart_RepeatRemovalOnlyForProductsInCart(t *testing.T) {
	inter := &fakeInteractions{removals: []domain.InteractionEvent{
		{ProductID: 1, Price: 10, CreatedAt: testNow.Add(-time.Hour)},
		{ProductID: 1, Price: 10, CreatedAt: testNow.Add(-48 * time.Hour)},
		{ProductID: 2, Price: 10, CreatedAt: testNow.Add(-time.Hour)},
		{ProductID: 2, Price: 10, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ProductID: 3, Price: 10, CreatedAt: testNow.Add(-time.Hour)},
	}}
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 10, 1), item(3, 1, 10, 1)}}}
	s := newTestService(carts, inter)

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)

	rr := byType(signals, domain.SignalRepeatRemoval)
	require.Len(t, rr, 1)
	assert.Equal(t, domain.RepeatRemovalMetadata{ProductID: 1, Removals: 2}, rr[0].Metadata)
}

func TestAnalyzeCart_RuleFailureIsIsolated(t *testing.T) {
	inter := &fakeInteractions{err: errors.New("db down")}
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 498, 1)}}}
	s := newTestService(carts, inter)

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, byType(signals, domain.SignalThresholdNear), 1)
	assert.Len(t, byType(signals, domain.SignalBundleOpportunity), 1)
	assert.Empty(t, byType(signals, domain.SignalHesitation))
	assert.Empty(t, byType(signals, domain.SignalPriceSensitivity))
}

func TestAnalyzeCart_CartFailureIsReturned(t *testing.T) {
	s := newTestService(&fakeCarts{err: errors.New("cart store down")}, &fakeInteractions{})

	_, err := s.AnalyzeCart(context.Background(), 1)
	assert.Error(t, err)
}

func TestAnalyzeCart_PromoUnlockThreshold(t *testing.T) {
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 100, 1), item(2, 1, 100, 1)}}}
	s := newTestService(carts, &fakeInteractions{})
	s.promotions = &fakePromotions{groups: []domain.PromoGroup{{
		Name:            "spring",
		UnlockThreshold: 230,
		StartsAt:        testNow.Add(-time.Hour),
		EndsAt:          testNow.Add(time.Hour),
	}}}

	signals, err := s.AnalyzeCart(context.Background(), 1)
	require.NoError(t, err)

	near := byType(signals, domain.SignalThresholdNear)
	require.Len(t, near, 1)
	assert.Equal(t, "promo:spring", near[0].Metadata.(domain.ThresholdMetadata).Name)
	assert.Equal(t, domain.SeverityHigh, near[0].Severity)
}

func TestAnalyzeCart_CachesAndRecordsHistory(t *testing.T) {
	carts := &fakeCarts{cart: domain.Cart{Items: []domain.CartItem{item(1, 1, 480, 1)}}}
	store := cache.NewMemory()
	history := &fakeHistory{}
	s := NewService(carts, &fakeInteractions{}, nil, history, store, DefaultConfig())
	s.now = func() time.Time { return testNow }

	first, err := s.AnalyzeCart(context.Background(), 3)
	require.NoError(t, err)
	second, err := s.AnalyzeCart(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, carts.calls)
	assert.Equal(t, first, second)
	assert.Len(t, history.rows, len(first))

	require.NoError(t, s.InvalidateSignals(context.Background(), 3))
	_, err = s.AnalyzeCart(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, carts.calls)
}
