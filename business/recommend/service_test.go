package recommend

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

// ---- fakes ----

type fakeCarts struct{ cart domain.Cart }

func (f *fakeCarts) GetCart(context.Context, uint) (domain.Cart, error) { return f.cart, nil }

type fakeCatalog struct {
	products map[uint64]domain.Product
	err      error
	searches int
}

func newCatalog(ps ...domain.Product) *fakeCatalog {
	m := make(map[uint64]domain.Product, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) GetByID(_ context.Context, id uint64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []uint64) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	in := func(ids []uint64, id uint64) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}
	var out []domain.Product
	for id := uint64(1); id <= 100; id++ {
		p, ok := f.products[id]
		if !ok || !in(q.CategoryIDs, p.CategoryID) || in(q.ExcludeProductIDs, p.ID) {
			continue
		}
		out = append(out, p)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type fakeInteractions struct {
	viewed []uint64
	err    error
}

func (f *fakeInteractions) RecentProductIDs(context.Context, uint, domain.InteractionType, time.Time, int) ([]uint64, error) {
	return f.viewed, f.err
}

type fakePreferences struct {
	pref *domain.UserPreference
}

func (f *fakePreferences) GetPreference(context.Context, uint) (domain.UserPreference, error) {
	if f.pref == nil {
		return domain.UserPreference{}, domain.ErrNotFound
	}
	return *f.pref, nil
}

type fakeTrending struct {
	top []domain.ProductCount
	err error
}

func (f *fakeTrending) TopTrending(_ context.Context, limit int) ([]domain.ProductCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

type fakeCoPurchases struct{ counts []domain.ProductCount }

func (f *fakeCoPurchases) CoPurchased(context.Context, uint64, int) ([]domain.ProductCount, error) {
	return f.counts, nil
}

type fakeReranker struct {
	order []uint64
	err   error
	block bool
	calls int
}

func (f *fakeReranker) Rerank(ctx context.Context, _ uint, _ []RerankItem) ([]uint64, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.order, f.err
}

// ---- helpers ----

func product(id, category uint64, price float64) domain.Product {
	return domain.Product{
		ID:          id,
		CategoryID:  category,
		ProductName: "product",
		Brand:       "generic",
		NormalPrice: price,
		Stock:       10,
		IsActive:    true,
	}
}

type fixture struct {
	carts    *fakeCarts
	catalog  *fakeCatalog
	inter    *fakeInteractions
	prefs    *fakePreferences
	trending *fakeTrending
	co       *fakeCoPurchases
	reranker Reranker
	store    cache.Store
}

func newFixture() *fixture {
	return &fixture{
		carts:    &fakeCarts{},
		catalog:  newCatalog(),
		inter:    &fakeInteractions{},
		prefs:    &fakePreferences{},
		trending: &fakeTrending{},
		co:       &fakeCoPurchases{},
	}
}

func (f *fixture) service() *Service {
	return NewService(Deps{
		Carts:        f.carts,
		Catalog:      f.catalog,
		Interactions: f.inter,
		Preferences:  f.prefs,
		Trending:     f.trending,
		CoPurchases:  f.co,
		Reranker:     f.reranker,
		Cache:        f.store,
	}, DefaultConfig())
}

func ids(recs []domain.Recommendation) []uint64 {
	out := make([]uint64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ProductID)
	}
	return out
}

// ---- tests ----

func TestSmartRecommendations_ScoresFusedPools(t *testing.T) {
	f := newFixture()
	discounted := product(3, 7, 400)
	discounted.SalePrice = 280 // 120 off -> +2
	f.catalog = newCatalog(product(1, 7, 100), product(2, 8, 100), discounted, product(4, 9, 100))
	f.inter.viewed = []uint64{1, 2}
	f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{7}}
	f.trending.top = []domain.ProductCount{{ProductID: 1, Count: 9}, {ProductID: 4, Count: 5}}

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)

	require.Equal(t, []uint64{1, 2, 3, 4}, ids(recs))
	assert.Equal(t, 120.0, recs[0].Score) // viewed + affinity + trending
	assert.Equal(t, []string{"category affinity", "recently viewed", "trending"}, recs[0].Reasons)
	assert.Equal(t, 60.0, recs[1].Score)
	assert.Equal(t, 37.0, recs[2].Score)
	assert.Equal(t, 25.0, recs[3].Score)
}

func TestSmartRecommendations_BrandBonusAndHighTicketPenalty(t *testing.T) {
	f := newFixture()
	branded := product(1, 7, 100)
	branded.Brand = "acme"
	pricey := product(2, 7, 2000)
	f.catalog = newCatalog(branded, pricey, product(3, 7, 100))
	f.prefs.pref = &domain.UserPreference{
		PreferredCategoryIDs: []uint64{7},
		PreferredBrands:      []string{"acme"},
		PriceSensitivity:     domain.PriceSensitivityHigh,
	}

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)

	require.Equal(t, []uint64{1, 3, 2}, ids(recs))
	assert.Equal(t, 50.0, recs[0].Score)
	assert.Equal(t, 35.0, recs[1].Score)
	assert.Equal(t, 15.0, recs[2].Score)
}

func TestSmartRecommendations_DiscountBonusIsCapped(t *testing.T) {
	s := NewService(Deps{}, DefaultConfig())
	c := domain.Candidate{Discount: 5000, Reasons: map[string]struct{}{}}
	assert.Equal(t, 20.0, s.score(c, domain.UserPreference{}))

	c.Discount = 49
	assert.Equal(t, 0.0, s.score(c, domain.UserPreference{}))
}

func TestSmartRecommendations_ExcludesCartItems(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100), product(2, 7, 100))
	f.carts.cart = domain.Cart{Items: []domain.CartItem{{ProductID: 1, CategoryID: 7, Quantity: 1}}}
	f.inter.viewed = []uint64{1}
	f.trending.top = []domain.ProductCount{{ProductID: 1}}

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids(recs))
}

func TestSmartRecommendations_SkipsIneligibleProducts(t *testing.T) {
	f := newFixture()
	gone := product(2, 7, 100)
	gone.Stock = 0
	inactive := product(3, 7, 100)
	inactive.IsActive = false
	f.catalog = newCatalog(product(1, 7, 100), gone, inactive)
	f.inter.viewed = []uint64{1, 2, 3}

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids(recs))
}

func TestSmartRecommendations_PoolFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100), product(2, 8, 100))
	f.inter.err = errors.New("events unavailable")
	f.trending.err = errors.New("redis down")
	f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{8}}

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids(recs))
}

func TestMergeCandidates_OrderIndependent(t *testing.T) {
	p1, p2, p3 := product(1, 7, 100), product(2, 7, 90), product(3, 8, 300)
	p3.SalePrice = 150
	viewed := []domain.Candidate{domain.NewCandidate(p1, domain.ReasonRecentlyViewed), domain.NewCandidate(p3, domain.ReasonRecentlyViewed)}
	affinity := []domain.Candidate{domain.NewCandidate(p2, domain.ReasonCategoryAffinity), domain.NewCandidate(p1, domain.ReasonCategoryAffinity)}
	trending := []domain.Candidate{domain.NewCandidate(p3, domain.ReasonTrending), domain.NewCandidate(p2, domain.ReasonTrending)}

	s := NewService(Deps{}, DefaultConfig())
	rank := func(pools ...[]domain.Candidate) []domain.Recommendation {
		merged := mergeCandidates(pools...)
		for i := range merged {
			merged[i].Score = s.score(merged[i], domain.UserPreference{})
		}
		return toRecommendations(rankCandidates(merged, 10))
	}

	want := rank(viewed, affinity, trending)
	orders := [][][]domain.Candidate{
		{viewed, trending, affinity},
		{affinity, viewed, trending},
		{affinity, trending, viewed},
		{trending, viewed, affinity},
		{trending, affinity, viewed},
	}
	for _, o := range orders {
		assert.Equal(t, want, rank(o...))
	}
	assert.Len(t, want, 3)
}

func TestApplyOrder_DropsUnknownAndAppendsMissing(t *testing.T) {
	original := []domain.Candidate{{ProductID: 1}, {ProductID: 2}, {ProductID: 3}, {ProductID: 4}}

	got := applyOrder(original, []uint64{3, 99, 1, 3}, 10)
	var order []uint64
	for _, c := range got {
		order = append(order, c.ProductID)
	}
	assert.Equal(t, []uint64{3, 1, 2, 4}, order)

	assert.Len(t, applyOrder(original, []uint64{4, 3, 2, 1}, 2), 2)
}

func TestSmartRecommendations_RerankApplied(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100), product(2, 7, 100), product(3, 7, 100), product(4, 7, 100))
	f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{7}}
	rr := &fakeReranker{order: []uint64{4, 42, 2}}
	f.reranker = rr

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rr.calls)
	assert.Equal(t, []uint64{4, 2, 1}, ids(recs))
}

func TestSmartRecommendations_RerankSkippedForSmallPools(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100), product(2, 7, 100))
	f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{7}}
	rr := &fakeReranker{order: []uint64{2, 1}}
	f.reranker = rr

	recs, err := f.service().GetSmartRecommendations(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, rr.calls)
	assert.Equal(t, []uint64{1, 2}, ids(recs))
}

func TestSmartRecommendations_RerankFallbacks(t *testing.T) {
	tests := []struct {
		name string
		rr   *fakeReranker
	}{
		{"error", &fakeReranker{err: errors.New("bad gateway")}},
		{"empty", &fakeReranker{}},
		{"timeout", &fakeReranker{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.catalog = newCatalog(product(1, 7, 100), product(2, 7, 100), product(3, 7, 100))
			f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{7}}
			f.reranker = tt.rr

			s := f.service()
			s.cfg.RerankTimeout = 20 * time.Millisecond

			recs, err := s.GetSmartRecommendations(context.Background(), 1, 10)
			require.NoError(t, err)
			assert.Equal(t, []uint64{1, 2, 3}, ids(recs))
		})
	}
}

func TestSmartRecommendations_Cached(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100))
	f.prefs.pref = &domain.UserPreference{PreferredCategoryIDs: []uint64{7}}
	f.store = cache.NewMemory()
	s := f.service()

	first, err := s.GetSmartRecommendations(context.Background(), 1, 5)
	require.NoError(t, err)
	second, err := s.GetSmartRecommendations(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.catalog.searches)
}

func TestFrequentlyBoughtTogether(t *testing.T) {
	f := newFixture()
	f.catalog = newCatalog(product(1, 7, 100), product(2, 8, 50), product(3, 9, 20), product(4, 7, 80), product(5, 7, 70))
	f.co.counts = []domain.ProductCount{{ProductID: 3, Count: 12}, {ProductID: 2, Count: 4}, {ProductID: 1, Count: 99}}

	recs, err := f.service().GetFrequentlyBoughtTogether(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 2, 4}, ids(recs))
	assert.Equal(t, 100.0, recs[0].Score)
	assert.Equal(t, 70.0, recs[1].Score)
	assert.Equal(t, 20.0, recs[2].Score)
}

func TestFrequentlyBoughtTogether_UnknownProduct(t *testing.T) {
	f := newFixture()
	_, err := f.service().GetFrequentlyBoughtTogether(context.Background(), 404, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
