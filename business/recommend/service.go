package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/trace"
)

// ---- Repository interfaces ----

type CartReader interface {
	GetCart(ctx context.Context, userID uint) (domain.Cart, error)
}

type Catalog interface {
	GetByID(ctx context.Context, id uint64) (domain.Product, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	SearchProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
}

type InteractionReader interface {
	// RecentProductIDs returns distinct product ids, most recent first.
	RecentProductIDs(ctx context.Context, userID uint, eventType domain.InteractionType, since time.Time, limit int) ([]uint64, error)
}

type PreferenceReader interface {
	// GetPreference returns domain.ErrNotFound when the user has no profile.
	GetPreference(ctx context.Context, userID uint) (domain.UserPreference, error)
}

type TrendingReader interface {
	TopTrending(ctx context.Context, limit int) ([]domain.ProductCount, error)
}

type CoPurchaseReader interface {
	CoPurchased(ctx context.Context, productID uint64, limit int) ([]domain.ProductCount, error)
}

// RerankItem is the lightweight view of a candidate sent to the re-ranker.
type RerankItem struct {
	ProductID uint64   `json:"product_id"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Reasons   []string `json:"reasons"`
	Score     float64  `json:"score"`
}

// Reranker returns a preferred ordering of product ids.
type Reranker interface {
	Rerank(ctx context.Context, userID uint, items []RerankItem) ([]uint64, error)
}

// ---- Service ----

type Service struct {
	carts        CartReader
	catalog      Catalog
	interactions InteractionReader
	preferences  PreferenceReader
	trending     TrendingReader
	coPurchases  CoPurchaseReader
	reranker     Reranker
	eligChecker  EligibilityChecker
	cache        cache.Store
	cfg          Config
	now          func() time.Time
}

type Deps struct {
	Carts        CartReader
	Catalog      Catalog
	Interactions InteractionReader
	Preferences  PreferenceReader
	Trending     TrendingReader
	CoPurchases  CoPurchaseReader
	// optional
	Reranker    Reranker
	Eligibility EligibilityChecker
	Cache       cache.Store
}

func NewService(deps Deps, cfg Config) *Service {
	elig := deps.Eligibility
	if elig == nil {
		elig = ActiveStockEligibility{}
	}
	return &Service{
		carts:        deps.Carts,
		catalog:      deps.Catalog,
		interactions: deps.Interactions,
		preferences:  deps.Preferences,
		trending:     deps.Trending,
		coPurchases:  deps.CoPurchases,
		reranker:     deps.Reranker,
		eligChecker:  elig,
		cache:        deps.Cache,
		cfg:          cfg,
		now:          time.Now,
	}
}

// GetSmartRecommendations fuses the viewed, affinity and trending pools into a
// ranked list of at most limit products the user does not already have in cart.
func (s *Service) GetSmartRecommendations(ctx context.Context, userID uint, limit int) ([]domain.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	defer metrics.ObserveSince(metrics.RecommendDuration, time.Now())

	limit = s.cfg.normalizeLimit(limit)
	key := fmt.Sprintf("reco:smart:%d:n%d", userID, limit)
	if recs, ok := s.cached(ctx, key); ok {
		return recs, nil
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		logger.Warn("recommend: cart unavailable, treating as empty", "user_id", userID, "error", err)
		cart = domain.Cart{UserID: userID}
	}

	pref, err := s.preferences.GetPreference(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("recommend: preference unavailable", "user_id", userID, "error", err)
		}
		pref = domain.UserPreference{UserID: userID, PriceSensitivity: domain.PriceSensitivityMedium}
	}

	in := poolInput{userID: userID, cart: cart, pref: pref, poolSize: limit * s.cfg.PoolFactor}
	pools := s.buildPools(ctx, in, []pool{
		{name: "recently_viewed", build: s.recentlyViewedPool},
		{name: "category_affinity", build: s.categoryAffinityPool},
		{name: "trending", build: s.trendingPool},
	})

	merged := mergeCandidates(pools...)
	for i := range merged {
		merged[i].Score = s.score(merged[i], pref)
	}
	ranked := rankCandidates(merged, len(merged))
	ranked = s.rerank(ctx, userID, ranked, limit)

	out := toRecommendations(ranked)

	logger.Debug("smart_recommend",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", userID,
		"limit", limit,
		"candidate_count", len(merged),
		"returned", len(out),
	)

	s.store(ctx, key, out)
	return out, nil
}

// GetFrequentlyBoughtTogether returns products co-purchased with productID,
// topped up with same-category items when co-purchase data is thin.
func (s *Service) GetFrequentlyBoughtTogether(ctx context.Context, productID uint64, limit int) ([]domain.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	limit = s.cfg.normalizeLimit(limit)
	key := fmt.Sprintf("reco:fbt:%d:n%d", productID, limit)
	if recs, ok := s.cached(ctx, key); ok {
		return recs, nil
	}

	anchor, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	in := poolInput{anchor: anchor, poolSize: limit * s.cfg.PoolFactor, coHits: map[uint64]int64{}}
	pools := s.buildPools(ctx, in, []pool{
		{name: "co_purchase", build: s.coPurchasePool},
		{name: "similar_item", build: s.similarItemPool},
	})

	merged := mergeCandidates(pools...)
	for i := range merged {
		merged[i].Score = s.scoreFBT(merged[i], in.coHits[merged[i].ProductID])
	}
	out := toRecommendations(rankCandidates(merged, limit))

	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) cached(ctx context.Context, key string) ([]domain.Recommendation, bool) {
	if s.cache == nil {
		return nil, false
	}
	recs, ok, err := cache.GetJSON[[]domain.Recommendation](ctx, s.cache, key)
	if err != nil {
		logger.Warn("recommendation cache read failed", "key", key, "error", err)
		return nil, false
	}
	if ok {
		metrics.CacheHit("recommendations")
		return recs, true
	}
	metrics.CacheMiss("recommendations")
	return nil, false
}

func (s *Service) store(ctx context.Context, key string, recs []domain.Recommendation) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, recs, s.cfg.CacheTTL); err != nil {
		logger.Warn("recommendation cache write failed", "key", key, "error", err)
	}
}

func toRecommendations(cands []domain.Candidate) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.ToRecommendation())
	}
	return out
}
