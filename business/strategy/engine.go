package strategy

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/result"
	"smartCart/pkg/trace"
)

type Catalog interface {
	SearchProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
}

type ComplementReader interface {
	// Complements maps each given category to its complementary categories.
	Complements(ctx context.Context, categoryIDs []uint64) (map[uint64][]uint64, error)
}

type TrendingReader interface {
	TopTrending(ctx context.Context, limit int) ([]domain.ProductCount, error)
}

type PromotionReader interface {
	ActiveGroups(ctx context.Context, at time.Time) ([]domain.PromoGroup, error)
}

type Engine struct {
	catalog     Catalog
	complements ComplementReader
	trending    TrendingReader
	promotions  PromotionReader
	cache       cache.Store
	cfg         Config
	now         func() time.Time
}

// NewEngine wires the strategy engine. trending, promotions and store may be nil.
func NewEngine(
	catalog Catalog,
	complements ComplementReader,
	trending TrendingReader,
	promotions PromotionReader,
	store cache.Store,
	cfg Config,
) *Engine {
	return &Engine{
		catalog:     catalog,
		complements: complements,
		trending:    trending,
		promotions:  promotions,
		cache:       store,
		cfg:         cfg,
		now:         time.Now,
	}
}

type generator struct {
	name domain.StrategyName
	run  func(ctx context.Context, snap domain.CartSnapshot) result.Result[[]domain.StrategyResult]
}

func (e *Engine) generators() []generator {
	return []generator{
		{domain.StrategyThresholdPush, e.thresholdPush},
		{domain.StrategyBundleDiscount, e.bundleDiscount},
		{domain.StrategyCompleteTheLook, e.completeTheLook},
		{domain.StrategyRiskReassurance, e.riskReassurance},
		{domain.StrategyScarcity, e.scarcity},
		{domain.StrategySocialProof, e.socialProof},
	}
}

// strategyCacheKey covers every snapshot field a generator reads: value, size
// and the category and product sets.
func strategyCacheKey(snap domain.CartSnapshot) string {
	h := fnv.New64a()
	for _, id := range slices.Sorted(slices.Values(snap.CategoryIDs)) {
		fmt.Fprintf(h, "c%d,", id)
	}
	for _, id := range slices.Sorted(slices.Values(snap.ProductIDs)) {
		fmt.Fprintf(h, "p%d,", id)
	}
	return fmt.Sprintf("strategy:user:%d:v%d:n%d:%x", snap.UserID, snap.CartValueMinorUnits, snap.ItemCount, h.Sum64())
}

// GetStrategicRecommendations runs every generator against the snapshot and
// returns at most MaxResults results in priority order.
func (e *Engine) GetStrategicRecommendations(
	ctx context.Context,
	userID uint,
	snap domain.CartSnapshot,
) ([]domain.StrategyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	snap.UserID = userID

	key := strategyCacheKey(snap)
	if e.cache != nil {
		cached, ok, err := cache.GetJSON[[]domain.StrategyResult](ctx, e.cache, key)
		if err != nil {
			logger.Warn("strategy cache read failed", "user_id", userID, "error", err)
		} else if ok {
			metrics.CacheHit("strategies")
			return cached, nil
		}
		metrics.CacheMiss("strategies")
	}

	var all []domain.StrategyResult
	for _, g := range e.generators() {
		r := g.run(ctx, snap)
		if !r.IsOk() {
			metrics.StrategyGeneratorFailures.WithLabelValues(string(g.name)).Inc()
			logger.Warn("strategy generator failed",
				"trace_id", trace.TraceIDFromContext(ctx),
				"strategy", g.name,
				"user_id", userID,
				"error", r.Err,
			)
			continue
		}
		all = append(all, r.Value...)
	}

	out := Rank(all, e.cfg.MaxResults)
	for _, r := range out {
		metrics.StrategiesServed.WithLabelValues(string(r.Strategy)).Inc()
	}

	logger.Debug("strategies_ranked",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", userID,
		"generated", len(all),
		"returned", len(out),
	)

	if e.cache != nil {
		if err := cache.SetJSON(ctx, e.cache, key, out, e.cfg.CacheTTL); err != nil {
			logger.Warn("strategy cache write failed", "user_id", userID, "error", err)
		}
	}

	return out, nil
}
