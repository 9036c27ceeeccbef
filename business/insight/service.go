package insight

import (
	"context"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/result"
	"smartCart/pkg/trace"

	"gorm.io/datatypes"
)

type CartReader interface {
	GetCart(ctx context.Context, userID uint) (domain.Cart, error)
}

type InteractionReader interface {
	// LatestEvent returns domain.ErrNotFound when the user has no event of the given types.
	LatestEvent(ctx context.Context, userID uint, types []domain.InteractionType) (domain.InteractionEvent, error)
	ListEvents(ctx context.Context, userID uint, types []domain.InteractionType, since time.Time) ([]domain.InteractionEvent, error)
}

type PromotionReader interface {
	ActiveGroups(ctx context.Context, at time.Time) ([]domain.PromoGroup, error)
}

type InsightRepository interface {
	AppendInsights(ctx context.Context, rows []domain.CartInsight) error
}

type Service struct {
	carts        CartReader
	interactions InteractionReader
	promotions   PromotionReader
	history      InsightRepository
	cache        cache.Store
	cfg          Config
	now          func() time.Time
}

// NewService wires the extractor. promotions, history and store may be nil.
func NewService(
	carts CartReader,
	interactions InteractionReader,
	promotions PromotionReader,
	history InsightRepository,
	store cache.Store,
	cfg Config,
) *Service {
	return &Service{
		carts:        carts,
		interactions: interactions,
		promotions:   promotions,
		history:      history,
		cache:        store,
		cfg:          cfg,
		now:          time.Now,
	}
}

func signalCacheKey(userID uint) string {
	return fmt.Sprintf("insight:signals:%d", userID)
}

// Snapshot derives the current CartSnapshot from the cart store.
func (s *Service) Snapshot(ctx context.Context, userID uint) (domain.CartSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("context error: %w", err)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("load cart: %w", err)
	}
	return domain.NewCartSnapshot(userID, cart), nil
}

// AnalyzeCart evaluates every signal rule against the user's cart. A rule that
// fails to load its data contributes nothing; only a cart load failure is returned.
func (s *Service) AnalyzeCart(ctx context.Context, userID uint) ([]domain.CartSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	key := signalCacheKey(userID)
	if s.cache != nil {
		cached, ok, err := cache.GetJSON[[]domain.CartSignal](ctx, s.cache, key)
		if err != nil {
			logger.Warn("signal cache read failed", "user_id", userID, "error", err)
		} else if ok {
			metrics.CacheHit("signals")
			return cached, nil
		}
		metrics.CacheMiss("signals")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	snap := domain.NewCartSnapshot(userID, cart)
	now := s.now()

	rules := []struct {
		name string
		run  func() result.Result[[]domain.CartSignal]
	}{
		{"threshold_near", func() result.Result[[]domain.CartSignal] { return s.thresholdNear(ctx, snap, now) }},
		{"bundle_opportunity", func() result.Result[[]domain.CartSignal] { return bundleOpportunity(cart) }},
		{"hesitation", func() result.Result[[]domain.CartSignal] { return s.hesitation(ctx, userID, now) }},
		{"price_sensitivity", func() result.Result[[]domain.CartSignal] { return s.priceSensitivity(ctx, snap, now) }},
		{"repeat_removal", func() result.Result[[]domain.CartSignal] { return s.repeatRemoval(ctx, userID, cart, now) }},
		{"gift_eligible", func() result.Result[[]domain.CartSignal] { return s.giftEligible(snap) }},
	}

	signals := make([]domain.CartSignal, 0, len(rules))
	for _, rule := range rules {
		r := rule.run()
		if !r.IsOk() {
			metrics.SignalRuleFailures.WithLabelValues(rule.name).Inc()
			logger.Warn("signal rule failed",
				"trace_id", trace.TraceIDFromContext(ctx),
				"rule", rule.name,
				"user_id", userID,
				"error", r.Err,
			)
			continue
		}
		signals = append(signals, r.Value...)
	}

	for _, sig := range signals {
		metrics.SignalsEmitted.WithLabelValues(string(sig.Type), string(sig.Severity)).Inc()
	}

	logger.Debug("cart_analyzed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", userID,
		"cart_value_minor", snap.CartValueMinorUnits,
		"item_count", snap.ItemCount,
		"signals", len(signals),
	)

	s.recordHistory(ctx, userID, signals)

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, signals, s.cfg.CacheTTL); err != nil {
			logger.Warn("signal cache write failed", "user_id", userID, "error", err)
		}
	}

	return signals, nil
}

// InvalidateSignals drops the cached analysis, e.g. after the cart changed.
func (s *Service) InvalidateSignals(ctx context.Context, userID uint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, signalCacheKey(userID))
}

func (s *Service) recordHistory(ctx context.Context, userID uint, signals []domain.CartSignal) {
	if s.history == nil || len(signals) == 0 {
		return
	}

	rows := make([]domain.CartInsight, 0, len(signals))
	for _, sig := range signals {
		meta, err := datatypes.NewJSONType(sig.Metadata).MarshalJSON()
		if err != nil {
			logger.Warn("encode signal metadata", "type", sig.Type, "error", err)
			continue
		}
		rows = append(rows, domain.CartInsight{
			UserID:     userID,
			SignalType: sig.Type,
			Severity:   sig.Severity,
			Reason:     sig.Reason,
			Metadata:   datatypes.JSON(meta),
		})
	}

	if err := s.history.AppendInsights(ctx, rows); err != nil {
		logger.Warn("append insight history failed", "user_id", userID, "error", err)
	}
}
