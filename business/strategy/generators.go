package strategy

import (
	"context"
	"fmt"
	"math"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/result"
)

type strategies = result.Result[[]domain.StrategyResult]

func none() strategies {
	return result.Ok[[]domain.StrategyResult](nil)
}

func one(r domain.StrategyResult) strategies {
	return result.Ok([]domain.StrategyResult{r})
}

func toStrategyProducts(products []domain.Product, reason string) []domain.StrategyProduct {
	out := make([]domain.StrategyProduct, 0, len(products))
	for _, p := range products {
		out = append(out, domain.ToStrategyProduct(p, reason))
	}
	return out
}

// expectedUplift estimates added order value as the mean product price
// weighted by how likely the shopper is to act on it.
func expectedUplift(products []domain.Product, confidence float64) float64 {
	if len(products) == 0 {
		return 0
	}
	var sum float64
	for _, p := range products {
		sum += p.Price()
	}
	return math.Round(sum/float64(len(products))*confidence*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// thresholds lists the push targets in minor units: free shipping, gift and
// any active promotional unlock.
func (e *Engine) thresholds(ctx context.Context) ([]domain.NamedThreshold, error) {
	out := []domain.NamedThreshold{
		{Name: "free_shipping", Minor: domain.ToMinor(e.cfg.FreeShippingThreshold)},
		{Name: "gift", Minor: domain.ToMinor(e.cfg.GiftThreshold)},
	}
	if e.promotions == nil {
		return out, nil
	}
	now := e.now()
	groups, err := e.promotions.ActiveGroups(ctx, now)
	if err != nil {
		return out, err
	}
	for _, g := range groups {
		if g.ActiveAt(now) {
			out = append(out, domain.NamedThreshold{Name: "promo:" + g.Name, Minor: domain.ToMinor(g.UnlockThreshold)})
		}
	}
	return out, nil
}

func thresholdMessage(name string, shortfall float64) string {
	switch name {
	case "free_shipping":
		return fmt.Sprintf("Add %.2f more to get free shipping", shortfall)
	case "gift":
		return fmt.Sprintf("Add %.2f more to unlock a free gift", shortfall)
	}
	return fmt.Sprintf("Add %.2f more to unlock %s", shortfall, name)
}

func (e *Engine) thresholdPush(ctx context.Context, snap domain.CartSnapshot) strategies {
	named, err := e.thresholds(ctx)
	if err != nil {
		logger.Warn("promo thresholds unavailable", "user_id", snap.UserID, "error", err)
	}

	window := domain.ToMinor(e.cfg.PushWindow)
	var out []domain.StrategyResult
	for _, th := range named {
		shortfallMinor := th.Minor - snap.CartValueMinorUnits
		if shortfallMinor <= 0 || shortfallMinor > window {
			continue
		}
		shortfall := domain.FromMinor(shortfallMinor)

		fillers, err := e.catalog.SearchProducts(ctx, domain.ProductQuery{
			MinPrice:           math.Max(0, shortfall-e.cfg.FillerBuffer),
			MaxPrice:           shortfall + e.cfg.FillerSmallBuffer,
			ExcludeCategoryIDs: snap.CategoryIDs,
			ExcludeProductIDs:  snap.ProductIDs,
			InStockOnly:        true,
			Limit:              e.cfg.ProductsPerStrategy,
		})
		if err != nil {
			metrics.StrategyGeneratorFailures.WithLabelValues(string(domain.StrategyThresholdPush)).Inc()
			logger.Warn("threshold filler search failed",
				"user_id", snap.UserID,
				"threshold", th.Name,
				"error", err,
			)
			continue
		}
		if len(fillers) == 0 {
			continue
		}

		confidence := clamp(1-shortfall/e.cfg.PushWindow, minPushConfidence, maxPushConfidence)
		out = append(out, domain.StrategyResult{
			Strategy:       domain.StrategyThresholdPush,
			Message:        thresholdMessage(th.Name, shortfall),
			Products:       toStrategyProducts(fillers, "closes the gap to "+th.Name),
			ExpectedUplift: expectedUplift(fillers, confidence),
			Confidence:     confidence,
			Threshold: &domain.ThresholdDetail{
				Name:         th.Name,
				Threshold:    domain.FromMinor(th.Minor),
				CurrentValue: domain.FromMinor(snap.CartValueMinorUnits),
				Difference:   shortfall,
			},
		})
	}
	return result.Ok(out)
}

// BundleDiscountPercent is min(15, max(5, 10% of the bundle value)).
func BundleDiscountPercent(bundleValue float64) float64 {
	return math.Min(maxBundleDiscount, math.Max(minBundleDiscount, bundleDiscountRate*bundleValue))
}

func (e *Engine) bundleDiscount(ctx context.Context, snap domain.CartSnapshot) strategies {
	if snap.ItemCount != 1 || len(snap.CategoryIDs) != 1 {
		return none()
	}
	category := snap.CategoryIDs[0]

	comps, err := e.complements.Complements(ctx, snap.CategoryIDs)
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("load complements: %w", err))
	}

	q := domain.ProductQuery{
		ExcludeProductIDs: snap.ProductIDs,
		InStockOnly:       true,
		Limit:             2,
	}
	if targets := comps[category]; len(targets) > 0 {
		q.CategoryIDs = targets
	} else {
		q.ExcludeCategoryIDs = snap.CategoryIDs
	}

	products, err := e.catalog.SearchProducts(ctx, q)
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("search bundle items: %w", err))
	}
	if len(products) == 0 {
		return none()
	}

	bundleValue := domain.FromMinor(snap.CartValueMinorUnits)
	items := append([]uint64(nil), snap.ProductIDs...)
	for _, p := range products {
		bundleValue += p.Price()
		items = append(items, p.ID)
	}
	discount := BundleDiscountPercent(bundleValue)

	return one(domain.StrategyResult{
		Strategy:       domain.StrategyBundleDiscount,
		Message:        fmt.Sprintf("Bundle these together and save %.0f%%", discount),
		Products:       toStrategyProducts(products, "pairs with your item"),
		ExpectedUplift: expectedUplift(products, confidenceBundle),
		Confidence:     confidenceBundle,
		Bundle: &domain.BundleDetail{
			BundleItems:     items,
			DiscountPercent: discount,
		},
	})
}

func (e *Engine) completeTheLook(ctx context.Context, snap domain.CartSnapshot) strategies {
	if len(snap.CategoryIDs) == 0 {
		return none()
	}

	comps, err := e.complements.Complements(ctx, snap.CategoryIDs)
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("load complements: %w", err))
	}

	var products []domain.Product
	seen := map[uint64]bool{}
	for _, cat := range snap.CategoryIDs {
		for _, target := range comps[cat] {
			if snap.HasCategory(target) || seen[target] {
				continue
			}
			seen[target] = true

			found, err := e.catalog.SearchProducts(ctx, domain.ProductQuery{
				CategoryIDs:       []uint64{target},
				ExcludeProductIDs: snap.ProductIDs,
				InStockOnly:       true,
				Limit:             e.cfg.ProductsPerStrategy,
			})
			if err != nil {
				return result.Fail[[]domain.StrategyResult](fmt.Errorf("search category %d: %w", target, err))
			}
			products = append(products, found...)
			if len(products) >= e.cfg.ProductsPerStrategy {
				break
			}
		}
		if len(products) >= e.cfg.ProductsPerStrategy {
			break
		}
	}
	if len(products) == 0 {
		return none()
	}
	if len(products) > e.cfg.ProductsPerStrategy {
		products = products[:e.cfg.ProductsPerStrategy]
	}

	return one(domain.StrategyResult{
		Strategy:       domain.StrategyCompleteTheLook,
		Message:        "Complete the look with these",
		Products:       toStrategyProducts(products, "goes with what's in your cart"),
		ExpectedUplift: expectedUplift(products, confidenceCompleteLook),
		Confidence:     confidenceCompleteLook,
	})
}

func (e *Engine) riskReassurance(ctx context.Context, snap domain.CartSnapshot) strategies {
	if domain.FromMinor(snap.CartValueMinorUnits) <= e.cfg.RiskFloor {
		return none()
	}

	avg := snap.AverageItemPrice()
	products, err := e.catalog.SearchProducts(ctx, domain.ProductQuery{
		MinPrice:           avg * 0.5,
		MaxPrice:           avg * 1.5,
		ExcludeProductIDs:  snap.ProductIDs,
		MinRating:          e.cfg.MinRating,
		MinReviews:         e.cfg.MinReviews,
		ReturnEligibleOnly: true,
		InStockOnly:        true,
		Limit:              e.cfg.ProductsPerStrategy,
	})
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("search trusted products: %w", err))
	}
	if len(products) == 0 {
		return none()
	}

	return one(domain.StrategyResult{
		Strategy:       domain.StrategyRiskReassurance,
		Message:        "Top rated and easy to return",
		Products:       toStrategyProducts(products, "highly rated, free returns"),
		ExpectedUplift: expectedUplift(products, confidenceRisk),
		Confidence:     confidenceRisk,
	})
}

func (e *Engine) scarcity(ctx context.Context, snap domain.CartSnapshot) strategies {
	products, err := e.catalog.SearchProducts(ctx, domain.ProductQuery{
		ExcludeCategoryIDs: snap.CategoryIDs,
		ExcludeProductIDs:  snap.ProductIDs,
		MaxStock:           e.cfg.LowStockThreshold,
		InStockOnly:        true,
		Limit:              e.cfg.ProductsPerStrategy,
	})
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("search low stock: %w", err))
	}
	if len(products) == 0 {
		return none()
	}

	out := make([]domain.StrategyProduct, 0, len(products))
	for _, p := range products {
		out = append(out, domain.ToStrategyProduct(p, fmt.Sprintf("only %d left", p.Stock)))
	}

	return one(domain.StrategyResult{
		Strategy:       domain.StrategyScarcity,
		Message:        "Almost gone, grab them while they last",
		Products:       out,
		ExpectedUplift: expectedUplift(products, confidenceScarcity),
		Confidence:     confidenceScarcity,
	})
}

func (e *Engine) socialProof(ctx context.Context, snap domain.CartSnapshot) strategies {
	if e.trending == nil {
		return none()
	}

	// over-fetch, cart categories are filtered afterwards
	top, err := e.trending.TopTrending(ctx, e.cfg.ProductsPerStrategy*4)
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("load trending: %w", err))
	}
	if len(top) == 0 {
		return none()
	}

	ids := make([]uint64, 0, len(top))
	for _, t := range top {
		ids = append(ids, t.ProductID)
	}
	found, err := e.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return result.Fail[[]domain.StrategyResult](fmt.Errorf("load trending products: %w", err))
	}
	byID := make(map[uint64]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	var products []domain.Product
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive || p.Stock <= 0 || snap.HasCategory(p.CategoryID) {
			continue
		}
		products = append(products, p)
		if len(products) == e.cfg.ProductsPerStrategy {
			break
		}
	}
	if len(products) == 0 {
		return none()
	}

	return one(domain.StrategyResult{
		Strategy:       domain.StrategySocialProof,
		Message:        "Popular with other shoppers right now",
		Products:       toStrategyProducts(products, "trending"),
		ExpectedUplift: expectedUplift(products, confidenceSocialProof),
		Confidence:     confidenceSocialProof,
	})
}
