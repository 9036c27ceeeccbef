package orchestrator

import (
	"context"
	"fmt"

	"smartCart/domain"
)

// planner maps one signal to at most one auto action request. Strategies and
// recommendations are fetched lazily and at most once per cycle.
type planner struct {
	o      *Orchestrator
	userID uint
	snap   domain.CartSnapshot

	strategies []domain.StrategyResult
	recos      []domain.Recommendation
	haveStrat  bool
	haveRecos  bool
}

func (p *planner) plan(ctx context.Context, sig domain.CartSignal) (domain.AutoActionRequest, bool, error) {
	switch sig.Type {
	case domain.SignalThresholdNear:
		return p.thresholdFill(ctx, sig)
	case domain.SignalGiftEligible:
		return p.fromRecommendation(ctx, domain.ActionSuggestGift, sig.Reason, func(domain.Recommendation) bool { return true })
	case domain.SignalBundleOpportunity:
		return p.bundle(ctx, sig)
	case domain.SignalHesitation:
		return domain.AutoActionRequest{
			ActionType: domain.ActionShowReassurance,
			UserID:     p.userID,
			Reason:     sig.Reason,
			Strategy:   domain.StrategyRiskReassurance,
		}, true, nil
	case domain.SignalPriceSensitivity:
		ceiling := p.snap.AverageItemPrice()
		if meta, ok := sig.Metadata.(domain.PriceSensitivityMetadata); ok && meta.AvgCartPrice > 0 {
			ceiling = meta.AvgCartPrice
		}
		return p.fromRecommendation(ctx, domain.ActionSuggestAlternative, sig.Reason, func(r domain.Recommendation) bool {
			return r.Price <= ceiling
		})
	case domain.SignalRepeatRemoval:
		return domain.AutoActionRequest{}, false, nil
	}
	return domain.AutoActionRequest{}, false, nil
}

func (p *planner) loadStrategies(ctx context.Context) ([]domain.StrategyResult, error) {
	if p.haveStrat {
		return p.strategies, nil
	}
	out, err := p.o.strategy.GetStrategicRecommendations(ctx, p.userID, p.snap)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	p.strategies, p.haveStrat = out, true
	return out, nil
}

func (p *planner) loadRecommendations(ctx context.Context) ([]domain.Recommendation, error) {
	if p.haveRecos {
		return p.recos, nil
	}
	out, err := p.o.recos.GetSmartRecommendations(ctx, p.userID, p.o.cfg.RecommendationLimit)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	p.recos, p.haveRecos = out, true
	return out, nil
}

func (p *planner) thresholdFill(ctx context.Context, sig domain.CartSignal) (domain.AutoActionRequest, bool, error) {
	meta, _ := sig.Metadata.(domain.ThresholdMetadata)
	results, err := p.loadStrategies(ctx)
	if err != nil {
		return domain.AutoActionRequest{}, false, err
	}
	for _, r := range results {
		if r.Strategy != domain.StrategyThresholdPush || len(r.Products) == 0 {
			continue
		}
		if meta.Name != "" && (r.Threshold == nil || r.Threshold.Name != meta.Name) {
			continue
		}
		return productRequest(domain.ActionAddToCart, p.userID, r.Products[0], sig.Reason, r.Strategy), true, nil
	}
	return domain.AutoActionRequest{}, false, nil
}

func (p *planner) bundle(ctx context.Context, sig domain.CartSignal) (domain.AutoActionRequest, bool, error) {
	results, err := p.loadStrategies(ctx)
	if err != nil {
		return domain.AutoActionRequest{}, false, err
	}
	for _, r := range results {
		if r.Strategy == domain.StrategyBundleDiscount && len(r.Products) > 0 {
			return productRequest(domain.ActionSuggestBundle, p.userID, r.Products[0], sig.Reason, r.Strategy), true, nil
		}
	}
	return domain.AutoActionRequest{}, false, nil
}

func (p *planner) fromRecommendation(
	ctx context.Context,
	action domain.ActionType,
	reason string,
	accept func(domain.Recommendation) bool,
) (domain.AutoActionRequest, bool, error) {
	recos, err := p.loadRecommendations(ctx)
	if err != nil {
		return domain.AutoActionRequest{}, false, err
	}
	for _, r := range recos {
		if !accept(r) {
			continue
		}
		id, price, qty := r.ProductID, r.Price, 1
		return domain.AutoActionRequest{
			ActionType: action,
			UserID:     p.userID,
			ProductID:  &id,
			Price:      &price,
			Quantity:   &qty,
			Reason:     reason,
		}, true, nil
	}
	return domain.AutoActionRequest{}, false, nil
}

func productRequest(
	action domain.ActionType,
	userID uint,
	product domain.StrategyProduct,
	reason string,
	strategy domain.StrategyName,
) domain.AutoActionRequest {
	id, price, qty := product.ID, product.Price, 1
	return domain.AutoActionRequest{
		ActionType: action,
		UserID:     userID,
		ProductID:  &id,
		Price:      &price,
		Quantity:   &qty,
		Reason:     reason,
		Strategy:   strategy,
	}
}
