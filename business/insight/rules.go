package insight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/result"
)

type ruleResult = result.Result[[]domain.CartSignal]

var cartActivity = []domain.InteractionType{
	domain.InteractionCartAdd,
	domain.InteractionCartRemove,
	domain.InteractionCartUpdate,
}

var removals = []domain.InteractionType{domain.InteractionCartRemove}

// thresholds lists the named value thresholds in minor units, promotional
// unlock thresholds included when a promotion reader is configured.
func (s *Service) thresholds(ctx context.Context, now time.Time) ([]domain.NamedThreshold, error) {
	out := []domain.NamedThreshold{
		{Name: "free_shipping", Minor: domain.ToMinor(s.cfg.FreeShippingThreshold)},
		{Name: "gift", Minor: domain.ToMinor(s.cfg.GiftThreshold)},
	}
	if s.promotions == nil {
		return out, nil
	}

	groups, err := s.promotions.ActiveGroups(ctx, now)
	if err != nil {
		return out, fmt.Errorf("load promo groups: %w", err)
	}
	for _, g := range groups {
		if !g.ActiveAt(now) {
			continue
		}
		out = append(out, domain.NamedThreshold{
			Name:  "promo:" + g.Name,
			Minor: domain.ToMinor(g.UnlockThreshold),
		})
	}
	return out, nil
}

func (s *Service) thresholdNear(ctx context.Context, snap domain.CartSnapshot, now time.Time) ruleResult {
	named, err := s.thresholds(ctx, now)
	if err != nil {
		logger.Warn("promo thresholds unavailable", "user_id", snap.UserID, "error", err)
	}

	window := domain.ToMinor(s.cfg.Window)
	high := domain.ToMinor(s.cfg.HighWindow)

	var out []domain.CartSignal
	for _, th := range named {
		gap := th.Minor - snap.CartValueMinorUnits
		if gap <= 0 || gap > window {
			continue
		}
		severity := domain.SeverityMedium
		if gap <= high {
			severity = domain.SeverityHigh
		}
		out = append(out, domain.NewSignal(severity,
			fmt.Sprintf("cart is %.2f away from %s", domain.FromMinor(gap), th.Name),
			domain.ThresholdMetadata{Name: th.Name, ThresholdMinor: th.Minor, GapMinor: gap},
		))
	}
	return result.Ok(out)
}

func bundleOpportunity(cart domain.Cart) ruleResult {
	if cart.TotalQuantity() != 1 {
		return result.Ok[[]domain.CartSignal](nil)
	}
	item := cart.Items[0]
	for _, it := range cart.Items {
		if it.Quantity > 0 {
			item = it
			break
		}
	}
	return result.Ok([]domain.CartSignal{domain.NewSignal(domain.SeverityLow,
		"single item in cart, a bundle could add value",
		domain.BundleMetadata{ProductID: item.ProductID, CategoryID: item.CategoryID},
	)})
}

func (s *Service) hesitation(ctx context.Context, userID uint, now time.Time) ruleResult {
	last, err := s.interactions.LatestEvent(ctx, userID, cartActivity)
	if errors.Is(err, domain.ErrNotFound) {
		return result.Ok[[]domain.CartSignal](nil)
	}
	if err != nil {
		return result.Fail[[]domain.CartSignal](fmt.Errorf("load last cart activity: %w", err))
	}

	idle := now.Sub(last.CreatedAt)
	var severity domain.Severity
	switch {
	case idle > s.cfg.HesitationHigh:
		severity = domain.SeverityHigh
	case idle > s.cfg.HesitationMedium:
		severity = domain.SeverityMedium
	case idle > s.cfg.HesitationLow:
		severity = domain.SeverityLow
	default:
		return result.Ok[[]domain.CartSignal](nil)
	}

	minutes := int(idle / time.Minute)
	return result.Ok([]domain.CartSignal{domain.NewSignal(severity,
		fmt.Sprintf("no cart activity for %d minutes", minutes),
		domain.HesitationMetadata{IdleMinutes: minutes, LastActivityAt: last.CreatedAt},
	)})
}

func (s *Service) priceSensitivity(ctx context.Context, snap domain.CartSnapshot, now time.Time) ruleResult {
	events, err := s.interactions.ListEvents(ctx, snap.UserID, removals, now.Add(-s.cfg.RemovalLookback))
	if err != nil {
		return result.Fail[[]domain.CartSignal](fmt.Errorf("load removals: %w", err))
	}
	if len(events) < s.cfg.MinRemovals {
		return result.Ok[[]domain.CartSignal](nil)
	}

	avgCart := snap.AverageItemPrice()
	if avgCart <= 0 {
		return result.Ok[[]domain.CartSignal](nil)
	}

	var sum float64
	for _, e := range events {
		sum += e.Price
	}
	avgRemoved := sum / float64(len(events))
	if avgRemoved <= s.cfg.PriceSensitivityRatio*avgCart {
		return result.Ok[[]domain.CartSignal](nil)
	}

	return result.Ok([]domain.CartSignal{domain.NewSignal(domain.SeverityMedium,
		fmt.Sprintf("removed items averaged %.2f against %.2f in cart", avgRemoved, avgCart),
		domain.PriceSensitivityMetadata{
			AvgRemovedPrice: avgRemoved,
			AvgCartPrice:    avgCart,
			Removals:        len(events),
		},
	)})
}

func (s *Service) repeatRemoval(ctx context.Context, userID uint, cart domain.Cart, now time.Time) ruleResult {
	if len(cart.Items) == 0 {
		return result.Ok[[]domain.CartSignal](nil)
	}

	events, err := s.interactions.ListEvents(ctx, userID, removals, now.Add(-s.cfg.RemovalLookback))
	if err != nil {
		return result.Fail[[]domain.CartSignal](fmt.Errorf("load removals: %w", err))
	}

	counts := make(map[uint64]int, len(events))
	for _, e := range events {
		counts[e.ProductID]++
	}

	productIDs := make([]uint64, 0, len(counts))
	for pid, n := range counts {
		if n >= s.cfg.RepeatRemovalMin && cart.Contains(pid) {
			productIDs = append(productIDs, pid)
		}
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	out := make([]domain.CartSignal, 0, len(productIDs))
	for _, pid := range productIDs {
		out = append(out, domain.NewSignal(domain.SeverityMedium,
			fmt.Sprintf("product %d removed %d times this week and added back", pid, counts[pid]),
			domain.RepeatRemovalMetadata{ProductID: pid, Removals: counts[pid]},
		))
	}
	return result.Ok(out)
}

func (s *Service) giftEligible(snap domain.CartSnapshot) ruleResult {
	gift := domain.ToMinor(s.cfg.GiftThreshold)
	window := domain.ToMinor(s.cfg.Window)
	value := snap.CartValueMinorUnits

	meta := domain.GiftMetadata{ThresholdMinor: gift, CartValueMinor: value}
	switch {
	case value >= gift:
		meta.Reached = true
		return result.Ok([]domain.CartSignal{domain.NewSignal(domain.SeverityHigh,
			"cart qualifies for a free gift", meta)})
	case gift-value <= window:
		return result.Ok([]domain.CartSignal{domain.NewSignal(domain.SeverityMedium,
			fmt.Sprintf("%.2f more unlocks a free gift", domain.FromMinor(gift-value)), meta)})
	}
	return result.Ok[[]domain.CartSignal](nil)
}
