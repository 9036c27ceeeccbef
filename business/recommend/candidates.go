package recommend

import (
	"context"
	"fmt"
	"sort"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/result"

	"golang.org/x/sync/errgroup"
)

type poolInput struct {
	userID   uint
	cart     domain.Cart
	pref     domain.UserPreference
	anchor   domain.Product
	poolSize int
	// co-purchase counts, written only by the co-purchase pool
	coHits map[uint64]int64
}

type pool struct {
	name  string
	build func(ctx context.Context, in poolInput) result.Result[[]domain.Candidate]
}

// buildPools runs every pool concurrently. A failing pool contributes nothing.
// The returned slice keeps the order of pools.
func (s *Service) buildPools(ctx context.Context, in poolInput, pools []pool) [][]domain.Candidate {
	results := make([]result.Result[[]domain.Candidate], len(pools))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pools {
		g.Go(func() error {
			results[i] = p.build(gctx, in)
			return nil
		})
	}
	_ = g.Wait()

	out := make([][]domain.Candidate, 0, len(pools))
	for i, r := range results {
		if !r.IsOk() {
			metrics.CandidatePoolFailures.WithLabelValues(pools[i].name).Inc()
			logger.Warn("candidate pool failed", "pool", pools[i].name, "error", r.Err)
			continue
		}
		out = append(out, r.Value)
	}
	return out
}

// mergeCandidates unions pools by product id: fields are last-writer-wins and
// reason tags are merged. Output is ordered by product id.
func mergeCandidates(pools ...[]domain.Candidate) []domain.Candidate {
	byID := map[uint64]*domain.Candidate{}
	var order []uint64

	for _, p := range pools {
		for _, c := range p {
			existing, ok := byID[c.ProductID]
			if !ok {
				cp := c
				cp.Reasons = make(map[string]struct{}, len(c.Reasons))
				for r := range c.Reasons {
					cp.Reasons[r] = struct{}{}
				}
				byID[c.ProductID] = &cp
				order = append(order, c.ProductID)
				continue
			}
			reasons := existing.Reasons
			*existing = c
			existing.Reasons = reasons
			for r := range c.Reasons {
				existing.Reasons[r] = struct{}{}
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func (s *Service) toCandidates(ctx context.Context, userID uint, products []domain.Product, exclude domain.Cart, reason string) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(products))
	for _, p := range products {
		if exclude.Contains(p.ID) || !s.eligChecker.IsEligible(ctx, userID, p) {
			continue
		}
		out = append(out, domain.NewCandidate(p, reason))
	}
	return out
}

// productsInOrder loads ids and returns them in the order given.
func (s *Service) productsInOrder(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) recentlyViewedPool(ctx context.Context, in poolInput) result.Result[[]domain.Candidate] {
	since := s.now().Add(-s.cfg.ViewedLookback)
	ids, err := s.interactions.RecentProductIDs(ctx, in.userID, domain.InteractionView, since, in.poolSize)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load viewed: %w", err))
	}
	products, err := s.productsInOrder(ctx, ids)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load viewed products: %w", err))
	}
	return result.Ok(s.toCandidates(ctx, in.userID, products, in.cart, domain.ReasonRecentlyViewed))
}

func (s *Service) categoryAffinityPool(ctx context.Context, in poolInput) result.Result[[]domain.Candidate] {
	seen := map[uint64]bool{}
	var categories []uint64
	for _, c := range append(append([]uint64(nil), in.pref.PreferredCategoryIDs...), in.cart.CategoryIDs()...) {
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		return result.Ok[[]domain.Candidate](nil)
	}

	products, err := s.catalog.SearchProducts(ctx, domain.ProductQuery{
		CategoryIDs:       categories,
		ExcludeProductIDs: in.cart.ProductIDs(),
		InStockOnly:       true,
		Limit:             in.poolSize,
	})
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("search affinity: %w", err))
	}
	return result.Ok(s.toCandidates(ctx, in.userID, products, in.cart, domain.ReasonCategoryAffinity))
}

func (s *Service) trendingPool(ctx context.Context, in poolInput) result.Result[[]domain.Candidate] {
	top, err := s.trending.TopTrending(ctx, in.poolSize)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load trending: %w", err))
	}
	ids := make([]uint64, 0, len(top))
	for _, t := range top {
		ids = append(ids, t.ProductID)
	}
	products, err := s.productsInOrder(ctx, ids)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load trending products: %w", err))
	}
	return result.Ok(s.toCandidates(ctx, in.userID, products, in.cart, domain.ReasonTrending))
}

func (s *Service) coPurchasePool(ctx context.Context, in poolInput) result.Result[[]domain.Candidate] {
	counts, err := s.coPurchases.CoPurchased(ctx, in.anchor.ID, in.poolSize)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load co-purchases: %w", err))
	}
	ids := make([]uint64, 0, len(counts))
	for _, c := range counts {
		if c.ProductID == in.anchor.ID {
			continue
		}
		ids = append(ids, c.ProductID)
		if in.coHits != nil {
			in.coHits[c.ProductID] = c.Count
		}
	}
	products, err := s.productsInOrder(ctx, ids)
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("load co-purchased products: %w", err))
	}

	return result.Ok(s.toCandidates(ctx, 0, products, domain.Cart{}, domain.ReasonCoPurchase))
}

func (s *Service) similarItemPool(ctx context.Context, in poolInput) result.Result[[]domain.Candidate] {
	products, err := s.catalog.SearchProducts(ctx, domain.ProductQuery{
		CategoryIDs:       []uint64{in.anchor.CategoryID},
		ExcludeProductIDs: []uint64{in.anchor.ID},
		InStockOnly:       true,
		Limit:             in.poolSize,
	})
	if err != nil {
		return result.Fail[[]domain.Candidate](fmt.Errorf("search similar: %w", err))
	}
	return result.Ok(s.toCandidates(ctx, 0, products, domain.Cart{}, domain.ReasonSimilarItem))
}
