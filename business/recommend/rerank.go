package recommend

import (
	"context"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
)

// rerank asks the optional re-ranker for a better order under a timeout and
// always returns at most limit candidates. Any failure keeps the original order.
func (s *Service) rerank(ctx context.Context, userID uint, ranked []domain.Candidate, limit int) []domain.Candidate {
	if s.reranker == nil || len(ranked) < s.cfg.RerankMinCandidates {
		if s.reranker != nil {
			metrics.RerankOutcomes.WithLabelValues("skipped").Inc()
		}
		return truncate(ranked, limit)
	}

	items := make([]RerankItem, 0, len(ranked))
	for _, c := range ranked {
		items = append(items, RerankItem{
			ProductID: c.ProductID,
			Title:     c.Title,
			Price:     c.Price,
			Reasons:   c.SortedReasons(),
			Score:     c.Score,
		})
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.RerankTimeout)
	defer cancel()

	order, err := s.reranker.Rerank(rctx, userID, items)
	if err != nil {
		metrics.RerankOutcomes.WithLabelValues("fallback").Inc()
		logger.Warn("rerank failed, keeping original order", "user_id", userID, "error", err)
		return truncate(ranked, limit)
	}
	if len(order) == 0 {
		metrics.RerankOutcomes.WithLabelValues("fallback").Inc()
		return truncate(ranked, limit)
	}

	metrics.RerankOutcomes.WithLabelValues("applied").Inc()
	return applyOrder(ranked, order, limit)
}

// applyOrder adopts order for known ids only: unknown or repeated ids are
// dropped, known ids the order omitted are appended in their original order.
func applyOrder(original []domain.Candidate, order []uint64, limit int) []domain.Candidate {
	known := make(map[uint64]int, len(original))
	for i, c := range original {
		known[c.ProductID] = i
	}

	used := make(map[uint64]bool, len(original))
	out := make([]domain.Candidate, 0, len(original))
	for _, id := range order {
		idx, ok := known[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, original[idx])
	}
	for _, c := range original {
		if !used[c.ProductID] {
			out = append(out, c)
		}
	}
	return truncate(out, limit)
}

func truncate(cands []domain.Candidate, limit int) []domain.Candidate {
	if limit >= 0 && len(cands) > limit {
		return cands[:limit]
	}
	return cands
}
