package strategy

import (
	"sort"

	"smartCart/domain"
)

// Rank orders results by strategy priority, then confidence, then expected
// uplift (both descending) and keeps at most limit.
func Rank(results []domain.StrategyResult, limit int) []domain.StrategyResult {
	out := make([]domain.StrategyResult, len(results))
	copy(out, results)

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Strategy.Priority(), out[j].Strategy.Priority()
		if pi != pj {
			return pi < pj
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ExpectedUplift > out[j].ExpectedUplift
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
