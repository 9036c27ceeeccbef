package recommend

import (
	"math"

	"smartCart/domain"
)

// score is the rule-weighted fusion score of a merged candidate. It depends
// only on the candidate's reason set and product fields, so pool evaluation
// order never changes it.
func (s *Service) score(c domain.Candidate, pref domain.UserPreference) float64 {
	score := 0.0
	if c.HasReason(domain.ReasonRecentlyViewed) {
		score += s.cfg.WeightViewed
	}
	if c.HasReason(domain.ReasonCategoryAffinity) {
		score += s.cfg.WeightAffinity
	}
	if c.HasReason(domain.ReasonTrending) {
		score += s.cfg.WeightTrending
	}
	score += s.discountBonus(c)
	if pref.PrefersBrand(c.Brand) {
		score += s.cfg.BrandBonus
	}
	if pref.PriceSensitivity == domain.PriceSensitivityHigh && c.Price > s.cfg.HighTicketPrice {
		score -= s.cfg.HighTicketPenalty
	}
	return score
}

func (s *Service) scoreFBT(c domain.Candidate, coPurchases int64) float64 {
	score := 0.0
	if c.HasReason(domain.ReasonCoPurchase) {
		score += s.cfg.WeightCoPurchase + math.Min(s.cfg.CoPurchaseCap, s.cfg.CoPurchasePerHit*float64(coPurchases))
	}
	if c.HasReason(domain.ReasonSimilarItem) {
		score += s.cfg.WeightSimilarItem
	}
	return score + s.discountBonus(c)
}

// discountBonus grants one point per DiscountStep of markdown, capped.
func (s *Service) discountBonus(c domain.Candidate) float64 {
	if c.Discount <= 0 || s.cfg.DiscountStep <= 0 {
		return 0
	}
	return math.Min(s.cfg.DiscountCap, math.Floor(c.Discount/s.cfg.DiscountStep))
}

// rankCandidates returns the top limit candidates by score, ties broken by
// ascending product id (simple selection, pools are small).
func rankCandidates(cands []domain.Candidate, limit int) []domain.Candidate {
	list := make([]domain.Candidate, len(cands))
	copy(list, cands)

	if limit > len(list) {
		limit = len(list)
	}
	for i := 0; i < limit; i++ {
		best := i
		for j := i + 1; j < len(list); j++ {
			if better(list[j], list[best]) {
				best = j
			}
		}
		list[i], list[best] = list[best], list[i]
	}
	return list[:limit]
}

func better(a, b domain.Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ProductID < b.ProductID
}
