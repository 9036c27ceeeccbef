package domain

import "sort"

const (
	ReasonRecentlyViewed   = "recently viewed"
	ReasonCategoryAffinity = "category affinity"
	ReasonTrending         = "trending"
	ReasonCoPurchase       = "frequently bought together"
	ReasonSimilarItem      = "similar item"
)

// Candidate is a product proposed by one or more candidate pools.
type Candidate struct {
	ProductID  uint64
	Title      string
	Price      float64
	Discount   float64
	Brand      string
	CategoryID uint64
	Reasons    map[string]struct{}
	Score      float64
}

func NewCandidate(p Product, reason string) Candidate {
	return Candidate{
		ProductID:  p.ID,
		Title:      p.ProductName,
		Price:      p.Price(),
		Discount:   p.DiscountAmount(),
		Brand:      p.Brand,
		CategoryID: p.CategoryID,
		Reasons:    map[string]struct{}{reason: {}},
	}
}

func (c Candidate) HasReason(reason string) bool {
	_, ok := c.Reasons[reason]
	return ok
}

// SortedReasons returns the reason tags in a stable order.
func (c Candidate) SortedReasons() []string {
	out := make([]string, 0, len(c.Reasons))
	for r := range c.Reasons {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Recommendation is the ranked, exposed form of a Candidate.
type Recommendation struct {
	ProductID uint64   `json:"product_id"`
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	Reasons   []string `json:"reasons"`
	Score     float64  `json:"score"`
}

func (c Candidate) ToRecommendation() Recommendation {
	return Recommendation{
		ProductID: c.ProductID,
		Title:     c.Title,
		Price:     c.Price,
		Reasons:   c.SortedReasons(),
		Score:     c.Score,
	}
}
