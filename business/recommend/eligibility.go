package recommend

import (
	"context"

	"smartCart/domain"
)

// EligibilityChecker decides if a product may be recommended to a user
// (stock, visibility, regional availability).
type EligibilityChecker interface {
	IsEligible(ctx context.Context, userID uint, p domain.Product) bool
}

// ActiveStockEligibility allows active products that are in stock.
type ActiveStockEligibility struct{}

func (ActiveStockEligibility) IsEligible(_ context.Context, _ uint, p domain.Product) bool {
	return p.IsActive && p.Stock > 0
}
