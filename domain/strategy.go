package domain

type StrategyName string

const (
	StrategyThresholdPush   StrategyName = "THRESHOLD_PUSH"
	StrategyBundleDiscount  StrategyName = "BUNDLE_DISCOUNT"
	StrategyCompleteTheLook StrategyName = "COMPLETE_THE_LOOK"
	StrategyRiskReassurance StrategyName = "RISK_REASSURANCE"
	StrategyScarcity        StrategyName = "SCARCITY"
	StrategySocialProof     StrategyName = "SOCIAL_PROOF"
)

// Priority is the fixed presentation order; lower wins.
func (s StrategyName) Priority() int {
	switch s {
	case StrategyThresholdPush:
		return 0
	case StrategyBundleDiscount:
		return 1
	case StrategyScarcity:
		return 2
	case StrategySocialProof:
		return 3
	case StrategyCompleteTheLook:
		return 4
	case StrategyRiskReassurance:
		return 5
	}
	return 99
}

type StrategyProduct struct {
	ID     uint64  `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

type ThresholdDetail struct {
	Name         string  `json:"name"`
	Threshold    float64 `json:"threshold"`
	CurrentValue float64 `json:"current_value"`
	Difference   float64 `json:"difference"`
}

type BundleDetail struct {
	BundleItems     []uint64 `json:"bundle_items"`
	DiscountPercent float64  `json:"discount_percent"`
}

type StrategyResult struct {
	Strategy       StrategyName      `json:"strategy"`
	Message        string            `json:"message"`
	Products       []StrategyProduct `json:"products"`
	ExpectedUplift float64           `json:"expected_uplift"`
	Confidence     float64           `json:"confidence"`

	Threshold *ThresholdDetail `json:"threshold,omitempty"`
	Bundle    *BundleDetail    `json:"bundle,omitempty"`
}

func ToStrategyProduct(p Product, reason string) StrategyProduct {
	return StrategyProduct{
		ID:     p.ID,
		Title:  p.ProductName,
		Price:  p.Price(),
		Reason: reason,
	}
}
