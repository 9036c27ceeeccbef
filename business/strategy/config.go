package strategy

import "time"

type Config struct {
	// money values are major units
	FreeShippingThreshold float64
	GiftThreshold         float64
	PushWindow            float64
	FillerBuffer          float64
	FillerSmallBuffer     float64
	RiskFloor             float64

	LowStockThreshold int64
	MinRating         float64
	MinReviews        int

	ProductsPerStrategy int
	MaxResults          int
	CacheTTL            time.Duration
}

const (
	defaultFreeShipping        = 499
	defaultGift                = 999
	defaultPushWindow          = 300
	defaultFillerBuffer        = 50
	defaultFillerSmallBuffer   = 20
	defaultRiskFloor           = 2000
	defaultLowStockThreshold   = 5
	defaultMinRating           = 4.2
	defaultMinReviews          = 1
	defaultProductsPerStrategy = 3
	defaultMaxResults          = 3
	defaultCacheTTL            = 60 * time.Second
)

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: defaultFreeShipping,
		GiftThreshold:         defaultGift,
		PushWindow:            defaultPushWindow,
		FillerBuffer:          defaultFillerBuffer,
		FillerSmallBuffer:     defaultFillerSmallBuffer,
		RiskFloor:             defaultRiskFloor,

		LowStockThreshold: defaultLowStockThreshold,
		MinRating:         defaultMinRating,
		MinReviews:        defaultMinReviews,

		ProductsPerStrategy: defaultProductsPerStrategy,
		MaxResults:          defaultMaxResults,
		CacheTTL:            defaultCacheTTL,
	}
}

// confidence per generator; threshold push is derived from the shortfall
const (
	confidenceBundle       = 0.7
	confidenceScarcity     = 0.6
	confidenceSocialProof  = 0.5
	confidenceCompleteLook = 0.55
	confidenceRisk         = 0.45

	minPushConfidence = 0.1
	maxPushConfidence = 0.95

	minBundleDiscount  = 5.0
	maxBundleDiscount  = 15.0
	bundleDiscountRate = 0.10
)
