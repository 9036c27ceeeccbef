package recommend

import "time"

type Config struct {
	DefaultLimit int
	MaxLimit     int
	// each pool fetches PoolFactor * limit candidates
	PoolFactor int

	ViewedLookback time.Duration

	WeightViewed      float64
	WeightAffinity    float64
	WeightTrending    float64
	DiscountStep      float64
	DiscountCap       float64
	BrandBonus        float64
	HighTicketPenalty float64
	HighTicketPrice   float64

	WeightCoPurchase  float64
	CoPurchasePerHit  float64
	CoPurchaseCap     float64
	WeightSimilarItem float64

	RerankTimeout       time.Duration
	RerankMinCandidates int

	CacheTTL time.Duration
}

const (
	defaultLimit               = 10
	defaultMaxLimit            = 50
	defaultPoolFactor          = 3
	defaultViewedLookback      = 30 * 24 * time.Hour
	defaultWeightViewed        = 60
	defaultWeightAffinity      = 35
	defaultWeightTrending      = 25
	defaultDiscountStep        = 50
	defaultDiscountCap         = 20
	defaultBrandBonus          = 15
	defaultHighTicketPenalty   = 20
	defaultHighTicketPrice     = 1500
	defaultWeightCoPurchase    = 50
	defaultCoPurchasePerHit    = 5
	defaultCoPurchaseCap       = 50
	defaultWeightSimilarItem   = 20
	defaultRerankTimeout       = 3 * time.Second
	defaultRerankMinCandidates = 3
	defaultCacheTTL            = 10 * time.Minute
)

func DefaultConfig() Config {
	return Config{
		DefaultLimit:   defaultLimit,
		MaxLimit:       defaultMaxLimit,
		PoolFactor:     defaultPoolFactor,
		ViewedLookback: defaultViewedLookback,

		WeightViewed:      defaultWeightViewed,
		WeightAffinity:    defaultWeightAffinity,
		WeightTrending:    defaultWeightTrending,
		DiscountStep:      defaultDiscountStep,
		DiscountCap:       defaultDiscountCap,
		BrandBonus:        defaultBrandBonus,
		HighTicketPenalty: defaultHighTicketPenalty,
		HighTicketPrice:   defaultHighTicketPrice,

		WeightCoPurchase:  defaultWeightCoPurchase,
		CoPurchasePerHit:  defaultCoPurchasePerHit,
		CoPurchaseCap:     defaultCoPurchaseCap,
		WeightSimilarItem: defaultWeightSimilarItem,

		RerankTimeout:       defaultRerankTimeout,
		RerankMinCandidates: defaultRerankMinCandidates,

		CacheTTL: defaultCacheTTL,
	}
}

// normalizeLimit clamps a caller supplied limit into [1, MaxLimit].
func (c Config) normalizeLimit(limit int) int {
	if limit <= 0 {
		limit = c.DefaultLimit
	}
	if c.MaxLimit > 0 && limit > c.MaxLimit {
		limit = c.MaxLimit
	}
	return limit
}
