package insight

import "time"

type Config struct {
	// money values are major units
	FreeShippingThreshold float64
	GiftThreshold         float64
	Window                float64
	HighWindow            float64

	HesitationLow    time.Duration
	HesitationMedium time.Duration
	HesitationHigh   time.Duration

	RemovalLookback       time.Duration
	MinRemovals           int
	PriceSensitivityRatio float64
	RepeatRemovalMin      int

	CacheTTL time.Duration
}

const (
	defaultFreeShipping     = 499
	defaultGift             = 999
	defaultWindow           = 200
	defaultHighWindow       = 50
	defaultHesitationLow    = 10 * time.Minute
	defaultHesitationMedium = 20 * time.Minute
	defaultHesitationHigh   = 30 * time.Minute
	defaultRemovalLookback  = 7 * 24 * time.Hour
	defaultMinRemovals      = 2
	defaultPriceRatio       = 1.5
	defaultRepeatRemovalMin = 2
	defaultCacheTTL         = 5 * time.Minute
)

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: defaultFreeShipping,
		GiftThreshold:         defaultGift,
		Window:                defaultWindow,
		HighWindow:            defaultHighWindow,

		HesitationLow:    defaultHesitationLow,
		HesitationMedium: defaultHesitationMedium,
		HesitationHigh:   defaultHesitationHigh,

		RemovalLookback:       defaultRemovalLookback,
		MinRemovals:           defaultMinRemovals,
		PriceSensitivityRatio: defaultPriceRatio,
		RepeatRemovalMin:      defaultRepeatRemovalMin,

		CacheTTL: defaultCacheTTL,
	}
}
