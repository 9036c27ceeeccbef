package orchestrator

import "time"

const (
	DefaultSessionTTL          = 30 * time.Minute
	DefaultLockTTL             = 30 * time.Second
	DefaultRecommendationLimit = 5
)

type Config struct {
	SessionTTL time.Duration
	LockTTL    time.Duration
	// RecommendationLimit bounds how many smart recommendations a cycle
	// considers when picking a gift or an alternative.
	RecommendationLimit int
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:          DefaultSessionTTL,
		LockTTL:             DefaultLockTTL,
		RecommendationLimit: DefaultRecommendationLimit,
	}
}
