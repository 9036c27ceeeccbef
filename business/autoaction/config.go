package autoaction

import (
	"strings"
	"time"
)

// Config holds the executor's safety limits. It is passed in at construction
// so environments and tests can override it.
type Config struct {
	MaxAutoAddPrice      float64
	CooldownMinutes      int
	DailyActionLimit     int
	RestrictedCategories []string
	RejectionLookback    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAutoAddPrice:      499,
		CooldownMinutes:      24 * 60,
		DailyActionLimit:     3,
		RestrictedCategories: []string{"alcohol", "tobacco", "medicine"},
		RejectionLookback:    7 * 24 * time.Hour,
	}
}

func (c Config) cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

func (c Config) isRestricted(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return false
	}
	for _, r := range c.RestrictedCategories {
		if strings.EqualFold(strings.TrimSpace(r), category) {
			return true
		}
	}
	return false
}
