package domain

import "math"

// ToMinor converts a major-unit amount into integer minor units (cents, paise).
func ToMinor(major float64) int64 {
	return int64(math.Round(major * 100))
}

func FromMinor(minor int64) float64 {
	return float64(minor) / 100
}
