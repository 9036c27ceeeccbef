package domain

import "time"

type PriceSensitivity string

const (
	PriceSensitivityLow    PriceSensitivity = "LOW"
	PriceSensitivityMedium PriceSensitivity = "MEDIUM"
	PriceSensitivityHigh   PriceSensitivity = "HIGH"
)

// UserPreference is the shopper's preference profile used for affinity scoring.
type UserPreference struct {
	UserID               uint             `gorm:"column:user_id;primaryKey" json:"user_id"`
	PreferredCategoryIDs []uint64         `gorm:"column:preferred_category_ids;serializer:json" json:"preferred_category_ids"`
	PreferredBrands      []string         `gorm:"column:preferred_brands;serializer:json" json:"preferred_brands"`
	PriceSensitivity     PriceSensitivity `gorm:"column:price_sensitivity;default:MEDIUM" json:"price_sensitivity"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}

func (p UserPreference) PrefersBrand(brand string) bool {
	if brand == "" {
		return false
	}
	for _, b := range p.PreferredBrands {
		if b == brand {
			return true
		}
	}
	return false
}
