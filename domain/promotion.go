package domain

import "time"

// PromoGroup is a time-boxed promotional grouping that unlocks a perk once the
// cart reaches UnlockThreshold.
type PromoGroup struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"column:name;type:text;not null" json:"name"`
	UnlockThreshold float64   `gorm:"column:unlock_threshold;type:numeric;not null" json:"unlock_threshold"`
	StartsAt        time.Time `gorm:"column:starts_at" json:"starts_at"`
	EndsAt          time.Time `gorm:"column:ends_at" json:"ends_at"`
}

func (PromoGroup) TableName() string {
	return "promo_groups"
}

func (g PromoGroup) ActiveAt(t time.Time) bool {
	return !t.Before(g.StartsAt) && t.Before(g.EndsAt)
}

// NamedThreshold is a cart-value boundary in minor units.
type NamedThreshold struct {
	Name  string
	Minor int64
}
