package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CartInsight is an append-only record of one emitted signal, kept for trend analysis.
type CartInsight struct {
	ID         uint64         `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"column:user_id;not null;index" json:"user_id"`
	SignalType SignalType     `gorm:"column:signal_type;not null" json:"signal_type"`
	Severity   Severity       `gorm:"column:severity;not null" json:"severity"`
	Reason     string         `gorm:"column:reason;type:text" json:"reason"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CartInsight) TableName() string {
	return "cart_insights"
}
