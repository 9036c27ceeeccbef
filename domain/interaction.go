package domain

import (
	"time"
)

type InteractionType string

const (
	InteractionView               InteractionType = "view"
	InteractionCartAdd            InteractionType = "cart_add"
	InteractionCartRemove         InteractionType = "cart_remove"
	InteractionCartUpdate         InteractionType = "cart_update"
	InteractionPurchase           InteractionType = "purchase"
	InteractionSuggestionAccepted InteractionType = "suggestion_accepted"
	InteractionSuggestionRejected InteractionType = "suggestion_rejected"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionCartAdd, InteractionCartRemove, InteractionCartUpdate,
		InteractionPurchase, InteractionSuggestionAccepted, InteractionSuggestionRejected:
		return true
	}
	return false
}

// IsCartActivity reports whether the event reflects the shopper touching the cart.
func (t InteractionType) IsCartActivity() bool {
	switch t {
	case InteractionCartAdd, InteractionCartRemove, InteractionCartUpdate:
		return true
	}
	return false
}

// InteractionEvent is one row of the append-only behavioral log.
type InteractionEvent struct {
	ID        uint64          `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"column:user_id;not null;index" json:"user_id"`
	ProductID uint64          `gorm:"column:product_id;not null" json:"product_id"`
	EventType InteractionType `gorm:"column:event_type;not null" json:"event_type"`
	Price     float64         `gorm:"column:price;type:numeric" json:"price"`
	Quantity  int             `gorm:"column:quantity" json:"quantity"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (InteractionEvent) TableName() string {
	return "interaction_events"
}

// ProductCount pairs a product with an occurrence count (co-purchase, removals, leaderboards).
type ProductCount struct {
	ProductID uint64 `json:"product_id"`
	Count     int64  `json:"count"`
}
