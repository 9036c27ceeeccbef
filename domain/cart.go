package domain

import (
	"sort"
	"time"
)

// CartItem is one line of the shopper's cart as reported by the cart store.
type CartItem struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ProductID  uint64    `gorm:"column:product_id;not null" json:"product_id"`
	VariantID  *uint64   `gorm:"column:variant_id" json:"variant_id,omitempty"`
	Quantity   int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Title      string    `gorm:"->;column:product_name;-:migration" json:"title"`
	UnitPrice  float64   `gorm:"->;column:unit_price;-:migration" json:"unit_price"`
	CategoryID uint64    `gorm:"->;column:category_id;-:migration" json:"category_id"`
	Brand      string    `gorm:"->;column:brand;-:migration" json:"brand"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

type Cart struct {
	UserID uint       `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// AddItemRequest is what the engine asks the cart store to add.
type AddItemRequest struct {
	ProductID uint64  `json:"product_id"`
	VariantID *uint64 `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

func (c Cart) ValueMinor() int64 {
	var total int64
	for _, it := range c.Items {
		total += ToMinor(it.UnitPrice) * int64(it.Quantity)
	}
	return total
}

func (c Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// CategoryIDs returns the distinct category ids in ascending order.
func (c Cart) CategoryIDs() []uint64 {
	seen := make(map[uint64]struct{}, len(c.Items))
	out := make([]uint64, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.CategoryID]; ok {
			continue
		}
		seen[it.CategoryID] = struct{}{}
		out = append(out, it.CategoryID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Cart) ProductIDs() []uint64 {
	out := make([]uint64, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.ProductID)
	}
	return out
}

func (c Cart) Contains(productID uint64) bool {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

func (c Cart) LastModified() time.Time {
	var last time.Time
	for _, it := range c.Items {
		if it.UpdatedAt.After(last) {
			last = it.UpdatedAt
		}
	}
	return last
}

// CartSnapshot is the derived, non-canonical view the engine reasons about.
type CartSnapshot struct {
	UserID              uint      `json:"user_id"`
	CartValueMinorUnits int64     `json:"cart_value_minor_units"`
	ItemCount           int       `json:"item_count"`
	CategoryIDs         []uint64  `json:"category_ids"`
	ProductIDs          []uint64  `json:"product_ids"`
	LastModified        time.Time `json:"last_modified"`
}

func NewCartSnapshot(userID uint, cart Cart) CartSnapshot {
	value := cart.ValueMinor()
	if value < 0 {
		value = 0
	}
	return CartSnapshot{
		UserID:              userID,
		CartValueMinorUnits: value,
		ItemCount:           cart.TotalQuantity(),
		CategoryIDs:         cart.CategoryIDs(),
		ProductIDs:          cart.ProductIDs(),
		LastModified:        cart.LastModified(),
	}
}

func (s CartSnapshot) HasCategory(id uint64) bool {
	for _, c := range s.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// AverageItemPrice is the mean unit value in major units, zero for an empty cart.
func (s CartSnapshot) AverageItemPrice() float64 {
	if s.ItemCount == 0 {
		return 0
	}
	return FromMinor(s.CartValueMinorUnits) / float64(s.ItemCount)
}
