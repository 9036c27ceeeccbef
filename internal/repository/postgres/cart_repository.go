package postgres

import (
	"context"
	"fmt"

	"smartCart/business/autoaction"
	"smartCart/business/insight"
	"smartCart/business/recommend"
	"smartCart/domain"

	"gorm.io/gorm"
)

// CREATE TABLE public.cart_items (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     user_id     BIGINT NOT NULL,
//     product_id  BIGINT NOT NULL REFERENCES products(id),
//     variant_id  BIGINT,
//     quantity    INT NOT NULL CHECK (quantity > 0),
//     created_at  TIMESTAMPTZ DEFAULT NOW(),
//     updated_at  TIMESTAMPTZ DEFAULT NOW()
// );

type CartRepository struct {
	DB *gorm.DB
}

var (
	_ insight.CartReader   = (*CartRepository)(nil)
	_ recommend.CartReader = (*CartRepository)(nil)
	_ autoaction.CartStore = (*CartRepository)(nil)
)

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{DB: db}
}

// GetCart loads the user's cart lines joined with their current product data.
func (r *CartRepository) GetCart(ctx context.Context, userID uint) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("context error: %w", err)
	}

	var items []domain.CartItem
	err := r.DB.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.id, ci.user_id, ci.product_id, ci.variant_id, ci.quantity, ci.created_at, ci.updated_at,
			p.product_name, p.category_id, p.brand,
			CASE WHEN p.sale_price > 0 AND p.sale_price < p.normal_price THEN p.sale_price ELSE p.normal_price END AS unit_price`).
		Joins("JOIN products AS p ON p.id = ci.product_id").
		Where("ci.user_id = ?", userID).
		Order("ci.id ASC").
		Scan(&items).Error
	if err != nil {
		return domain.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}

	return domain.Cart{UserID: userID, Items: items}, nil
}

// AddItem always appends a new line so an auto-added line can be identified
// and removed on reversal.
func (r *CartRepository) AddItem(ctx context.Context, userID uint, req domain.AddItemRequest) (domain.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartItem{}, fmt.Errorf("context error: %w", err)
	}
	if req.Quantity <= 0 {
		return domain.CartItem{}, fmt.Errorf("quantity %d: %w", req.Quantity, domain.ErrInvalidInput)
	}

	item := domain.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	}
	if err := r.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return domain.CartItem{}, fmt.Errorf("failed to add cart item: %w", err)
	}

	return item, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID uint, itemID uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&domain.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cart item %d: %w", itemID, domain.ErrNotFound)
	}

	return nil
}
