package postgres

import (
	"context"
	"errors"
	"fmt"

	"smartCart/business/autoaction"
	"smartCart/business/recommend"
	"smartCart/business/strategy"
	"smartCart/domain"

	"gorm.io/gorm"
)

const maxSearchLimit = 200

// effective shopper price, mirrors domain.Product.Price
const priceExpr = "CASE WHEN sale_price > 0 AND sale_price < normal_price THEN sale_price ELSE normal_price END"

type ProductRepository struct {
	DB *gorm.DB
}

var (
	_ strategy.Catalog   = (*ProductRepository)(nil)
	_ recommend.Catalog  = (*ProductRepository)(nil)
	_ autoaction.Catalog = (*ProductRepository)(nil)
)

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var product domain.Product

	err := r.DB.WithContext(ctx).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

// GetByIDs returns the products that exist, in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var products []domain.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return products, nil
}

// SearchProducts returns active products matching q, cheapest first.
func (r *ProductRepository) SearchProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	tx := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("is_active = ?", true)

	if len(q.CategoryIDs) > 0 {
		tx = tx.Where("category_id IN ?", q.CategoryIDs)
	}
	if len(q.ExcludeCategoryIDs) > 0 {
		tx = tx.Where("category_id NOT IN ?", q.ExcludeCategoryIDs)
	}
	if len(q.ExcludeProductIDs) > 0 {
		tx = tx.Where("id NOT IN ?", q.ExcludeProductIDs)
	}
	if q.MinPrice > 0 {
		tx = tx.Where(priceExpr+" >= ?", q.MinPrice)
	}
	if q.MaxPrice > 0 {
		tx = tx.Where(priceExpr+" <= ?", q.MaxPrice)
	}
	if q.MaxStock > 0 {
		tx = tx.Where("stock <= ?", q.MaxStock)
	}
	if q.InStockOnly {
		tx = tx.Where("stock > 0")
	}
	if q.MinRating > 0 {
		tx = tx.Where("avg_rating >= ?", q.MinRating)
	}
	if q.MinReviews > 0 {
		tx = tx.Where("review_count >= ?", q.MinReviews)
	}
	if q.ReturnEligibleOnly {
		tx = tx.Where("return_eligible = ?", true)
	}

	limit := q.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var products []domain.Product
	err := tx.Order(priceExpr + " ASC").Order("id ASC").Limit(limit).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return products, nil
}
