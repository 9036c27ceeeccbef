package postgres

import (
	"context"
	"fmt"
	"time"

	"smartCart/business/insight"
	"smartCart/business/strategy"
	"smartCart/domain"

	"gorm.io/gorm"
)

type PromotionRepository struct {
	DB *gorm.DB
}

var (
	_ insight.PromotionReader  = (*PromotionRepository)(nil)
	_ strategy.PromotionReader = (*PromotionRepository)(nil)
)

func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{DB: db}
}

func (r *PromotionRepository) ActiveGroups(ctx context.Context, at time.Time) ([]domain.PromoGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var groups []domain.PromoGroup
	err := r.DB.WithContext(ctx).
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Order("unlock_threshold ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find promo groups: %w", err)
	}

	return groups, nil
}
