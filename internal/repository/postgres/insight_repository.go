package postgres

import (
	"context"
	"fmt"

	"smartCart/business/insight"
	"smartCart/domain"

	"gorm.io/gorm"
)

type InsightRepository struct {
	DB *gorm.DB
}

var _ insight.InsightRepository = (*InsightRepository)(nil)

func NewInsightRepository(db *gorm.DB) *InsightRepository {
	return &InsightRepository{DB: db}
}

// AppendInsights inserts history rows; existing rows are never updated.
func (r *InsightRepository) AppendInsights(ctx context.Context, rows []domain.CartInsight) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to append cart insights: %w", err)
	}

	return nil
}

// ListInsights returns the user's most recent history rows, newest first.
func (r *InsightRepository) ListInsights(ctx context.Context, userID uint, limit int) ([]domain.CartInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.CartInsight
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart insights: %w", err)
	}

	return rows, nil
}
