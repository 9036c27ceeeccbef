package postgres

import (
	"context"
	"errors"
	"fmt"

	"smartCart/business/recommend"
	"smartCart/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepository struct {
	DB *gorm.DB
}

var _ recommend.PreferenceReader = (*PreferenceRepository)(nil)

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{DB: db}
}

func (r *PreferenceRepository) GetPreference(ctx context.Context, userID uint) (domain.UserPreference, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserPreference{}, fmt.Errorf("context error: %w", err)
	}

	var row domain.UserPreference
	err := r.DB.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserPreference{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UserPreference{}, fmt.Errorf("failed to find preference: %w", err)
	}
	return row, nil
}

func (r *PreferenceRepository) UpsertPreference(ctx context.Context, pref domain.UserPreference) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"preferred_category_ids",
				"preferred_brands",
				"price_sensitivity",
				"updated_at",
			}),
		}).
		Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}
