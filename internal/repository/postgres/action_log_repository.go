package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartCart/business/autoaction"
	"smartCart/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionLogRepository struct {
	DB *gorm.DB
}

var _ autoaction.ActionLogRepository = (*ActionLogRepository)(nil)

func NewActionLogRepository(db *gorm.DB) *ActionLogRepository {
	return &ActionLogRepository{DB: db}
}

func (r *ActionLogRepository) Create(ctx context.Context, log *domain.ActionLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	if err := r.DB.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to save action log: %w", err)
	}

	return nil
}

// GetForUser returns domain.ErrNotFound for unknown ids and for rows owned by
// another user alike.
func (r *ActionLogRepository) GetForUser(ctx context.Context, id uuid.UUID, userID uint) (domain.ActionLog, error) {
	if err := ctx.Err(); err != nil {
		return domain.ActionLog{}, fmt.Errorf("context error: %w", err)
	}

	var row domain.ActionLog
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ActionLog{}, fmt.Errorf("action %s: %w", id, domain.ErrNotFound)
		}
		return domain.ActionLog{}, fmt.Errorf("failed to find action log: %w", err)
	}

	return row, nil
}

// MarkReversed is a conditional update; only the first caller flips the row.
func (r *ActionLogRepository) MarkReversed(ctx context.Context, id uuid.UUID, userID uint, reason string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.ActionLog{}).
		Where("id = ? AND user_id = ? AND auto_reversed = ?", id, userID, false).
		Updates(map[string]interface{}{
			"auto_reversed":  true,
			"reverse_reason": reason,
			"reversed_at":    at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark action reversed: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *ActionLogRepository) CountByOutcome(ctx context.Context, filter domain.ActionLogFilter) ([]domain.ActionTypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	tx := r.DB.WithContext(ctx).Model(&domain.ActionLog{})
	if filter.UserID != nil {
		tx = tx.Where("user_id = ?", *filter.UserID)
	}
	if !filter.Since.IsZero() {
		tx = tx.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		tx = tx.Where("created_at < ?", filter.Until)
	}

	var rows []domain.ActionTypeCount
	err := tx.
		Select("action_type, success, auto_reversed, COUNT(*) AS count").
		Group("action_type, success, auto_reversed").
		Order("action_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate action logs: %w", err)
	}

	return rows, nil
}
