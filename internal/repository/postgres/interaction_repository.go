package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartCart/business/autoaction"
	"smartCart/business/insight"
	"smartCart/business/recommend"
	"smartCart/domain"

	"gorm.io/gorm"
)

// CREATE TABLE public.interaction_events (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     user_id     BIGINT NOT NULL,
//     product_id  BIGINT NOT NULL,
//     event_type  TEXT NOT NULL,
//     price       NUMERIC,
//     quantity    INT,
//     created_at  TIMESTAMPTZ DEFAULT NOW()
// );
// CREATE INDEX idx_interaction_user_type_time ON interaction_events (user_id, event_type, created_at DESC);

const coPurchaseLookback = 180 * 24 * time.Hour

type InteractionRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

var (
	_ insight.InteractionReader    = (*InteractionRepository)(nil)
	_ recommend.InteractionReader  = (*InteractionRepository)(nil)
	_ recommend.CoPurchaseReader   = (*InteractionRepository)(nil)
	_ autoaction.InteractionReader = (*InteractionRepository)(nil)
)

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{DB: db, now: time.Now}
}

func (r *InteractionRepository) Append(ctx context.Context, event *domain.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	return nil
}

func (r *InteractionRepository) LatestEvent(ctx context.Context, userID uint, types []domain.InteractionType) (domain.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.InteractionEvent{}, fmt.Errorf("context error: %w", err)
	}

	var event domain.InteractionEvent
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND event_type IN ?", userID, types).
		Order("created_at DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InteractionEvent{}, domain.ErrNotFound
		}
		return domain.InteractionEvent{}, fmt.Errorf("failed to find latest interaction: %w", err)
	}

	return event, nil
}

func (r *InteractionRepository) ListEvents(ctx context.Context, userID uint, types []domain.InteractionType, since time.Time) ([]domain.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var events []domain.InteractionEvent
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND event_type IN ? AND created_at >= ?", userID, types, since).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	return events, nil
}

func (r *InteractionRepository) RecentProductIDs(
	ctx context.Context,
	userID uint,
	eventType domain.InteractionType,
	since time.Time,
	limit int,
) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Select("product_id").
		Where("user_id = ? AND event_type = ? AND created_at >= ?", userID, eventType, since).
		Group("product_id").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent products: %w", err)
	}

	return ids, nil
}

func (r *InteractionRepository) HasEvent(
	ctx context.Context,
	userID uint,
	productID uint64,
	eventType domain.InteractionType,
	since time.Time,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Where("user_id = ? AND product_id = ? AND event_type = ? AND created_at >= ?", userID, productID, eventType, since).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check interaction: %w", err)
	}

	return count > 0, nil
}

// CoPurchased counts other products bought by the buyers of productID.
func (r *InteractionRepository) CoPurchased(ctx context.Context, productID uint64, limit int) ([]domain.ProductCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	since := r.now().Add(-coPurchaseLookback)
	var rows []domain.ProductCount
	err := r.DB.WithContext(ctx).
		Table("interaction_events AS a").
		Select("b.product_id AS product_id, COUNT(DISTINCT a.user_id) AS count").
		Joins("JOIN interaction_events AS b ON b.user_id = a.user_id AND b.event_type = a.event_type AND b.product_id <> a.product_id").
		Where("a.product_id = ? AND a.event_type = ? AND a.created_at >= ?", productID, domain.InteractionPurchase, since).
		Group("b.product_id").
		Order("count DESC").
		Order("b.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count co-purchases: %w", err)
	}

	return rows, nil
}

// RecentCartUsers lists users who touched their cart since the given time.
func (r *InteractionRepository) RecentCartUsers(ctx context.Context, since time.Time) ([]uint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var users []uint
	err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Distinct("user_id").
		Where("event_type IN ? AND created_at >= ?", []domain.InteractionType{
			domain.InteractionCartAdd,
			domain.InteractionCartRemove,
			domain.InteractionCartUpdate,
		}, since).
		Order("user_id ASC").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active carts: %w", err)
	}

	return users, nil
}
