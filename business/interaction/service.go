package interaction

import (
	"context"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/trace"
)

type EventRepository interface {
	Append(ctx context.Context, event *domain.InteractionEvent) error
}

type Leaderboard interface {
	// Bump credits a product in the time bucket of at.
	Bump(ctx context.Context, productID uint64, weight float64, at time.Time) error
}

// SignalInvalidator drops cached cart signals once the cart has changed.
type SignalInvalidator interface {
	InvalidateSignals(ctx context.Context, userID uint) error
}

// trending weight per event; unlisted types do not move the leaderboard
var trendingWeights = map[domain.InteractionType]float64{
	domain.InteractionView:               1,
	domain.InteractionCartAdd:            3,
	domain.InteractionSuggestionAccepted: 3,
	domain.InteractionPurchase:           5,
}

type Service struct {
	events   EventRepository
	trending Leaderboard
	signals  SignalInvalidator
	now      func() time.Time
}

func NewService(events EventRepository, trending Leaderboard, signals SignalInvalidator) *Service {
	return &Service{
		events:   events,
		trending: trending,
		signals:  signals,
		now:      time.Now,
	}
}

// Record appends the event to the behavior log. Leaderboard and cache
// side effects are best effort.
func (s *Service) Record(ctx context.Context, event domain.InteractionEvent) (domain.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.InteractionEvent{}, fmt.Errorf("context error: %w", err)
	}
	if !event.EventType.Valid() {
		return domain.InteractionEvent{}, fmt.Errorf("event_type %q: %w", event.EventType, domain.ErrInvalidInput)
	}
	if event.UserID == 0 || event.ProductID == 0 {
		return domain.InteractionEvent{}, fmt.Errorf("user and product are required: %w", domain.ErrInvalidInput)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	if err := s.events.Append(ctx, &event); err != nil {
		return domain.InteractionEvent{}, fmt.Errorf("append interaction: %w", err)
	}

	if w, ok := trendingWeights[event.EventType]; ok && s.trending != nil {
		if err := s.trending.Bump(ctx, event.ProductID, w, event.CreatedAt); err != nil {
			logger.Warn("trending bump failed", "product_id", event.ProductID, "error", err)
		}
	}

	if event.EventType.IsCartActivity() && s.signals != nil {
		if err := s.signals.InvalidateSignals(ctx, event.UserID); err != nil {
			logger.Warn("signal cache invalidation failed", "user_id", event.UserID, "error", err)
		}
	}

	logger.Debug("interaction recorded",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", event.UserID,
		"product_id", event.ProductID,
		"event_type", event.EventType,
	)
	return event, nil
}
