package autoaction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/trace"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Catalog interface {
	GetByID(ctx context.Context, id uint64) (domain.Product, error)
}

// CartStore is the external cart collaborator. It serializes mutations per user.
type CartStore interface {
	GetCart(ctx context.Context, userID uint) (domain.Cart, error)
	AddItem(ctx context.Context, userID uint, req domain.AddItemRequest) (domain.CartItem, error)
	// RemoveItem returns domain.ErrNotFound when the line is already gone.
	RemoveItem(ctx context.Context, userID uint, itemID uint64) error
}

// GuardrailStore keeps cooldowns and daily counters in a TTL store; expiry is
// the only release mechanism.
type GuardrailStore interface {
	CooldownRemaining(ctx context.Context, key string) (time.Duration, error)
	ReserveCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseCooldown(ctx context.Context, key string) error
	DailyCount(ctx context.Context, key string) (int64, error)
	IncrementDaily(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// ReleaseDaily returns a slot taken by IncrementDaily for an action that never applied.
	ReleaseDaily(ctx context.Context, key string) error
}

type InteractionReader interface {
	HasEvent(ctx context.Context, userID uint, productID uint64, eventType domain.InteractionType, since time.Time) (bool, error)
}

type ActionLogRepository interface {
	Create(ctx context.Context, log *domain.ActionLog) error
	GetForUser(ctx context.Context, id uuid.UUID, userID uint) (domain.ActionLog, error)
	// MarkReversed flips auto_reversed once; it reports false if the row was already reversed.
	MarkReversed(ctx context.Context, id uuid.UUID, userID uint, reason string, at time.Time) (bool, error)
	CountByOutcome(ctx context.Context, filter domain.ActionLogFilter) ([]domain.ActionTypeCount, error)
}

type Executor struct {
	catalog      Catalog
	carts        CartStore
	guardrails   GuardrailStore
	interactions InteractionReader
	logs         ActionLogRepository
	cfg          Config
	now          func() time.Time
}

func NewExecutor(
	catalog Catalog,
	carts CartStore,
	guardrails GuardrailStore,
	interactions InteractionReader,
	logs ActionLogRepository,
	cfg Config,
) *Executor {
	return &Executor{
		catalog:      catalog,
		carts:        carts,
		guardrails:   guardrails,
		interactions: interactions,
		logs:         logs,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ExecuteAutoAction runs the guardrail chain and, if every check passes,
// performs the action and records it. Denials are results, not errors.
func (e *Executor) ExecuteAutoAction(ctx context.Context, req domain.AutoActionRequest) (domain.AutoActionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AutoActionResult{}, fmt.Errorf("context error: %w", err)
	}
	if !req.ActionType.Valid() {
		return deniedResult(fmt.Sprintf("unsupported action type %q", req.ActionType)), nil
	}
	if req.ActionType.RequiresProduct() && req.ProductID == nil {
		return deniedResult("product_id is required for " + string(req.ActionType)), nil
	}

	run := &chainRun{req: req, quantity: req.QuantityOrDefault()}
	for _, g := range e.chain() {
		check := g.run(ctx, run)
		run.checks = append(run.checks, check)
		if !check.Passed {
			metrics.GuardrailDenials.WithLabelValues(g.name).Inc()
			return e.deny(ctx, run, check.Detail), nil
		}
	}

	return e.perform(ctx, run), nil
}

func (e *Executor) perform(ctx context.Context, run *chainRun) domain.AutoActionResult {
	req := run.req
	cooldownKey := e.cooldownKey(req)

	// re-check at execution time: another cycle may have acted since the chain ran
	reserved, err := e.guardrails.ReserveCooldown(ctx, cooldownKey, e.cfg.cooldown())
	if err != nil || !reserved {
		run.checks = append(run.checks, domain.GuardrailCheck{Name: checkCooldown, Passed: false, Detail: "cooldown taken concurrently"})
		metrics.GuardrailDenials.WithLabelValues(checkCooldown).Inc()
		if err != nil {
			logger.Warn("reserve cooldown failed", "user_id", req.UserID, "error", err)
		}
		return e.deny(ctx, run, "cooldown active: another action just ran")
	}

	dailyKey := e.dailyKey(req.UserID)
	count, err := e.guardrails.IncrementDaily(ctx, dailyKey, 24*time.Hour)
	if err != nil || count > int64(e.cfg.DailyActionLimit) {
		_ = e.guardrails.ReleaseCooldown(ctx, cooldownKey)
		if err == nil {
			e.releaseDaily(ctx, dailyKey)
		}
		run.checks = append(run.checks, domain.GuardrailCheck{Name: checkDailyCap, Passed: false, Detail: "daily cap reached concurrently"})
		metrics.GuardrailDenials.WithLabelValues(checkDailyCap).Inc()
		if err != nil {
			logger.Warn("increment daily counter failed", "user_id", req.UserID, "error", err)
		}
		return e.deny(ctx, run, fmt.Sprintf("daily auto-action limit reached (%d)", e.cfg.DailyActionLimit))
	}

	if req.ActionType.Mutates() {
		if err := e.mutate(ctx, run); err != nil {
			_ = e.guardrails.ReleaseCooldown(ctx, cooldownKey)
			e.releaseDaily(ctx, dailyKey)
			return e.fail(ctx, run, err)
		}
	}

	canUndo := req.ActionType.CanUndo()
	row := e.newLogRow(run, true, successMessage(req.ActionType))
	if err := e.logs.Create(ctx, row); err != nil {
		// the action already happened; without an audit row it cannot be undone
		logger.Error("write action log failed",
			"trace_id", trace.TraceIDFromContext(ctx),
			"user_id", req.UserID,
			"action_type", req.ActionType,
			"error", err,
		)
		metrics.AutoActions.WithLabelValues(string(req.ActionType), "executed_unlogged").Inc()
		noUndo := false
		return domain.AutoActionResult{Success: true, Message: row.Message, CanUndo: &noUndo}
	}

	metrics.AutoActions.WithLabelValues(string(req.ActionType), "executed").Inc()
	logger.Info("auto action executed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"action_id", row.ID,
		"user_id", req.UserID,
		"action_type", req.ActionType,
		"product_id", req.ProductID,
	)

	id := row.ID
	return domain.AutoActionResult{
		Success:  true,
		Message:  row.Message,
		ActionID: &id,
		CanUndo:  &canUndo,
	}
}

func (e *Executor) releaseDaily(ctx context.Context, key string) {
	if err := e.guardrails.ReleaseDaily(ctx, key); err != nil {
		logger.Warn("release daily counter failed", "key", key, "error", err)
	}
}

func (e *Executor) mutate(ctx context.Context, run *chainRun) error {
	req := run.req
	switch req.ActionType {
	case domain.ActionAddToCart:
		_, err := e.carts.AddItem(ctx, req.UserID, domain.AddItemRequest{
			ProductID: *req.ProductID,
			Quantity:  run.quantity,
		})
		if err != nil {
			return fmt.Errorf("add to cart: %w", err)
		}
		return nil
	case domain.ActionSuggestBundle, domain.ActionSuggestGift, domain.ActionSuggestUpsell,
		domain.ActionSuggestAlternative, domain.ActionShowReassurance:
		return nil
	}
	return fmt.Errorf("no mutation for %s", req.ActionType)
}

// deny records a denied attempt and returns the denial result.
func (e *Executor) deny(ctx context.Context, run *chainRun, message string) domain.AutoActionResult {
	row := e.newLogRow(run, false, message)
	if err := e.logs.Create(ctx, row); err != nil {
		logger.Warn("write denied action log failed", "user_id", run.req.UserID, "error", err)
	}
	metrics.AutoActions.WithLabelValues(string(run.req.ActionType), "denied").Inc()
	logger.Debug("auto action denied",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", run.req.UserID,
		"action_type", run.req.ActionType,
		"reason", message,
	)
	return deniedResult(message)
}

// fail records an execution failure as an automatically reversed row.
func (e *Executor) fail(ctx context.Context, run *chainRun, cause error) domain.AutoActionResult {
	message := "action failed: " + cause.Error()
	row := e.newLogRow(run, false, message)
	now := e.now()
	row.AutoReversed = true
	row.ReverseReason = cause.Error()
	row.ReversedAt = &now
	if err := e.logs.Create(ctx, row); err != nil {
		logger.Warn("write failed action log failed", "user_id", run.req.UserID, "error", err)
	}
	metrics.AutoActions.WithLabelValues(string(run.req.ActionType), "failed").Inc()
	logger.Error("auto action failed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", run.req.UserID,
		"action_type", run.req.ActionType,
		"error", cause,
	)
	return deniedResult(message)
}

func (e *Executor) newLogRow(run *chainRun, success bool, message string) *domain.ActionLog {
	checks, err := json.Marshal(run.checks)
	if err != nil {
		checks = []byte("[]")
	}
	return &domain.ActionLog{
		ID:              uuid.New(),
		UserID:          run.req.UserID,
		ActionType:      run.req.ActionType,
		ProductID:       run.req.ProductID,
		Quantity:        run.quantity,
		Price:           run.req.Price,
		Reason:          run.req.Reason,
		Strategy:        string(run.req.Strategy),
		GuardrailChecks: datatypes.JSON(checks),
		Success:         success,
		Message:         message,
	}
}

func deniedResult(message string) domain.AutoActionResult {
	return domain.AutoActionResult{Success: false, Message: message}
}

func successMessage(t domain.ActionType) string {
	switch t {
	case domain.ActionAddToCart:
		return "added to cart"
	case domain.ActionSuggestBundle:
		return "bundle suggested"
	case domain.ActionSuggestGift:
		return "gift suggested"
	case domain.ActionSuggestUpsell:
		return "upsell suggested"
	case domain.ActionSuggestAlternative:
		return "alternative suggested"
	case domain.ActionShowReassurance:
		return "reassurance shown"
	}
	return "done"
}

func (e *Executor) cooldownKey(req domain.AutoActionRequest) string {
	if req.ProductID != nil {
		return fmt.Sprintf("guardrail:cooldown:%d:%s:%d", req.UserID, req.ActionType, *req.ProductID)
	}
	return fmt.Sprintf("guardrail:cooldown:%d:%s", req.UserID, req.ActionType)
}

func (e *Executor) dailyKey(userID uint) string {
	return fmt.Sprintf("guardrail:daily:%d:%s", userID, e.now().UTC().Format("2006-01-02"))
}
