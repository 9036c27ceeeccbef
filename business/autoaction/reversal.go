package autoaction

import (
	"context"
	"errors"
	"fmt"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/trace"

	"github.com/google/uuid"
)

const (
	msgAlreadyReversed = "action already reversed"
	msgNotExecuted     = "action was not executed"
	msgCannotUndo      = "action cannot be undone"
)

// ReverseAutoAction undoes an executed action once. A second call for the same
// action returns success=false and never touches the cart again. A missing or
// foreign action returns domain.ErrNotFound alongside the result.
func (e *Executor) ReverseAutoAction(ctx context.Context, userID uint, actionID uuid.UUID, reason string) (domain.AutoActionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AutoActionResult{}, fmt.Errorf("context error: %w", err)
	}

	row, err := e.logs.GetForUser(ctx, actionID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.AutoActionReversals.WithLabelValues("not_found").Inc()
		return deniedResult("action not found"), domain.ErrNotFound
	}
	if err != nil {
		return domain.AutoActionResult{}, fmt.Errorf("load action %s: %w", actionID, err)
	}

	switch {
	case row.AutoReversed:
		metrics.AutoActionReversals.WithLabelValues("already_reversed").Inc()
		return deniedResult(msgAlreadyReversed), nil
	case !row.Success:
		metrics.AutoActionReversals.WithLabelValues("not_executed").Inc()
		return deniedResult(msgNotExecuted), nil
	case !row.ActionType.CanUndo():
		metrics.AutoActionReversals.WithLabelValues("not_undoable").Inc()
		return deniedResult(msgCannotUndo), nil
	}

	if reason == "" {
		reason = "reversed by user"
	}
	flipped, err := e.logs.MarkReversed(ctx, row.ID, userID, reason, e.now())
	if err != nil {
		return domain.AutoActionResult{}, fmt.Errorf("mark action %s reversed: %w", actionID, err)
	}
	if !flipped {
		// lost a race with a concurrent reversal
		metrics.AutoActionReversals.WithLabelValues("already_reversed").Inc()
		return deniedResult(msgAlreadyReversed), nil
	}

	if row.ActionType == domain.ActionAddToCart && row.ProductID != nil {
		e.removeAddedLine(ctx, row)
	}

	metrics.AutoActionReversals.WithLabelValues("reversed").Inc()
	logger.Info("auto action reversed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"action_id", row.ID,
		"user_id", userID,
		"action_type", row.ActionType,
	)

	id := row.ID
	noUndo := false
	return domain.AutoActionResult{
		Success:  true,
		Message:  "action reversed",
		ActionID: &id,
		CanUndo:  &noUndo,
	}, nil
}

// removeAddedLine removes the cart line the action added. A line that is
// already gone is not an error.
func (e *Executor) removeAddedLine(ctx context.Context, row domain.ActionLog) {
	cart, err := e.carts.GetCart(ctx, row.UserID)
	if err != nil {
		logger.Warn("reverse: load cart failed", "action_id", row.ID, "error", err)
		return
	}

	// only a line with the exact product and quantity is ours to remove
	var match *domain.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == *row.ProductID && cart.Items[i].Quantity == row.Quantity {
			match = &cart.Items[i]
			break
		}
	}
	if match == nil {
		logger.Debug("reverse: cart line already removed", "action_id", row.ID)
		return
	}

	if err := e.carts.RemoveItem(ctx, row.UserID, match.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("reverse: remove cart line failed", "action_id", row.ID, "item_id", match.ID, "error", err)
	}
}
