package autoaction

import (
	"context"
	"fmt"

	"smartCart/domain"
)

// GetAutoActionAnalytics aggregates the audit log. Rates are zero when there
// are no actions in the filter window.
func (e *Executor) GetAutoActionAnalytics(ctx context.Context, filter domain.ActionLogFilter) (domain.ActionAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return domain.ActionAnalytics{}, fmt.Errorf("context error: %w", err)
	}

	rows, err := e.logs.CountByOutcome(ctx, filter)
	if err != nil {
		return domain.ActionAnalytics{}, fmt.Errorf("count actions: %w", err)
	}

	out := domain.ActionAnalytics{
		ByActionType:   map[domain.ActionType]int64{},
		ExecutedByType: map[domain.ActionType]int64{},
		ReversedByType: map[domain.ActionType]int64{},
	}
	for _, r := range rows {
		out.TotalActions += r.Count
		out.ByActionType[r.ActionType] += r.Count
		switch {
		case r.Success && r.AutoReversed:
			out.Executed += r.Count
			out.Reversed += r.Count
			out.ExecutedByType[r.ActionType] += r.Count
			out.ReversedByType[r.ActionType] += r.Count
		case r.Success:
			out.Executed += r.Count
			out.ExecutedByType[r.ActionType] += r.Count
		case r.AutoReversed:
			out.Failed += r.Count
		default:
			out.Denied += r.Count
		}
	}

	out.SuccessRate = ratio(out.Executed, out.TotalActions)
	out.ReversalRate = ratio(out.Reversed, out.TotalActions)
	return out, nil
}

func ratio(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
