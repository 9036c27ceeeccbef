package autoaction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"smartCart/domain"
)

const (
	checkPriceCeiling = "price_ceiling"
	checkProduct      = "product_validity"
	checkCooldown     = "cooldown"
	checkDailyCap     = "daily_cap"
	checkCategory     = "restricted_category"
	checkRejection    = "recent_rejection"
)

// chainRun carries state between guardrails of one request.
type chainRun struct {
	req      domain.AutoActionRequest
	quantity int
	product  *domain.Product
	checks   []domain.GuardrailCheck
}

type guardrail struct {
	name string
	run  func(ctx context.Context, r *chainRun) domain.GuardrailCheck
}

// chain is evaluated in order and stops at the first failure, so a request
// rejected early never reaches the lookups of later checks.
func (e *Executor) chain() []guardrail {
	return []guardrail{
		{checkPriceCeiling, e.checkPriceCeiling},
		{checkProduct, e.checkProduct},
		{checkCooldown, e.checkCooldown},
		{checkDailyCap, e.checkDailyCap},
		{checkCategory, e.checkCategory},
		{checkRejection, e.checkRejection},
	}
}

func pass(name string) domain.GuardrailCheck {
	return domain.GuardrailCheck{Name: name, Passed: true}
}

func denyCheck(name, detail string) domain.GuardrailCheck {
	return domain.GuardrailCheck{Name: name, Passed: false, Detail: detail}
}

func (e *Executor) checkPriceCeiling(_ context.Context, r *chainRun) domain.GuardrailCheck {
	if r.req.ActionType != domain.ActionAddToCart || r.req.Price == nil {
		return pass(checkPriceCeiling)
	}
	if *r.req.Price > e.cfg.MaxAutoAddPrice {
		return denyCheck(checkPriceCeiling, fmt.Sprintf("price %.2f exceeds auto-add limit %.2f", *r.req.Price, e.cfg.MaxAutoAddPrice))
	}
	return pass(checkPriceCeiling)
}

func (e *Executor) checkProduct(ctx context.Context, r *chainRun) domain.GuardrailCheck {
	if r.req.ProductID == nil {
		return pass(checkProduct)
	}

	p, err := e.catalog.GetByID(ctx, *r.req.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		return denyCheck(checkProduct, "product not found")
	}
	if err != nil {
		return denyCheck(checkProduct, "product lookup unavailable")
	}
	if !p.IsActive {
		return denyCheck(checkProduct, "product is not active")
	}
	if p.Stock < int64(r.quantity) {
		return denyCheck(checkProduct, fmt.Sprintf("insufficient stock: requested %d, available %d", r.quantity, p.Stock))
	}
	// the caller's price may be stale or missing; the live price must also fit
	if r.req.ActionType == domain.ActionAddToCart && p.Price() > e.cfg.MaxAutoAddPrice {
		return denyCheck(checkProduct, fmt.Sprintf("price %.2f exceeds auto-add limit %.2f", p.Price(), e.cfg.MaxAutoAddPrice))
	}

	r.product = &p
	return pass(checkProduct)
}

func (e *Executor) checkCooldown(ctx context.Context, r *chainRun) domain.GuardrailCheck {
	remaining, err := e.guardrails.CooldownRemaining(ctx, e.cooldownKey(r.req))
	if err != nil {
		return denyCheck(checkCooldown, "cooldown state unavailable")
	}
	if remaining > 0 {
		minutes := int(math.Ceil(remaining.Minutes()))
		return denyCheck(checkCooldown, fmt.Sprintf("cooldown active: %d minutes remaining", minutes))
	}
	return pass(checkCooldown)
}

func (e *Executor) checkDailyCap(ctx context.Context, r *chainRun) domain.GuardrailCheck {
	count, err := e.guardrails.DailyCount(ctx, e.dailyKey(r.req.UserID))
	if err != nil {
		return denyCheck(checkDailyCap, "daily counter unavailable")
	}
	if count >= int64(e.cfg.DailyActionLimit) {
		return denyCheck(checkDailyCap, fmt.Sprintf("daily auto-action limit reached (%d)", e.cfg.DailyActionLimit))
	}
	return pass(checkDailyCap)
}

func (e *Executor) checkCategory(_ context.Context, r *chainRun) domain.GuardrailCheck {
	if r.product == nil {
		return pass(checkCategory)
	}
	if e.cfg.isRestricted(r.product.ProductCategory) {
		return denyCheck(checkCategory, fmt.Sprintf("category %q is restricted", r.product.ProductCategory))
	}
	return pass(checkCategory)
}

func (e *Executor) checkRejection(ctx context.Context, r *chainRun) domain.GuardrailCheck {
	if r.req.ProductID == nil {
		return pass(checkRejection)
	}
	since := e.now().Add(-e.cfg.RejectionLookback)
	rejected, err := e.interactions.HasEvent(ctx, r.req.UserID, *r.req.ProductID, domain.InteractionSuggestionRejected, since)
	if err != nil {
		return denyCheck(checkRejection, "behavior history unavailable")
	}
	if rejected {
		return denyCheck(checkRejection, "user recently rejected this product")
	}
	return pass(checkRejection)
}
