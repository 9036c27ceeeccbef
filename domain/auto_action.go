package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionAddToCart          ActionType = "ADD_TO_CART"
	ActionSuggestBundle      ActionType = "SUGGEST_BUNDLE"
	ActionSuggestGift        ActionType = "SUGGEST_GIFT"
	ActionSuggestUpsell      ActionType = "SUGGEST_UPSELL"
	ActionSuggestAlternative ActionType = "SUGGEST_ALTERNATIVE"
	ActionShowReassurance    ActionType = "SHOW_REASSURANCE"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionAddToCart, ActionSuggestBundle, ActionSuggestGift,
		ActionSuggestUpsell, ActionSuggestAlternative, ActionShowReassurance:
		return true
	}
	return false
}

// Mutates reports whether executing the action changes cart state.
func (a ActionType) Mutates() bool {
	switch a {
	case ActionAddToCart:
		return true
	case ActionSuggestBundle, ActionSuggestGift, ActionSuggestUpsell,
		ActionSuggestAlternative, ActionShowReassurance:
		return false
	}
	return false
}

func (a ActionType) CanUndo() bool {
	switch a {
	case ActionAddToCart, ActionSuggestBundle, ActionSuggestGift, ActionSuggestUpsell:
		return true
	case ActionSuggestAlternative, ActionShowReassurance:
		return false
	}
	return false
}

// RequiresProduct reports whether the action targets a concrete product.
func (a ActionType) RequiresProduct() bool {
	switch a {
	case ActionAddToCart, ActionSuggestBundle, ActionSuggestGift,
		ActionSuggestUpsell, ActionSuggestAlternative:
		return true
	case ActionShowReassurance:
		return false
	}
	return false
}

type AutoActionRequest struct {
	ActionType ActionType   `json:"action_type" validate:"required"`
	UserID     uint         `json:"user_id"`
	ProductID  *uint64      `json:"product_id,omitempty"`
	Price      *float64     `json:"price,omitempty"`
	Quantity   *int         `json:"quantity,omitempty"`
	Reason     string       `json:"reason" validate:"required"`
	Strategy   StrategyName `json:"strategy,omitempty"`
}

// QuantityOrDefault is the requested quantity, 1 when unset.
func (r AutoActionRequest) QuantityOrDefault() int {
	if r.Quantity == nil || *r.Quantity <= 0 {
		return 1
	}
	return *r.Quantity
}

type AutoActionResult struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	ActionID *uuid.UUID `json:"action_id,omitempty"`
	CanUndo  *bool      `json:"can_undo,omitempty"`
}

// GuardrailCheck records one evaluated guardrail on the audit row.
type GuardrailCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// CREATE TABLE public.auto_action_logs (
//     id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//     user_id          BIGINT NOT NULL,
//     action_type      TEXT NOT NULL,
//     product_id       BIGINT,
//     quantity         INT NOT NULL DEFAULT 1,
//     price            NUMERIC,
//     reason           TEXT,
//     strategy         TEXT,
//     guardrail_checks JSONB,
//     success          BOOLEAN NOT NULL,
//     message          TEXT,
//     auto_reversed    BOOLEAN NOT NULL DEFAULT FALSE,
//     reverse_reason   TEXT,
//     reversed_at      TIMESTAMPTZ,
//     created_at       TIMESTAMPTZ DEFAULT NOW()
// );

// ActionLog is the durable audit row for one autonomous action attempt.
type ActionLog struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint           `gorm:"column:user_id;not null;index" json:"user_id"`
	ActionType      ActionType     `gorm:"column:action_type;not null" json:"action_type"`
	ProductID       *uint64        `gorm:"column:product_id" json:"product_id,omitempty"`
	Quantity        int            `gorm:"column:quantity;default:1" json:"quantity"`
	Price           *float64       `gorm:"column:price;type:numeric" json:"price,omitempty"`
	Reason          string         `gorm:"column:reason;type:text" json:"reason"`
	Strategy        string         `gorm:"column:strategy;type:text" json:"strategy,omitempty"`
	GuardrailChecks datatypes.JSON `gorm:"column:guardrail_checks;type:jsonb" json:"guardrail_checks"`
	Success         bool           `gorm:"column:success;not null" json:"success"`
	Message         string         `gorm:"column:message;type:text" json:"message"`
	AutoReversed    bool           `gorm:"column:auto_reversed;not null;default:false" json:"auto_reversed"`
	ReverseReason   string         `gorm:"column:reverse_reason;type:text" json:"reverse_reason,omitempty"`
	ReversedAt      *time.Time     `gorm:"column:reversed_at" json:"reversed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ActionLog) TableName() string {
	return "auto_action_logs"
}

// ActionLogFilter narrows analytics queries. Zero values mean "all".
type ActionLogFilter struct {
	UserID *uint
	Since  time.Time
	Until  time.Time
}

// ActionTypeCount is one aggregate row of the audit log.
type ActionTypeCount struct {
	ActionType   ActionType `json:"action_type"`
	Success      bool       `json:"success"`
	AutoReversed bool       `json:"auto_reversed"`
	Count        int64      `json:"count"`
}

type ActionAnalytics struct {
	TotalActions   int64                `json:"total_actions"`
	Executed       int64                `json:"executed"`
	Denied         int64                `json:"denied"`
	Failed         int64                `json:"failed"`
	Reversed       int64                `json:"reversed"`
	SuccessRate    float64              `json:"success_rate"`
	ReversalRate   float64              `json:"reversal_rate"`
	ByActionType   map[ActionType]int64 `json:"by_action_type"`
	ExecutedByType map[ActionType]int64 `json:"executed_by_type"`
	ReversedByType map[ActionType]int64 `json:"reversed_by_type"`
}
