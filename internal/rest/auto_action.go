package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	AutoActionService interface {
		ExecuteAutoAction(ctx context.Context, req domain.AutoActionRequest) (domain.AutoActionResult, error)
		ReverseAutoAction(ctx context.Context, userID uint, actionID uuid.UUID, reason string) (domain.AutoActionResult, error)
		GetAutoActionAnalytics(ctx context.Context, filter domain.ActionLogFilter) (domain.ActionAnalytics, error)
	}

	AutoActionHandler struct {
		validate *validator.Validate
		service  AutoActionService
	}

	ExecuteAutoActionRequest struct {
		ActionType string   `json:"action_type" validate:"required,oneof=ADD_TO_CART SUGGEST_BUNDLE SUGGEST_GIFT SUGGEST_UPSELL SUGGEST_ALTERNATIVE SHOW_REASSURANCE"`
		ProductID  *uint64  `json:"product_id" validate:"omitempty,gt=0"`
		Price      *float64 `json:"price" validate:"omitempty,gte=0"`
		Quantity   *int     `json:"quantity" validate:"omitempty,gt=0,lte=20"`
		Reason     string   `json:"reason" validate:"required,max=500"`
		Strategy   string   `json:"strategy" validate:"omitempty,max=64"`
	}

	ReverseAutoActionRequest struct {
		Reason string `json:"reason" validate:"max=500"`
	}
)

func NewAutoActionHandler(svc AutoActionService) *AutoActionHandler {
	return &AutoActionHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// POST /api/v1/auto-actions
// Guardrail denials are 200 with success=false; they are outcomes, not errors.
func (h *AutoActionHandler) Execute(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req ExecuteAutoActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	res, err := h.service.ExecuteAutoAction(c.Request().Context(), domain.AutoActionRequest{
		ActionType: domain.ActionType(req.ActionType),
		UserID:     userID,
		ProductID:  req.ProductID,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Strategy:   domain.StrategyName(req.Strategy),
	})
	if err != nil {
		logger.Error("Failed to execute auto action", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}

// POST /api/v1/auto-actions/:id/reverse
func (h *AutoActionHandler) Reverse(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	actionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid action id"})
	}

	var req ReverseAutoActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	res, err := h.service.ReverseAutoAction(c.Request().Context(), userID, actionID, req.Reason)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Failed to reverse auto action", "user_id", userID, "action_id", actionID, "error", err)
		}
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}

// GET /api/v1/admin/auto-actions/analytics?user_id=&since=&until=
// since and until are RFC3339.
func (h *AutoActionHandler) Analytics(c echo.Context) error {
	var filter domain.ActionLogFilter

	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid user_id"})
		}
		uid := uint(id)
		filter.UserID = &uid
	}
	for name, dst := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid " + name})
		}
		*dst = t
	}

	out, err := h.service.GetAutoActionAnalytics(c.Request().Context(), filter)
	if err != nil {
		logger.Error("Failed to compute auto action analytics", "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(out))
}
