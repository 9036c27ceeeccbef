package rest

import (
	"context"
	"net/http"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	InteractionService interface {
		Record(ctx context.Context, event domain.InteractionEvent) (domain.InteractionEvent, error)
	}

	InteractionHandler struct {
		validate *validator.Validate
		service  InteractionService
	}

	InteractionRequest struct {
		ProductID uint64  `json:"product_id" validate:"required,gt=0"`
		EventType string  `json:"event_type" validate:"required,oneof=view cart_add cart_remove cart_update purchase suggestion_accepted suggestion_rejected"`
		Price     float64 `json:"price" validate:"gte=0"`
		Quantity  int     `json:"quantity" validate:"gte=0"`
	}
)

func NewInteractionHandler(svc InteractionService) *InteractionHandler {
	return &InteractionHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// POST /api/v1/interactions
func (h *InteractionHandler) Record(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req InteractionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	event, err := h.service.Record(c.Request().Context(), domain.InteractionEvent{
		UserID:    userID,
		ProductID: req.ProductID,
		EventType: domain.InteractionType(req.EventType),
		Price:     req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		logger.Error("Failed to record interaction", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(event))
}
