package rest

import (
	"context"
	"net/http"
	"strconv"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	RecommendationHandler struct {
		validate *validator.Validate
		service  RecommendationService
	}

	RecommendationService interface {
		GetSmartRecommendations(ctx context.Context, userID uint, limit int) ([]domain.Recommendation, error)
		GetFrequentlyBoughtTogether(ctx context.Context, productID uint64, limit int) ([]domain.Recommendation, error)
	}

	RecommendationQuery struct {
		Limit int `query:"limit" validate:"gte=0,lte=50"`
	}
)

func NewRecommendationHandler(svc RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// GET /api/v1/recommendations?limit=10
func (h *RecommendationHandler) Recommend(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var q RecommendationQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	recs, err := h.service.GetSmartRecommendations(c.Request().Context(), userID, q.Limit)
	if err != nil {
		logger.Error("Failed to build recommendations", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(recs))
}

// GET /api/v1/products/:id/fbt?limit=5
func (h *RecommendationHandler) FrequentlyBoughtTogether(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid product id"})
	}

	var q RecommendationQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	recs, err := h.service.GetFrequentlyBoughtTogether(c.Request().Context(), productID, q.Limit)
	if err != nil {
		logger.Error("Failed to build frequently bought together", "product_id", productID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(recs))
}
