package rest

import (
	"context"
	"net/http"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

const defaultHistoryLimit = 50

type (
	InsightService interface {
		Snapshot(ctx context.Context, userID uint) (domain.CartSnapshot, error)
		AnalyzeCart(ctx context.Context, userID uint) ([]domain.CartSignal, error)
	}

	InsightHistory interface {
		ListInsights(ctx context.Context, userID uint, limit int) ([]domain.CartInsight, error)
	}

	StrategyService interface {
		GetStrategicRecommendations(ctx context.Context, userID uint, snap domain.CartSnapshot) ([]domain.StrategyResult, error)
	}

	InsightHandler struct {
		insights   InsightService
		history    InsightHistory
		strategies StrategyService
		timeout    time.Duration
	}

	SignalsResponse struct {
		Snapshot domain.CartSnapshot `json:"snapshot"`
		Signals  []domain.CartSignal `json:"signals"`
	}
)

func NewInsightHandler(insights InsightService, history InsightHistory, strategies StrategyService) *InsightHandler {
	return &InsightHandler{
		insights:   insights,
		history:    history,
		strategies: strategies,
		timeout:    10 * time.Second,
	}
}

// GET /api/v1/insights/signals
func (h *InsightHandler) GetSignals(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.insights.Snapshot(ctx, userID)
	if err != nil {
		logger.Error("Failed to snapshot cart", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	signals, err := h.insights.AnalyzeCart(ctx, userID)
	if err != nil {
		logger.Error("Failed to analyze cart", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}
	if signals == nil {
		signals = []domain.CartSignal{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(SignalsResponse{Snapshot: snap, Signals: signals}))
}

// GET /api/v1/insights/history?limit=50
func (h *InsightHandler) GetHistory(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	limit, err := queryLimit(c, defaultHistoryLimit)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if limit == 0 || limit > 500 {
		limit = defaultHistoryLimit
	}

	rows, err := h.history.ListInsights(c.Request().Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to list insight history", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}

// GET /api/v1/strategies
func (h *InsightHandler) GetStrategies(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.insights.Snapshot(ctx, userID)
	if err != nil {
		logger.Error("Failed to snapshot cart", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	results, err := h.strategies.GetStrategicRecommendations(ctx, userID, snap)
	if err != nil {
		logger.Error("Failed to rank strategies", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}
	if results == nil {
		results = []domain.StrategyResult{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(results))
}
