package rest

import (
	"context"
	"net/http"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	CycleService interface {
		Enqueue(ctx context.Context, userID uint, source domain.CycleSource) (domain.CycleJob, error)
		LastCycle(ctx context.Context, userID uint) (domain.CycleSession, error)
	}

	CycleHandler struct {
		service CycleService
	}
)

func NewCycleHandler(svc CycleService) *CycleHandler {
	return &CycleHandler{service: svc}
}

// POST /api/v1/bow/cycle
// Queues a decision cycle for the caller; the worker applies at most one action.
func (h *CycleHandler) Enqueue(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	job, err := h.service.Enqueue(c.Request().Context(), userID, domain.CycleSourceAPI)
	if err != nil {
		logger.Error("Failed to enqueue decision cycle", "user_id", userID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusAccepted, fres.Response.StatusOK(job))
}

// GET /api/v1/bow/cycle
func (h *CycleHandler) Last(c echo.Context) error {
	userID, ok := userIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	session, err := h.service.LastCycle(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(session))
}
