package rest

import (
	"context"
	"net/http"
	"strconv"

	"smartCart/domain"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	PreferenceStore interface {
		GetPreference(ctx context.Context, userID uint) (domain.UserPreference, error)
		UpsertPreference(ctx context.Context, pref domain.UserPreference) error
	}

	ComplementStore interface {
		FindByID(ctx context.Context, id uint64) (domain.Category, error)
		AddComplement(ctx context.Context, categoryID, complementID uint64) error
	}

	AdminHandler struct {
		validate    *validator.Validate
		preferences PreferenceStore
		categories  ComplementStore
	}

	UpsertPreferenceRequest struct {
		UserID               uint     `json:"user_id" validate:"required"`
		PreferredCategoryIDs []uint64 `json:"preferred_category_ids" validate:"max=50"`
		PreferredBrands      []string `json:"preferred_brands" validate:"max=50,dive,min=1"`
		PriceSensitivity     string   `json:"price_sensitivity" validate:"required,oneof=LOW MEDIUM HIGH"`
	}

	AddComplementRequest struct {
		ComplementID uint64 `json:"complement_id" validate:"required,gt=0"`
	}
)

func NewAdminHandler(preferences PreferenceStore, categories ComplementStore) *AdminHandler {
	return &AdminHandler{
		validate:    validator.New(),
		preferences: preferences,
		categories:  categories,
	}
}

// GET /api/v1/admin/preferences?user_id=42
func (h *AdminHandler) GetPreference(c echo.Context) error {
	userID, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "user_id is required",
		})
	}

	pref, err := h.preferences.GetPreference(c.Request().Context(), uint(userID))
	if err != nil {
		return c.JSON(statusFor(err), echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, pref)
}

// PUT /api/v1/admin/preferences
func (h *AdminHandler) UpsertPreference(c echo.Context) error {
	var req UpsertPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	pref := domain.UserPreference{
		UserID:               req.UserID,
		PreferredCategoryIDs: req.PreferredCategoryIDs,
		PreferredBrands:      req.PreferredBrands,
		PriceSensitivity:     domain.PriceSensitivity(req.PriceSensitivity),
	}
	if err := h.preferences.UpsertPreference(c.Request().Context(), pref); err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, pref)
}

// POST /api/v1/admin/categories/:id/complements
func (h *AdminHandler) AddComplement(c echo.Context) error {
	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || categoryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}

	var req AddComplementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.ComplementID == categoryID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a category cannot complement itself"})
	}

	ctx := c.Request().Context()
	for _, id := range []uint64{categoryID, req.ComplementID} {
		if _, err := h.categories.FindByID(ctx, id); err != nil {
			return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
		}
	}

	if err := h.categories.AddComplement(ctx, categoryID, req.ComplementID); err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"category_id":   categoryID,
		"complement_id": req.ComplementID,
	})
}
