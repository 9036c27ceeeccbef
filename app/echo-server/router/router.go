package router

import (
	"smartCart/internal/middleware"
	"smartCart/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetInsightRoutes(api *echo.Group, handler *rest.InsightHandler) {
	insights := api.Group("/insights", middleware.AuthMiddleware())
	insights.GET("/signals", handler.GetSignals)
	insights.GET("/history", handler.GetHistory)

	api.GET("/strategies", handler.GetStrategies, middleware.AuthMiddleware())
}

func SetRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler) {
	authRequired := middleware.AuthMiddleware()

	api.GET("/recommendations", handler.Recommend, authRequired)
	api.GET("/products/:id/fbt", handler.FrequentlyBoughtTogether, authRequired)
}

func SetAutoActionRoutes(api *echo.Group, handler *rest.AutoActionHandler) {
	actions := api.Group("/auto-actions", middleware.AuthMiddleware())
	actions.POST("", handler.Execute)
	actions.POST("/:id/reverse", handler.Reverse)
}

func SetInteractionRoutes(api *echo.Group, handler *rest.InteractionHandler) {
	api.POST("/interactions", handler.Record, middleware.AuthMiddleware())
}

func SetCycleRoutes(api *echo.Group, handler *rest.CycleHandler) {
	bow := api.Group("/bow", middleware.AuthMiddleware())
	bow.POST("/cycle", handler.Enqueue)
	bow.GET("/cycle", handler.Last)
}

func SetAdminRoutes(api *echo.Group, admin *rest.AdminHandler, actions *rest.AutoActionHandler) {
	grp := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnly())

	grp.GET("/auto-actions/analytics", actions.Analytics)
	grp.GET("/preferences", admin.GetPreference)
	grp.PUT("/preferences", admin.UpsertPreference)
	grp.POST("/categories/:id/complements", admin.AddComplement)
}
