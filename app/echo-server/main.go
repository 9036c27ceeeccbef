package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpmetrics "smartCart/app/echo-server/metrics"
	"smartCart/app/echo-server/router"
	"smartCart/business/autoaction"
	"smartCart/business/insight"
	"smartCart/business/interaction"
	"smartCart/business/orchestrator"
	"smartCart/business/recommend"
	"smartCart/business/strategy"
	"smartCart/internal/middleware"
	psqlRepo "smartCart/internal/repository/postgres"
	redisRepo "smartCart/internal/repository/redis"
	"smartCart/internal/repository/reranker"
	"smartCart/internal/rest"
	"smartCart/internal/scheduler"
	"smartCart/pkg/config"
	"smartCart/pkg/database"
	redisDB "smartCart/pkg/database/redis"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting smart cart engine", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected successfully")

	rdb, err := redisDB.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	logger.Info("Redis connected successfully")

	metrics.Init()
	httpmetrics.Init()

	// Init repo
	productRepo := psqlRepo.NewProductRepository(db)
	categoryRepo := psqlRepo.NewCategoryRepository(db)
	cartRepo := psqlRepo.NewCartRepository(db)
	interactionRepo := psqlRepo.NewInteractionRepository(db)
	actionLogRepo := psqlRepo.NewActionLogRepository(db)
	preferenceRepo := psqlRepo.NewPreferenceRepository(db)
	promotionRepo := psqlRepo.NewPromotionRepository(db)
	insightRepo := psqlRepo.NewInsightRepository(db)

	store := redisRepo.NewStore(rdb)
	guardrails := redisRepo.NewGuardrailStore(rdb)
	locker := redisRepo.NewLocker(rdb)
	trending := redisRepo.NewTrending(rdb, cfg.Engine.TrendingWindow)
	queue := redisRepo.NewCycleQueue(rdb, cfg.Engine.JobQueueKey)
	carts := redisRepo.NewLockedCartStore(cartRepo, locker, cfg.Engine.CartLockTTL)

	// Init service
	insightService := insight.NewService(cartRepo, interactionRepo, promotionRepo, insightRepo, store, insightConfig(cfg.Engine))
	strategyEngine := strategy.NewEngine(productRepo, categoryRepo, trending, promotionRepo, store, strategyConfig(cfg.Engine))

	recoDeps := recommend.Deps{
		Carts:        cartRepo,
		Catalog:      productRepo,
		Interactions: interactionRepo,
		Preferences:  preferenceRepo,
		Trending:     trending,
		CoPurchases:  interactionRepo,
		Cache:        store,
	}
	if rr := reranker.NewClient(cfg.Engine.RerankURL, cfg.Engine.RerankAPIKey, cfg.Engine.RerankTimeout); rr != nil {
		recoDeps.Reranker = rr
		logger.Info("External re-ranking enabled", "url", cfg.Engine.RerankURL)
	}
	recoService := recommend.NewService(recoDeps, recommendConfig(cfg.Engine))

	executor := autoaction.NewExecutor(productRepo, carts, guardrails, interactionRepo, actionLogRepo, autoActionConfig(cfg.Engine))
	interactionService := interaction.NewService(interactionRepo, trending, insightService)

	orchestratorCfg := orchestrator.DefaultConfig()
	orchestratorCfg.SessionTTL = cfg.Engine.SessionTTL
	orchestratorCfg.LockTTL = cfg.Engine.CycleLockTTL
	orch := orchestrator.New(orchestrator.Deps{
		Signals:         insightService,
		Strategies:      strategyEngine,
		Recommendations: recoService,
		Executor:        executor,
		Sessions:        store,
		Queue:           queue,
		Locker:          locker,
	}, orchestratorCfg)

	// Background work
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg errgroup.Group

	worker := orchestrator.NewWorker(queue, orch)
	bg.Go(func() error {
		worker.Run(bgCtx)
		return nil
	})

	sched := scheduler.NewScheduler(bgCtx, interactionRepo, orch, cfg.Engine.SweepLookback)
	if err := sched.Register(cfg.Engine.SweepCron); err != nil {
		logger.Fatal("Failed to register scheduler", "error", err)
	}
	sched.Start()

	// Init handler
	insightHandler := rest.NewInsightHandler(insightService, insightRepo, strategyEngine)
	recoHandler := rest.NewRecommendationHandler(recoService)
	autoActionHandler := rest.NewAutoActionHandler(executor)
	interactionHandler := rest.NewInteractionHandler(interactionService)
	cycleHandler := rest.NewCycleHandler(orch)
	adminHandler := rest.NewAdminHandler(preferenceRepo, categoryRepo)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(httpmetrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET(cfg.Server.MetricsPath, echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetInsightRoutes(api, insightHandler)
	router.SetRecommendationRoutes(api, recoHandler)
	router.SetAutoActionRoutes(api, autoActionHandler)
	router.SetInteractionRoutes(api, interactionHandler)
	router.SetCycleRoutes(api, cycleHandler)
	router.SetAdminRoutes(api, adminHandler, autoActionHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	sched.Stop()
	stopBackground()
	_ = bg.Wait()

	if err := redisDB.CloseRedisClient(rdb); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	logger.Info("Server stopped")
}

func insightConfig(ec config.EngineConfig) insight.Config {
	cfg := insight.DefaultConfig()
	cfg.FreeShippingThreshold = ec.FreeShippingThreshold
	cfg.GiftThreshold = ec.GiftThreshold
	cfg.Window = ec.ThresholdWindow
	cfg.HighWindow = ec.ThresholdHighWindow
	cfg.CacheTTL = ec.SignalCacheTTL
	return cfg
}

func strategyConfig(ec config.EngineConfig) strategy.Config {
	cfg := strategy.DefaultConfig()
	cfg.FreeShippingThreshold = ec.FreeShippingThreshold
	cfg.GiftThreshold = ec.GiftThreshold
	cfg.PushWindow = ec.PushWindow
	cfg.FillerBuffer = ec.FillerBuffer
	cfg.FillerSmallBuffer = ec.FillerSmallBuffer
	cfg.RiskFloor = ec.RiskFloor
	cfg.LowStockThreshold = ec.LowStockThreshold
	cfg.CacheTTL = ec.StrategyCacheTTL
	return cfg
}

func recommendConfig(ec config.EngineConfig) recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.HighTicketPrice = ec.HighTicketPrice
	cfg.RerankTimeout = ec.RerankTimeout
	cfg.RerankMinCandidates = ec.RerankMinCandidates
	cfg.CacheTTL = ec.RecommendationCacheTTL
	return cfg
}

func autoActionConfig(ec config.EngineConfig) autoaction.Config {
	cfg := autoaction.DefaultConfig()
	cfg.MaxAutoAddPrice = ec.MaxAutoAddPrice
	cfg.CooldownMinutes = ec.CooldownMinutes
	cfg.DailyActionLimit = ec.DailyActionLimit
	cfg.RestrictedCategories = ec.RestrictedCategories
	return cfg
}
