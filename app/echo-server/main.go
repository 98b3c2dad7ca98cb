package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swapkit/app/echo-server/router"
	productService "swapkit/business/product"
	"swapkit/business/swap"
	"swapkit/internal/middleware"
	"swapkit/internal/repository/openai"
	psqlRepo "swapkit/internal/repository/postgres"
	redisRepo "swapkit/internal/repository/redis"
	"swapkit/internal/rest"
	"swapkit/pkg/config"
	"swapkit/pkg/database"
	redisdb "swapkit/pkg/database/redis"
	"swapkit/pkg/logger"
	"swapkit/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting SwapKit", "version", cfg.App.Version)

	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisdb.CloseRedisClient(redisClient)

	logger.Info("Redis connected successfully")

	openaiRepo := openai.NewOpenAIRepository(
		openai.OpenAIConfig{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKey:         cfg.OpenAI.APIKey,
			ChatModel:      cfg.OpenAI.ChatModel,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		},
	)

	// Init repo
	productRepo := psqlRepo.NewProductRepository(db)
	ruleRepo := psqlRepo.NewSwapRuleRepository(db)
	decisionRepo := psqlRepo.NewDecisionRepository(db)
	feedbackRepo := psqlRepo.NewFeedbackRepository(db)
	weightRepo := psqlRepo.NewWeightRepository(db)
	embeddingCache := redisRepo.NewEmbeddingRepository(redisClient, 24*time.Hour)

	// pipeline config: env overrides on top of the defaults
	swapCfg := swap.DefaultConfig()
	if cfg.Swap.ConfidenceThreshold > 0 {
		swapCfg.ConfidenceThreshold = cfg.Swap.ConfidenceThreshold
	}
	if cfg.Swap.PriceBandPct > 0 {
		swapCfg.PriceBandPct = cfg.Swap.PriceBandPct
	}
	if cfg.Swap.LLMTimeoutSeconds > 0 {
		swapCfg.LLMTimeout = time.Duration(cfg.Swap.LLMTimeoutSeconds) * time.Second
	}

	// weight table: resume from the last persisted version
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	table, found, err := weightRepo.LatestVersion(bootCtx)
	bootCancel()
	if err != nil {
		logger.Fatal("Failed to load weight table", "error", err)
	}
	if !found {
		table = swap.DefaultWeightTable()
		logger.Info("No persisted weight table, using defaults")
	}
	weightStore := swap.NewWeightStore(table)
	logger.Info("Weight table loaded", "version", table.Version)

	// Init pipeline components
	ruleEngine := swap.NewRuleEngine(ruleRepo, productRepo, swapCfg)
	matcher := swap.NewSimilarityMatcher(openaiRepo, embeddingCache, swapCfg)
	orchestrator := swap.NewLLMOrchestrator(openaiRepo, swapCfg)
	guardrails := swap.NewGuardrailValidator(swapCfg)

	// Init service
	swapService := swap.NewSwapService(productRepo, decisionRepo, ruleEngine, matcher, orchestrator, guardrails, weightStore, swapCfg)
	learner := swap.NewFeedbackLearner(decisionRepo, feedbackRepo, weightRepo, weightStore, swapCfg)
	productSvc := productService.NewProductService(productRepo)

	// Init handler
	swapHandler := rest.NewSwapHandler(swapService, learner)
	productHandler := rest.NewProductHandler(productSvc)
	ruleHandler := rest.NewSwapRuleHandler(ruleRepo)
	adminHandler := rest.NewSwapAdminHandler(weightStore, learner)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceMiddleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	// Auth middleware
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	adminOnly := middleware.AdminOnly()

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupProductRoutes(api, productHandler, authRequired, adminOnly)
	router.SetupSwapRoutes(api, swapHandler, authRequired)
	router.SetupSwapAdminRoutes(api, adminHandler, ruleHandler, authRequired, adminOnly)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
