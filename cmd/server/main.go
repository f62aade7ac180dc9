package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/adaptive-assessment/internal/cache"
	"github.com/SAP-F-2025/adaptive-assessment/internal/config"
	"github.com/SAP-F-2025/adaptive-assessment/internal/handlers"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories/postgres"
	"github.com/SAP-F-2025/adaptive-assessment/internal/services"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/SAP-F-2025/adaptive-assessment/internal/validator"
	"github.com/SAP-F-2025/adaptive-assessment/pkg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if err := pkg.Migrate(db); err != nil {
		return err
	}

	// Redis is optional; a single instance can keep sessions in memory.
	var store cache.CacheService
	if redisClient, err := pkg.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn("Redis unavailable, using in-memory session cache", "error", err)
		store = cache.NewMemoryCache()
	} else {
		defer redisClient.Close()
		store = cache.NewRedisCache(redisClient, logger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", "error", err)
		}
	}()

	v := validator.New()
	itemRepo := postgres.NewItemPostgreSQL(db)
	sessionRepo := postgres.NewSessionPostgreSQL(db)

	itemService := services.NewItemBankService(itemRepo, logger, v)
	sessionService := services.NewSessionService(services.SessionServiceDeps{
		Sessions:  sessionRepo,
		Bank:      itemService,
		Cache:     cache.NewSessionCache(store, cfg.CacheTTL),
		Publisher: publisher,
		Validator: v,
		Logger:    logger,
		Engine:    cfg.EngineSettings(),
	})
	importExportService := services.NewImportExportService(itemRepo, sessionRepo, itemService, logger, v)

	appLogger := utils.NewSlogLogger(logger)

	var auth gin.HandlerFunc
	if cfg.Auth.Enabled() {
		auth = handlers.AuthMiddleware(handlers.NewCasdoorParser(cfg.Auth), appLogger)
	} else {
		logger.Warn("CASDOOR_ENDPOINT not set, API is served without authentication")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		utils.RequestID(),
		utils.LoggerMiddleware(appLogger),
		utils.ContextLogger(appLogger),
		gin.Recovery(),
	)
	handlers.NewHandlerManager(sessionService, itemService, importExportService, auth, appLogger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting adaptive assessment service", "port", cfg.Port, "environment", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
