package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/api"
	"github.com/starslap/starslap/internal/cache"
	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/ratelimit"
	"github.com/starslap/starslap/pkg/config"
	"github.com/starslap/starslap/pkg/logging"
	"github.com/starslap/starslap/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Starslap API Server",
		zap.String("duplicate_policy", cfg.Vote.DuplicatePolicy))

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to the database and prepare the schema
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database.DB, cfg.Vote.DuplicatePolicy); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Seed the default action set; idempotent on every boot
	repo := db.NewRepository(database.DB)
	actions := db.NewActionRepository(repo)
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := actions.EnsureDefaults(seedCtx); err != nil {
		seedCancel()
		logger.Fatal("Failed to seed default actions", zap.Error(err))
	}
	seedCancel()

	// Optional Redis; the rate limiter falls back to database counters
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisCache != nil {
		defer redisCache.Close()
	} else {
		// Database-backed limiting leaves a row per admitted event;
		// sweep rows no window can still see. Redis expires its own.
		pruneCtx, pruneCancel := context.WithCancel(context.Background())
		defer pruneCancel()
		go ratelimit.NewGormStore(database.DB).PruneLoop(pruneCtx, time.Hour, 24*time.Hour)
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(cfg, database, redisCache)
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
