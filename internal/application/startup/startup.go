// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/container"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/presentation/http/server"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

// NewLogger builds the channeled logger from the LOG_* settings
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	cfg.JSONFormat = config.LogFormat == "json"
	if config.LogDir != "" {
		cfg.OutputToFile = true
		cfg.LogDirectory = config.LogDir
	}
	return logging.NewChanneledLogger(cfg)
}

// Initialize performs the complete startup sequence and blocks until SIGINT
// or SIGTERM, then shuts down gracefully.
func Initialize() error {
	setupGin()
	start := time.Now().UTC()

	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Storage, caches and the URL index
	logger.Startup().Info("Initializing dependency injection container...", "storage", config.StorageDriver, "fastCache", config.FastCacheBackend)
	stepStart := time.Now()
	appContainer, err := container.New(container.OptionsFromConfig(), logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(stepStart), false)
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer appContainer.Close()
	logger.LogStartupPhase("container", time.Since(stepStart), true)

	// Step 2: Background workers
	cleanupWorker := cleanup.NewWorker(appContainer.CacheManager, appContainer.URLMappingService, cleanup.NewConfig(), logger.Cache())
	go cleanupWorker.Start(ctx)
	go appContainer.Broadcaster.Run(ctx)
	logger.Startup().Info("Background workers started")

	// Step 3: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		serverErr <- httpServer.Start()
	}()

	stats := appContainer.URLMappingService.Stats()
	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"urlPointers", stats.Pointers,
		"urlProvenance", stats.Provenance,
		"port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			return err
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

// setupGin selects gin's mode from GIN_MODE
func setupGin() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
}
