// Package cleanup provides the background cache maintenance worker
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
)

// URLMapping is the part of the URL cache the worker maintains.
type URLMapping interface {
	RefreshDurableIfInvalid() (bool, error)
	Stats() urlmap.Stats
}

// Worker evicts expired element cache entries and rebuilds the durable URL
// mapping after incremental updates have invalidated it.
type Worker struct {
	elements interfaces.ElementCache
	urls     URLMapping
	config   *Config
	logger   *slog.Logger
	reporter *Reporter
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(elements interfaces.ElementCache, urls URLMapping, config *Config, logger *slog.Logger) *Worker {
	return &Worker{
		elements: elements,
		urls:     urls,
		config:   config,
		logger:   logger,
		reporter: NewReporter(os.Stdout),
	}
}

// Start runs until ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	cleanup := time.NewTicker(w.config.CleanupInterval)
	defer cleanup.Stop()
	refresh := time.NewTicker(w.config.DurableRefreshInterval)
	defer refresh.Stop()

	w.logger.Info("Cache cleanup worker started",
		"interval", w.config.CleanupInterval,
		"durableRefresh", w.config.DurableRefreshInterval,
		"verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Cache cleanup worker stopping")
			return
		case <-cleanup.C:
			w.PerformCleanup()
		case <-refresh.C:
			w.RefreshDurable()
		}
	}
}

// PerformCleanup evicts expired element cache entries
func (w *Worker) PerformCleanup() int {
	start := time.Now()
	if w.config.VerboseReporting {
		w.reporter.LogStage("PERIODIC CACHE CLEANUP")
		w.reporter.out.Write([]byte(w.reporter.GenerateReport(w.elements.Stats(), w.urls.Stats())))
	}

	cleaned := w.elements.PurgeExpired()
	if cleaned > 0 {
		w.logger.Info("Cache cleanup finished", "cleaned", cleaned, "duration", time.Since(start))
		if w.config.VerboseReporting {
			w.reporter.LogSuccess("Cache cleanup finished: %d items cleaned in %v", cleaned, time.Since(start))
		}
	} else if w.config.VerboseReporting {
		w.reporter.LogInfo("Cache cleanup completed - no expired items found (%v)", time.Since(start))
	}
	return cleaned
}

// RefreshDurable rebuilds the URL mapping when its durable copy is invalid
func (w *Worker) RefreshDurable() {
	start := time.Now()
	rebuilt, err := w.urls.RefreshDurableIfInvalid()
	if err != nil {
		w.logger.Error("Durable URL mapping refresh failed", "error", err)
		if w.config.VerboseReporting {
			w.reporter.LogError("Durable URL mapping refresh failed", err)
		}
		return
	}
	if rebuilt {
		w.logger.Info("Durable URL mapping refreshed", "duration", time.Since(start))
	}
}
