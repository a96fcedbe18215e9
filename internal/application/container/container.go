// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/definition"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/manager"
	schema "github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/database"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/definitions"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/media"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/memory"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

// DriverMemory keeps everything in process memory.
const DriverMemory = "memory"

// Options collects everything the container needs to wire the services.
type Options struct {
	Storage         database.Options
	Cache           manager.Config
	URLMap          urlmap.Config
	DefinitionsPath string
	MediaPath       string
	MaxUploadSize   int64
	JWTSecret       string
	CORSOrigins     []string
}

// OptionsFromConfig reads the already-initialized variables in /pkg/config.
func OptionsFromConfig() Options {
	return Options{
		Storage: database.OptionsFromConfig(),
		Cache: manager.Config{
			ElementTTL:  config.ElementCacheTTL,
			FastBackend: config.FastCacheBackend,
			FastTTL:     config.FastCacheTTL,
			BadgerPath:  config.BadgerPath,
		},
		URLMap: urlmap.Config{
			SlowRebuildThreshold: config.SlowRebuildThreshold,
			WriteRetries:         config.FastCacheWriteRetries,
			RetryBackoff:         config.FastCacheRetryBackoff,
		},
		DefinitionsPath: config.DefinitionsPath,
		MediaPath:       config.MediaPath,
		MaxUploadSize:   config.MaxUploadSize,
		JWTSecret:       config.JWTSecret,
		CORSOrigins:     config.CORSOrigins,
	}
}

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Options Options

	// Application Services
	URLMappingService  *services.URLMappingService
	ElementService     *services.ElementService
	TransactionService *services.TransactionService
	PlanningService    *services.PlanningService
	FileService        *services.FileService
	IntegrityService   *services.IntegrityService

	// Infrastructure Dependencies
	Logger       *logging.ChanneledLogger
	PerfTracker  *performance.Tracker
	CacheManager *manager.Manager
	DB           *database.DB
	Store        repositories.StorageAdapter
	Definitions  *definition.Registry
	Broadcaster  *messaging.ChangeBroadcaster
}

// New opens storage and caches and wires all singleton services
func New(opts Options, logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{
		Options:     opts,
		Logger:      logger,
		PerfTracker: performance.NewTracker(logger.Perf(), time.Second),
	}

	defs, err := definitions.Load(opts.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	c.Definitions = defs

	c.CacheManager, err = manager.NewManager(opts.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize caches: %w", err)
	}

	if err := c.openStore(); err != nil {
		c.Close()
		return nil, err
	}

	c.URLMappingService, err = services.NewURLMappingService(c.Store, c.CacheManager, opts.URLMap, c.PerfTracker, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	engine := changes.NewEngine(changes.Env{
		Elements:    c.Store,
		Files:       c.Store,
		Definitions: c.Definitions,
		Slugs:       c.URLMappingService,
	}, logger.Transaction())

	c.Broadcaster = messaging.NewChangeBroadcaster(logger.Transaction(), nil)
	c.ElementService = services.NewElementService(c.Store, c.URLMappingService)
	c.TransactionService = services.NewTransactionService(engine, c.Store, c.URLMappingService, c.Broadcaster, c.PerfTracker, logger)
	c.PlanningService = services.NewPlanningService(c.Store)
	c.FileService = services.NewFileService(media.NewFileProcessor(opts.MediaPath), c.TransactionService, opts.MaxUploadSize)
	c.IntegrityService = services.NewIntegrityService(c.Store, logger)

	return c, nil
}

func (c *Container) openStore() error {
	if c.Options.Storage.Driver == DriverMemory {
		repo := memory.NewRepository()
		if err := repo.StoreElement(element.New(element.RootID, element.TypeRoot, "", "root")); err != nil {
			return err
		}
		c.Store = repo
		return nil
	}

	db, err := database.Open(c.Options.Storage, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	c.DB = db

	if err := InitSchema(db, c.Logger); err != nil {
		return err
	}
	c.Store = content.NewStore(db.DB, c.CacheManager, c.Logger)
	return nil
}

// InitSchema creates the tables and the root element when missing.
func InitSchema(db *database.DB, logger *logging.ChanneledLogger) error {
	start := time.Now()
	tc := schema.NewTableCreator()
	if err := tc.CreateSchema(db.DB); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := tc.SeedInitialContent(db.DB); err != nil {
		return fmt.Errorf("failed to seed root element: %w", err)
	}
	logger.Database().Info("Schema ready", "driver", db.Driver, "duration", time.Since(start))
	return nil
}

// Close releases storage and cache resources
func (c *Container) Close() error {
	var firstErr error
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			firstErr = err
		}
	}
	if c.CacheManager != nil {
		if err := c.CacheManager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
