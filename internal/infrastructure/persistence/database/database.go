// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverTurso  = "turso"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// Options selects and tunes the durable store.
type Options struct {
	Driver          string
	SQLitePath      string
	TursoURL        string
	TursoToken      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFromConfig reads the storage settings from pkg/config.
func OptionsFromConfig() Options {
	return Options{
		Driver:          config.StorageDriver,
		SQLitePath:      config.SQLitePath,
		TursoURL:        config.TursoURL,
		TursoToken:      config.TursoToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: config.DBConnMaxLifetime,
	}
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, Driver: driverName}, nil
}

// Open connects to SQLite or Turso according to opts and applies the pool
// settings. The SQLite directory is created when missing.
func Open(opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driver", opts.Driver)

	var driverName, dsn string
	switch opts.Driver {
	case DriverTurso:
		if opts.TursoURL == "" || opts.TursoToken == "" {
			return nil, fmt.Errorf("turso driver requires TURSO_DATABASE_URL and TURSO_AUTH_TOKEN")
		}
		driverName, dsn = "libsql", opts.TursoURL+"?authToken="+opts.TursoToken
	case DriverSQLite, "":
		if opts.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		driverName, dsn = "sqlite3", opts.SQLitePath
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}

	db, err := NewConnection(driverName, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driver", opts.Driver)
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driver", opts.Driver, "duration", duration)
	CheckAndLogSlowQuery(logger, "DATABASE_CONNECTION", duration)
	return db, nil
}

// ConnectionInfo describes the connection for health output.
func (db *DB) ConnectionInfo() map[string]any {
	stats := db.Stats()
	return map[string]any{
		"driver":  db.Driver,
		"healthy": db.Ping() == nil,
		"maxOpen": stats.MaxOpenConnections,
		"open":    stats.OpenConnections,
		"inUse":   stats.InUse,
		"idle":    stats.Idle,
	}
}
