// Package config provides centralized default values for the elements service
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.Trim(strings.TrimSpace(value), `"'`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue && !isSecret(key) {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "_SECRET") || strings.HasSuffix(key, "_TOKEN")
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	MaxUploadSize      int64
	MediaPath          string

	// Storage
	StorageDriver string
	SQLitePath    string
	TursoURL      string
	TursoToken    string

	// Database Pool
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	SlowQueryThreshold time.Duration

	// Fast Cache
	FastCacheBackend      string
	BadgerPath            string
	FastCacheTTL          time.Duration
	FastCacheWriteRetries int
	FastCacheRetryBackoff time.Duration

	// URL Mapping
	SlowRebuildThreshold   time.Duration
	DurableRefreshInterval time.Duration

	// Element cache
	ElementCacheTTL time.Duration
	CleanupInterval time.Duration
	CleanupVerbose  bool

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Definitions
	DefinitionsPath string

	// Logging
	LogDir    string
	LogLevel  string
	LogFormat string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	CORSOrigins = strings.Split(getEnvString("CORS_ORIGINS", "http://localhost:4321"), ",")
	MaxUploadSize = int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 16)) << 20
	MediaPath = getEnvString("MEDIA_PATH", "data/media")

	// Storage
	StorageDriver = getEnvString("STORAGE_DRIVER", "sqlite")
	SQLitePath = getEnvString("SQLITE_PATH", "data/elements.db")
	TursoURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoToken = getEnvString("TURSO_AUTH_TOKEN", "")

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetime = time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute
	SlowQueryThreshold = time.Duration(getEnvInt("SLOW_QUERY_THRESHOLD_MS", 200)) * time.Millisecond

	// Fast Cache
	FastCacheBackend = getEnvString("FAST_CACHE_BACKEND", "memory")
	BadgerPath = getEnvString("BADGER_PATH", "")
	FastCacheTTL = time.Duration(getEnvInt("FAST_CACHE_TTL_HOURS", 24)) * time.Hour
	FastCacheWriteRetries = getEnvInt("FAST_CACHE_WRITE_RETRIES", 3)
	FastCacheRetryBackoff = getEnvDuration("FAST_CACHE_RETRY_BACKOFF", 25*time.Millisecond)

	// URL Mapping
	SlowRebuildThreshold = getEnvDuration("SLOW_REBUILD_THRESHOLD", 2*time.Second)
	DurableRefreshInterval = time.Duration(getEnvInt("DURABLE_REFRESH_INTERVAL_MINUTES", 5)) * time.Minute

	// Element cache
	ElementCacheTTL = time.Duration(getEnvInt("ELEMENT_CACHE_TTL_HOURS", 24)) * time.Hour
	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute
	CleanupVerbose = getEnvBool("CACHE_CLEANUP_VERBOSE", false)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "dev-secret-change-me")
	TokenTTL = time.Duration(getEnvInt("TOKEN_TTL_HOURS", 12)) * time.Hour

	// Definitions
	DefinitionsPath = getEnvString("DEFINITIONS_PATH", "config/definitions.yaml")

	// Logging
	LogDir = getEnvString("LOG_DIR", "")
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogFormat = getEnvString("LOG_FORMAT", "text")
}
