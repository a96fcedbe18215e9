package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

// TestConnection runs a trivial query against db.
func TestConnection(db *DB) error {
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("connection test query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}
	return nil
}

// GetSlowQueryThreshold returns the configured slow query threshold.
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery logs query on the slow query channel when duration
// exceeds the threshold. Full URL mapping writes get a wider margin.
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	threshold := GetSlowQueryThreshold()

	if strings.HasPrefix(query, "BULK_") {
		threshold *= 3
	}

	if duration > threshold {
		logger.LogSlowQuery(query, duration)
	}
}
