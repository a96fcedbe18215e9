package cleanup

import (
	"time"

	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval        time.Duration
	DurableRefreshInterval time.Duration
	VerboseReporting       bool
}

// NewConfig reads the already-initialized variables in /pkg/config.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:        config.CleanupInterval,
		DurableRefreshInterval: config.DurableRefreshInterval,
		VerboseReporting:       config.CleanupVerbose,
	}
}
