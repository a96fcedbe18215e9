// Package manager provides centralized cache operations by delegating to the
// element store and the fast cache backend.
package manager

import (
	"fmt"
	"io"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
)

// Interface assertions to ensure Manager implements all required interfaces.
var (
	_ interfaces.ElementCache = (*Manager)(nil)
	_ interfaces.FastCache    = (*Manager)(nil)
)

// Backend names accepted by NewManager.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config selects and tunes the cache backends.
type Config struct {
	ElementTTL  time.Duration
	FastBackend string
	FastTTL     time.Duration
	BadgerPath  string
}

// Manager owns the element cache and the fast cache.
type Manager struct {
	elements *stores.ElementStore
	fast     interfaces.FastCache
	backend  string
	logger   *logging.ChanneledLogger
}

// NewManager opens the configured backends.
func NewManager(cfg Config, logger *logging.ChanneledLogger) (*Manager, error) {
	m := &Manager{
		elements: stores.NewElementStore(cfg.ElementTTL),
		backend:  cfg.FastBackend,
		logger:   logger,
	}

	switch cfg.FastBackend {
	case "", BackendMemory:
		m.fast = stores.NewMemoryStore(cfg.FastTTL)
		m.backend = BackendMemory
	case BackendBadger:
		b, err := stores.OpenBadgerStore(stores.BadgerConfig{
			Path:   cfg.BadgerPath,
			TTL:    cfg.FastTTL,
			Logger: logger.Cache(),
		})
		if err != nil {
			return nil, err
		}
		m.fast = b
	default:
		return nil, fmt.Errorf("unknown fast cache backend %q", cfg.FastBackend)
	}

	logger.Cache().Info("Initializing cache manager", "fastBackend", m.backend, "elementTTL", cfg.ElementTTL)
	return m, nil
}

// =============================================================================
// Element cache
// =============================================================================

func (m *Manager) GetElement(id string) (*element.Element, bool) { return m.elements.GetElement(id) }
func (m *Manager) SetElement(e *element.Element)                 { m.elements.SetElement(e) }
func (m *Manager) InvalidateElement(id string)                   { m.elements.InvalidateElement(id) }
func (m *Manager) GetAllElementIDs() ([]string, bool)            { return m.elements.GetAllElementIDs() }
func (m *Manager) SetAllElementIDs(ids []string)                 { m.elements.SetAllElementIDs(ids) }
func (m *Manager) InvalidateAllElementIDs()                      { m.elements.InvalidateAllElementIDs() }
func (m *Manager) PurgeExpired() int                             { return m.elements.PurgeExpired() }
func (m *Manager) Stats() interfaces.CacheStats                  { return m.elements.Stats() }

// =============================================================================
// Fast cache
// =============================================================================

func (m *Manager) Fetch(key string) ([]byte, bool) {
	start := time.Now()
	v, ok := m.fast.Fetch(key)
	m.logger.Cache().Debug("Fast cache fetch", "key", key, "hit", ok, "duration", time.Since(start))
	return v, ok
}

func (m *Manager) Store(key string, value []byte) error {
	if err := m.fast.Store(key, value); err != nil {
		m.logger.Cache().Warn("Fast cache store failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (m *Manager) Delete(key string) error { return m.fast.Delete(key) }

func (m *Manager) Clear() error {
	m.elements.InvalidateAllElementIDs()
	return m.fast.Clear()
}

// Backend reports the fast cache backend name.
func (m *Manager) Backend() string { return m.backend }

// Health summarizes both caches.
func (m *Manager) Health() map[string]any {
	stats := m.elements.Stats()
	return map[string]any{
		"fastBackend":   m.backend,
		"elements":      stats.Entries,
		"elementHits":   stats.Hits,
		"elementMisses": stats.Misses,
		"hitRatio":      stats.HitRatio(),
	}
}

// Close releases the fast cache backend when it holds resources.
func (m *Manager) Close() error {
	if c, ok := m.fast.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
