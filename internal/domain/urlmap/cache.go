package urlmap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// Fast-cache keys.
const (
	ForwardCacheKey  = "urlmap:forward"
	InvertedCacheKey = "urlmap:inverted"
)

// FastCache is the advisory, process-external key value store holding the
// serialized forward and inverted maps. Writes may race between processes.
type FastCache interface {
	Fetch(key string) ([]byte, bool)
	Store(key string, value []byte) error
	Delete(key string) error
	Clear() error
}

// Store is the storage adapter surface the cache reads from.
type Store interface {
	repositories.ElementRepository
	repositories.UrlMappingRepository
}

// Provenance records where the current inverted map came from.
type Provenance string

const (
	Uninitialized          Provenance = "uninitialized"
	LoadedFromFastCache    Provenance = "fast-cache"
	LoadedFromDurableStore Provenance = "durable-store"
	FreshlyRebuilt         Provenance = "rebuilt"
)

// Config tunes rebuild reporting and the fast-cache write protocol.
type Config struct {
	SlowRebuildThreshold time.Duration
	WriteRetries         int
	RetryBackoff         time.Duration

	// OnRebuild is called after every full or incremental rebuild.
	OnRebuild func(mode string, d time.Duration, pointers int, err error)
	// OnFastCacheFailure is called when a write exhausts its retries.
	OnFastCacheFailure func(key string)
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SlowRebuildThreshold: 2 * time.Second,
		WriteRetries:         3,
		RetryBackoff:         25 * time.Millisecond,
	}
}

// Stats describes the cache for health endpoints.
type Stats struct {
	Provenance     Provenance `json:"provenance"`
	Pointers       int        `json:"pointers"`
	ForwardEntries int        `json:"forwardEntries"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ElementUrlCache owns the forward and inverted URL indexes.
type ElementUrlCache struct {
	store  Store
	fast   FastCache
	logger *slog.Logger
	cfg    Config

	writeMu    sync.Mutex // serializes full and incremental rebuilds
	mu         sync.RWMutex
	forward    ForwardIndex
	inverted   map[string]element.UrlPointer
	provenance Provenance
	updatedAt  time.Time

	rebuilds singleflight.Group
}

// NewElementUrlCache loads the inverted map from the fast cache, then the
// durable store, and rebuilds it from elements when neither has it.
func NewElementUrlCache(store Store, fast FastCache, logger *slog.Logger, cfg Config) (*ElementUrlCache, error) {
	if cfg.WriteRetries < 1 {
		cfg.WriteRetries = 1
	}
	c := &ElementUrlCache{
		store:      store,
		fast:       fast,
		logger:     logger,
		cfg:        cfg,
		forward:    make(ForwardIndex),
		inverted:   make(map[string]element.UrlPointer),
		provenance: Uninitialized,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ElementUrlCache) load() error {
	if data, ok := c.fast.Fetch(InvertedCacheKey); ok {
		var inverted map[string]element.UrlPointer
		if err := json.Unmarshal(data, &inverted); err == nil && inverted != nil {
			c.setLoaded(inverted, LoadedFromFastCache)
			if data, ok := c.fast.Fetch(ForwardCacheKey); ok {
				var forward ForwardIndex
				if err := json.Unmarshal(data, &forward); err == nil && forward != nil {
					c.forward = forward
				}
			}
			c.logger.Info("URL mapping loaded from fast cache", "pointers", len(inverted))
			return nil
		}
		c.logger.Warn("Malformed URL mapping in fast cache, ignoring it")
	}

	inverted, found, err := c.store.LoadUrlMapping()
	if err != nil {
		c.logger.Warn("Failed to load durable URL mapping, rebuilding", "error", err)
	} else if found {
		c.setLoaded(inverted, LoadedFromDurableStore)
		c.storeFast(InvertedCacheKey, inverted, decodesAs[map[string]element.UrlPointer])
		c.logger.Info("URL mapping loaded from durable store", "pointers", len(inverted))
		return nil
	}

	return c.CreateUrlMapping()
}

func (c *ElementUrlCache) setLoaded(inverted map[string]element.UrlPointer, p Provenance) {
	c.mu.Lock()
	c.inverted = inverted
	c.provenance = p
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// CreateUrlMapping discards all memoized state and rebuilds both indexes
// from every stored element. Concurrent calls share one rebuild.
func (c *ElementUrlCache) CreateUrlMapping() error {
	_, err, _ := c.rebuilds.Do("full", func() (any, error) {
		return nil, c.fullRebuild()
	})
	return err
}

func (c *ElementUrlCache) fullRebuild() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	start := time.Now()

	ids, err := c.store.EnumAllElementIDs()
	if err != nil {
		c.report("full", start, 0, err)
		return fmt.Errorf("failed to enumerate elements: %w", err)
	}

	forward := make(ForwardIndex, len(ids))
	perUrl, err := GenerateUrls(c.store, forward, ids, c.logger)
	if err != nil {
		c.report("full", start, 0, err)
		return err
	}
	inverted, err := AssembleInvertedUrlMapping(perUrl, c.logger)
	if err != nil {
		c.report("full", start, 0, err)
		return err
	}

	c.mu.Lock()
	c.forward = forward
	c.inverted = inverted
	c.provenance = FreshlyRebuilt
	c.updatedAt = time.Now()
	c.mu.Unlock()

	c.storeFast(ForwardCacheKey, forward, decodesAs[ForwardIndex])
	c.storeFast(InvertedCacheKey, inverted, decodesAs[map[string]element.UrlPointer])
	if err := c.store.StoreUrlMapping(inverted); err != nil {
		c.report("full", start, len(inverted), err)
		return fmt.Errorf("failed to persist URL mapping: %w", err)
	}

	duration := time.Since(start)
	if duration > c.cfg.SlowRebuildThreshold {
		c.logger.Warn("Slow URL mapping rebuild", "elements", len(ids), "pointers", len(inverted), "duration", duration)
	} else {
		c.logger.Info("URL mapping rebuilt", "elements", len(ids), "pointers", len(inverted), "duration", duration)
	}
	c.report("full", start, len(inverted), nil)
	return nil
}

// UpdateUrlMappingFor re-resolves only the given elements and merges the
// result into the current mapping. The durable copy is invalidated instead
// of rewritten.
func (c *ElementUrlCache) UpdateUrlMappingFor(modifiedIDs []string) error {
	if len(modifiedIDs) == 0 {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	start := time.Now()
	modified := make(map[string]bool, len(modifiedIDs))
	for _, id := range modifiedIDs {
		modified[id] = true
	}

	c.mu.Lock()
	forward := make(ForwardIndex, len(c.forward))
	for id, entry := range c.forward {
		if !modified[id] {
			forward[id] = entry
		}
	}
	inverted := make(map[string]element.UrlPointer, len(c.inverted))
	for url, p := range c.inverted {
		if !modified[p.ElementID] {
			inverted[url] = p
		}
	}

	perUrl, err := GenerateUrls(c.store, forward, modifiedIDs, c.logger)
	if err == nil {
		var partial map[string]element.UrlPointer
		partial, err = AssembleInvertedUrlMapping(perUrl.OnlyFrom(modified), c.logger)
		if err == nil {
			urls := make([]string, 0, len(partial))
			for url := range partial {
				urls = append(urls, url)
			}
			sort.Strings(urls)
			for _, url := range urls {
				if err = mergePointer(inverted, partial[url], c.logger); err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		c.mu.Unlock()
		c.report("incremental", start, 0, err)
		return err
	}

	c.forward = forward
	c.inverted = inverted
	c.updatedAt = time.Now()
	c.mu.Unlock()

	c.storeFast(ForwardCacheKey, forward, decodesAs[ForwardIndex])
	c.storeFast(InvertedCacheKey, inverted, decodesAs[map[string]element.UrlPointer])
	if err := c.store.InvalidateUrlMapping(); err != nil {
		c.logger.Error("Failed to invalidate durable URL mapping", "error", err)
	}

	c.logger.Debug("URL mapping updated", "elements", len(modifiedIDs), "duration", time.Since(start))
	c.report("incremental", start, len(inverted), nil)
	return nil
}

// RefreshDurableIfInvalid rebuilds and re-persists the mapping when the
// durable copy has been invalidated. It reports whether a rebuild ran.
func (c *ElementUrlCache) RefreshDurableIfInvalid() (bool, error) {
	valid, err := c.store.UrlMappingValid()
	if err != nil {
		return false, fmt.Errorf("failed to read URL mapping state: %w", err)
	}
	if valid {
		return false, nil
	}
	return true, c.CreateUrlMapping()
}

// Lookup returns the pointer for a request path.
func (c *ElementUrlCache) Lookup(path string) (element.UrlPointer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.inverted[NormalizePath(path)]
	if !ok {
		return element.UrlPointer{}, false
	}
	return p.Clone(), true
}

// GetUrlPointersByElement returns the pointers owned by elementID among the
// URLs its slugs resolve to, sorted by URL.
func (c *ElementUrlCache) GetUrlPointersByElement(elementID string) ([]element.UrlPointer, error) {
	if err := c.ensureForward(elementID); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []element.UrlPointer
	for _, r := range c.forward[elementID].URLs {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		if p, ok := c.inverted[r.URL]; ok && p.ElementID == elementID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// Mapping returns a copy of the inverted index.
func (c *ElementUrlCache) Mapping() map[string]element.UrlPointer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]element.UrlPointer, len(c.inverted))
	for url, p := range c.inverted {
		out[url] = p.Clone()
	}
	return out
}

// Stats reports the cache state.
func (c *ElementUrlCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Provenance:     c.provenance,
		Pointers:       len(c.inverted),
		ForwardEntries: len(c.forward),
		UpdatedAt:      c.updatedAt,
	}
}

// ensureForward computes forward entries for ids that are not memoized yet.
func (c *ElementUrlCache) ensureForward(ids ...string) error {
	c.mu.RLock()
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.forward[id]; !ok && !element.IsTopLevel(id) {
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()
	if len(missing) == 0 {
		return nil
	}

	c.mu.Lock()
	_, err := GenerateUrls(c.store, c.forward, missing, c.logger)
	snapshot := make(ForwardIndex, len(c.forward))
	for id, entry := range c.forward {
		snapshot[id] = entry
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.storeFast(ForwardCacheKey, snapshot, decodesAs[ForwardIndex])
	return nil
}

// storeFast writes value under key and reads it back, retrying with a short
// linear backoff. Exhausted retries are logged, never returned.
func (c *ElementUrlCache) storeFast(key string, value any, verify func([]byte) error) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode fast cache payload", "key", key, "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.WriteRetries; attempt++ {
		if lastErr = c.fast.Store(key, data); lastErr == nil {
			got, ok := c.fast.Fetch(key)
			if !ok {
				lastErr = fmt.Errorf("value missing after write")
			} else if lastErr = verify(got); lastErr == nil {
				return
			}
		}
		if attempt < c.cfg.WriteRetries {
			time.Sleep(c.cfg.RetryBackoff * time.Duration(attempt))
		}
	}

	c.logger.Error("Fast cache write did not round-trip, continuing with stale fast cache",
		"key", key, "attempts", c.cfg.WriteRetries, "error", lastErr)
	if c.cfg.OnFastCacheFailure != nil {
		c.cfg.OnFastCacheFailure(key)
	}
}

func decodesAs[T any](data []byte) error {
	var v T
	return json.Unmarshal(data, &v)
}

func (c *ElementUrlCache) report(mode string, start time.Time, pointers int, err error) {
	if c.cfg.OnRebuild != nil {
		c.cfg.OnRebuild(mode, time.Since(start), pointers, err)
	}
}
