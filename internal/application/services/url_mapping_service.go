// Package services provides application-level services that orchestrate
// the element store, the URL index and the change engine.
package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
)

// URLMappingService owns the element URL cache and reports its activity to
// metrics and the performance tracker.
type URLMappingService struct {
	cache   *urlmap.ElementUrlCache
	tracker *performance.Tracker
	logger  *logging.ChanneledLogger
}

// NewURLMappingService loads or builds the URL index over store.
func NewURLMappingService(store urlmap.Store, fast urlmap.FastCache, cfg urlmap.Config, tracker *performance.Tracker, logger *logging.ChanneledLogger) (*URLMappingService, error) {
	cfg.OnRebuild = func(mode string, d time.Duration, pointers int, err error) {
		metrics.ObserveURLRebuild(mode, d, err)
		if err == nil {
			metrics.SetURLMappingSize(pointers)
		}
	}
	cfg.OnFastCacheFailure = metrics.FastCacheWriteFailed

	start := time.Now()
	cache, err := urlmap.NewElementUrlCache(store, fast, logger.URLMap(), cfg)
	if err != nil {
		if urlmap.IsCorruption(err) {
			logger.Alert().Error("URL mapping is corrupt", "error", err)
		}
		return nil, fmt.Errorf("failed to initialize URL mapping: %w", err)
	}

	stats := cache.Stats()
	metrics.SetURLMappingSize(stats.Pointers)
	logger.URLMap().Info("URL mapping ready", "provenance", stats.Provenance, "pointers", stats.Pointers, "duration", time.Since(start))

	return &URLMappingService{cache: cache, tracker: tracker, logger: logger}, nil
}

// Resolve returns the pointer for a request path
func (s *URLMappingService) Resolve(path string) (element.UrlPointer, bool) {
	p, ok := s.cache.Lookup(path)
	metrics.URLLookup(ok)
	return p, ok
}

// UrlsFor returns the URLs owned by an element
func (s *URLMappingService) UrlsFor(elementID string) ([]element.UrlPointer, error) {
	if err := element.CheckID(elementID); err != nil {
		return nil, err
	}
	return s.cache.GetUrlPointersByElement(elementID)
}

// CheckSlugs pre-checks proposed slugs for a child of parentID
func (s *URLMappingService) CheckSlugs(parentID string, proposed map[string]element.Slug, existingElementID string) (map[string]urlmap.SlugCheck, error) {
	return s.cache.CheckSlugs(parentID, proposed, existingElementID)
}

// Rebuild regenerates the whole index from elements
func (s *URLMappingService) Rebuild() error {
	marker := s.tracker.StartOperation("urlmap:full_rebuild", "")
	defer marker.Complete()

	err := s.cache.CreateUrlMapping()
	if err != nil {
		marker.SetError(err)
		s.logRebuildError(err)
		return err
	}
	marker.SetSuccess(true)
	marker.AddMetadata("pointers", s.cache.Stats().Pointers)
	return nil
}

// UpdateFor re-resolves the URLs of the given elements
func (s *URLMappingService) UpdateFor(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	marker := s.tracker.StartOperation("urlmap:incremental", fmt.Sprintf("%d elements", len(ids)))
	defer marker.Complete()

	err := s.cache.UpdateUrlMappingFor(ids)
	if err != nil {
		marker.SetError(err)
		s.logRebuildError(err)
		return err
	}
	marker.SetSuccess(true)
	return nil
}

// RefreshDurableIfInvalid rebuilds and persists the mapping when the
// durable copy was invalidated.
func (s *URLMappingService) RefreshDurableIfInvalid() (bool, error) {
	return s.cache.RefreshDurableIfInvalid()
}

// Stats reports the index state
func (s *URLMappingService) Stats() urlmap.Stats {
	return s.cache.Stats()
}

// Mapping returns a copy of the whole index
func (s *URLMappingService) Mapping() map[string]element.UrlPointer {
	return s.cache.Mapping()
}

func (s *URLMappingService) logRebuildError(err error) {
	if urlmap.IsCorruption(err) {
		s.logger.Alert().Error("URL mapping corruption detected", "error", err)
		return
	}
	s.logger.URLMap().Error("URL mapping update failed", "error", err)
}
