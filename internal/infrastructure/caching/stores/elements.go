// Package stores provides concrete cache store implementations
package stores

import (
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/types"
)

// ElementStore implements element caching with a TTL per entry
type ElementStore struct {
	state  *types.ElementCacheState
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	since  time.Time
}

var _ interfaces.ElementCache = (*ElementStore)(nil)

// NewElementStore creates a new element cache store
func NewElementStore(ttl time.Duration) *ElementStore {
	return &ElementStore{
		state: types.NewElementCacheState(),
		ttl:   ttl,
		since: time.Now().UTC(),
	}
}

// GetElement retrieves a copy of a cached element
func (s *ElementStore) GetElement(id string) (*element.Element, bool) {
	s.state.Mu.RLock()
	defer s.state.Mu.RUnlock()

	cached, exists := s.state.Elements[id]
	if !exists || time.Since(cached.CachedAt) > s.ttl {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return cached.Element.Clone(), true
}

// SetElement stores a copy of an element
func (s *ElementStore) SetElement(e *element.Element) {
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()

	_, known := s.state.Elements[e.ID]
	s.state.Elements[e.ID] = &types.CachedElement{Element: e.Clone(), CachedAt: time.Now().UTC()}
	if !known && s.state.AllIDsLoaded {
		s.state.AllElementIDs = append(s.state.AllElementIDs, e.ID)
	}
}

// InvalidateElement removes an element
func (s *ElementStore) InvalidateElement(id string) {
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()
	delete(s.state.Elements, id)
}

// GetAllElementIDs returns the cached id enumeration
func (s *ElementStore) GetAllElementIDs() ([]string, bool) {
	s.state.Mu.RLock()
	defer s.state.Mu.RUnlock()

	if !s.state.AllIDsLoaded || time.Since(s.state.AllIDsLastUpdated) > s.ttl {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return append([]string(nil), s.state.AllElementIDs...), true
}

// SetAllElementIDs stores the id enumeration
func (s *ElementStore) SetAllElementIDs(ids []string) {
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()
	s.state.AllElementIDs = append([]string(nil), ids...)
	s.state.AllIDsLastUpdated = time.Now().UTC()
	s.state.AllIDsLoaded = true
}

// InvalidateAllElementIDs drops the id enumeration
func (s *ElementStore) InvalidateAllElementIDs() {
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()
	s.state.AllElementIDs = nil
	s.state.AllIDsLoaded = false
}

// PurgeExpired removes entries older than the TTL and returns how many
func (s *ElementStore) PurgeExpired() int {
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()

	purged := 0
	for id, cached := range s.state.Elements {
		if time.Since(cached.CachedAt) > s.ttl {
			delete(s.state.Elements, id)
			purged++
		}
	}
	if s.state.AllIDsLoaded && time.Since(s.state.AllIDsLastUpdated) > s.ttl {
		s.state.AllElementIDs = nil
		s.state.AllIDsLoaded = false
		purged++
	}
	return purged
}

// Stats reports entry count and hit counters
func (s *ElementStore) Stats() interfaces.CacheStats {
	s.state.Mu.RLock()
	entries := len(s.state.Elements)
	s.state.Mu.RUnlock()
	return interfaces.CacheStats{
		Entries: entries,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Since:   s.since,
	}
}
