// Package interfaces defines the cache contracts used by the element
// repositories and the URL mapping.
package interfaces

import (
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// ElementCache is the read-through cache in front of the element tables.
// Implementations return and keep independent copies.
type ElementCache interface {
	GetElement(id string) (*element.Element, bool)
	SetElement(e *element.Element)
	InvalidateElement(id string)

	GetAllElementIDs() ([]string, bool)
	SetAllElementIDs(ids []string)
	InvalidateAllElementIDs()

	PurgeExpired() int
	Stats() CacheStats
}

// FastCache is the advisory byte store holding the serialized URL maps.
type FastCache interface {
	Fetch(key string) ([]byte, bool)
	Store(key string, value []byte) error
	Delete(key string) error
	Clear() error
}

// CacheStats summarizes a cache for health reporting.
type CacheStats struct {
	Entries int       `json:"entries"`
	Hits    int64     `json:"hits"`
	Misses  int64     `json:"misses"`
	Since   time.Time `json:"since"`
}

// HitRatio returns hits over lookups, or 0 without lookups.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
