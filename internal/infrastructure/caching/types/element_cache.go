// Package types defines cache data structures
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// CachedElement is one element copy with its load time.
type CachedElement struct {
	Element  *element.Element
	CachedAt time.Time
}

// ElementCacheState holds the cached elements and the id enumeration.
type ElementCacheState struct {
	Elements map[string]*CachedElement

	AllElementIDs     []string
	AllIDsLastUpdated time.Time
	AllIDsLoaded      bool

	Mu sync.RWMutex
}

// NewElementCacheState returns an empty state.
func NewElementCacheState() *ElementCacheState {
	return &ElementCacheState{Elements: make(map[string]*CachedElement)}
}
