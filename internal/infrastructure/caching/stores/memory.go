package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryStore is an in-process FastCache with a TTL per key
type MemoryStore struct {
	entries map[string]memoryEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

var _ interfaces.FastCache = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store; ttl <= 0 disables expiry
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (m *MemoryStore) Fetch(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || (m.ttl > 0 && time.Since(e.storedAt) > m.ttl) {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

func (m *MemoryStore) Store(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: append([]byte(nil), value...), storedAt: time.Now()}
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

// Len reports the number of stored keys, expired or not
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
