// Package memory implements the storage adapter in process memory. It backs
// tests and the "memory" storage driver.
package memory

import (
	"sort"
	"sync"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// Repository keeps deep copies of everything it stores.
type Repository struct {
	mu           sync.RWMutex
	elements     map[string]*element.Element
	files        map[string]*element.FileMeta
	urlMapping   map[string]element.UrlPointer
	mappingValid bool
	transactions []*repositories.TransactionRecord

	// Loads counts LoadElement calls.
	Loads int
	// FailStore, when set, is returned by StoreElement for the matching id.
	FailStore func(id string) error
}

var _ repositories.StorageAdapter = (*Repository)(nil)

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		elements: make(map[string]*element.Element),
		files:    make(map[string]*element.FileMeta),
	}
}

func (r *Repository) LoadElement(id string) (*element.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Loads++
	return r.elements[id].Clone(), nil
}

func (r *Repository) StoreElement(e *element.Element) error {
	if r.FailStore != nil {
		if err := r.FailStore(e.ID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements[e.ID] = e.Clone()
	return nil
}

func (r *Repository) EnumAllElementIDs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.elements))
	for id := range r.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) LoadUrlMapping() (map[string]element.UrlPointer, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.mappingValid || r.urlMapping == nil {
		return nil, false, nil
	}
	return copyMapping(r.urlMapping), true, nil
}

func (r *Repository) StoreUrlMapping(mapping map[string]element.UrlPointer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urlMapping = copyMapping(mapping)
	r.mappingValid = true
	return nil
}

func (r *Repository) InvalidateUrlMapping() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappingValid = false
	return nil
}

func (r *Repository) UrlMappingValid() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mappingValid, nil
}

func (r *Repository) LoadFileMeta(id string) (*element.FileMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.files[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *Repository) StoreFileMeta(meta *element.FileMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *meta
	r.files[meta.ID] = &cp
	return nil
}

func (r *Repository) DeleteFileMeta(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *Repository) RecordTransaction(rec *repositories.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.transactions = append(r.transactions, &cp)
	return nil
}

func (r *Repository) RecentTransactions(limit int) ([]*repositories.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*repositories.TransactionRecord, 0, limit)
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.transactions[i]
		out = append(out, &cp)
	}
	return out, nil
}

func copyMapping(m map[string]element.UrlPointer) map[string]element.UrlPointer {
	out := make(map[string]element.UrlPointer, len(m))
	for k, p := range m {
		out[k] = p.Clone()
	}
	return out
}
