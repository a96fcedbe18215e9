// Package definition describes element schemas: which element types a
// definition applies to, and which fields and sub-element collections its
// contents may hold.
package definition

import (
	"sort"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// Definition is the schema selected by an element version.
type Definition struct {
	ID          string                 `yaml:"id" json:"id"`
	Label       string                 `yaml:"label,omitempty" json:"label,omitempty"`
	Types       []element.Type         `yaml:"types" json:"types"`
	Fields      []string               `yaml:"fields" json:"fields"`
	Collections map[string]*Collection `yaml:"collections,omitempty" json:"collections,omitempty"`
}

// Collection is the schema of one repeatable sub-element list.
type Collection struct {
	Fields      []string               `yaml:"fields" json:"fields"`
	Collections map[string]*Collection `yaml:"collections,omitempty" json:"collections,omitempty"`
}

// AllowsType reports whether the definition may be used by elements of type t.
func (d *Definition) AllowsType(t element.Type) bool {
	for _, allowed := range d.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// AllowsField reports whether field may be set at the given nesting.
func (d *Definition) AllowsField(nesting element.ContentPath, field string) bool {
	fields, _, ok := d.scope(nesting)
	return ok && contains(fields, field)
}

// AllowsCollection reports whether collection exists at the given nesting.
func (d *Definition) AllowsCollection(nesting element.ContentPath, collection string) bool {
	_, collections, ok := d.scope(nesting)
	if !ok {
		return false
	}
	_, exists := collections[collection]
	return exists
}

func (d *Definition) scope(nesting element.ContentPath) ([]string, map[string]*Collection, bool) {
	fields, collections := d.Fields, d.Collections
	for i := 0; i+1 < len(nesting); i += 2 {
		c, ok := collections[nesting[i]]
		if !ok {
			return nil, nil, false
		}
		fields, collections = c.Fields, c.Collections
	}
	return fields, collections, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Registry holds the known definitions by id.
type Registry struct {
	byID map[string]*Definition
}

// NewRegistry indexes defs by id. Later duplicates replace earlier ones.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{byID: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		r.byID[d.ID] = d
	}
	return r
}

// Lookup returns the definition with the given id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
