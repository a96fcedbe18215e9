package services

import (
	"errors"
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// ErrNotFound is returned when an element or URL does not exist.
var ErrNotFound = errors.New("not found")

// ResolvedPage is an element found by URL together with the pointer that matched.
type ResolvedPage struct {
	Pointer element.UrlPointer `json:"pointer"`
	Element *element.Element   `json:"element"`
	// Redirect is the default URL for the pointer's first language when the
	// matched URL is deprecated or not the default.
	Redirect string `json:"redirect,omitempty"`
}

// ElementService reads elements and resolves URLs to elements
type ElementService struct {
	elements repositories.ElementRepository
	urls     *URLMappingService
}

// NewElementService creates a new element application service
func NewElementService(elements repositories.ElementRepository, urls *URLMappingService) *ElementService {
	return &ElementService{elements: elements, urls: urls}
}

// GetByID returns an element by ID (cache-first)
func (s *ElementService) GetByID(id string) (*element.Element, error) {
	if err := element.CheckID(id); err != nil {
		return nil, err
	}
	e, err := s.elements.LoadElement(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get element %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("element %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// Resolve maps a request path to its element
func (s *ElementService) Resolve(path string) (*ResolvedPage, error) {
	pointer, ok := s.urls.Resolve(path)
	if !ok {
		return nil, fmt.Errorf("url %s: %w", path, ErrNotFound)
	}
	e, err := s.GetByID(pointer.ElementID)
	if err != nil {
		return nil, err
	}

	page := &ResolvedPage{Pointer: pointer, Element: e}
	if pointer.Deprecated || !pointer.Default {
		page.Redirect = s.canonicalURL(pointer)
	}
	return page, nil
}

func (s *ElementService) canonicalURL(pointer element.UrlPointer) string {
	all, err := s.urls.UrlsFor(pointer.ElementID)
	if err != nil || len(pointer.Languages) == 0 {
		return ""
	}
	lang := pointer.Languages[0]
	for _, p := range all {
		if !p.Default || p.Deprecated {
			continue
		}
		for _, l := range p.Languages {
			if l == lang {
				return p.URL
			}
		}
	}
	return ""
}
