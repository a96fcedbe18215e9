package changes

import (
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/definition"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
)

// FileLoader reads persisted file metadata; nil, nil means missing.
type FileLoader interface {
	LoadFileMeta(id string) (*element.FileMeta, error)
}

// SlugChecker pre-checks proposed slugs against the current URL mapping.
type SlugChecker interface {
	CheckSlugs(parentID string, proposed map[string]element.Slug, existingElementID string) (map[string]urlmap.SlugCheck, error)
}

// Env holds the collaborators changes are validated and applied against.
// Slugs may be nil, which skips the taken-URL check.
type Env struct {
	Elements    repositories.ElementLoader
	Files       FileLoader
	Definitions *definition.Registry
	Slugs       SlugChecker
}

// view memoizes persisted elements for one validation pass.
type view struct {
	env      Env
	elements map[string]*element.Element
	// claims maps URLs resolved by earlier changes of the transaction to
	// the element that will own them.
	claims map[string]string
}

func newView(env Env) *view {
	return &view{env: env, elements: make(map[string]*element.Element), claims: make(map[string]string)}
}

// persisted returns the stored element or nil when it does not exist.
func (v *view) persisted(id string) (*element.Element, error) {
	if e, ok := v.elements[id]; ok {
		return e, nil
	}
	if !element.IsValidID(id) {
		return nil, fmt.Errorf("%w: %q", element.ErrInvalidID, id)
	}
	e, err := v.env.Elements.LoadElement(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load element %s: %w", id, err)
	}
	v.elements[id] = e
	return e, nil
}

// session holds the working copies mutated by apply.
type session struct {
	env      Env
	elements map[string]*element.Element
	files    map[string]*element.FileMeta
}

func newSession(env Env) *session {
	return &session{
		env:      env,
		elements: make(map[string]*element.Element),
		files:    make(map[string]*element.FileMeta),
	}
}

// element returns the working copy of id, loading it on first use.
func (s *session) element(id string) (*element.Element, error) {
	if e, ok := s.elements[id]; ok {
		return e, nil
	}
	e, err := s.env.Elements.LoadElement(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load element %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("element %s does not exist", id)
	}
	e = e.Clone()
	s.elements[id] = e
	return e, nil
}

func (s *session) version(id string, n int) (*element.Element, *element.ElementVersion, error) {
	e, err := s.element(id)
	if err != nil {
		return nil, nil, err
	}
	v := e.Version(n)
	if v == nil {
		return nil, nil, fmt.Errorf("element %s has no version %d", id, n)
	}
	return e, v, nil
}
