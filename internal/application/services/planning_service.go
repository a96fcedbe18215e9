package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
)

// planValidate is the validator instance for planning requests.
var planValidate *validator.Validate

func init() {
	planValidate = validator.New()
	_ = planValidate.RegisterValidation("elementid", func(fl validator.FieldLevel) bool {
		return element.IsValidID(fl.Field().String())
	})
	_ = planValidate.RegisterValidation("lang", func(fl validator.FieldLevel) bool {
		return element.IsValidLanguage(fl.Field().String())
	})
}

// CreatePageRequest asks for a new page below a parent. An empty
// definition selects the one named after the type.
type CreatePageRequest struct {
	ParentID   string `json:"parentId" validate:"required,elementid"`
	Type       string `json:"type" validate:"omitempty,oneof=page search"`
	Definition string `json:"definition,omitempty"`
	Language   string `json:"language" validate:"required,lang"`
	Title      string `json:"title" validate:"required,max=255"`
	Slug       string `json:"slug" validate:"required,max=255"`
	Position   *int   `json:"position,omitempty"`
}

// NewDraftRequest asks for a new editable version.
type NewDraftRequest struct {
	ElementID string `json:"elementId" validate:"required,elementid"`
}

// PublishRequest publishes a version; zero means the newest.
type PublishRequest struct {
	ElementID string `json:"elementId" validate:"required,elementid"`
	Version   int    `json:"version" validate:"gte=0"`
}

// MoveRequest re-parents an element.
type MoveRequest struct {
	ElementID   string `json:"elementId" validate:"required,elementid"`
	NewParentID string `json:"newParentId" validate:"required,elementid,nefield=ElementID"`
	Position    *int   `json:"position,omitempty"`
}

// DeleteRequest marks the newest version deleted.
type DeleteRequest struct {
	ElementID string `json:"elementId" validate:"required,elementid"`
}

// UpdateFieldRequest sets one content field; a zero version means the newest.
type UpdateFieldRequest struct {
	ElementID string   `json:"elementId" validate:"required,elementid"`
	Version   int      `json:"version" validate:"gte=0"`
	Language  string   `json:"language" validate:"required,lang"`
	Path      []string `json:"path" validate:"required,min=1,dive,required"`
	Value     string   `json:"value"`
}

// SlugRequest is one slug of a SetSlugsRequest.
type SlugRequest struct {
	URL        string `json:"url" validate:"required,max=255"`
	Language   string `json:"language" validate:"required,lang"`
	Default    bool   `json:"default"`
	Deprecated bool   `json:"deprecated"`
}

// SetSlugsRequest replaces the slugs of a version; a zero version means the newest.
type SetSlugsRequest struct {
	ElementID string        `json:"elementId" validate:"required,elementid"`
	Version   int           `json:"version" validate:"gte=0"`
	Slugs     []SlugRequest `json:"slugs" validate:"required,min=1,dive"`
}

// PlanningService turns user actions into transactions
type PlanningService struct {
	elements repositories.ElementLoader
}

// NewPlanningService creates a new planning service
func NewPlanningService(elements repositories.ElementLoader) *PlanningService {
	return &PlanningService{elements: elements}
}

// CreatePage plans a new page: create, attach, title and default slug.
// The new element id is the subject of the first change.
func (s *PlanningService) CreatePage(author *user.User, req *CreatePageRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	parent, err := s.load(req.ParentID)
	if err != nil {
		return nil, err
	}

	typ := element.TypePage
	if req.Type != "" {
		typ = element.Type(req.Type)
	}
	definition := req.Definition
	if definition == "" {
		definition = string(typ)
	}
	id := security.GenerateElementID()

	return newTxn(author,
		&changes.ElementCreate{ElementID: id, Type: typ, ParentID: req.ParentID, Definition: definition},
		&changes.ElementAttachChildElement{ParentID: req.ParentID, ChildID: id, FromVersion: parent.NewestVersionNumber(), Position: position(req.Position)},
		&changes.ElementContentsChange{ElementID: id, Version: 1, Language: req.Language, Path: element.ContentPath{"title"}, Value: req.Title},
		&changes.ElementSetSlugs{ElementID: id, Version: 1, Slugs: []element.Slug{{URL: req.Slug, Language: req.Language, Default: true}}},
	), nil
}

// NewDraft plans a new version after the newest one.
func (s *PlanningService) NewDraft(author *user.User, req *NewDraftRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	return newTxn(author, &changes.ElementAddVersion{ElementID: e.ID, Version: e.NewestVersionNumber() + 1}), nil
}

// Publish plans a state change to published.
func (s *PlanningService) Publish(author *user.User, req *PublishRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	return newTxn(author, &changes.ElementStateChange{ElementID: e.ID, Version: versionOrNewest(e, req.Version), State: element.StatePublished}), nil
}

// Move plans detaching from the current parent, re-parenting and attaching
// to the new parent.
func (s *PlanningService) Move(author *user.User, req *MoveRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	newParent, err := s.load(req.NewParentID)
	if err != nil {
		return nil, err
	}

	var cs []changes.Change
	if e.ParentID != "" {
		oldParent, err := s.elements.LoadElement(e.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent %s: %w", e.ParentID, err)
		}
		if from := firstVersionWithChild(oldParent, e.ID); from > 0 {
			cs = append(cs, &changes.ElementDetachChildElement{ParentID: oldParent.ID, ChildID: e.ID, FromVersion: from})
		}
	}
	cs = append(cs,
		&changes.ElementSetParent{ElementID: e.ID, ParentID: newParent.ID},
		&changes.ElementAttachChildElement{ParentID: newParent.ID, ChildID: e.ID, FromVersion: newParent.NewestVersionNumber(), Position: position(req.Position)},
	)
	return newTxn(author, cs...), nil
}

// Delete plans marking the newest version deleted.
func (s *PlanningService) Delete(author *user.User, req *DeleteRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	return newTxn(author, &changes.ElementStateChange{ElementID: e.ID, Version: e.NewestVersionNumber(), State: element.StateDeleted}), nil
}

// UpdateField plans a single content field change.
func (s *PlanningService) UpdateField(author *user.User, req *UpdateFieldRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	return newTxn(author, &changes.ElementContentsChange{
		ElementID: e.ID,
		Version:   versionOrNewest(e, req.Version),
		Language:  req.Language,
		Path:      element.ContentPath(req.Path),
		Value:     req.Value,
	}), nil
}

// SetSlugs plans replacing the slugs of a version.
func (s *PlanningService) SetSlugs(author *user.User, req *SetSlugsRequest) (*changes.Transaction, error) {
	if err := planValidate.Struct(req); err != nil {
		return nil, err
	}
	e, err := s.load(req.ElementID)
	if err != nil {
		return nil, err
	}
	slugs := make([]element.Slug, len(req.Slugs))
	for i, sr := range req.Slugs {
		slugs[i] = element.Slug{URL: sr.URL, Language: sr.Language, Default: sr.Default, Deprecated: sr.Deprecated}
	}
	return newTxn(author, &changes.ElementSetSlugs{ElementID: e.ID, Version: versionOrNewest(e, req.Version), Slugs: slugs}), nil
}

func (s *PlanningService) load(id string) (*element.Element, error) {
	e, err := s.elements.LoadElement(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load element %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("element %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func newTxn(author *user.User, cs ...changes.Change) *changes.Transaction {
	return &changes.Transaction{ID: security.GenerateULID(), Author: author, Changes: cs}
}

func position(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func versionOrNewest(e *element.Element, v int) int {
	if v == 0 {
		return e.NewestVersionNumber()
	}
	return v
}

// firstVersionWithChild returns the lowest version listing child, or 0.
func firstVersionWithChild(parent *element.Element, child string) int {
	if parent == nil {
		return 0
	}
	for _, n := range parent.VersionNumbers() {
		if parent.Versions[n].HasChild(child) {
			return n
		}
	}
	return 0
}
