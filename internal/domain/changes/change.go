// Package changes implements the transactional change engine: a closed set
// of change kinds, validated as an ordered batch against persisted state and
// the effects of earlier changes in the same batch, then applied to
// in-memory copies of the touched elements.
package changes

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
)

// Kind names a change type on the wire.
type Kind string

const (
	KindAddFileMeta        Kind = "AddFileMeta"
	KindElementCreate      Kind = "ElementCreate"
	KindAddVersion         Kind = "ElementAddVersion"
	KindContentsChange     Kind = "ElementContentsChange"
	KindCopyContents       Kind = "ElementCopyContents"
	KindDefinitionChange   Kind = "ElementDefinitionChange"
	KindAttachChildElement Kind = "ElementAttachChildElement"
	KindDetachChildElement Kind = "ElementDetachChildElement"
	KindSetParent          Kind = "ElementSetParent"
	KindSetReference       Kind = "ElementSetReference"
	KindSetSlugs           Kind = "ElementSetSlugs"
	KindStateChange        Kind = "ElementStateChange"
	KindAddSubElement      Kind = "ElementAddSubElement"
	KindRemoveSubElement   Kind = "ElementRemoveSubElement"
)

// ErrUnknownKind is returned when decoding a change with an unrecognized kind.
var ErrUnknownKind = errors.New("unknown change kind")

// Change is one typed mutation. The set of implementations is closed.
type Change interface {
	Kind() Kind
	// Subject is the element (or file) id the change is primarily about.
	Subject() string
	isChange()
}

type AddFileMeta struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

type ElementCreate struct {
	ElementID  string       `json:"elementId"`
	Type       element.Type `json:"type"`
	ParentID   string       `json:"parentId"`
	Definition string       `json:"definition"`
}

type ElementAddVersion struct {
	ElementID string `json:"elementId"`
	Version   int    `json:"version"`
}

type ElementContentsChange struct {
	ElementID string              `json:"elementId"`
	Version   int                 `json:"version"`
	Language  string              `json:"language"`
	Path      element.ContentPath `json:"path"`
	Value     string              `json:"value"`
}

type ElementCopyContents struct {
	ElementID       string `json:"elementId"`
	Version         int    `json:"version"`
	Language        string `json:"language"`
	SourceElementID string `json:"sourceElementId"`
	SourceVersion   int    `json:"sourceVersion"`
	SourceLanguage  string `json:"sourceLanguage"`
}

type ElementDefinitionChange struct {
	ElementID  string `json:"elementId"`
	Version    int    `json:"version"`
	Definition string `json:"definition"`
}

// ElementAttachChildElement adds ChildID to the children of ParentID in
// every version from FromVersion through the newest. A negative Position
// appends.
type ElementAttachChildElement struct {
	ParentID    string `json:"parentId"`
	ChildID     string `json:"childId"`
	FromVersion int    `json:"fromVersion"`
	Position    int    `json:"position"`
}

type ElementDetachChildElement struct {
	ParentID    string `json:"parentId"`
	ChildID     string `json:"childId"`
	FromVersion int    `json:"fromVersion"`
}

type ElementSetParent struct {
	ElementID string `json:"elementId"`
	ParentID  string `json:"parentId"`
}

// ElementSetReference points a named reference at TargetID; an empty
// TargetID removes the reference.
type ElementSetReference struct {
	ElementID string `json:"elementId"`
	Version   int    `json:"version"`
	Name      string `json:"name"`
	TargetID  string `json:"targetId"`
}

type ElementSetSlugs struct {
	ElementID string         `json:"elementId"`
	Version   int            `json:"version"`
	Slugs     []element.Slug `json:"slugs"`
}

type ElementStateChange struct {
	ElementID string `json:"elementId"`
	Version   int    `json:"version"`
	State     string `json:"state"`
}

// ElementAddSubElement inserts a nested contents item into Collection of
// the contents addressed by Path, a sequence of (collection, index) pairs.
type ElementAddSubElement struct {
	ElementID  string              `json:"elementId"`
	Version    int                 `json:"version"`
	Language   string              `json:"language"`
	Path       element.ContentPath `json:"path"`
	Collection string              `json:"collection"`
	Position   int                 `json:"position"`
	Fields     map[string]string   `json:"fields,omitempty"`
}

type ElementRemoveSubElement struct {
	ElementID  string              `json:"elementId"`
	Version    int                 `json:"version"`
	Language   string              `json:"language"`
	Path       element.ContentPath `json:"path"`
	Collection string              `json:"collection"`
	Index      int                 `json:"index"`
}

func (*AddFileMeta) Kind() Kind               { return KindAddFileMeta }
func (*ElementCreate) Kind() Kind             { return KindElementCreate }
func (*ElementAddVersion) Kind() Kind         { return KindAddVersion }
func (*ElementContentsChange) Kind() Kind     { return KindContentsChange }
func (*ElementCopyContents) Kind() Kind       { return KindCopyContents }
func (*ElementDefinitionChange) Kind() Kind   { return KindDefinitionChange }
func (*ElementAttachChildElement) Kind() Kind { return KindAttachChildElement }
func (*ElementDetachChildElement) Kind() Kind { return KindDetachChildElement }
func (*ElementSetParent) Kind() Kind          { return KindSetParent }
func (*ElementSetReference) Kind() Kind       { return KindSetReference }
func (*ElementSetSlugs) Kind() Kind           { return KindSetSlugs }
func (*ElementStateChange) Kind() Kind        { return KindStateChange }
func (*ElementAddSubElement) Kind() Kind      { return KindAddSubElement }
func (*ElementRemoveSubElement) Kind() Kind   { return KindRemoveSubElement }

func (c *AddFileMeta) Subject() string               { return c.FileID }
func (c *ElementCreate) Subject() string             { return c.ElementID }
func (c *ElementAddVersion) Subject() string         { return c.ElementID }
func (c *ElementContentsChange) Subject() string     { return c.ElementID }
func (c *ElementCopyContents) Subject() string       { return c.ElementID }
func (c *ElementDefinitionChange) Subject() string   { return c.ElementID }
func (c *ElementAttachChildElement) Subject() string { return c.ParentID }
func (c *ElementDetachChildElement) Subject() string { return c.ParentID }
func (c *ElementSetParent) Subject() string          { return c.ElementID }
func (c *ElementSetReference) Subject() string       { return c.ElementID }
func (c *ElementSetSlugs) Subject() string           { return c.ElementID }
func (c *ElementStateChange) Subject() string        { return c.ElementID }
func (c *ElementAddSubElement) Subject() string      { return c.ElementID }
func (c *ElementRemoveSubElement) Subject() string   { return c.ElementID }

func (*AddFileMeta) isChange()               {}
func (*ElementCreate) isChange()             {}
func (*ElementAddVersion) isChange()         {}
func (*ElementContentsChange) isChange()     {}
func (*ElementCopyContents) isChange()       {}
func (*ElementDefinitionChange) isChange()   {}
func (*ElementAttachChildElement) isChange() {}
func (*ElementDetachChildElement) isChange() {}
func (*ElementSetParent) isChange()          {}
func (*ElementSetReference) isChange()       {}
func (*ElementSetSlugs) isChange()           {}
func (*ElementStateChange) isChange()        {}
func (*ElementAddSubElement) isChange()      {}
func (*ElementRemoveSubElement) isChange()   {}

// New returns an empty change of the given kind.
func New(kind Kind) (Change, error) {
	switch kind {
	case KindAddFileMeta:
		return &AddFileMeta{}, nil
	case KindElementCreate:
		return &ElementCreate{}, nil
	case KindAddVersion:
		return &ElementAddVersion{}, nil
	case KindContentsChange:
		return &ElementContentsChange{}, nil
	case KindCopyContents:
		return &ElementCopyContents{}, nil
	case KindDefinitionChange:
		return &ElementDefinitionChange{}, nil
	case KindAttachChildElement:
		return &ElementAttachChildElement{Position: -1}, nil
	case KindDetachChildElement:
		return &ElementDetachChildElement{}, nil
	case KindSetParent:
		return &ElementSetParent{}, nil
	case KindSetReference:
		return &ElementSetReference{}, nil
	case KindSetSlugs:
		return &ElementSetSlugs{}, nil
	case KindStateChange:
		return &ElementStateChange{}, nil
	case KindAddSubElement:
		return &ElementAddSubElement{Position: -1}, nil
	case KindRemoveSubElement:
		return &ElementRemoveSubElement{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Envelope is the wire form of a change.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Decode builds a change from its envelope.
func (e Envelope) Decode() (Change, error) {
	c, err := New(e.Kind)
	if err != nil {
		return nil, err
	}
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("%s: missing payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, c); err != nil {
		return nil, fmt.Errorf("%s: invalid payload: %w", e.Kind, err)
	}
	return c, nil
}

// Wrap returns the envelope of c.
func Wrap(c Change) (Envelope, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: c.Kind(), Payload: payload}, nil
}

// List is an ordered batch of changes that encodes as envelopes.
type List []Change

func (l List) MarshalJSON() ([]byte, error) {
	envs := make([]Envelope, 0, len(l))
	for _, c := range l {
		env, err := Wrap(c)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

func (l *List) UnmarshalJSON(data []byte) error {
	var envs []Envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	out := make(List, 0, len(envs))
	for i, env := range envs {
		c, err := env.Decode()
		if err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

// Kinds returns the kind of every change in order.
func (l List) Kinds() []string {
	out := make([]string, len(l))
	for i, c := range l {
		out[i] = string(c.Kind())
	}
	return out
}

// Transaction is an ordered batch of changes authored by one user.
type Transaction struct {
	ID      string     `json:"id"`
	Author  *user.User `json:"author,omitempty"`
	Changes List       `json:"changes"`
}
