// Package element defines the versioned, multi-language element tree.
package element

import (
	"sort"
	"time"
)

// Type is the kind of node an element represents in the tree.
type Type string

const (
	TypeRoot       Type = "root"
	TypeCollection Type = "collection"
	TypePage       Type = "page"
	TypeSearch     Type = "search"
	TypeSnippet    Type = "snippet"
)

// Version lifecycle states.
const (
	StateEditing   = "editing"
	StatePublished = "published"
	StateDeleted   = "deleted"
)

// IsValid reports whether t is a known element type.
func (t Type) IsValid() bool {
	switch t {
	case TypeRoot, TypeCollection, TypePage, TypeSearch, TypeSnippet:
		return true
	}
	return false
}

// HasSlugs reports whether versions of this type carry URL slugs.
func (t Type) HasSlugs() bool {
	return t == TypePage || t == TypeSearch
}

// IsContainer reports whether versions of this type hold children.
func (t Type) IsContainer() bool {
	return t == TypeRoot || t == TypeCollection || t == TypePage || t == TypeSearch
}

// IsKnownState reports whether s is a lifecycle state the engine accepts.
func IsKnownState(s string) bool {
	return s == StateEditing || s == StatePublished || s == StateDeleted
}

// Element is a node in the content tree.
type Element struct {
	ID       string                  `json:"id"`
	Type     Type                    `json:"type"`
	ParentID string                  `json:"parentId,omitempty"`
	Versions map[int]*ElementVersion `json:"versions"`
	Created  time.Time               `json:"created"`
	Changed  *time.Time              `json:"changed,omitempty"`
}

// ElementVersion is one revision of an element.
type ElementVersion struct {
	Version    int                         `json:"version"`
	State      string                      `json:"state"`
	Definition string                      `json:"definition"`
	Children   []string                    `json:"children,omitempty"`
	References map[string]string           `json:"references,omitempty"`
	Contents   map[string]*ElementContents `json:"contents,omitempty"`
	Slugs      []Slug                      `json:"slugs,omitempty"`
}

// ElementContents is the per-language payload of a version.
type ElementContents struct {
	Fields      map[string]string             `json:"fields,omitempty"`
	SubElements map[string][]*ElementContents `json:"subElements,omitempty"`
}

// Slug is a candidate URL fragment for one language of one version.
type Slug struct {
	URL        string `json:"url"`
	Language   string `json:"language"`
	Default    bool   `json:"default"`
	Deprecated bool   `json:"deprecated"`
}

// UrlPointer is one resolved entry of the URL to element index.
type UrlPointer struct {
	URL        string   `json:"url"`
	Languages  []string `json:"languages"`
	Default    bool     `json:"default"`
	Deprecated bool     `json:"deprecated"`
	ElementID  string   `json:"elementId"`
}

// FileMeta describes an uploaded file referenced by elements.
type FileMeta struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	Created  time.Time `json:"created"`
}

// New returns an element with a single editing version.
func New(id string, typ Type, parentID, definition string) *Element {
	return &Element{
		ID:       id,
		Type:     typ,
		ParentID: parentID,
		Versions: map[int]*ElementVersion{
			1: {Version: 1, State: StateEditing, Definition: definition},
		},
		Created: time.Now().UTC(),
	}
}

// VersionNumbers returns the existing version numbers in ascending order.
func (e *Element) VersionNumbers() []int {
	nums := make([]int, 0, len(e.Versions))
	for n := range e.Versions {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// NewestVersionNumber returns the highest version number, or 0 for an element
// without versions.
func (e *Element) NewestVersionNumber() int {
	newest := 0
	for n := range e.Versions {
		if n > newest {
			newest = n
		}
	}
	return newest
}

// NewestVersion returns the version with the highest number.
func (e *Element) NewestVersion() *ElementVersion {
	return e.Versions[e.NewestVersionNumber()]
}

// Version returns version n, or nil.
func (e *Element) Version(n int) *ElementVersion {
	if e == nil {
		return nil
	}
	return e.Versions[n]
}

// IsDeleted reports whether the newest version is in the deleted state.
func (e *Element) IsDeleted() bool {
	v := e.NewestVersion()
	return v != nil && v.State == StateDeleted
}

// Touch stamps the changed time.
func (e *Element) Touch() {
	now := time.Now().UTC()
	e.Changed = &now
}

// Clone returns a deep copy.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Changed != nil {
		t := *e.Changed
		c.Changed = &t
	}
	c.Versions = make(map[int]*ElementVersion, len(e.Versions))
	for n, v := range e.Versions {
		c.Versions[n] = v.Clone()
	}
	return &c
}

// Clone returns a deep copy.
func (v *ElementVersion) Clone() *ElementVersion {
	if v == nil {
		return nil
	}
	c := *v
	if v.Children != nil {
		c.Children = append([]string(nil), v.Children...)
	}
	if v.References != nil {
		c.References = make(map[string]string, len(v.References))
		for k, ref := range v.References {
			c.References[k] = ref
		}
	}
	if v.Contents != nil {
		c.Contents = make(map[string]*ElementContents, len(v.Contents))
		for lang, contents := range v.Contents {
			c.Contents[lang] = contents.Clone()
		}
	}
	if v.Slugs != nil {
		c.Slugs = append([]Slug(nil), v.Slugs...)
	}
	return &c
}

// HasChild reports whether id is listed among the version's children.
func (v *ElementVersion) HasChild(id string) bool {
	return v.ChildIndex(id) >= 0
}

// ChildIndex returns the position of id among the children, or -1.
func (v *ElementVersion) ChildIndex(id string) int {
	for i, c := range v.Children {
		if c == id {
			return i
		}
	}
	return -1
}

// Languages returns the content languages in sorted order.
func (v *ElementVersion) Languages() []string {
	langs := make([]string, 0, len(v.Contents))
	for lang := range v.Contents {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Clone returns a deep copy.
func (c *ElementContents) Clone() *ElementContents {
	if c == nil {
		return nil
	}
	out := &ElementContents{}
	if c.Fields != nil {
		out.Fields = make(map[string]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v
		}
	}
	if c.SubElements != nil {
		out.SubElements = make(map[string][]*ElementContents, len(c.SubElements))
		for name, items := range c.SubElements {
			cp := make([]*ElementContents, len(items))
			for i, item := range items {
				cp[i] = item.Clone()
			}
			out.SubElements[name] = cp
		}
	}
	return out
}

// Clone returns a copy with its own language slice.
func (p UrlPointer) Clone() UrlPointer {
	p.Languages = append([]string(nil), p.Languages...)
	return p
}
