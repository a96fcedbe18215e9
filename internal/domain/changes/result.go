package changes

import (
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// ClientInfo is a machine-readable notification about an applied change,
// relayed to editors so they can refresh their view.
type ClientInfo struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Value   string         `json:"value,omitempty"`
	Slugs   []element.Slug `json:"slugs,omitempty"`
}

// Client info types.
const (
	InfoCreated    = "created"
	InfoVersion    = "version"
	InfoState      = "state"
	InfoSlugs      = "slugs"
	InfoParent     = "parent"
	InfoChildren   = "children"
	InfoContents   = "contents"
	InfoDefinition = "definition"
	InfoReference  = "reference"
	InfoFile       = "file"
)

// Storable is an object touched by apply that the caller must persist.
// Exactly one field is set.
type Storable struct {
	Element *element.Element  `json:"element,omitempty"`
	File    *element.FileMeta `json:"file,omitempty"`
}

// Key identifies the stored object.
func (s Storable) Key() string {
	if s.Element != nil {
		return "element:" + s.Element.ID
	}
	if s.File != nil {
		return "file:" + s.File.ID
	}
	return ""
}

// Visitor is called once per touched storable before it is persisted.
type Visitor func(s Storable) error

// Rollback pairs a change with the information needed to revert it.
// Info is nil for kinds without revert support.
type Rollback struct {
	Index int
	Kind  Kind
	Info  RollbackInfo
}

// Result is the outcome of validating or applying a transaction.
type Result struct {
	Success    bool                    `json:"success"`
	Errors     []string                `json:"errors"`
	Infos      []string                `json:"infos"`
	ClientInfo map[string][]ClientInfo `json:"clientInfo,omitempty"`
	Changes    map[string]string       `json:"changes,omitempty"`
	// TouchedURLs lists element ids whose URL entries need an update.
	TouchedURLs []string   `json:"touchedUrls,omitempty"`
	Touched     []Storable `json:"-"`
	Rollbacks   []Rollback `json:"-"`

	touchedURL map[string]bool
	touched    map[string]int
}

func newResult() *Result {
	return &Result{
		Success:    true,
		Errors:     []string{},
		Infos:      []string{},
		ClientInfo: make(map[string][]ClientInfo),
		Changes:    make(map[string]string),
		touchedURL: make(map[string]bool),
		touched:    make(map[string]int),
	}
}

// IsSuccess reports whether no errors were recorded.
func (r *Result) IsSuccess() bool {
	return r.Success && len(r.Errors) == 0
}

func (r *Result) fail(index int, kind Kind, format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf("change %d (%s): %s", index+1, kind, fmt.Sprintf(format, args...)))
}

func (r *Result) info(format string, args ...any) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

func (r *Result) client(id string, ci ClientInfo) {
	r.ClientInfo[id] = append(r.ClientInfo[id], ci)
}

func (r *Result) touchURL(id string) {
	if r.touchedURL[id] {
		return
	}
	r.touchedURL[id] = true
	r.TouchedURLs = append(r.TouchedURLs, id)
}

func (r *Result) touch(s Storable) {
	key := s.Key()
	if i, ok := r.touched[key]; ok {
		r.Touched[i] = s
		return
	}
	r.touched[key] = len(r.Touched)
	r.Touched = append(r.Touched, s)
}

// TouchedElementIDs returns the ids of touched elements in touch order.
func (r *Result) TouchedElementIDs() []string {
	var ids []string
	for _, s := range r.Touched {
		if s.Element != nil {
			ids = append(ids, s.Element.ID)
		}
	}
	return ids
}
