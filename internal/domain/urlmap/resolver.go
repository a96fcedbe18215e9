// Package urlmap derives the URL to element index from the element tree.
//
// Slugs are resolved against their ancestors' URLs into a forward index
// (element to resolved URLs), which is then inverted into the authoritative
// URL to UrlPointer map. ElementUrlCache keeps both, backed by a fast
// ephemeral cache and the durable store.
package urlmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// ResolvedURL is one absolute URL candidate produced from a slug.
type ResolvedURL struct {
	URL        string `json:"url"`
	Language   string `json:"language"`
	Default    bool   `json:"default"`
	Deprecated bool   `json:"deprecated"`
}

// ForwardEntry is the memoized resolution result for one element.
// Unreachable marks deleted, orphaned or otherwise skipped elements so
// their descendants are skipped as well.
type ForwardEntry struct {
	URLs        []ResolvedURL `json:"urls"`
	Unreachable bool          `json:"unreachable,omitempty"`
}

// ForwardIndex maps element id to its resolved URLs.
type ForwardIndex map[string]ForwardEntry

// CorruptionError reports storage state that valid change application can
// never produce. It is fatal for the operation that hit it.
type CorruptionError struct {
	ElementID string
	Reason    string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("element storage corrupt at %s: %s", e.ElementID, e.Reason)
}

// IsCorruption reports whether err wraps a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

func corrupt(id, format string, args ...any) error {
	return &CorruptionError{ElementID: id, Reason: fmt.Sprintf(format, args...)}
}

// ResolveSlug turns slug, relative to parentID, into absolute URL candidates.
// The forward index must already hold the resolved parent's entry; an absent
// entry yields no candidates.
func ResolveSlug(loader repositories.ElementLoader, forward ForwardIndex, parentID string, slug element.Slug) ([]ResolvedURL, error) {
	url := strings.ToLower(slug.URL)
	if strings.HasPrefix(url, "/") {
		return []ResolvedURL{{URL: url, Language: slug.Language, Default: slug.Default, Deprecated: slug.Deprecated}}, nil
	}

	for {
		if strings.HasPrefix(url, "./") {
			url = url[2:]
			continue
		}
		if !strings.HasPrefix(url, "../") {
			break
		}
		url = url[3:]
		if element.IsTopLevel(parentID) {
			continue
		}
		if !element.IsValidID(parentID) {
			return nil, corrupt(parentID, "invalid parent id while walking ../")
		}
		parent, err := loader.LoadElement(parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", parentID, err)
		}
		if parent == nil {
			return nil, corrupt(parentID, "dangling parent reference while walking ../")
		}
		parentID = parent.ParentID
	}

	if element.IsTopLevel(parentID) {
		return []ResolvedURL{{URL: joinURL("/", url), Language: slug.Language, Default: slug.Default, Deprecated: slug.Deprecated}}, nil
	}

	var out []ResolvedURL
	for _, p := range forward[parentID].URLs {
		if p.Language != slug.Language {
			continue
		}
		out = append(out, ResolvedURL{
			URL:        joinURL(p.URL, url),
			Language:   slug.Language,
			Default:    slug.Default && p.Default,
			Deprecated: slug.Deprecated || p.Deprecated,
		})
	}
	return out, nil
}

func joinURL(parent, child string) string {
	joined := strings.ToLower(parent + "/" + child)
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if len(joined) > 1 {
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}

// NormalizePath prepares a request path for lookup in the inverted index.
func NormalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
