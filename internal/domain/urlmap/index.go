package urlmap

import (
	"fmt"
	"log/slog"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// Claim is one slug entry claiming an absolute URL.
type Claim struct {
	Slug       element.Slug `json:"slug"`
	Default    bool         `json:"default"`
	Deprecated bool         `json:"deprecated"`
}

// PerUrlSlugs groups claims by absolute URL and then by element id.
type PerUrlSlugs map[string]map[string][]Claim

func (p PerUrlSlugs) add(url, elementID string, c Claim) {
	byElement, ok := p[url]
	if !ok {
		byElement = make(map[string][]Claim)
		p[url] = byElement
	}
	byElement[elementID] = append(byElement[elementID], c)
}

// OnlyFrom drops every claim not made by one of ids.
func (p PerUrlSlugs) OnlyFrom(ids map[string]bool) PerUrlSlugs {
	out := make(PerUrlSlugs, len(p))
	for url, byElement := range p {
		for id, claims := range byElement {
			if !ids[id] {
				continue
			}
			for _, c := range claims {
				out.add(url, id, c)
			}
		}
	}
	return out
}

// GenerateUrls resolves every element in ids, and any unprocessed ancestor
// they need, into forward. Elements already present in forward are skipped.
// Claims of newly processed elements are returned grouped by URL.
//
// The walk uses an explicit stack: an element whose parent has not been
// processed is pushed back beneath its parent.
func GenerateUrls(loader repositories.ElementLoader, forward ForwardIndex, ids []string, logger *slog.Logger) (PerUrlSlugs, error) {
	perUrl := make(PerUrlSlugs)

	stack := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		stack = append(stack, ids[i])
	}
	waiting := make(map[string]bool)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, done := forward[id]; done {
			continue
		}
		if !element.IsValidID(id) {
			return nil, corrupt(id, "invalid element id")
		}
		el, err := loader.LoadElement(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load element %s: %w", id, err)
		}
		if el == nil {
			return nil, corrupt(id, "referenced element does not exist")
		}

		if el.ParentID != "" {
			if !element.IsValidID(el.ParentID) {
				return nil, corrupt(id, "invalid parent id %q", el.ParentID)
			}
			if el.ParentID == id {
				return nil, corrupt(id, "element is its own parent")
			}
			if _, done := forward[el.ParentID]; !done {
				if waiting[id] {
					return nil, corrupt(id, "parent chain contains a cycle")
				}
				waiting[id] = true
				stack = append(stack, id, el.ParentID)
				continue
			}
		}

		entry, err := resolveElement(loader, forward, el, perUrl, logger)
		if err != nil {
			return nil, err
		}
		forward[id] = entry
	}

	return perUrl, nil
}

func resolveElement(loader repositories.ElementLoader, forward ForwardIndex, el *element.Element, perUrl PerUrlSlugs, logger *slog.Logger) (ForwardEntry, error) {
	if el.Type == element.TypeRoot {
		return ForwardEntry{}, nil
	}

	newest := el.NewestVersion()
	if newest == nil {
		logger.Warn("Element has no versions", "elementId", el.ID)
		return ForwardEntry{Unreachable: true}, nil
	}
	if newest.State == element.StateDeleted {
		return ForwardEntry{Unreachable: true}, nil
	}

	if el.ParentID != "" {
		if forward[el.ParentID].Unreachable {
			logger.Warn("Element below unreachable parent", "elementId", el.ID, "parentId", el.ParentID)
			return ForwardEntry{Unreachable: true}, nil
		}
		parent, err := loader.LoadElement(el.ParentID)
		if err != nil {
			return ForwardEntry{}, fmt.Errorf("failed to load parent %s: %w", el.ParentID, err)
		}
		if parent == nil {
			return ForwardEntry{}, corrupt(el.ID, "dangling parent reference %s", el.ParentID)
		}
		if pv := parent.NewestVersion(); pv == nil || !pv.HasChild(el.ID) {
			logger.Warn("Orphaned element is not a child of its parent", "elementId", el.ID, "parentId", el.ParentID)
			return ForwardEntry{Unreachable: true}, nil
		}
	}

	if !el.Type.HasSlugs() {
		return ForwardEntry{}, nil
	}
	if len(newest.Slugs) == 0 {
		logger.Warn("Element has no slugs", "elementId", el.ID, "type", el.Type, "version", newest.Version)
		return ForwardEntry{}, nil
	}

	entry := ForwardEntry{}
	for _, slug := range newest.Slugs {
		candidates, err := ResolveSlug(loader, forward, el.ParentID, slug)
		if err != nil {
			return ForwardEntry{}, err
		}
		for _, c := range candidates {
			entry.URLs = append(entry.URLs, c)
			perUrl.add(c.URL, el.ID, Claim{Slug: slug, Default: c.Default, Deprecated: c.Deprecated})
		}
	}
	return entry, nil
}
