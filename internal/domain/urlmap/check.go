package urlmap

import (
	"fmt"
	"sort"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// SlugStatus is the outcome of a slug pre-check.
type SlugStatus string

const (
	SlugGood      SlugStatus = "good"
	SlugDuplicate SlugStatus = "duplicate"
	SlugInvalid   SlugStatus = "invalid"
	SlugTaken     SlugStatus = "taken"
)

// SlugCheck is the result for one proposed slug.
type SlugCheck struct {
	Status  SlugStatus `json:"status"`
	Message string     `json:"message"`
	URLs    []string   `json:"urls,omitempty"`
}

// CheckSlugs validates proposed slugs for a child of parentID against the
// persisted tree. existingElementID is the element that will own the slugs;
// URLs it already owns are not reported as taken.
func (c *ElementUrlCache) CheckSlugs(parentID string, proposed map[string]element.Slug, existingElementID string) (map[string]SlugCheck, error) {
	if parentID != "" && !element.IsValidID(parentID) {
		return nil, fmt.Errorf("%w: parent %q", element.ErrInvalidID, parentID)
	}
	if err := c.ensureForward(parentID); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(proposed))
	for k := range proposed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]SlugCheck, len(keys))
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		slug := proposed[k]
		if err := slug.Validate(); err != nil {
			out[k] = SlugCheck{Status: SlugInvalid, Message: err.Error()}
			continue
		}
		if first, dup := seen[slug.Key()]; dup {
			out[k] = SlugCheck{Status: SlugDuplicate, Message: fmt.Sprintf("same url and language as %q", first)}
			continue
		}
		seen[slug.Key()] = k

		candidates, err := ResolveSlug(c.store, c.forward, parentID, slug)
		if err != nil {
			return nil, err
		}
		check := SlugCheck{Status: SlugGood, Message: "url is available"}
		for _, cand := range candidates {
			check.URLs = append(check.URLs, cand.URL)
			if p, ok := c.inverted[cand.URL]; ok && p.ElementID != existingElementID && !p.Deprecated {
				check.Status = SlugTaken
				check.Message = fmt.Sprintf("%s is already in use", cand.URL)
			}
		}
		if len(candidates) == 0 {
			check.Message = "parent has no url in this language yet"
		}
		out[k] = check
	}
	return out, nil
}
