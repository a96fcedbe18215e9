package urlmap

import (
	"log/slog"
	"sort"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// AssembleInvertedUrlMapping arbitrates the claims on every URL and returns
// one pointer per surviving URL. Two live claimants on one URL is a
// CorruptionError; several deprecated-only claimants drop the URL.
func AssembleInvertedUrlMapping(perUrl PerUrlSlugs, logger *slog.Logger) (map[string]element.UrlPointer, error) {
	urls := make([]string, 0, len(perUrl))
	for url := range perUrl {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	out := make(map[string]element.UrlPointer, len(urls))
	for _, url := range urls {
		byElement := perUrl[url]
		claimants := make([]string, 0, len(byElement))
		var active []string
		for id, claims := range byElement {
			claimants = append(claimants, id)
			for _, c := range claims {
				if !c.Deprecated {
					active = append(active, id)
					break
				}
			}
		}
		sort.Strings(claimants)
		sort.Strings(active)

		var chosen string
		deprecated := false
		switch len(active) {
		case 0:
			if len(claimants) > 1 {
				logger.Warn("Dropping deprecated URL claimed by several elements", "url", url, "elementIds", claimants)
				continue
			}
			chosen = claimants[0]
			deprecated = true
		case 1:
			chosen = active[0]
		default:
			return nil, corrupt(active[0], "url %s is claimed by live elements %v", url, active)
		}

		out[url] = buildPointer(url, chosen, byElement[chosen], deprecated)
	}
	return out, nil
}

func buildPointer(url, elementID string, claims []Claim, deprecated bool) element.UrlPointer {
	defaults := make(map[string]bool)
	all := make(map[string]bool)
	for _, c := range claims {
		all[c.Slug.Language] = true
		if c.Default && !c.Deprecated {
			defaults[c.Slug.Language] = true
		}
	}

	p := element.UrlPointer{URL: url, ElementID: elementID, Deprecated: deprecated}
	if len(defaults) > 0 && !deprecated {
		p.Default = true
		p.Languages = sortedKeys(defaults)
	} else {
		p.Languages = sortedKeys(all)
	}
	return p
}

// mergePointer folds an incrementally rebuilt pointer into an existing
// mapping using the same arbitration as a full assembly.
func mergePointer(into map[string]element.UrlPointer, p element.UrlPointer, logger *slog.Logger) error {
	existing, ok := into[p.URL]
	if !ok || existing.ElementID == p.ElementID {
		into[p.URL] = p
		return nil
	}
	switch {
	case !existing.Deprecated && !p.Deprecated:
		return corrupt(p.ElementID, "url %s is already owned by live element %s", p.URL, existing.ElementID)
	case existing.Deprecated && !p.Deprecated:
		into[p.URL] = p
	case !existing.Deprecated && p.Deprecated:
	default:
		logger.Warn("Dropping deprecated URL claimed by several elements", "url", p.URL, "elementIds", []string{existing.ElementID, p.ElementID})
		delete(into, p.URL)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
