// Package services provides tree integrity analysis over loaded elements
package services

import (
	"sort"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// IntegrityReport lists structural problems found in the element tree.
// Every map is keyed by the element that carries the problem.
type IntegrityReport struct {
	// Orphans are elements whose parent's newest version does not list them.
	Orphans []string `json:"orphans"`
	// MissingParents maps elements to a parent id that does not exist.
	MissingParents map[string]string `json:"missingParents"`
	// DanglingChildren maps parents to child ids that do not exist.
	DanglingChildren map[string][]string `json:"danglingChildren"`
	// DanglingReferences maps elements to reference names whose target is neither an element nor a file.
	DanglingReferences map[string][]string `json:"danglingReferences"`
	// Unreachable are live elements that cannot be reached from the root.
	Unreachable []string `json:"unreachable"`
	Elements    int      `json:"elements"`
}

// IsClean reports whether no problem was found.
func (r *IntegrityReport) IsClean() bool {
	return len(r.Orphans) == 0 &&
		len(r.MissingParents) == 0 &&
		len(r.DanglingChildren) == 0 &&
		len(r.DanglingReferences) == 0 &&
		len(r.Unreachable) == 0
}

type IntegrityService struct{}

func NewIntegrityService() *IntegrityService {
	return &IntegrityService{}
}

// Analyze checks parent links, children lists and references of every
// element. fileExists resolves reference targets that are not elements and
// may be nil.
func (s *IntegrityService) Analyze(elements map[string]*element.Element, fileExists func(id string) bool) *IntegrityReport {
	report := &IntegrityReport{
		Orphans:            []string{},
		MissingParents:     make(map[string]string),
		DanglingChildren:   make(map[string][]string),
		DanglingReferences: make(map[string][]string),
		Unreachable:        []string{},
		Elements:           len(elements),
	}

	for id, el := range elements {
		newest := el.NewestVersion()
		if newest == nil {
			continue
		}

		if id != element.RootID && el.ParentID != "" {
			parent, ok := elements[el.ParentID]
			switch {
			case !ok:
				report.MissingParents[id] = el.ParentID
			case parent.NewestVersion() == nil || !parent.NewestVersion().HasChild(id):
				report.Orphans = append(report.Orphans, id)
			}
		}

		for _, child := range newest.Children {
			if _, ok := elements[child]; !ok {
				report.DanglingChildren[id] = append(report.DanglingChildren[id], child)
			}
		}

		for name, target := range newest.References {
			if _, ok := elements[target]; ok {
				continue
			}
			if fileExists != nil && fileExists(target) {
				continue
			}
			report.DanglingReferences[id] = append(report.DanglingReferences[id], name)
		}
	}

	reachable := s.walk(elements)
	for id, el := range elements {
		if id == element.RootID || reachable[id] || el.IsDeleted() {
			continue
		}
		report.Unreachable = append(report.Unreachable, id)
	}

	sort.Strings(report.Orphans)
	sort.Strings(report.Unreachable)
	for _, m := range []map[string][]string{report.DanglingChildren, report.DanglingReferences} {
		for k := range m {
			sort.Strings(m[k])
		}
	}
	return report
}

// walk follows newest-version children from the root.
func (s *IntegrityService) walk(elements map[string]*element.Element) map[string]bool {
	seen := map[string]bool{element.RootID: true}
	queue := []string{element.RootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		el, ok := elements[id]
		if !ok || el.NewestVersion() == nil {
			continue
		}
		for _, child := range el.NewestVersion().Children {
			if seen[child] {
				continue
			}
			c, ok := elements[child]
			if !ok || c.ParentID != id {
				continue
			}
			seen[child] = true
			queue = append(queue, child)
		}
	}
	return seen
}
