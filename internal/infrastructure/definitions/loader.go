// Package definitions loads element definitions from YAML.
package definitions

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/definition"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

type file struct {
	Definitions []*definition.Definition `yaml:"definitions"`
}

// Parse decodes a definitions document.
func Parse(data []byte) (*definition.Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	for i, d := range f.Definitions {
		if d == nil || d.ID == "" {
			return nil, fmt.Errorf("definition %d has no id", i)
		}
		if len(d.Types) == 0 {
			return nil, fmt.Errorf("definition %s lists no element types", d.ID)
		}
		for _, t := range d.Types {
			if !t.IsValid() {
				return nil, fmt.Errorf("definition %s uses unknown element type %q", d.ID, t)
			}
		}
	}
	return definition.NewRegistry(f.Definitions...), nil
}

// Load reads path, falling back to Defaults when the file does not exist.
func Load(path string) (*definition.Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions %s: %w", path, err)
	}
	return Parse(data)
}

// Defaults returns the built-in definitions used when no file is configured.
func Defaults() *definition.Registry {
	return definition.NewRegistry(
		&definition.Definition{
			ID:    "root",
			Types: []element.Type{element.TypeRoot},
		},
		&definition.Definition{
			ID:     "collection",
			Types:  []element.Type{element.TypeCollection},
			Fields: []string{"title"},
		},
		&definition.Definition{
			ID:     "page",
			Types:  []element.Type{element.TypePage},
			Fields: []string{"title", "description", "body"},
			Collections: map[string]*definition.Collection{
				"gallery": {Fields: []string{"image", "caption"}},
				"sections": {
					Fields: []string{"heading", "body"},
					Collections: map[string]*definition.Collection{
						"links": {Fields: []string{"label", "href"}},
					},
				},
			},
		},
		&definition.Definition{
			ID:     "search",
			Types:  []element.Type{element.TypeSearch},
			Fields: []string{"title", "query"},
		},
		&definition.Definition{
			ID:     "snippet",
			Types:  []element.Type{element.TypeSnippet},
			Fields: []string{"title", "body"},
		},
	)
}
