package pattern

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pid-extract/internal/drawing"
)

// Library is an ordered collection of patterns. Declaration order is the
// evaluation order: the first fully-satisfied pattern wins, so authors order
// libraries most-specific-first.
type Library struct {
	Patterns []*Pattern
}

// libraryFile is the on-disk YAML form of a pattern library.
type libraryFile struct {
	Patterns []patternFile `yaml:"patterns"`
}

type patternFile struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description,omitempty"`
	Required        map[string]int    `yaml:"required"`
	Optional        map[string]int    `yaml:"optional,omitempty"`
	MaxLineLength   float64           `yaml:"max_line_length,omitempty"`
	ClosedPolylines *bool             `yaml:"closed_polylines,omitempty"`
	Attributes      map[string]string `yaml:"attributes,omitempty"`
}

// LoadLibrary reads a pattern library from a YAML file. Any read or parse
// failure is fatal to the run: a pass must not start against a partial or
// missing library.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary parses pattern library YAML.
func ParseLibrary(data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern library: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("pattern library declares no patterns")
	}

	lib := &Library{Patterns: make([]*Pattern, 0, len(file.Patterns))}
	seen := make(map[string]bool)
	for i, pf := range file.Patterns {
		if pf.Name == "" {
			return nil, fmt.Errorf("pattern %d has no name", i)
		}
		if seen[pf.Name] {
			return nil, fmt.Errorf("duplicate pattern name %q", pf.Name)
		}
		seen[pf.Name] = true

		p := &Pattern{
			Name:            pf.Name,
			Description:     pf.Description,
			Required:        make(map[drawing.Kind]int, len(pf.Required)),
			Optional:        make(map[drawing.Kind]int, len(pf.Optional)),
			MaxLineLength:   pf.MaxLineLength,
			ClosedPolylines: pf.ClosedPolylines,
			Attributes:      pf.Attributes,
		}
		if len(pf.Required) == 0 {
			return nil, fmt.Errorf("pattern %q requires no entities", pf.Name)
		}
		for name, count := range pf.Required {
			kind, err := drawing.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pf.Name, err)
			}
			p.Required[kind] = count
		}
		for name, count := range pf.Optional {
			kind, err := drawing.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pf.Name, err)
			}
			p.Optional[kind] = count
		}
		lib.Patterns = append(lib.Patterns, p)
	}
	return lib, nil
}

// Get returns the pattern with the given name, or nil.
func (lib *Library) Get(name string) *Pattern {
	for _, p := range lib.Patterns {
		if p.Name == name {
			return p
		}
	}
	return nil
}
