package pattern

import (
	"pid-extract/internal/cluster"
	"pid-extract/internal/drawing"
)

// Filter removes entities that cannot be part of a device symbol before
// clustering and matching: process lines too long to be symbol strokes, and
// polylines on the zone-boundary layer (infrastructure, not device geometry).
type Filter struct {
	// MaxSymbolLineLength excludes lines at or beyond this length. Zero
	// disables the length filter.
	MaxSymbolLineLength float64

	// ZoneBoundaryLayer is the layer whose polylines are never device
	// geometry. Empty disables the layer filter.
	ZoneBoundaryLayer string
}

// Apply returns the entities that survive the filter.
func (f Filter) Apply(ents []drawing.Entity) []drawing.Entity {
	out := make([]drawing.Entity, 0, len(ents))
	for _, e := range ents {
		switch e.Kind {
		case drawing.KindLine:
			if f.MaxSymbolLineLength > 0 && lineLength(e) >= f.MaxSymbolLineLength {
				continue
			}
		case drawing.KindPolyline:
			if f.ZoneBoundaryLayer != "" && e.Layer == f.ZoneBoundaryLayer {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Matcher classifies clusters against a library.
type Matcher struct {
	lib *Library
}

// NewMatcher creates a matcher over the given library.
func NewMatcher(lib *Library) *Matcher {
	return &Matcher{lib: lib}
}

// Match returns the name of the first pattern, in declaration order, fully
// satisfied by the cluster. There is no scoring across patterns; libraries
// are authored most-specific-first. ok is false when nothing matches and the
// cluster is an unrecognized device.
func (m *Matcher) Match(c cluster.Cluster) (string, bool) {
	for _, p := range m.lib.Patterns {
		if p.Matches(c) {
			return p.Name, true
		}
	}
	return "", false
}

// StaticAttributes returns the static attributes of the named pattern, or nil
// when the name is unknown.
func (m *Matcher) StaticAttributes(name string) map[string]string {
	if p := m.lib.Get(name); p != nil {
		return p.Attributes
	}
	return nil
}
