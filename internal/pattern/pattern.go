// Package pattern matches a cluster's primitive composition against a library
// of named device shape templates.
package pattern

import (
	"pid-extract/internal/cluster"
	"pid-extract/internal/drawing"
)

// Pattern is a named shape template: required entity counts per kind, counts
// tolerated for optional kinds, and simple geometric predicates. Patterns are
// loaded once per run and treated as read-only.
type Pattern struct {
	Name        string
	Description string

	// Required holds exact counts per kind. A kind absent from both Required
	// and Optional must not appear in the cluster at all.
	Required map[drawing.Kind]int

	// Optional holds the maximum tolerated count per kind.
	Optional map[drawing.Kind]int

	// MaxLineLength, when positive, requires every line in the cluster to be
	// shorter than this length.
	MaxLineLength float64

	// ClosedPolylines, when set, requires every polyline's closed flag to
	// equal the given value.
	ClosedPolylines *bool

	// Attributes are the static attributes recorded on a matched device.
	Attributes map[string]string
}

// Matches reports whether the cluster's composition satisfies this pattern.
func (p *Pattern) Matches(c cluster.Cluster) bool {
	sig := c.Signature()

	for kind, want := range p.Required {
		if sig[kind] != want {
			return false
		}
	}
	for kind, got := range sig {
		if _, ok := p.Required[kind]; ok {
			continue
		}
		max, ok := p.Optional[kind]
		if !ok || got > max {
			return false
		}
	}

	for _, e := range c.Entities {
		switch e.Kind {
		case drawing.KindLine:
			if p.MaxLineLength > 0 && lineLength(e) >= p.MaxLineLength {
				return false
			}
		case drawing.KindPolyline:
			if p.ClosedPolylines != nil && e.Closed != *p.ClosedPolylines {
				return false
			}
		}
	}
	return true
}

// lineLength returns the recorded line length, falling back to the bounding
// box diagonal when the snapshot did not carry one.
func lineLength(e drawing.Entity) float64 {
	if e.Length > 0 {
		return e.Length
	}
	return e.Bounds.Min.Distance(e.Bounds.Max)
}
