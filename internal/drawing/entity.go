// Package drawing defines the value-copied model of a host drawing: geometric
// entities, device tags, zones, and markers, plus the mutation intents a
// matching pass hands back to the host.
package drawing

import (
	"fmt"
	"strings"

	"pid-extract/pkg/geometry"
)

// Kind identifies the geometric type of an entity.
type Kind int

const (
	KindLine Kind = iota
	KindCircle
	KindArc
	KindPolyline
	KindFilledShape
	KindHatch
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "Line"
	case KindCircle:
		return "Circle"
	case KindArc:
		return "Arc"
	case KindPolyline:
		return "Polyline"
	case KindFilledShape:
		return "FilledShape"
	case KindHatch:
		return "Hatch"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// ParseKind maps a kind name (as used in pattern files) to its Kind.
// Matching is case-insensitive.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "line":
		return KindLine, nil
	case "circle":
		return KindCircle, nil
	case "arc":
		return KindArc, nil
	case "polyline":
		return KindPolyline, nil
	case "filled_shape", "filledshape", "solid":
		return KindFilledShape, nil
	case "hatch":
		return KindHatch, nil
	case "text":
		return KindText, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %q", name)
	}
}

// Entity is an immutable snapshot of one geometric drawing entity. Entities
// are value copies taken from the host drawing for the duration of a single
// matching pass; the core never holds references into host-owned objects.
type Entity struct {
	ID     string        `json:"id"`
	Kind   Kind          `json:"kind"`
	Bounds geometry.Rect `json:"bounds"`
	Layer  string        `json:"layer"`

	// Kind-specific attributes. Zero values for kinds they do not apply to.
	Length      float64 `json:"length,omitempty"`       // lines
	Radius      float64 `json:"radius,omitempty"`       // circles, arcs
	Closed      bool    `json:"closed,omitempty"`       // polylines
	VertexCount int     `json:"vertex_count,omitempty"` // polylines
	ColorIndex  int     `json:"color_index,omitempty"`  // polylines
	Text        string  `json:"text,omitempty"`         // text entities
}

// Center returns the center of the entity's bounding box.
func (e Entity) Center() geometry.Point2D {
	return e.Bounds.Center()
}

// HasValidBounds reports whether the entity carries a usable bounding box.
// Entities without one are skipped by clustering, never treated as fatal.
func (e Entity) HasValidBounds() bool {
	return e.Bounds.Valid()
}
