package drawing

import (
	"strings"

	"pid-extract/pkg/geometry"
)

// Tag is a text label naming a device at a drawing position. A tag's identity
// for ownership purposes is its position, not its text.
type Tag struct {
	Text     string           `json:"text"`
	Position geometry.Point2D `json:"position"`
}

// NormalizeTagText canonicalizes a raw text value for tag comparison.
func NormalizeTagText(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Default facility identifiers used when zone metadata is absent.
const (
	UnknownFacility = "UNKNOWN"

	// Metadata keys carried by zones.
	MetaFacility    = "facility"
	MetaSubFacility = "sub_facility"
)

// Zone is a closed drawing region, approximated by its bounding box, carrying
// facility-identifying metadata used to enrich matched records.
type Zone struct {
	ID     string            `json:"id"`
	Bounds geometry.Rect     `json:"bounds"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Attributes returns a copy of the zone metadata with the facility keys
// defaulted to "UNKNOWN" when missing or empty. Absent metadata degrades,
// it never fails.
func (z Zone) Attributes() map[string]string {
	attrs := make(map[string]string, len(z.Meta)+2)
	for k, v := range z.Meta {
		attrs[k] = v
	}
	if attrs[MetaFacility] == "" {
		attrs[MetaFacility] = UnknownFacility
	}
	if attrs[MetaSubFacility] == "" {
		attrs[MetaSubFacility] = UnknownFacility
	}
	return attrs
}

// MarkerKind identifies what an annotation marker means. An explicit kind
// replaces the legacy convention of recognizing markers by color and vertex
// count.
type MarkerKind int

const (
	// MarkerProblem flags a tag whose geometry could not be resolved to a
	// recognized device.
	MarkerProblem MarkerKind = iota
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerProblem:
		return "Problem"
	default:
		return "Unknown"
	}
}

// Marker is a square annotation centered on a drawing position.
type Marker struct {
	ID       string           `json:"id"`
	Kind     MarkerKind       `json:"kind"`
	Position geometry.Point2D `json:"position"`
	Size     float64          `json:"size"`
}

// Snapshot is an immutable value copy of the relevant contents of one host
// drawing, taken once per matching pass.
type Snapshot struct {
	Entities []Entity `json:"entities"`
	Tags     []Tag    `json:"tags"`
	Zones    []Zone   `json:"zones"`
	Markers  []Marker `json:"markers"`
}

// EntitiesNear returns the entities whose bounding boxes lie within radius of
// the given point (distance from the point to the box, zero inside it).
// Entities without valid bounds are never returned.
func (s *Snapshot) EntitiesNear(p geometry.Point2D, radius float64) []Entity {
	probe := geometry.Rect{Min: p, Max: p}
	var out []Entity
	for _, e := range s.Entities {
		if !e.HasValidBounds() {
			continue
		}
		if geometry.Gap(probe, e.Bounds) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesWithin returns the entities whose bounding boxes intersect the rect.
// Entities without valid bounds are never returned.
func (s *Snapshot) EntitiesWithin(r geometry.Rect) []Entity {
	var out []Entity
	for _, e := range s.Entities {
		if !e.HasValidBounds() {
			continue
		}
		if r.Intersects(e.Bounds) {
			out = append(out, e)
		}
	}
	return out
}

// ZoneContaining returns the first zone whose bounding box contains the point,
// or nil if the point lies in no zone. Containment is a bounding-box test;
// true polygon containment is out of scope.
func (s *Snapshot) ZoneContaining(p geometry.Point2D) *Zone {
	for i := range s.Zones {
		if s.Zones[i].Bounds.Contains(p) {
			return &s.Zones[i]
		}
	}
	return nil
}

// MarkerNear returns the first marker of the given kind within tolerance of
// the point, or nil.
func (s *Snapshot) MarkerNear(p geometry.Point2D, kind MarkerKind, tolerance float64) *Marker {
	for i := range s.Markers {
		m := &s.Markers[i]
		if m.Kind == kind && m.Position.Distance(p) <= tolerance {
			return m
		}
	}
	return nil
}
