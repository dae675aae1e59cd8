// Package marking maintains the problem-marker annotations that surface
// unresolved tags to a human reviewer.
package marking

import (
	"github.com/google/uuid"

	"pid-extract/internal/drawing"
)

// Policy decides, once per tag per pass, whether a problem marker should be
// created, kept, or removed at the tag position. It is a two-state machine
// per position: Unmarked and Flagged.
type Policy struct {
	// MarkerSize is the side length of an emitted marker square.
	MarkerSize float64

	// LocationTolerance is the radius within which an existing marker counts
	// as this tag's marker.
	LocationTolerance float64
}

// NewPolicy creates a marking policy.
func NewPolicy(markerSize, locationTolerance float64) *Policy {
	return &Policy{MarkerSize: markerSize, LocationTolerance: locationTolerance}
}

// Review returns the mutations needed to bring the tag's marker state in line
// with the pass outcome. resolved means the tag owns a cluster that matched a
// pattern.
//
//   - unresolved, no marker nearby  -> add a marker (Unmarked -> Flagged)
//   - unresolved, marker nearby     -> nothing (already Flagged, never double-marks)
//   - resolved, marker nearby       -> remove it (Flagged -> Unmarked)
//   - resolved, no marker           -> nothing
func (p *Policy) Review(tag drawing.Tag, resolved bool, snap *drawing.Snapshot) []drawing.Mutation {
	existing := snap.MarkerNear(tag.Position, drawing.MarkerProblem, p.LocationTolerance)

	if !resolved {
		if existing != nil {
			return nil
		}
		return []drawing.Mutation{{
			Kind: drawing.MutationAddMarker,
			Marker: drawing.Marker{
				ID:       uuid.NewString(),
				Kind:     drawing.MarkerProblem,
				Position: tag.Position,
				Size:     p.MarkerSize,
			},
		}}
	}

	if existing != nil {
		return []drawing.Mutation{{
			Kind:   drawing.MutationRemoveMarker,
			Marker: *existing,
		}}
	}
	return nil
}
