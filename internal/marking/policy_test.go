package marking

import (
	"testing"

	"pid-extract/internal/drawing"
	"pid-extract/pkg/geometry"
)

func testTag() drawing.Tag {
	return drawing.Tag{Text: "PV100", Position: geometry.Point2D{X: 50, Y: 50}}
}

func TestUnresolvedTagGetsMarker(t *testing.T) {
	p := NewPolicy(5, 2)
	snap := &drawing.Snapshot{}
	muts := p.Review(testTag(), false, snap)
	if len(muts) != 1 || muts[0].Kind != drawing.MutationAddMarker {
		t.Fatalf("expected one AddMarker, got %+v", muts)
	}
	m := muts[0].Marker
	if m.Kind != drawing.MarkerProblem || m.Position != testTag().Position || m.Size != 5 {
		t.Fatalf("unexpected marker %+v", m)
	}
	if m.ID == "" {
		t.Fatalf("marker must carry an ID")
	}
}

func TestUnresolvedTagNeverDoubleMarks(t *testing.T) {
	p := NewPolicy(5, 2)
	snap := &drawing.Snapshot{Markers: []drawing.Marker{{
		ID:       "m1",
		Kind:     drawing.MarkerProblem,
		Position: geometry.Point2D{X: 51, Y: 50}, // within tolerance
		Size:     5,
	}}}
	if muts := p.Review(testTag(), false, snap); len(muts) != 0 {
		t.Fatalf("already-flagged tag must not be marked again, got %+v", muts)
	}
}

func TestResolvedTagClearsMarker(t *testing.T) {
	p := NewPolicy(5, 2)
	snap := &drawing.Snapshot{Markers: []drawing.Marker{{
		ID:       "m1",
		Kind:     drawing.MarkerProblem,
		Position: geometry.Point2D{X: 50, Y: 50},
		Size:     5,
	}}}
	muts := p.Review(testTag(), true, snap)
	if len(muts) != 1 || muts[0].Kind != drawing.MutationRemoveMarker {
		t.Fatalf("expected one RemoveMarker, got %+v", muts)
	}
	if muts[0].Marker.ID != "m1" {
		t.Fatalf("must remove the existing marker, got %+v", muts[0].Marker)
	}
}

func TestResolvedTagWithoutMarkerIsNoop(t *testing.T) {
	p := NewPolicy(5, 2)
	if muts := p.Review(testTag(), true, &drawing.Snapshot{}); len(muts) != 0 {
		t.Fatalf("resolved unmarked tag is a no-op, got %+v", muts)
	}
}

func TestMarkerOutsideToleranceIsNotOurs(t *testing.T) {
	p := NewPolicy(5, 2)
	snap := &drawing.Snapshot{Markers: []drawing.Marker{{
		ID:       "far",
		Kind:     drawing.MarkerProblem,
		Position: geometry.Point2D{X: 90, Y: 90},
		Size:     5,
	}}}
	// Unresolved: the far marker does not count, a new one is emitted.
	muts := p.Review(testTag(), false, snap)
	if len(muts) != 1 || muts[0].Kind != drawing.MutationAddMarker {
		t.Fatalf("far marker must not suppress flagging, got %+v", muts)
	}
	// Resolved: the far marker must not be removed.
	if muts := p.Review(testTag(), true, snap); len(muts) != 0 {
		t.Fatalf("far marker must not be removed, got %+v", muts)
	}
}

func TestReviewIdempotentAcrossPasses(t *testing.T) {
	p := NewPolicy(5, 2)
	snap := &drawing.Snapshot{}

	first := p.Review(testTag(), false, snap)
	if len(first) != 1 {
		t.Fatalf("first pass should flag, got %+v", first)
	}
	// Host applies the mutation; second pass with unchanged geometry.
	snap.Markers = append(snap.Markers, first[0].Marker)
	if second := p.Review(testTag(), false, snap); len(second) != 0 {
		t.Fatalf("second pass must not duplicate the marker, got %+v", second)
	}

	// Geometry now resolves: the marker is removed, and a further resolved
	// pass does nothing.
	third := p.Review(testTag(), true, snap)
	if len(third) != 1 || third[0].Kind != drawing.MutationRemoveMarker {
		t.Fatalf("resolved pass should clear the marker, got %+v", third)
	}
	snap.Markers = nil
	if fourth := p.Review(testTag(), true, snap); len(fourth) != 0 {
		t.Fatalf("cleared tag must stay clear, got %+v", fourth)
	}
}
