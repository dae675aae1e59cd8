package match

import (
	"context"
	"testing"

	"pid-extract/internal/config"
	"pid-extract/internal/drawing"
	"pid-extract/internal/pattern"
	"pid-extract/pkg/geometry"
)

const passLibraryYAML = `
patterns:
  - name: GATE
    required:
      line: 2
      circle: 1
    max_line_length: 40
    attributes:
      device_class: valve
      valve_type: gate
  - name: GLOBE
    required:
      line: 2
      circle: 2
    attributes:
      device_class: valve
      valve_type: globe
`

func testRunner(t *testing.T, cfg config.Config) *Runner {
	t.Helper()
	lib, err := pattern.ParseLibrary([]byte(passLibraryYAML))
	if err != nil {
		t.Fatalf("parse library: %v", err)
	}
	tagRe, err := config.TagPrefixPattern([]string{"PV", "FV"})
	if err != nil {
		t.Fatalf("compile tag pattern: %v", err)
	}
	return NewRunner(cfg, lib, tagRe, config.NewLayerFilter(nil), nil)
}

func lineAt(id string, x, y, length float64) drawing.Entity {
	return drawing.Entity{
		ID:     id,
		Kind:   drawing.KindLine,
		Length: length,
		Bounds: geometry.NewRect(geometry.Point2D{X: x, Y: y}, geometry.Point2D{X: x + length, Y: y}),
	}
}

func circleAt(id string, x, y, r float64) drawing.Entity {
	return drawing.Entity{
		ID:     id,
		Kind:   drawing.KindCircle,
		Radius: r,
		Bounds: geometry.NewRect(geometry.Point2D{X: x - r, Y: y - r}, geometry.Point2D{X: x + r, Y: y + r}),
	}
}

// gateSymbolAt places a GATE composition (two short lines, one circle)
// centered near the given position.
func gateSymbolAt(prefix string, x, y float64) []drawing.Entity {
	return []drawing.Entity{
		lineAt(prefix+"-l1", x-5, y-3, 10),
		lineAt(prefix+"-l2", x-5, y+3, 10),
		circleAt(prefix+"-c1", x, y, 4),
	}
}

func TestPassMatchesGateValve(t *testing.T) {
	r := testRunner(t, config.Default())
	snap := &drawing.Snapshot{
		Entities: gateSymbolAt("g", 10, 10),
		Tags:     []drawing.Tag{{Text: "pv100", Position: geometry.Point2D{X: 10, Y: 20}}},
		Zones: []drawing.Zone{{
			ID:     "z1",
			Bounds: geometry.NewRect(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 100, Y: 100}),
			Meta:   map[string]string{drawing.MetaFacility: "F-12", drawing.MetaSubFacility: "A"},
		}},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected one record, got %d", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Pattern != "GATE" || !rec.Matched {
		t.Fatalf("expected GATE match, got %+v", rec)
	}
	if rec.TagText != "PV100" {
		t.Fatalf("tag text should be normalized, got %q", rec.TagText)
	}
	if rec.Attributes["valve_type"] != "gate" || rec.Attributes[drawing.MetaFacility] != "F-12" {
		t.Fatalf("attributes not merged: %+v", rec.Attributes)
	}
	if len(rec.ClusterEntityIDs) != 3 {
		t.Fatalf("provenance should list the cluster entities, got %v", rec.ClusterEntityIDs)
	}
	if len(res.Mutations) != 0 {
		t.Fatalf("a matched tag needs no marker mutations, got %+v", res.Mutations)
	}
}

func TestPassNearestTagOwnsSharedCluster(t *testing.T) {
	// Two device tags; one symbol close to the first. Only the near tag may
	// claim it; the far tag is flagged.
	r := testRunner(t, config.Default())
	snap := &drawing.Snapshot{
		Entities: gateSymbolAt("g", 2, 2),
		Tags: []drawing.Tag{
			{Text: "PV1", Position: geometry.Point2D{X: 0, Y: 0}},
			{Text: "PV2", Position: geometry.Point2D{X: 100, Y: 100}},
		},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].TagText != "PV1" {
		t.Fatalf("only PV1 should produce a record, got %+v", res.Records)
	}
	if res.Stats.Unowned != 1 {
		t.Fatalf("PV2 should be unowned, stats %+v", res.Stats)
	}
	if len(res.Mutations) != 1 || res.Mutations[0].Kind != drawing.MutationAddMarker {
		t.Fatalf("PV2 should be flagged, got %+v", res.Mutations)
	}
}

func TestPassOwnershipIsInjective(t *testing.T) {
	// Two tags flanking one symbol inside the ambiguity band: both own it,
	// but only one may claim it.
	cfg := config.Default()
	cfg.Matching.AmbiguityTolerance = 30
	r := testRunner(t, cfg)
	snap := &drawing.Snapshot{
		Entities: gateSymbolAt("g", 10, 0),
		Tags: []drawing.Tag{
			{Text: "PV1", Position: geometry.Point2D{X: 0, Y: 0}},
			{Text: "PV2", Position: geometry.Point2D{X: 20, Y: 0}},
		},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("one cluster can yield only one record, got %d", len(res.Records))
	}
	if res.Stats.Unowned != 1 {
		t.Fatalf("the losing tag must be unowned, stats %+v", res.Stats)
	}
}

func TestPassFlagsLonelyTagThenClears(t *testing.T) {
	r := testRunner(t, config.Default())
	tagPos := geometry.Point2D{X: 10, Y: 20}
	snap := &drawing.Snapshot{
		Tags: []drawing.Tag{{Text: "PV7", Position: tagPos}},
	}

	// First pass: no geometry near the tag, a marker is requested.
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(res.Mutations) != 1 || res.Mutations[0].Kind != drawing.MutationAddMarker {
		t.Fatalf("lonely tag must be flagged, got %+v", res.Mutations)
	}

	// Host applies the marker; geometry appears; second pass clears it.
	snap.Markers = []drawing.Marker{res.Mutations[0].Marker}
	snap.Entities = gateSymbolAt("g", 10, 10)
	res2, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(res2.Mutations) != 1 || res2.Mutations[0].Kind != drawing.MutationRemoveMarker {
		t.Fatalf("resolved tag must clear its marker, got %+v", res2.Mutations)
	}
	if res2.Mutations[0].Marker.ID != snap.Markers[0].ID {
		t.Fatalf("the existing marker must be the one removed")
	}
}

func TestPassUnmatchedClusterStillRecordsAndFlags(t *testing.T) {
	r := testRunner(t, config.Default())
	snap := &drawing.Snapshot{
		// Composition matching no pattern: one hatch.
		Entities: []drawing.Entity{{
			ID:     "h1",
			Kind:   drawing.KindHatch,
			Bounds: geometry.NewRect(geometry.Point2D{X: 8, Y: 8}, geometry.Point2D{X: 12, Y: 12}),
		}},
		Tags: []drawing.Tag{{Text: "PV9", Position: geometry.Point2D{X: 10, Y: 20}}},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Matched || res.Records[0].Pattern != UnmatchedPattern {
		t.Fatalf("owned but unmatched cluster should yield an unmatched record, got %+v", res.Records)
	}
	if res.Records[0].Attributes[drawing.MetaFacility] != drawing.UnknownFacility {
		t.Fatalf("no zone means UNKNOWN facility, got %+v", res.Records[0].Attributes)
	}
	if len(res.Mutations) != 1 || res.Mutations[0].Kind != drawing.MutationAddMarker {
		t.Fatalf("unmatched tag must be flagged, got %+v", res.Mutations)
	}
}

func TestPassIgnoresNonDeviceTags(t *testing.T) {
	r := testRunner(t, config.Default())
	snap := &drawing.Snapshot{
		Tags: []drawing.Tag{
			{Text: "NOTE A", Position: geometry.Point2D{X: 0, Y: 0}},
			{Text: "XV100", Position: geometry.Point2D{X: 5, Y: 5}},
		},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stats.TagsSeen != 0 || len(res.Records) != 0 || len(res.Mutations) != 0 {
		t.Fatalf("non-device tags must be ignored entirely, got %+v", res.Stats)
	}
}

func TestPassCountsSkippedEntities(t *testing.T) {
	r := testRunner(t, config.Default())
	snap := &drawing.Snapshot{
		Entities: []drawing.Entity{{
			ID:   "bad",
			Kind: drawing.KindArc,
			Bounds: geometry.Rect{
				Min: geometry.Point2D{X: 5, Y: 5},
				Max: geometry.Point2D{X: 1, Y: 1}, // inverted
			},
		}},
		Tags: []drawing.Tag{{Text: "PV1", Position: geometry.Point2D{X: 0, Y: 0}}},
	}
	res, err := r.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stats.EntitiesSkipped != 1 {
		t.Fatalf("degenerate entity should be counted as skipped, stats %+v", res.Stats)
	}
}

func TestPassParallelMatchesSequential(t *testing.T) {
	seqCfg := config.Default()
	parCfg := config.Default()
	parCfg.Matching.Parallelism = 4

	snap := &drawing.Snapshot{}
	positions := []geometry.Point2D{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 0, Y: 200}, {X: 200, Y: 200}}
	for i, p := range positions {
		snap.Entities = append(snap.Entities, gateSymbolAt(string(rune('a'+i)), p.X, p.Y-10)...)
		snap.Tags = append(snap.Tags, drawing.Tag{
			Text:     "PV" + string(rune('1'+i)),
			Position: p,
		})
	}

	seq, err := testRunner(t, seqCfg).Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("sequential run: %v", err)
	}
	par, err := testRunner(t, parCfg).Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}
	if len(seq.Records) != len(par.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(seq.Records), len(par.Records))
	}
	for i := range seq.Records {
		if seq.Records[i].TagText != par.Records[i].TagText ||
			seq.Records[i].Pattern != par.Records[i].Pattern {
			t.Fatalf("record %d differs: %+v vs %+v", i, seq.Records[i], par.Records[i])
		}
	}
}

func TestMergeAttributes(t *testing.T) {
	static := map[string]string{"A": "1", "B": "2"}
	zone := map[string]string{"B": "9"}
	got := MergeAttributes(static, zone)
	if got["A"] != "1" || got["B"] != "9" || len(got) != 2 {
		t.Fatalf("expected {A:1 B:9}, got %+v", got)
	}
	if static["B"] != "2" {
		t.Fatalf("merge must not modify its inputs")
	}
}

func TestRecordAsMap(t *testing.T) {
	rec := Record{
		TagText:    "PV1",
		Pattern:    "GATE",
		Attributes: map[string]string{"device_class": "valve"},
	}
	m := rec.AsMap()
	if m["tag"] != "PV1" || m["pattern"] != "GATE" || m["device_class"] != "valve" {
		t.Fatalf("unexpected map %+v", m)
	}
}
