package ownership

import (
	"testing"

	"pid-extract/internal/cluster"
	"pid-extract/internal/drawing"
	"pid-extract/pkg/geometry"
)

func clusterAt(x, y float64) cluster.Cluster {
	return cluster.Cluster{Entities: []drawing.Entity{{
		ID:     "e",
		Kind:   drawing.KindCircle,
		Bounds: geometry.NewRect(geometry.Point2D{X: x, Y: y}, geometry.Point2D{X: x, Y: y}),
	}}}
}

func tagAt(text string, x, y float64) drawing.Tag {
	return drawing.Tag{Text: text, Position: geometry.Point2D{X: x, Y: y}}
}

func TestNoTagsMeansNoOwnership(t *testing.T) {
	r := NewResolver(10)
	if r.Owns(clusterAt(0, 0), tagAt("V1", 0, 0), nil) {
		t.Fatalf("a drawing without tags must never yield ownership")
	}
}

func TestSingleTagOwnsReachableCluster(t *testing.T) {
	r := NewResolver(10)
	tag := tagAt("V1", 0, 0)
	if !r.Owns(clusterAt(5, 5), tag, []drawing.Tag{tag}) {
		t.Fatalf("sole tag should own its nearby cluster")
	}
}

func TestNearestTagWinsCluster(t *testing.T) {
	// Two tags at (0,0) and (100,100); cluster centroid at (2,2).
	r := NewResolver(10)
	near := tagAt("V1", 0, 0)
	far := tagAt("V2", 100, 100)
	all := []drawing.Tag{near, far}
	c := clusterAt(2, 2)
	if !r.Owns(c, near, all) {
		t.Fatalf("tag at (0,0) should own the cluster at (2,2)")
	}
	if r.Owns(c, far, all) {
		t.Fatalf("tag at (100,100) must not own the cluster at (2,2)")
	}
}

func TestTieWithinToleranceStillOwns(t *testing.T) {
	// Cluster centroid equidistant-ish between two tags: the slightly
	// farther originating tag still owns within the tolerance band.
	r := NewResolver(10)
	a := tagAt("V1", 0, 0)
	b := tagAt("V2", 12, 0)
	all := []drawing.Tag{a, b}
	c := clusterAt(5, 0) // 5 from a, 7 from b; |7-5| < 10
	if !r.Owns(c, b, all) {
		t.Fatalf("near-tie within tolerance should still yield ownership")
	}
}

func TestBeyondToleranceLosesCluster(t *testing.T) {
	r := NewResolver(10)
	a := tagAt("V1", 0, 0)
	b := tagAt("V2", 40, 0)
	all := []drawing.Tag{a, b}
	c := clusterAt(5, 0) // 5 from a, 35 from b
	if r.Owns(c, b, all) {
		t.Fatalf("tag 30 units farther than the nearest must not own")
	}
}

func TestClaimBestPicksClosestOwnedCluster(t *testing.T) {
	r := NewResolver(10)
	tag := tagAt("V1", 0, 0)
	all := []drawing.Tag{tag}
	clusters := []cluster.Cluster{clusterAt(30, 0), clusterAt(4, 0), clusterAt(15, 0)}
	idx, ok := r.ClaimBest(clusters, tag, all)
	if !ok || idx != 1 {
		t.Fatalf("expected closest cluster (index 1), got %d ok=%v", idx, ok)
	}
}

func TestClaimBestNoneOwned(t *testing.T) {
	r := NewResolver(10)
	origin := tagAt("V1", 0, 0)
	other := tagAt("V2", 100, 0)
	// Only cluster sits on the other tag.
	idx, ok := r.ClaimBest([]cluster.Cluster{clusterAt(99, 0)}, origin, []drawing.Tag{origin, other})
	if ok || idx != -1 {
		t.Fatalf("no owned cluster expected, got idx=%d ok=%v", idx, ok)
	}
}
