// Package ownership decides which tag, if any, claims a cluster of geometry.
//
// A cluster discovered near one tag is not automatically that tag's: the
// resolver compares the originating tag's distance to the cluster centroid
// against every tag in the drawing, so a cluster is claimed by whichever tag
// is truly closest. A tolerance band treats near-ties as ownership rather
// than flapping on marginal geometry.
package ownership

import (
	"math"

	"pid-extract/internal/cluster"
	"pid-extract/internal/drawing"
)

// Resolver assigns clusters to tags.
type Resolver struct {
	// AmbiguityTolerance is the band within which the originating tag still
	// owns a cluster despite another tag being nominally closer. Empirically
	// tuned, exposed through configuration.
	AmbiguityTolerance float64
}

// NewResolver creates a resolver with the given ambiguity tolerance.
func NewResolver(ambiguityTolerance float64) *Resolver {
	return &Resolver{AmbiguityTolerance: ambiguityTolerance}
}

// Owns reports whether origin owns the cluster: origin's distance to the
// cluster centroid is within AmbiguityTolerance of the minimum distance over
// all tags in the drawing. With no tags in the drawing nothing is ever owned.
func (r *Resolver) Owns(c cluster.Cluster, origin drawing.Tag, allTags []drawing.Tag) bool {
	if len(allTags) == 0 {
		return false
	}
	centroid := c.Centroid()
	minDist := math.Inf(1)
	for _, t := range allTags {
		if d := t.Position.Distance(centroid); d < minDist {
			minDist = d
		}
	}
	myDist := origin.Position.Distance(centroid)
	return math.Abs(myDist-minDist) < r.AmbiguityTolerance
}

// ClaimBest returns the index of the cluster origin should claim: among the
// clusters origin owns, the one whose centroid is closest to origin. Returns
// -1, false when origin owns none of them.
func (r *Resolver) ClaimBest(clusters []cluster.Cluster, origin drawing.Tag, allTags []drawing.Tag) (int, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range clusters {
		if !r.Owns(c, origin, allTags) {
			continue
		}
		if d := origin.Position.Distance(c.Centroid()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}
