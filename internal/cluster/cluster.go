// Package cluster groups drawing entities into connected components using a
// pairwise bounding-box proximity test. A cluster is the unit hypothesized to
// represent one device symbol.
package cluster

import (
	"sort"

	"pid-extract/internal/drawing"
	"pid-extract/pkg/geometry"
)

// Cluster is a connected group of nearby entities produced by one clustering
// run. Clusters are transient: built fresh per matching pass, never persisted.
type Cluster struct {
	Entities []drawing.Entity
}

// Centroid returns the mean of the entity centers.
func (c Cluster) Centroid() geometry.Point2D {
	centers := make([]geometry.Point2D, len(c.Entities))
	for i, e := range c.Entities {
		centers[i] = e.Center()
	}
	return geometry.Centroid(centers)
}

// Bounds returns the union of the entity bounding boxes.
func (c Cluster) Bounds() geometry.Rect {
	if len(c.Entities) == 0 {
		return geometry.Rect{}
	}
	b := c.Entities[0].Bounds
	for _, e := range c.Entities[1:] {
		b = b.Union(e.Bounds)
	}
	return b
}

// Signature is the composition of a cluster: entity count per kind.
type Signature map[drawing.Kind]int

// Signature returns the count of entities per geometric kind.
func (c Cluster) Signature() Signature {
	sig := make(Signature)
	for _, e := range c.Entities {
		sig[e.Kind]++
	}
	return sig
}

// EntityIDs returns the sorted IDs of the member entities.
func (c Cluster) EntityIDs() []string {
	ids := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		ids[i] = e.ID
	}
	sort.Strings(ids)
	return ids
}
