package cluster

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"pid-extract/internal/drawing"
	"pid-extract/pkg/geometry"
)

// Engine partitions candidate entities into connected components. Two
// entities are linked when the minimum gap between their bounding boxes is
// at most the link tolerance.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates a clustering engine. A nil logger falls back to the
// default slog logger.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Cluster partitions the candidates into connected components and returns the
// clusters plus the number of entities skipped for lacking a valid bounding
// box. The returned partition is canonical: entities inside a cluster are
// sorted by ID and clusters are sorted by their first entity ID, so the same
// candidate set yields the same result in any input order.
func (eng *Engine) Cluster(candidates []drawing.Entity, linkTolerance float64) ([]Cluster, int) {
	usable := make([]drawing.Entity, 0, len(candidates))
	skipped := 0
	for _, e := range candidates {
		if !e.HasValidBounds() {
			skipped++
			eng.log.Debug("skipping entity without valid bounds",
				"entity", e.ID, "kind", e.Kind.String(), "layer", e.Layer)
			continue
		}
		usable = append(usable, e)
	}
	if len(usable) == 0 {
		return nil, skipped
	}

	g := simple.NewUndirectedGraph()
	for i := range usable {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			if geometry.Gap(usable[i].Bounds, usable[j].Bounds) <= linkTolerance {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	clusters := make([]Cluster, 0)
	for _, comp := range topo.ConnectedComponents(g) {
		c := Cluster{Entities: make([]drawing.Entity, 0, len(comp))}
		for _, n := range comp {
			c.Entities = append(c.Entities, usable[int(n.ID())])
		}
		sort.Slice(c.Entities, func(a, b int) bool {
			return c.Entities[a].ID < c.Entities[b].ID
		})
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].Entities[0].ID < clusters[b].Entities[0].ID
	})
	return clusters, skipped
}
