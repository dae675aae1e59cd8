// Package match runs one full matching pass over a drawing snapshot:
// candidate gathering, clustering, tag ownership, pattern classification,
// attribute enrichment, and marker review.
package match

import (
	"pid-extract/internal/drawing"
)

// UnmatchedPattern is the pattern name recorded for an owned cluster that
// matched no library pattern.
const UnmatchedPattern = "unmatched"

// Record is the output unit of a pass: one recognized (or flagged) device per
// tag. At most one Record exists per tag.
type Record struct {
	ID         string            `json:"id"`
	TagText    string            `json:"tag"`
	Pattern    string            `json:"pattern"` // pattern name, or UnmatchedPattern
	Matched    bool              `json:"matched"`
	Attributes map[string]string `json:"attributes"`

	// Provenance: the entity IDs of the owning cluster.
	ClusterEntityIDs []string `json:"cluster_entity_ids"`
}

// AsMap flattens the record into the mapping form consumed by the export
// sink: tag and pattern keys plus the merged attributes.
func (r Record) AsMap() map[string]string {
	m := make(map[string]string, len(r.Attributes)+2)
	for k, v := range r.Attributes {
		m[k] = v
	}
	m["tag"] = r.TagText
	m["pattern"] = r.Pattern
	return m
}

// MergeAttributes combines per-pattern static attributes with zone-derived
// metadata. The result starts as a copy of static and is overlaid by every
// zone key, zone winning collisions. Neither input is modified.
func MergeAttributes(static, zone map[string]string) map[string]string {
	merged := make(map[string]string, len(static)+len(zone))
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range zone {
		merged[k] = v
	}
	return merged
}

// Stats are the explicit counters accumulated by one pass.
type Stats struct {
	TagsSeen        int `json:"tags_seen"`
	ClustersBuilt   int `json:"clusters_built"`
	EntitiesSkipped int `json:"entities_skipped"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Unowned         int `json:"unowned"`
	MarkersAdded    int `json:"markers_added"`
	MarkersRemoved  int `json:"markers_removed"`
}

// Result is everything one pass produces: records, the mutation batch for the
// host to apply transactionally, and the counters.
type Result struct {
	Records   []Record           `json:"records"`
	Mutations []drawing.Mutation `json:"mutations"`
	Stats     Stats              `json:"stats"`
}
