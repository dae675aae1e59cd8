package match

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pid-extract/internal/cluster"
	"pid-extract/internal/config"
	"pid-extract/internal/drawing"
	"pid-extract/internal/marking"
	"pid-extract/internal/ownership"
	"pid-extract/internal/pattern"
)

// Runner executes matching passes. It is built once from loaded configuration
// and is safe to reuse across snapshots.
type Runner struct {
	cfg      config.MatchingConfig
	engine   *cluster.Engine
	resolver *ownership.Resolver
	matcher  *pattern.Matcher
	policy   *marking.Policy
	filter   pattern.Filter
	tagRe    *regexp.Regexp
	layers   *config.LayerFilter
	log      *slog.Logger
}

// NewRunner wires a pass runner from its collaborators.
func NewRunner(cfg config.Config, lib *pattern.Library, tagRe *regexp.Regexp, layers *config.LayerFilter, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:      cfg.Matching,
		engine:   cluster.NewEngine(log),
		resolver: ownership.NewResolver(cfg.Matching.AmbiguityTolerance),
		matcher:  pattern.NewMatcher(lib),
		policy:   marking.NewPolicy(cfg.Marking.MarkerSize, cfg.Marking.MarkerTolerance),
		filter: pattern.Filter{
			MaxSymbolLineLength: cfg.Matching.MaxSymbolLineLength,
			ZoneBoundaryLayer:   cfg.Matching.ZoneBoundaryLayer,
		},
		tagRe:  tagRe,
		layers: layers,
		log:    log,
	}
}

// tagWork is the pure per-tag result of the gather/cluster/ownership phase.
type tagWork struct {
	tag      drawing.Tag
	claim    *cluster.Cluster
	clusters int
}

// Run executes one matching pass over the snapshot. The snapshot is read
// only; all drawing changes come back as the mutation batch in the result.
//
// The pass runs in two phases. Candidate gathering, clustering, and ownership
// are pure per-tag computations, run concurrently when parallelism is
// configured. Claims, records, and marker review then run sequentially in tag
// order, so the cluster-to-tag assignment is deterministic regardless of
// scheduling.
func (r *Runner) Run(ctx context.Context, snap *drawing.Snapshot) (*Result, error) {
	deviceTags := r.selectDeviceTags(snap)
	res := &Result{Stats: Stats{TagsSeen: len(deviceTags)}}

	// Degenerate geometry is skipped for the whole pass, never fatal.
	for _, e := range snap.Entities {
		if !e.HasValidBounds() {
			res.Stats.EntitiesSkipped++
			r.log.Debug("skipping entity without valid bounds",
				"entity", e.ID, "kind", e.Kind.String(), "layer", e.Layer)
		}
	}

	work := make([]tagWork, len(deviceTags))
	if r.cfg.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Parallelism)
		for i := range deviceTags {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				work[i] = r.resolveTag(snap, deviceTags[i], deviceTags)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range deviceTags {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			work[i] = r.resolveTag(snap, deviceTags[i], deviceTags)
		}
	}

	// Sequential claim phase: a cluster goes to the first tag in snapshot
	// order that resolved it, keeping ownership injective.
	claimed := make(map[string]bool)
	for _, w := range work {
		res.Stats.ClustersBuilt += w.clusters

		owned := false
		var owner cluster.Cluster
		if w.claim != nil {
			key := strings.Join(w.claim.EntityIDs(), "|")
			if !claimed[key] {
				claimed[key] = true
				owned = true
				owner = *w.claim
			}
		}

		matched := false
		if owned {
			name, ok := r.matcher.Match(owner)
			matched = ok

			rec := Record{
				ID:               uuid.NewString(),
				TagText:          w.tag.Text,
				Pattern:          UnmatchedPattern,
				Matched:          ok,
				ClusterEntityIDs: owner.EntityIDs(),
			}
			var static map[string]string
			if ok {
				rec.Pattern = name
				static = r.matcher.StaticAttributes(name)
				res.Stats.Matched++
			} else {
				res.Stats.Unmatched++
			}
			rec.Attributes = MergeAttributes(static, r.zoneAttributes(snap, w.tag))
			res.Records = append(res.Records, rec)
		} else {
			res.Stats.Unowned++
		}

		for _, mut := range r.policy.Review(w.tag, owned && matched, snap) {
			switch mut.Kind {
			case drawing.MutationAddMarker:
				res.Stats.MarkersAdded++
			case drawing.MutationRemoveMarker:
				res.Stats.MarkersRemoved++
			}
			res.Mutations = append(res.Mutations, mut)
		}
	}

	r.log.Info("matching pass complete",
		"tags", res.Stats.TagsSeen,
		"clusters", res.Stats.ClustersBuilt,
		"matched", res.Stats.Matched,
		"unmatched", res.Stats.Unmatched,
		"unowned", res.Stats.Unowned,
		"markers_added", res.Stats.MarkersAdded,
		"markers_removed", res.Stats.MarkersRemoved,
		"entities_skipped", res.Stats.EntitiesSkipped)
	return res, nil
}

// selectDeviceTags returns the snapshot tags whose normalized text matches
// the device tag prefix pattern.
func (r *Runner) selectDeviceTags(snap *drawing.Snapshot) []drawing.Tag {
	var tags []drawing.Tag
	for _, t := range snap.Tags {
		t.Text = drawing.NormalizeTagText(t.Text)
		if r.tagRe.MatchString(t.Text) {
			tags = append(tags, t)
		}
	}
	return tags
}

// resolveTag gathers candidates around one tag, clusters them, and resolves
// which cluster (if any) the tag should claim. Pure with respect to shared
// state.
func (r *Runner) resolveTag(snap *drawing.Snapshot, tag drawing.Tag, allTags []drawing.Tag) tagWork {
	w := tagWork{tag: tag}

	cands := snap.EntitiesNear(tag.Position, r.cfg.ProximityRadius)
	usable := make([]drawing.Entity, 0, len(cands))
	for _, e := range cands {
		if !r.layers.Allows(e.Layer) {
			continue
		}
		// Tag labels themselves are not device geometry.
		if e.Kind == drawing.KindText && r.tagRe.MatchString(drawing.NormalizeTagText(e.Text)) {
			continue
		}
		usable = append(usable, e)
	}
	usable = r.filter.Apply(usable)

	clusters, _ := r.engine.Cluster(usable, r.cfg.LinkTolerance)
	w.clusters = len(clusters)

	if idx, ok := r.resolver.ClaimBest(clusters, tag, allTags); ok {
		w.claim = &clusters[idx]
	}
	return w
}

// zoneAttributes returns enrichment attributes for the zone containing the
// tag, or the UNKNOWN defaults when the tag lies in no zone.
func (r *Runner) zoneAttributes(snap *drawing.Snapshot, tag drawing.Tag) map[string]string {
	if z := snap.ZoneContaining(tag.Position); z != nil {
		return z.Attributes()
	}
	return drawing.Zone{}.Attributes()
}
