package query

import (
	"sort"

	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/types"
)

// AnalogicalParams asks for events structurally similar to a reference
// event: same cluster (cheap pre-filter) plus a cosine re-rank.
type AnalogicalParams struct {
	ReferenceID types.NodeID
	K           int
	MinScore    float64
}

// Analogical finds events in the same online cluster as ReferenceID,
// re-ranked by cosine similarity to it (spec.md §4.E "analogical query").
func (e *Engine) Analogical(p AnalogicalParams) ([]index.Match, error) {
	ref, err := e.g.GetNode(p.ReferenceID)
	if err != nil {
		return nil, err
	}
	if e.idx == nil || e.idx.Cluster == nil || e.idx.Vector == nil || ref.FeatureVec == nil {
		return nil, nil
	}

	cid, ok := e.idx.Cluster.ClusterOf(p.ReferenceID)
	if !ok {
		return e.idx.Vector.TopK(ref.FeatureVec, p.K, p.MinScore), nil
	}
	members := e.idx.Cluster.Members(cid)

	matches := make([]index.Match, 0, len(members))
	for _, id := range members {
		if id == p.ReferenceID {
			continue
		}
		vec, ok := e.idx.Vector.Get(id)
		if !ok {
			continue
		}
		score := index.Cosine(ref.FeatureVec, vec)
		if score < p.MinScore {
			continue
		}
		matches = append(matches, index.Match{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if p.K >= 0 && len(matches) > p.K {
		matches = matches[:p.K]
	}
	return matches, nil
}

// DriftParams bounds a search for belief drift: events of the same type
// about overlapping subject matter whose confidence has diverged over
// time.
type DriftParams struct {
	EventType        types.EventType
	WindowFrom       int64
	WindowTo         int64
	MinConfidenceGap float64
}

// DriftPair is two events the drift query judged as tracking the same
// belief with diverging confidence.
type DriftPair struct {
	Earlier types.Event
	Later   types.Event
	Gap     float64
}

// Drift finds pairs of same-type events within the time window connected
// by a Supersedes or RefinedBy edge whose confidence differs by at least
// MinConfidenceGap — a proxy for a belief whose certainty shifted as more
// was learned (spec.md §4.E "drift query").
func (e *Engine) Drift(p DriftParams) []DriftPair {
	var pairs []DriftPair
	for _, id := range e.g.AllNodeIDs() {
		ev, err := e.g.GetNode(id)
		if err != nil || ev.Type != p.EventType {
			continue
		}
		if ev.CreatedAt < p.WindowFrom || ev.CreatedAt > p.WindowTo {
			continue
		}
		edges, err := e.g.Neighbors(id, types.Forward)
		if err != nil {
			continue
		}
		for _, edge := range edges {
			if edge.Type != types.EdgeSupersedes && edge.Type != types.EdgeRefinedBy {
				continue
			}
			later, err := e.g.GetNode(edge.Target)
			if err != nil || later.Type != p.EventType {
				continue
			}
			gap := later.Confidence - ev.Confidence
			if gap < 0 {
				gap = -gap
			}
			if gap < p.MinConfidenceGap {
				continue
			}
			pairs = append(pairs, DriftPair{Earlier: ev, Later: later, Gap: gap})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Gap != pairs[j].Gap {
			return pairs[i].Gap > pairs[j].Gap
		}
		return pairs[i].Earlier.ID < pairs[j].Earlier.ID
	})
	return pairs
}

// GapParams bounds a scan for knowledge gaps: Decision or Inference nodes
// lacking supporting evidence.
type GapParams struct {
	MaxExamples int
}

// GapReport lists events judged to be missing expected connections.
type GapReport struct {
	UnsupportedDecisions []types.NodeID
	UncausedInferences   []types.NodeID
}

// GapDetection flags Decision nodes with no Supports edge and Inference
// nodes with no CausedBy edge — the two "missing evidence" shapes the
// store's invariants call out (spec.md §4.E "gap detection").
func (e *Engine) GapDetection(p GapParams) GapReport {
	var report GapReport
	for _, id := range e.g.AllNodeIDs() {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		switch ev.Type {
		case types.EventDecision:
			supports, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeSupports)
			if len(supports) == 0 && (p.MaxExamples <= 0 || len(report.UnsupportedDecisions) < p.MaxExamples) {
				report.UnsupportedDecisions = append(report.UnsupportedDecisions, id)
			}
		case types.EventInference:
			caused, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeCausedBy)
			if len(caused) == 0 && (p.MaxExamples <= 0 || len(report.UncausedInferences) < p.MaxExamples) {
				report.UncausedInferences = append(report.UncausedInferences, id)
			}
		}
	}
	return report
}

// DeduplicateFacts finds Fact events whose content is near-identical
// (cosine similarity >= Threshold) and reports the duplicate groups. It
// never mutates the graph: Consolidate reports the groups whether or not
// Apply is set.
type DeduplicateFacts struct {
	Threshold float64
	Apply     bool
}

// PruneOrphans identifies Fact/Inference nodes with no edges at all and a
// decay score at or below MaxDecay — leaves with no remaining relevance —
// removing them from the graph only if Apply is set.
type PruneOrphans struct {
	MaxDecay float64
	Apply    bool
}

// MergeNear merges clusters of near-duplicate events (as DeduplicateFacts
// finds them) into a single representative event, keeping the
// highest-confidence member and rewriting edges to point at it. Dry-run
// unless Apply is set.
type MergeNear struct {
	Threshold float64
	Apply     bool
}

// ConsolidateResult reports what a consolidation pass found or changed.
type ConsolidateResult struct {
	DuplicateGroups [][]types.NodeID
	OrphansPruned   []types.NodeID
	Merged          [][]types.NodeID
}

// Consolidate runs the requested subset of maintenance operations. Each
// operation defaults to dry-run (report only); setting Apply on
// PruneOrphans or MergeNear has Consolidate mutate the graph, while
// DeduplicateFacts only ever reports (spec.md §4.E "consolidation").
func (e *Engine) Consolidate(dedupe *DeduplicateFacts, prune *PruneOrphans, merge *MergeNear) (ConsolidateResult, error) {
	var result ConsolidateResult

	if dedupe != nil {
		groups := e.findDuplicateGroups(types.EventFact, dedupe.Threshold)
		result.DuplicateGroups = groups
	}

	if prune != nil {
		for _, id := range e.g.AllNodeIDs() {
			ev, err := e.g.GetNode(id)
			if err != nil {
				continue
			}
			if ev.Type != types.EventFact && ev.Type != types.EventInference {
				continue
			}
			if ev.DecayScore > prune.MaxDecay {
				continue
			}
			fwd, _ := e.g.Neighbors(id, types.Forward)
			bwd, _ := e.g.Neighbors(id, types.Backward)
			if len(fwd) != 0 || len(bwd) != 0 {
				continue
			}
			result.OrphansPruned = append(result.OrphansPruned, id)
		}
		if prune.Apply {
			for _, id := range result.OrphansPruned {
				if err := e.g.RemoveNode(id); err != nil {
					return result, err
				}
			}
		}
	}

	if merge != nil {
		groups := e.findDuplicateGroups(types.EventFact, merge.Threshold)
		result.Merged = groups
		if merge.Apply {
			for _, group := range groups {
				if err := e.mergeGroup(group); err != nil {
					return result, err
				}
			}
		}
	}

	return result, nil
}

func (e *Engine) findDuplicateGroups(t types.EventType, threshold float64) [][]types.NodeID {
	if e.idx == nil || e.idx.Vector == nil {
		return nil
	}
	ids := e.g.AllNodeIDs()
	assigned := map[types.NodeID]bool{}
	var groups [][]types.NodeID

	for _, id := range ids {
		if assigned[id] {
			continue
		}
		ev, err := e.g.GetNode(id)
		if err != nil || ev.Type != t || ev.FeatureVec == nil {
			continue
		}
		group := []types.NodeID{id}
		assigned[id] = true
		for _, other := range ids {
			if assigned[other] {
				continue
			}
			otherEv, err := e.g.GetNode(other)
			if err != nil || otherEv.Type != t || otherEv.FeatureVec == nil {
				continue
			}
			if index.Cosine(ev.FeatureVec, otherEv.FeatureVec) >= threshold {
				group = append(group, other)
				assigned[other] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// mergeGroup keeps the highest-confidence member of group, rewires every
// other member's edges to point at it, and removes the rest.
func (e *Engine) mergeGroup(group []types.NodeID) error {
	if len(group) < 2 {
		return nil
	}
	keep := group[0]
	keepEv, err := e.g.GetNode(keep)
	if err != nil {
		return err
	}
	for _, id := range group[1:] {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		if ev.Confidence > keepEv.Confidence {
			keep, keepEv = id, ev
		}
	}

	for _, id := range group {
		if id == keep {
			continue
		}
		if err := e.rewireTo(id, keep); err != nil {
			return err
		}
		if err := e.g.RemoveNode(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rewireTo(from, to types.NodeID) error {
	fwd, err := e.g.Neighbors(from, types.Forward)
	if err != nil {
		return err
	}
	bwd, err := e.g.Neighbors(from, types.Backward)
	if err != nil {
		return err
	}
	for _, edge := range fwd {
		if edge.Target == to {
			continue
		}
		_ = e.g.AddEdge(types.Edge{Source: to, Target: edge.Target, Type: edge.Type, Weight: edge.Weight})
	}
	for _, edge := range bwd {
		if edge.Source == to {
			continue
		}
		_ = e.g.AddEdge(types.Edge{Source: edge.Source, Target: to, Type: edge.Type, Weight: edge.Weight})
	}
	return nil
}

// BeliefRevision walks the Supersedes/RefinedBy chain forward from an
// event to its current, most-refined belief.
func (e *Engine) BeliefRevision(id types.NodeID) (types.Event, []types.NodeID, error) {
	ev, err := e.g.GetNode(id)
	if err != nil {
		return types.Event{}, nil, err
	}
	visited := map[types.NodeID]bool{id: true}
	chain := []types.NodeID{id}
	cur := id
	for {
		edges, err := e.g.Neighbors(cur, types.Forward)
		if err != nil {
			break
		}
		next, found := types.NodeID(0), false
		for _, edge := range edges {
			if edge.Type == types.EdgeSupersedes || edge.Type == types.EdgeRefinedBy {
				next, found = edge.Target, true
				break
			}
		}
		if !found || visited[next] {
			break
		}
		visited[next] = true
		chain = append(chain, next)
		cur = next
		ev, err = e.g.GetNode(next)
		if err != nil {
			return types.Event{}, chain, err
		}
	}
	return ev, chain, nil
}
