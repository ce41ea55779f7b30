package graph

import (
	"fmt"
	"sort"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/types"
)

// FromParts is the bulk constructor used as the hot path when loading a
// .amem file (spec.md §4.C): one pass to validate the nodes and build the
// node table (always a map keyed by id, whether ids are dense or sparse),
// one pass to validate and bucket the edges, and one sort of each
// adjacency list. This is deliberately
// not a loop of AddNode/AddEdge calls — those re-validate and re-sort on
// every insertion, which is the wrong complexity for loading N nodes and M
// edges at once.
func FromParts(nodes []types.Event, edges []types.Edge, dimension int) (*MemoryGraph, error) {
	g := &MemoryGraph{
		dimension: dimension,
		nodes:     make(map[types.NodeID]*types.Event, len(nodes)),
		forward:   make(map[types.NodeID][]types.Edge, len(nodes)),
		backward:  make(map[types.NodeID][]types.Edge, len(nodes)),
	}

	var maxID types.NodeID
	for i := range nodes {
		ev := nodes[i]
		if err := validateEvent(ev, dimension); err != nil {
			return nil, fmt.Errorf("from_parts: node %d: %w", ev.ID, err)
		}
		if _, dup := g.nodes[ev.ID]; dup {
			return nil, cogerr.Wrap(cogerr.KindValidation, fmt.Sprintf("node id %d", ev.ID), cogerr.ErrDuplicateID)
		}
		cp := ev
		g.nodes[ev.ID] = &cp
		if ev.ID > maxID {
			maxID = ev.ID
		}
	}
	g.nextID = maxID + 1

	// Single pass to bucket edges by endpoint; sort happens once per
	// bucket afterward rather than on every insertion.
	for _, e := range edges {
		if e.Source == e.Target {
			return nil, fmt.Errorf("from_parts: edge %d->%d: %w", e.Source, e.Target, cogerr.ErrSelfLoop)
		}
		if err := types.ValidateUnitRange("weight", e.Weight); err != nil {
			return nil, fmt.Errorf("from_parts: edge %d->%d: %w", e.Source, e.Target, err)
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("from_parts: edge source %d: %w", e.Source, cogerr.ErrNodeNotFound)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("from_parts: edge target %d: %w", e.Target, cogerr.ErrNodeNotFound)
		}
		g.forward[e.Source] = append(g.forward[e.Source], e)
		g.backward[e.Target] = append(g.backward[e.Target], e)
	}

	for id, list := range g.forward {
		if len(list) > types.MaxEdgesPerNode {
			return nil, fmt.Errorf("from_parts: node %d: %w", id, cogerr.ErrTooManyEdges)
		}
		sortEdgesByOther(list, true)
	}
	for _, list := range g.backward {
		sortEdgesByOther(list, false)
	}

	return g, nil
}

func sortEdgesByOther(edges []types.Edge, byTarget bool) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		var ak, bk types.NodeID
		if byTarget {
			ak, bk = a.Target, b.Target
		} else {
			ak, bk = a.Source, b.Source
		}
		if ak != bk {
			return ak < bk
		}
		return a.Type < b.Type
	})
}
