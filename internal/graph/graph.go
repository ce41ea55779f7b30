// Package graph implements the in-memory cognitive graph (spec.md §4.C):
// an owned representation of events and typed edges with sorted adjacency
// for O(log deg) lookups, plus the bulk FromParts constructor used as the
// hot path when loading a .amem file.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/types"
)

// MemoryGraph is the owned in-memory representation of the cognitive graph.
// It is not safe for concurrent mutation from multiple goroutines without
// external synchronization (the engine facade provides the single-writer
// discipline from spec.md §5); concurrent reads are safe.
type MemoryGraph struct {
	mu sync.RWMutex

	dimension int
	nextID    types.NodeID

	nodes map[types.NodeID]*types.Event

	// forward[n] holds every edge with Source == n, sorted by Target then
	// Type. backward[n] holds every edge with Target == n, sorted by
	// Source then Type. Both are derived from the same edge set and kept
	// in lockstep by addEdgeLocked, RemoveEdge and RemoveNode.
	forward  map[types.NodeID][]types.Edge
	backward map[types.NodeID][]types.Edge
}

// New creates an empty graph with a fixed feature-vector dimension.
func New(dimension int) *MemoryGraph {
	return &MemoryGraph{
		dimension: dimension,
		nextID:    1,
		nodes:     make(map[types.NodeID]*types.Event),
		forward:   make(map[types.NodeID][]types.Edge),
		backward:  make(map[types.NodeID][]types.Edge),
	}
}

// Dimension returns the store's immutable feature-vector width.
func (g *MemoryGraph) Dimension() int {
	return g.dimension
}

// AddNode validates and inserts a new event, assigning it the next dense,
// monotonic id (spec.md §3 invariant: "IDs assigned during build are dense
// and monotonic").
func (g *MemoryGraph) AddNode(ev types.Event) (types.NodeID, error) {
	if err := validateEvent(ev, g.dimension); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	ev.ID = id
	g.nodes[id] = &ev
	return id, nil
}

func validateEvent(ev types.Event, dim int) error {
	if err := types.ValidateContent(ev.Content); err != nil {
		return cogerr.Wrap(cogerr.KindValidation, "event content", err)
	}
	if err := types.ValidateUnitRange("confidence", ev.Confidence); err != nil {
		return cogerr.Wrap(cogerr.KindValidation, "event confidence", err)
	}
	if err := types.ValidateUnitRange("decay_score", ev.DecayScore); err != nil {
		return cogerr.Wrap(cogerr.KindValidation, "event decay_score", err)
	}
	if err := types.ValidateVector(ev.FeatureVec, dim); err != nil {
		return cogerr.Wrap(cogerr.KindValidation, "event feature_vec", err)
	}
	return nil
}

// AddEdge validates and inserts an edge, rejecting self-loops, edges to
// missing endpoints, and nodes that would exceed MAX_EDGES_PER_NODE.
func (g *MemoryGraph) AddEdge(e types.Edge) error {
	if e.Source == e.Target {
		return cogerr.ErrSelfLoop
	}
	if err := types.ValidateUnitRange("weight", e.Weight); err != nil {
		return cogerr.Wrap(cogerr.KindValidation, "edge weight", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[e.Source]; !ok {
		return cogerr.Wrap(cogerr.KindValidation, fmt.Sprintf("edge source %d", e.Source), cogerr.ErrNodeNotFound)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return cogerr.Wrap(cogerr.KindValidation, fmt.Sprintf("edge target %d", e.Target), cogerr.ErrNodeNotFound)
	}
	if len(g.forward[e.Source]) >= types.MaxEdgesPerNode {
		return cogerr.ErrTooManyEdges
	}

	g.addEdgeLocked(e)
	return nil
}

func (g *MemoryGraph) addEdgeLocked(e types.Edge) {
	g.forward[e.Source] = insertSorted(g.forward[e.Source], e, true)
	g.backward[e.Target] = insertSorted(g.backward[e.Target], e, false)
}

// insertSorted inserts e into a slice kept sorted by (other-endpoint id,
// type), where byTarget selects whether "other endpoint" is the target
// (forward adjacency) or the source (backward adjacency).
func insertSorted(edges []types.Edge, e types.Edge, byTarget bool) []types.Edge {
	key := func(x types.Edge) (types.NodeID, types.EdgeType) {
		if byTarget {
			return x.Target, x.Type
		}
		return x.Source, x.Type
	}
	ek, et := key(e)
	idx := sort.Search(len(edges), func(i int) bool {
		ik, it := key(edges[i])
		if ik != ek {
			return ik > ek
		}
		return it >= et
	})
	edges = append(edges, types.Edge{})
	copy(edges[idx+1:], edges[idx:])
	edges[idx] = e
	return edges
}

// GetNode returns a copy of the event stored at id.
func (g *MemoryGraph) GetNode(id types.NodeID) (types.Event, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ev, ok := g.nodes[id]
	if !ok {
		return types.Event{}, cogerr.ErrNodeNotFound
	}
	return *ev, nil
}

// NodeCount returns the number of nodes currently in the graph.
func (g *MemoryGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges currently in the graph.
func (g *MemoryGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, edges := range g.forward {
		n += len(edges)
	}
	return n
}

// AllNodeIDs returns every node id, ascending.
func (g *MemoryGraph) AllNodeIDs() []types.NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]types.NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Neighbors returns a copy of the edges incident to id in the given
// direction, already sorted by the neighbor's id then edge type.
func (g *MemoryGraph) Neighbors(id types.NodeID, dir types.Direction) ([]types.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return nil, cogerr.ErrNodeNotFound
	}
	var src []types.Edge
	if dir == types.Forward {
		src = g.forward[id]
	} else {
		src = g.backward[id]
	}
	out := make([]types.Edge, len(src))
	copy(out, src)
	return out, nil
}

// EdgesOfType returns the edges incident to id in the given direction that
// carry edge type t. It scans every incident edge in that direction; the
// adjacency is sorted by endpoint first, so it does not narrow by type.
func (g *MemoryGraph) EdgesOfType(id types.NodeID, dir types.Direction, t types.EdgeType) ([]types.Edge, error) {
	edges, err := g.Neighbors(id, dir)
	if err != nil {
		return nil, err
	}
	out := make([]types.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}

// RemoveEdge removes the first edge matching (source, target, type).
func (g *MemoryGraph) RemoveEdge(source, target types.NodeID, t types.EdgeType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := false
	g.forward[source], removed = removeMatch(g.forward[source], target, t, true)
	if !removed {
		return cogerr.ErrEdgeNotFound
	}
	g.backward[target], _ = removeMatch(g.backward[target], source, t, false)
	return nil
}

func removeMatch(edges []types.Edge, other types.NodeID, t types.EdgeType, byTarget bool) ([]types.Edge, bool) {
	for i, e := range edges {
		o := e.Source
		if byTarget {
			o = e.Target
		}
		if o == other && e.Type == t {
			return append(edges[:i], edges[i+1:]...), true
		}
	}
	return edges, false
}

// RemoveNode deletes a node and every edge incident to it. Per spec.md §3,
// nodes are otherwise never destroyed except by consolidation's opt-in
// orphan pruning.
func (g *MemoryGraph) RemoveNode(id types.NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return cogerr.ErrNodeNotFound
	}
	for _, e := range g.forward[id] {
		g.backward[e.Target], _ = removeMatch(g.backward[e.Target], id, e.Type, false)
	}
	for _, e := range g.backward[id] {
		g.forward[e.Source], _ = removeMatch(g.forward[e.Source], id, e.Type, true)
	}
	delete(g.forward, id)
	delete(g.backward, id)
	delete(g.nodes, id)
	return nil
}

// UpdateNode replaces the stored event for an existing id in place (used by
// decay updates, correction links and consolidation).
func (g *MemoryGraph) UpdateNode(ev types.Event) error {
	if err := validateEvent(ev, g.dimension); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[ev.ID]; !ok {
		return cogerr.ErrNodeNotFound
	}
	g.nodes[ev.ID] = &ev
	return nil
}

// Snapshot returns every node and edge as plain slices, sorted by id /
// (source,target,type) respectively — the shape FromParts and the binary
// writer both consume.
func (g *MemoryGraph) Snapshot() ([]types.Event, []types.Edge) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]types.NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nodes := make([]types.Event, len(ids))
	for i, id := range ids {
		nodes[i] = *g.nodes[id]
	}

	var edges []types.Edge
	for _, id := range ids {
		edges = append(edges, g.forward[id]...)
	}
	return nodes, edges
}
