// Package query implements the cognitive graph's query engine (spec.md
// §4.E): traversal, pattern, similarity, causal, temporal and quality
// queries, the cognitive operations (analogical, drift, gap detection,
// belief revision, consolidation), centrality/shortest-path queries, and
// hybrid text+vector search. Every query here is deterministic and, apart
// from Consolidate with an Apply field set, side-effect-free: it takes the
// graph plus a parameter record and returns either a result record or a
// typed error.
package query

import (
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/types"
)

// Engine answers queries over a graph and its graph-plane indexes. It
// holds no mutable state of its own.
type Engine struct {
	g   *graph.MemoryGraph
	idx *index.Dispatcher
}

// New creates a query engine over the given graph and index set.
func New(g *graph.MemoryGraph, idx *index.Dispatcher) *Engine {
	return &Engine{g: g, idx: idx}
}

// Resolve looks up a single node by id, for callers (retrieval fan-out)
// that only have an id from an index hit and need the full event back.
func (e *Engine) Resolve(id types.NodeID) (types.Event, error) {
	return e.g.GetNode(id)
}
