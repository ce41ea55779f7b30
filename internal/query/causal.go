package query

import "github.com/cogmem/cogmem/internal/types"

// CausalParams bounds a search for the root causes behind an event and any
// conflicts recorded against it.
type CausalParams struct {
	StartID  types.NodeID
	MaxDepth int
}

// CausalResult reports the causal chain rooted at StartID. Roots are nodes
// reached by following CausedBy/Supports edges backward that themselves
// have no further CausedBy/Supports edges to follow — the chain's origin
// points. Conflicts are nodes connected to anything in the chain by a
// Contradicts edge.
type CausalResult struct {
	Chain     []types.NodeID
	Roots     []types.NodeID
	Conflicts []types.Edge
}

var causalEdgeTypes = []types.EdgeType{types.EdgeCausedBy, types.EdgeSupports}

// Causal walks CausedBy/Supports edges backward from StartID to find root
// causes (an edge X→Y of either type names Y as X's cause, so each step
// follows the node's outgoing edges to their targets), guarding against cycles by never revisiting a node, and
// separately collects Contradicts edges touching any node in the chain
// (spec.md §4.E).
func (e *Engine) Causal(p CausalParams) (CausalResult, error) {
	if _, err := e.g.GetNode(p.StartID); err != nil {
		return CausalResult{}, err
	}

	visited := map[types.NodeID]bool{p.StartID: true}
	chain := []types.NodeID{p.StartID}
	var roots []types.NodeID

	frontier := []types.NodeID{p.StartID}
	depth := 0
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1 << 30
	}

	for len(frontier) > 0 && depth < maxDepth {
		depth++
		var next []types.NodeID
		for _, cur := range frontier {
			edges, err := e.g.Neighbors(cur, types.Forward)
			if err != nil {
				continue
			}
			hasCausalParent := false
			for _, edge := range edges {
				if !edgeTypeAllowed(causalEdgeTypes, edge.Type) {
					continue
				}
				hasCausalParent = true
				if visited[edge.Target] {
					continue
				}
				visited[edge.Target] = true
				chain = append(chain, edge.Target)
				next = append(next, edge.Target)
			}
			if !hasCausalParent {
				roots = append(roots, cur)
			}
		}
		frontier = next
	}
	if len(frontier) > 0 {
		roots = append(roots, frontier...)
	}

	var conflicts []types.Edge
	seenConflict := map[[2]types.NodeID]bool{}
	for _, id := range chain {
		fwd, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeContradicts)
		bwd, _ := e.g.EdgesOfType(id, types.Backward, types.EdgeContradicts)
		for _, edge := range append(fwd, bwd...) {
			key := [2]types.NodeID{edge.Source, edge.Target}
			if seenConflict[key] {
				continue
			}
			seenConflict[key] = true
			conflicts = append(conflicts, edge)
		}
	}

	return CausalResult{Chain: chain, Roots: dedupeIDs(roots), Conflicts: conflicts}, nil
}

func dedupeIDs(ids []types.NodeID) []types.NodeID {
	seen := map[types.NodeID]bool{}
	out := make([]types.NodeID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
