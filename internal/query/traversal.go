package query

import (
	"sort"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/types"
)

// TraversalParams bounds a BFS walk from a starting node.
type TraversalParams struct {
	StartID       types.NodeID
	EdgeTypes     []types.EdgeType // empty means every edge type
	Direction     types.Direction
	MaxDepth      int
	MaxResults    int
	MinConfidence float64
}

// TraversalResult reports what BFS from StartID visited.
type TraversalResult struct {
	Visited []types.NodeID
	Depths  map[types.NodeID]int
	// ViaEdge maps a visited (non-start) node to the edge BFS followed to
	// reach it from its predecessor.
	ViaEdge map[types.NodeID]types.Edge
}

func edgeTypeAllowed(allowed []types.EdgeType, t types.EdgeType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Traverse runs a breadth-first walk restricted to EdgeTypes and
// Direction. Expansion stops when MaxDepth is exceeded, MaxResults have
// been collected, or a candidate node's confidence is below
// MinConfidence. Within one BFS layer, ties are broken by ascending node
// id (spec.md §4.E, §8 end-to-end scenario 1).
func (e *Engine) Traverse(p TraversalParams) (TraversalResult, error) {
	if _, err := e.g.GetNode(p.StartID); err != nil {
		return TraversalResult{}, err
	}

	result := TraversalResult{
		Depths:  map[types.NodeID]int{p.StartID: 0},
		ViaEdge: map[types.NodeID]types.Edge{},
	}
	visited := map[types.NodeID]bool{p.StartID: true}
	order := []types.NodeID{p.StartID}

	if p.MaxDepth <= 0 {
		result.Visited = order
		return result, nil
	}

	frontier := []types.NodeID{p.StartID}
	depth := 0
	for len(frontier) > 0 && depth < p.MaxDepth {
		if p.MaxResults > 0 && len(order) >= p.MaxResults {
			break
		}
		depth++

		type candidate struct {
			id   types.NodeID
			edge types.Edge
		}
		var next []candidate

		for _, cur := range frontier {
			edges, err := e.g.Neighbors(cur, p.Direction)
			if err != nil {
				continue
			}
			for _, edge := range edges {
				if !edgeTypeAllowed(p.EdgeTypes, edge.Type) {
					continue
				}
				var nb types.NodeID
				if p.Direction == types.Forward {
					nb = edge.Target
				} else {
					nb = edge.Source
				}
				if visited[nb] {
					continue
				}
				next = append(next, candidate{id: nb, edge: edge})
			}
		}

		sort.Slice(next, func(i, j int) bool { return next[i].id < next[j].id })

		var newFrontier []types.NodeID
		seenThisLayer := map[types.NodeID]bool{}
		for _, c := range next {
			if visited[c.id] || seenThisLayer[c.id] {
				continue
			}
			if p.MaxResults > 0 && len(order) >= p.MaxResults {
				break
			}
			node, err := e.g.GetNode(c.id)
			if err != nil {
				continue
			}
			if node.Confidence < p.MinConfidence {
				continue
			}
			visited[c.id] = true
			seenThisLayer[c.id] = true
			order = append(order, c.id)
			result.Depths[c.id] = depth
			result.ViaEdge[c.id] = c.edge
			newFrontier = append(newFrontier, c.id)
		}
		frontier = newFrontier
	}

	result.Visited = order
	return result, nil
}

// ShortestPath finds the minimum-edge-count path between two nodes using
// the same BFS primitive, returning the edge sequence or NotFound if no
// path exists within maxDepth hops.
func (e *Engine) ShortestPath(from, to types.NodeID, edgeTypes []types.EdgeType, dir types.Direction, maxDepth int) ([]types.Edge, error) {
	res, err := e.Traverse(TraversalParams{
		StartID: from, EdgeTypes: edgeTypes, Direction: dir,
		MaxDepth: maxDepth, MaxResults: 0, MinConfidence: 0,
	})
	if err != nil {
		return nil, err
	}
	if _, ok := res.Depths[to]; !ok {
		return nil, cogerr.ErrNodeNotFound
	}

	var path []types.Edge
	cur := to
	for cur != from {
		edge, ok := res.ViaEdge[cur]
		if !ok {
			return nil, cogerr.ErrNodeNotFound
		}
		path = append([]types.Edge{edge}, path...)
		if dir == types.Forward {
			cur = edge.Source
		} else {
			cur = edge.Target
		}
	}
	return path, nil
}
