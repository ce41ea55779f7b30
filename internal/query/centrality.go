package query

import (
	"sort"

	"github.com/cogmem/cogmem/internal/types"
)

// CentralityScore is one node's degree centrality within the graph.
type CentralityScore struct {
	ID        types.NodeID
	InDegree  int
	OutDegree int
	Degree    int
}

// CentralityParams bounds a degree-centrality scan.
type CentralityParams struct {
	EdgeTypes []types.EdgeType // empty means every edge type
	K         int              // top K by total degree, 0 means unbounded
}

// Centrality ranks nodes by degree within the requested edge types — a
// cheap proxy for "how load-bearing is this memory" ahead of a full
// eigenvector-style measure the store's scale doesn't need (spec.md §4.E
// "centrality query").
func (e *Engine) Centrality(p CentralityParams) []CentralityScore {
	var scores []CentralityScore
	for _, id := range e.g.AllNodeIDs() {
		out, err := e.g.Neighbors(id, types.Forward)
		if err != nil {
			continue
		}
		in, err := e.g.Neighbors(id, types.Backward)
		if err != nil {
			continue
		}
		outN := countAllowed(out, p.EdgeTypes)
		inN := countAllowed(in, p.EdgeTypes)
		if outN == 0 && inN == 0 {
			continue
		}
		scores = append(scores, CentralityScore{
			ID: id, InDegree: inN, OutDegree: outN, Degree: inN + outN,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Degree != scores[j].Degree {
			return scores[i].Degree > scores[j].Degree
		}
		return scores[i].ID < scores[j].ID
	})

	if p.K > 0 && len(scores) > p.K {
		scores = scores[:p.K]
	}
	return scores
}

func countAllowed(edges []types.Edge, allowed []types.EdgeType) int {
	if len(allowed) == 0 {
		return len(edges)
	}
	n := 0
	for _, e := range edges {
		if edgeTypeAllowed(allowed, e.Type) {
			n++
		}
	}
	return n
}
