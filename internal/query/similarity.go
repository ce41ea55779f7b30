package query

import (
	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/types"
)

// SimilarityParams drives a nearest-neighbor search over feature vectors.
type SimilarityParams struct {
	Query    []float32
	K        int
	MinScore float64 // 1.0 means only exact matches qualify (spec.md §8)
}

// Similarity returns the K nearest events to Query by cosine similarity on
// the vector-plane index. With MinScore == 1.0 only identical vectors (or
// none) are returned, per spec.md §8's boundary behavior.
func (e *Engine) Similarity(p SimilarityParams) []index.Match {
	if e.idx == nil || e.idx.Vector == nil {
		return nil
	}
	return e.idx.Vector.TopK(p.Query, p.K, p.MinScore)
}

// SimilarEvents resolves Similarity matches into their full events, dropping
// any id no longer present in the graph (e.g. removed since indexing).
func (e *Engine) SimilarEvents(p SimilarityParams) []types.Event {
	matches := e.Similarity(p)
	out := make([]types.Event, 0, len(matches))
	for _, m := range matches {
		ev, err := e.g.GetNode(m.ID)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}
