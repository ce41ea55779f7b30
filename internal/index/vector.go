package index

import (
	"math"
	"sort"

	"github.com/cogmem/cogmem/internal/types"
)

// VectorIndex holds every node's feature vector for brute-force cosine
// similarity search. The store's event count is expected to stay small
// enough (bounded by MAX_CONTENT_SIZE-era working sets, not web-scale
// corpora) that a flat scan beats the complexity of an ANN structure the
// teacher's stack has no grounding for.
type VectorIndex struct {
	vectors map[types.NodeID][]float32
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{vectors: make(map[types.NodeID][]float32)}
}

func (ix *VectorIndex) IndexEvent(ev types.Event) {
	if ev.FeatureVec == nil {
		delete(ix.vectors, ev.ID)
		return
	}
	cp := make([]float32, len(ev.FeatureVec))
	copy(cp, ev.FeatureVec)
	ix.vectors[ev.ID] = cp
}

func (ix *VectorIndex) Remove(id types.NodeID) {
	delete(ix.vectors, id)
}

func (ix *VectorIndex) Rebuild(events []types.Event) {
	ix.vectors = make(map[types.NodeID][]float32)
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// Cosine computes cosine similarity between a and b. Per spec.md §8, it is
// symmetric, lies in [-1, 1], and returns 0 for zero-norm input.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Match is one similarity search result.
type Match struct {
	ID    types.NodeID
	Score float64
}

// TopK returns up to k nearest neighbors of query by cosine similarity,
// filtering out scores below minScore and zero-norm vectors, with ties
// broken by ascending node id (spec.md §4.E, §8).
func (ix *VectorIndex) TopK(query []float32, k int, minScore float64) []Match {
	if len(query) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(ix.vectors))
	for id, vec := range ix.vectors {
		score := Cosine(query, vec)
		if score == 0 {
			continue
		}
		if score < minScore {
			continue
		}
		matches = append(matches, Match{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Get returns the stored vector for id, if any.
func (ix *VectorIndex) Get(id types.NodeID) ([]float32, bool) {
	v, ok := ix.vectors[id]
	return v, ok
}
