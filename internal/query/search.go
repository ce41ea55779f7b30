package query

import (
	"math"
	"sort"

	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/types"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// SearchParams drives a hybrid term + vector search. VectorWeight in
// [0, 1] sets how much of the fused score comes from cosine similarity
// versus BM25 text relevance; VectorWeight == 0 is text-only, == 1 is
// vector-only.
type SearchParams struct {
	QueryText    string
	QueryVector  []float32
	VectorWeight float64
	K            int
}

// SearchResult is one fused hit.
type SearchResult struct {
	ID          types.NodeID
	Score       float64
	TermScore   float64
	VectorScore float64
}

// Search fuses BM25 term relevance with cosine vector similarity
// (spec.md §4.E "hybrid search"): score = (1-w)*bm25_norm + w*cosine.
// BM25 scores are normalized against the best score in this result set so
// the two components sit on a comparable scale before fusing.
func (e *Engine) Search(p SearchParams) []SearchResult {
	w := p.VectorWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	termScores := e.bm25Scores(p.QueryText)
	var vectorMatches []index.Match
	if len(p.QueryVector) > 0 && e.idx != nil && e.idx.Vector != nil {
		vectorMatches = e.idx.Vector.TopK(p.QueryVector, -1, -1)
	}
	vectorScores := make(map[types.NodeID]float64, len(vectorMatches))
	for _, m := range vectorMatches {
		vectorScores[m.ID] = m.Score
	}

	maxTerm := 0.0
	for _, s := range termScores {
		if s > maxTerm {
			maxTerm = s
		}
	}

	seen := map[types.NodeID]bool{}
	results := make([]SearchResult, 0, len(termScores)+len(vectorScores))
	for id, ts := range termScores {
		seen[id] = true
		normTerm := 0.0
		if maxTerm > 0 {
			normTerm = ts / maxTerm
		}
		vs := vectorScores[id]
		results = append(results, SearchResult{
			ID: id, TermScore: ts, VectorScore: vs,
			Score: (1-w)*normTerm + w*vs,
		})
	}
	for id, vs := range vectorScores {
		if seen[id] {
			continue
		}
		results = append(results, SearchResult{ID: id, VectorScore: vs, Score: w * vs})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if p.K >= 0 && len(results) > p.K {
		results = results[:p.K]
	}
	return results
}

func (e *Engine) bm25Scores(query string) map[types.NodeID]float64 {
	scores := map[types.NodeID]float64{}
	if query == "" || e.idx == nil || e.idx.Term == nil {
		return scores
	}
	terms := index.Tokenize(query)
	if len(terms) == 0 {
		return scores
	}
	ti := e.idx.Term
	avgLen := ti.AvgDocLength()
	n := float64(ti.DocCount())

	seenTerm := map[string]bool{}
	for _, term := range terms {
		if seenTerm[term] {
			continue
		}
		seenTerm[term] = true
		df := float64(ti.DocFreq(term))
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range ti.Postings(term) {
			dl := float64(ti.DocLength(p.ID))
			denom := float64(p.Freq) + bm25K1*(1-bm25B+bm25B*dl/maxFloat(avgLen, 1))
			score := idf * (float64(p.Freq) * (bm25K1 + 1)) / maxFloat(denom, 1e-9)
			scores[p.ID] += score
		}
	}
	return scores
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
