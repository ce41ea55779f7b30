package logindex

import (
	"sort"
	"strings"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/index"
)

// SemanticIndex answers nearest-neighbor queries over log blocks. When a
// caller supplies a feature vector it ranks by cosine similarity (the same
// metric internal/index.Cosine uses for the graph plane); with no vector,
// or when dim is 0, it falls back to a containment-ratio text score so the
// log plane stays queryable even with embeddings disabled (spec.md §4.I
// "semantic index").
type SemanticIndex struct {
	dim     int
	vectors map[uint64][]float32
	text    map[uint64]string
	hash    map[uint64]block.Hash
}

func NewSemanticIndex(dim int) *SemanticIndex {
	return &SemanticIndex{
		dim:     dim,
		vectors: map[uint64][]float32{},
		text:    map[uint64]string{},
		hash:    map[uint64]block.Hash{},
	}
}

func (ix *SemanticIndex) Index(b block.Block) {
	ix.text[b.Sequence] = strings.ToLower(contentText(b.Content))
	ix.hash[b.Sequence] = b.Hash
}

// IndexVector attaches a precomputed feature vector to a sequence already
// indexed by Index, letting the write path embed lazily.
func (ix *SemanticIndex) IndexVector(sequence uint64, vec []float32) {
	ix.vectors[sequence] = vec
}

func (ix *SemanticIndex) Remove(sequence uint64) {
	delete(ix.vectors, sequence)
	delete(ix.text, sequence)
	delete(ix.hash, sequence)
}

func (ix *SemanticIndex) Rebuild(blocks []block.Block) {
	ix.vectors = map[uint64][]float32{}
	ix.text = map[uint64]string{}
	ix.hash = map[uint64]block.Hash{}
	for _, b := range blocks {
		ix.Index(b)
	}
}

// Query ranks blocks by cosine similarity to queryVec when it is non-empty
// and the index dimension is non-zero; otherwise it scores by the fraction of queryText's tokens that appear in
// the block's text (a containment ratio, not full BM25 — the log plane
// keeps its own lightweight ranking rather than depending on the graph
// plane's TermIndex).
func (ix *SemanticIndex) Query(queryVec []float32, queryText string, k int) []IndexResult {
	if len(queryVec) > 0 && ix.dim > 0 {
		return ix.queryVector(queryVec, k)
	}
	return ix.queryText(queryText, k)
}

func (ix *SemanticIndex) queryVector(query []float32, k int) []IndexResult {
	var out []IndexResult
	for seq, vec := range ix.vectors {
		score := index.Cosine(query, vec)
		if score <= 0 {
			continue
		}
		out = append(out, IndexResult{Sequence: seq, Hash: ix.hash[seq], Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Sequence < out[j].Sequence
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func (ix *SemanticIndex) queryText(queryText string, k int) []IndexResult {
	terms := strings.Fields(strings.ToLower(queryText))
	if len(terms) == 0 {
		return nil
	}
	var out []IndexResult
	for seq, text := range ix.text {
		hits := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(terms))
		out = append(out, IndexResult{Sequence: seq, Hash: ix.hash[seq], Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Sequence < out[j].Sequence
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
