package embedding

import (
	"math"
	"sort"

	"github.com/cogmem/cogmem/internal/index"
)

// TfIdf projects content into a fixed-size vocabulary of the corpus's most
// frequent terms, weighting each slot by TF-IDF. Fit once over a reference
// corpus; Embed/EmbedBatch after that are pure functions of content and the
// fitted vocabulary, so vectors stay comparable across calls.
type TfIdf struct {
	vocab []string
	index map[string]int
	idf   []float64
	dim   int
}

// NewTfIdf fits a TfIdf provider over corpus, keeping the dim most frequent
// distinct terms as the vocabulary. If the corpus has fewer than dim
// distinct terms, the vocabulary (and hence Dimension) shrinks to fit.
func NewTfIdf(corpus []string, dim int) *TfIdf {
	docFreq := map[string]int{}
	termFreq := map[string]int{}
	n := len(corpus)

	for _, doc := range corpus {
		seen := map[string]bool{}
		for _, tok := range index.Tokenize(doc) {
			termFreq[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > dim {
		terms = terms[:dim]
	}

	idx := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idx[t] = i
		idf[i] = math.Log(1 + float64(n)/float64(1+docFreq[t]))
	}

	return &TfIdf{vocab: terms, index: idx, idf: idf, dim: len(terms)}
}

func (p *TfIdf) Embed(content string) []float32 {
	vec := make([]float32, p.dim)
	if p.dim == 0 {
		return vec
	}
	tokens := index.Tokenize(content)
	counts := make([]int, p.dim)
	for _, tok := range tokens {
		if i, ok := p.index[tok]; ok {
			counts[i]++
		}
	}
	total := len(tokens)
	if total == 0 {
		return vec
	}
	var norm float64
	for i, c := range counts {
		if c == 0 {
			continue
		}
		tf := float64(c) / float64(total)
		w := tf * p.idf[i]
		vec[i] = float32(w)
		norm += w * w
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (p *TfIdf) EmbedBatch(contents []string) [][]float32 {
	out := make([][]float32, len(contents))
	for i, c := range contents {
		out[i] = p.Embed(c)
	}
	return out
}

func (p *TfIdf) Dimension() int { return p.dim }

func (p *TfIdf) Name() string { return "tfidf" }
