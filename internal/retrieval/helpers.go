package retrieval

import "github.com/cogmem/cogmem/internal/logindex"

// normalize min-max scales a score map into [0, 1] so indexes whose raw
// scores live on different ranges (cosine similarity in [-1,1], an entity
// match fraction, a causal fan-in count) can be fused by a simple weighted
// sum.
func normalize(scores map[uint64]float64) map[uint64]float64 {
	out := make(map[uint64]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	min, max := scoreRange(scores)
	span := max - min
	for seq, s := range scores {
		if span == 0 {
			out[seq] = 1
			continue
		}
		out[seq] = (s - min) / span
	}
	return out
}

func scoreRange(scores map[uint64]float64) (float64, float64) {
	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}

// scoresFromResults carries an index's own ranking score (Semantic's
// cosine similarity or containment ratio) straight through to fusion.
func scoresFromResults(results []logindex.IndexResult) map[uint64]float64 {
	scores := make(map[uint64]float64, len(results))
	for _, r := range results {
		scores[r.Sequence] = r.Score
	}
	return scores
}

// uniformScores scores every result equally, for indexes (Temporal) whose
// ordering carries the signal rather than a per-result score.
func uniformScores(results []logindex.IndexResult) map[uint64]float64 {
	scores := make(map[uint64]float64, len(results))
	for _, r := range results {
		scores[r.Sequence] = 1
	}
	return scores
}

// pack greedily adds hits, highest score first, skipping any hit whose
// cost (in tokens, at tokensPerChar tokens per character of content)
// exceeds what remains of budget. It reports whether the budget left out
// at least one hit.
func pack(hits []Hit, budget, tokensPerChar float64) ([]Hit, bool) {
	if budget <= 0 {
		return hits, false
	}
	tb := NewTokenBudget(budget)
	var packed []Hit
	exhausted := false
	for _, h := range hits {
		cost := EstimateTokens(logindex.ContentText(h.Block.Content), tokensPerChar)
		if !tb.TryConsume(cost) {
			exhausted = true
			continue
		}
		packed = append(packed, h)
	}
	return packed, exhausted
}
