// Package retrieval implements smart retrieval (spec.md §4.K): fanning a
// request out across a strategy-specific subset of the five log-plane
// indexes (internal/logindex) concurrently, fusing their scores into one
// ranking, de-duplicating by block hash, and packing the result into a
// caller-supplied token budget.
package retrieval

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/logindex"
	"github.com/cogmem/cogmem/internal/logstore"
)

// Strategy names which log-plane indexes a request dispatches to
// (spec.md §4.K "strategy ∈ {Broad, Narrow, Temporal, Causal, Semantic}").
type Strategy string

const (
	// StrategyBroad dispatches to every index applicable to the request's
	// populated fields, including the causal/procedural indexes derived
	// from whatever entity and semantic hits the primary lanes turn up.
	StrategyBroad Strategy = "broad"
	// StrategyNarrow dispatches only to the two indexes keyed directly by
	// request content: Entity and Semantic.
	StrategyNarrow Strategy = "narrow"
	// StrategyTemporal dispatches only to the Temporal index.
	StrategyTemporal Strategy = "temporal"
	// StrategyCausal dispatches only to the Causal index, seeded from
	// whatever entities/query text the request supplies.
	StrategyCausal Strategy = "causal"
	// StrategySemantic dispatches only to the Semantic index.
	StrategySemantic Strategy = "semantic"
)

// IndexName identifies one of the five log-plane indexes a lane ran
// against, reported back in Coverage.IndexesUsed (spec.md §4.K
// "coverage.indexes_used").
type IndexName string

const (
	IndexTemporal   IndexName = "temporal"
	IndexSemantic   IndexName = "semantic"
	IndexCausal     IndexName = "causal"
	IndexEntity     IndexName = "entity"
	IndexProcedural IndexName = "procedural"
)

// strategySubsets names which indexes each strategy dispatches to. Causal
// and Procedural never appear as primary lanes on their own subset entry
// (Temporal/Semantic/Entity are the only indexes a request field maps to
// directly); they run as derived lanes, seeded from whichever primary
// lanes are also in the subset, whenever the strategy includes them.
var strategySubsets = map[Strategy][]IndexName{
	StrategyBroad:    {IndexEntity, IndexSemantic, IndexTemporal, IndexCausal, IndexProcedural},
	StrategyNarrow:   {IndexEntity, IndexSemantic},
	StrategyTemporal: {IndexTemporal},
	StrategyCausal:   {IndexCausal},
	StrategySemantic: {IndexSemantic},
}

// Weights assigns how much each index's normalized score contributes to
// the fused ranking; spec.md §4.K "score = Σ wᵢ·normalize(score_index_i)".
type Weights map[IndexName]float64

// DefaultWeights favors the two indexes keyed directly by request content,
// with the time-ordered and derived (causal/procedural) lanes contributing
// a smaller nudge when a strategy includes them.
var DefaultWeights = Weights{
	IndexEntity:     0.3,
	IndexSemantic:   0.35,
	IndexTemporal:   0.15,
	IndexCausal:     0.12,
	IndexProcedural: 0.08,
}

// TimeRange bounds a Temporal-index scan to blocks timestamped in
// [Lo, Hi] milliseconds since epoch.
type TimeRange struct {
	Lo, Hi int64
}

// Request bounds a smart-retrieval call (spec.md §4.K "RetrievalRequest").
type Request struct {
	QueryText      string
	QueryEmbedding []float32
	TimeRange      *TimeRange
	Entities       []string
	Strategy       Strategy
	Weights        Weights
	MaxConcurrency int
	TokenBudget    float64
	TokensPerChar  float64
}

// Hit is one fused, budget-checked result.
type Hit struct {
	Block   block.Block
	Score   float64
	Indexes []IndexName
}

// Coverage reports what a retrieval request actually managed to draw on,
// so a caller can tell a thin result (few indexes ran, budget cut it
// short) from a genuinely sparse log (spec.md §4.K "coverage").
type Coverage struct {
	IndexesUsed          []IndexName
	CandidatesConsidered int
	CandidatesReturned   int
	BudgetExhausted      bool
}

// Result is a retrieval response: the packed hits plus a coverage report.
type Result struct {
	Hits     []Hit
	Coverage Coverage
}

// Engine runs smart retrieval over the log-plane indexes and the immortal
// log that backs them (spec.md §4.I, §4.K).
type Engine struct {
	logIdx *logindex.Set
	log    *logstore.Log
}

// New creates a retrieval engine fanning out over logIdx, resolving hits
// back to their blocks via log.
func New(logIdx *logindex.Set, log *logstore.Log) *Engine {
	return &Engine{logIdx: logIdx, log: log}
}

// laneResult is one index's contribution to the fused ranking, keyed by
// block sequence (sequences are assigned densely and monotonically, so a
// map keyed by sequence is equivalent to one keyed by block hash, but
// avoids an extra log.Get round trip per candidate before scores are
// fused).
type laneResult struct {
	index  IndexName
	scores map[uint64]float64
}

// Retrieve dispatches req to the index subset its Strategy names
// (concurrently, bounded by MaxConcurrency), fuses their per-index scores
// into one ranking, de-dupes by block hash, and packs results greedily in
// score order into TokenBudget, skipping any hit whose cost exceeds what
// remains of the budget.
func (e *Engine) Retrieve(ctx context.Context, req Request) (Result, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyBroad
	}
	subset := strategySubsets[strategy]

	weights := req.Weights
	if weights == nil {
		weights = DefaultWeights
	}
	concurrency := req.MaxConcurrency
	if concurrency <= 0 {
		concurrency = len(subset)
		if concurrency == 0 {
			concurrency = 1
		}
	}

	// The three request-keyed indexes always run, whether or not they're in
	// the strategy's own subset: a Causal- or Procedural-only strategy has
	// no anchor of its own to start from, so it seeds its traversal from
	// whatever Entity/Semantic/Temporal turn up, without counting those as
	// indexes the strategy itself reports using.
	allPrimary := []IndexName{IndexEntity, IndexSemantic, IndexTemporal}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	primaryResults := make([]laneResult, len(allPrimary))
	for i, name := range allPrimary {
		i, name := i, name
		g.Go(func() error {
			primaryResults[i] = e.runPrimaryLane(name, req)
			return nil
		})
	}
	_ = g.Wait()

	inSubset := make(map[IndexName]bool, len(subset))
	for _, name := range subset {
		inSubset[name] = true
	}

	lanes := make([]laneResult, 0, len(subset))
	seeds := map[uint64]bool{}
	for _, r := range primaryResults {
		if r.index == "" {
			continue
		}
		for seq := range r.scores {
			seeds[seq] = true
		}
		if inSubset[r.index] {
			lanes = append(lanes, r)
		}
	}

	derived := derivedIndexes(subset)
	if len(derived) > 0 && len(seeds) > 0 {
		seedSeqs := make([]uint64, 0, len(seeds))
		for seq := range seeds {
			seedSeqs = append(seedSeqs, seq)
		}
		dg, _ := errgroup.WithContext(ctx)
		dg.SetLimit(concurrency)
		derivedResults := make([]laneResult, len(derived))
		for i, name := range derived {
			i, name := i, name
			dg.Go(func() error {
				derivedResults[i] = e.runDerivedLane(name, seedSeqs)
				return nil
			})
		}
		_ = dg.Wait()
		for _, r := range derivedResults {
			if r.index != "" && len(r.scores) > 0 {
				lanes = append(lanes, r)
			}
		}
	}

	fused := map[uint64]*Hit{}
	var indexesUsed []IndexName
	for _, r := range lanes {
		indexesUsed = append(indexesUsed, r.index)
		w := weights[r.index]
		normScore := normalize(r.scores)
		for seq, s := range normScore {
			hit, ok := fused[seq]
			if !ok {
				b, err := e.log.Get(seq)
				if err != nil {
					continue
				}
				hit = &Hit{Block: b}
				fused[seq] = hit
			}
			hit.Score += w * s
			hit.Indexes = append(hit.Indexes, r.index)
		}
	}

	hits := dedupByHash(fused)
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Block.Sequence < hits[j].Block.Sequence
	})

	packed, exhausted := pack(hits, req.TokenBudget, req.TokensPerChar)

	return Result{
		Hits: packed,
		Coverage: Coverage{
			IndexesUsed:          indexesUsed,
			CandidatesConsidered: len(fused),
			CandidatesReturned:   len(packed),
			BudgetExhausted:      exhausted,
		},
	}, nil
}

// derivedIndexes returns the indexes in subset that only run seeded from
// primary-lane candidates (Causal, Procedural).
func derivedIndexes(subset []IndexName) []IndexName {
	var out []IndexName
	for _, name := range subset {
		if name == IndexCausal || name == IndexProcedural {
			out = append(out, name)
		}
	}
	return out
}

// runPrimaryLane queries one request-keyed index, skipping it (returning a
// zero-value laneResult) when the request supplies none of the input it
// needs.
func (e *Engine) runPrimaryLane(name IndexName, req Request) laneResult {
	switch name {
	case IndexEntity:
		if len(req.Entities) == 0 {
			return laneResult{}
		}
		return laneResult{index: IndexEntity, scores: e.entityScores(req.Entities)}
	case IndexSemantic:
		if req.QueryText == "" && len(req.QueryEmbedding) == 0 {
			return laneResult{}
		}
		results := e.logIdx.Semantic.Query(req.QueryEmbedding, req.QueryText, -1)
		return laneResult{index: IndexSemantic, scores: scoresFromResults(results)}
	case IndexTemporal:
		if req.TimeRange == nil {
			return laneResult{}
		}
		results := e.logIdx.Temporal.Range(req.TimeRange.Lo, req.TimeRange.Hi)
		return laneResult{index: IndexTemporal, scores: uniformScores(results)}
	default:
		return laneResult{}
	}
}

// entityScores looks up every requested entity and scores each matching
// sequence by the fraction of requested entities it matched, so a block
// hit by two of three requested entities outranks one hit by a single
// entity.
func (e *Engine) entityScores(entities []string) map[uint64]float64 {
	counts := map[uint64]int{}
	for _, entity := range entities {
		for _, seq := range e.logIdx.Entity.Lookup(entity) {
			counts[seq]++
		}
	}
	scores := make(map[uint64]float64, len(counts))
	for seq, n := range counts {
		scores[seq] = float64(n) / float64(len(entities))
	}
	return scores
}

// runDerivedLane expands a set of seed sequences through an index that has
// no request-keyed query of its own, scoring each resulting sequence by how
// many seeds led to it.
func (e *Engine) runDerivedLane(name IndexName, seeds []uint64) laneResult {
	counts := map[uint64]int{}
	switch name {
	case IndexCausal:
		for _, seed := range seeds {
			for _, seq := range e.logIdx.Causal.RootCauses(seed) {
				counts[seq]++
			}
			for _, seq := range e.logIdx.Causal.Effects(seed) {
				counts[seq]++
			}
		}
	case IndexProcedural:
		for _, seed := range seeds {
			for _, seq := range e.logIdx.Procedural.SimilarProcedures(seed) {
				counts[seq]++
			}
		}
	default:
		return laneResult{}
	}
	if len(counts) == 0 {
		return laneResult{}
	}
	scores := make(map[uint64]float64, len(counts))
	for seq, n := range counts {
		scores[seq] = float64(n)
	}
	return laneResult{index: name, scores: scores}
}

// dedupByHash flattens the fused map into a slice, collapsing any two
// sequences that happen to carry the same block hash (spec.md §4.K
// "de-duplicates by block hash") onto whichever carries the higher score.
func dedupByHash(fused map[uint64]*Hit) []Hit {
	best := map[block.Hash]*Hit{}
	for _, hit := range fused {
		key := BlockDedupKey(hit.Block)
		if existing, ok := best[key]; !ok || hit.Score > existing.Score {
			best[key] = hit
		}
	}
	out := make([]Hit, 0, len(best))
	for _, hit := range best {
		out = append(out, *hit)
	}
	return out
}

// BlockDedupKey computes the de-dup key for a raw log block, for callers
// fusing log-plane results under the same hash-based de-dup rule Retrieve
// uses (spec.md §4.K).
func BlockDedupKey(b block.Block) block.Hash {
	return b.Hash
}
