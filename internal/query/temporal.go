package query

import "github.com/cogmem/cogmem/internal/types"

// TemporalParams requests a bucketed histogram plus a bounded sample of
// events within a time window.
type TemporalParams struct {
	From       int64
	To         int64
	BucketSize int64 // duration of each bucket, in the same unit as CreatedAt (µs)
	MaxSamples int
}

// TemporalBucket summarizes one time bucket.
type TemporalBucket struct {
	Start int64
	End   int64
	Count int
}

// TemporalResult is the bucketed view plus a small deterministic sample of
// the matching events (oldest-first), capped at MaxSamples.
type TemporalResult struct {
	Buckets []TemporalBucket
	Samples []types.Event
	Total   int
}

// Temporal buckets events created within [From, To] into fixed-width
// windows and returns bucket counts alongside a bounded, deterministic
// sample (spec.md §4.E). The graph-plane TemporalIndex backs the range
// scan; this query layers bucketing and sampling on top of it.
func (e *Engine) Temporal(p TemporalParams) TemporalResult {
	var ids []types.NodeID
	if e.idx != nil && e.idx.Temporal != nil {
		ids = e.idx.Temporal.Range(p.From, p.To)
	} else {
		ids = e.linearScanByTime(p.From, p.To)
	}

	bucketSize := p.BucketSize
	if bucketSize <= 0 {
		bucketSize = p.To - p.From + 1
		if bucketSize <= 0 {
			bucketSize = 1
		}
	}

	var buckets []TemporalBucket
	bucketOf := func(ts int64) int {
		return int((ts - p.From) / bucketSize)
	}
	counts := map[int]int{}
	var samples []types.Event

	for _, id := range ids {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		counts[bucketOf(ev.CreatedAt)]++
		if p.MaxSamples <= 0 || len(samples) < p.MaxSamples {
			samples = append(samples, ev)
		}
	}

	maxBucket := -1
	for b := range counts {
		if b > maxBucket {
			maxBucket = b
		}
	}
	for b := 0; b <= maxBucket; b++ {
		if counts[b] == 0 {
			continue
		}
		start := p.From + int64(b)*bucketSize
		buckets = append(buckets, TemporalBucket{
			Start: start,
			End:   start + bucketSize - 1,
			Count: counts[b],
		})
	}

	return TemporalResult{Buckets: buckets, Samples: samples, Total: len(ids)}
}

func (e *Engine) linearScanByTime(from, to int64) []types.NodeID {
	var out []types.NodeID
	for _, id := range e.g.AllNodeIDs() {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		if ev.CreatedAt >= from && ev.CreatedAt <= to {
			out = append(out, id)
		}
	}
	return out
}
