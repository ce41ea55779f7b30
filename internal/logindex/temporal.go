package logindex

import (
	"sort"

	"github.com/cogmem/cogmem/internal/block"
)

type temporalEntry struct {
	ts  int64
	seq uint64
}

// TemporalIndex keeps log blocks ordered by timestamp, supporting
// time-range scans over the log plane the same way internal/index's
// TemporalIndex does for the graph plane.
type TemporalIndex struct {
	entries []temporalEntry
	at      map[uint64]int64
	hash    map[uint64]block.Hash
}

func NewTemporalIndex() *TemporalIndex {
	return &TemporalIndex{at: map[uint64]int64{}, hash: map[uint64]block.Hash{}}
}

func (ix *TemporalIndex) Index(b block.Block) {
	ix.Remove(b.Sequence)
	idx := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].ts >= b.TimestampMS })
	ix.entries = append(ix.entries, temporalEntry{})
	copy(ix.entries[idx+1:], ix.entries[idx:])
	ix.entries[idx] = temporalEntry{ts: b.TimestampMS, seq: b.Sequence}
	ix.at[b.Sequence] = b.TimestampMS
	ix.hash[b.Sequence] = b.Hash
}

func (ix *TemporalIndex) Remove(seq uint64) {
	ts, ok := ix.at[seq]
	if !ok {
		return
	}
	delete(ix.at, seq)
	delete(ix.hash, seq)
	lo := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].ts >= ts })
	for i := lo; i < len(ix.entries); i++ {
		if ix.entries[i].seq == seq {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			return
		}
		if ix.entries[i].ts != ts {
			break
		}
	}
}

func (ix *TemporalIndex) Rebuild(blocks []block.Block) {
	ix.entries = nil
	ix.at = map[uint64]int64{}
	ix.hash = map[uint64]block.Hash{}
	for _, b := range blocks {
		ix.Index(b)
	}
}

// Range returns IndexResults for blocks with timestamp in [lo, hi],
// ascending by time.
func (ix *TemporalIndex) Range(lo, hi int64) []IndexResult {
	start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].ts >= lo })
	var out []IndexResult
	for i := start; i < len(ix.entries) && ix.entries[i].ts <= hi; i++ {
		seq := ix.entries[i].seq
		out = append(out, IndexResult{Sequence: seq, Hash: ix.hash[seq]})
	}
	return out
}
