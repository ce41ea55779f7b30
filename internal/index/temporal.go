package index

import (
	"sort"

	"github.com/cogmem/cogmem/internal/types"
)

type temporalEntry struct {
	createdAt int64
	id        types.NodeID
}

// TemporalIndex keeps node ids ordered by created_at, supporting range
// scans in O(log n + k).
type TemporalIndex struct {
	entries []temporalEntry
	at      map[types.NodeID]int64
}

func NewTemporalIndex() *TemporalIndex {
	return &TemporalIndex{at: make(map[types.NodeID]int64)}
}

func (ix *TemporalIndex) IndexEvent(ev types.Event) {
	ix.Remove(ev.ID)
	idx := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].createdAt >= ev.CreatedAt })
	ix.entries = append(ix.entries, temporalEntry{})
	copy(ix.entries[idx+1:], ix.entries[idx:])
	ix.entries[idx] = temporalEntry{createdAt: ev.CreatedAt, id: ev.ID}
	ix.at[ev.ID] = ev.CreatedAt
}

func (ix *TemporalIndex) Remove(id types.NodeID) {
	ts, ok := ix.at[id]
	if !ok {
		return
	}
	delete(ix.at, id)
	lo := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].createdAt >= ts })
	for i := lo; i < len(ix.entries); i++ {
		if ix.entries[i].id == id {
			ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
			return
		}
		if ix.entries[i].createdAt != ts {
			break
		}
	}
}

func (ix *TemporalIndex) Rebuild(events []types.Event) {
	ix.entries = nil
	ix.at = make(map[types.NodeID]int64)
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// Range returns node ids with created_at in [lo, hi], ascending by time.
func (ix *TemporalIndex) Range(lo, hi int64) []types.NodeID {
	start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].createdAt >= lo })
	out := make([]types.NodeID, 0)
	for i := start; i < len(ix.entries) && ix.entries[i].createdAt <= hi; i++ {
		out = append(out, ix.entries[i].id)
	}
	return out
}
