package logindex

import (
	"strconv"
	"strings"

	"github.com/cogmem/cogmem/internal/block"
)

// causalTagPrefix marks a Text block's Tags entry as a declared causal
// reference to an earlier sequence number, e.g. "causes:42" records that
// this block was caused by (or follows from) block 42.
const causalTagPrefix = "causes:"

// CausalIndex builds a directed graph over declared causal references
// between log blocks, letting a caller walk from an effect back to its
// declared causes (spec.md §4.I "causal index").
type CausalIndex struct {
	causedBy map[uint64][]uint64 // sequence -> sequences it declares as its causes
	causes   map[uint64][]uint64 // sequence -> sequences that declare it as a cause
}

func NewCausalIndex() *CausalIndex {
	return &CausalIndex{causedBy: map[uint64][]uint64{}, causes: map[uint64][]uint64{}}
}

func (ix *CausalIndex) Index(b block.Block) {
	ix.Remove(b.Sequence)
	text, ok := b.Content.(block.Text)
	if !ok {
		return
	}
	for _, tag := range text.Tags {
		if !strings.HasPrefix(tag, causalTagPrefix) {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimPrefix(tag, causalTagPrefix), 10, 64)
		if err != nil || seq == b.Sequence {
			continue
		}
		ix.causedBy[b.Sequence] = append(ix.causedBy[b.Sequence], seq)
		ix.causes[seq] = append(ix.causes[seq], b.Sequence)
	}
}

func (ix *CausalIndex) Remove(sequence uint64) {
	for _, cause := range ix.causedBy[sequence] {
		ix.causes[cause] = removeSeq(ix.causes[cause], sequence)
	}
	delete(ix.causedBy, sequence)
	for _, effect := range ix.causes[sequence] {
		ix.causedBy[effect] = removeSeq(ix.causedBy[effect], sequence)
	}
	delete(ix.causes, sequence)
}

func removeSeq(xs []uint64, target uint64) []uint64 {
	out := xs[:0]
	for _, x := range xs {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}

func (ix *CausalIndex) Rebuild(blocks []block.Block) {
	ix.causedBy = map[uint64][]uint64{}
	ix.causes = map[uint64][]uint64{}
	for _, b := range blocks {
		ix.Index(b)
	}
}

// RootCauses walks the causedBy chain backward from sequence to its root
// causes, guarding against cycles by never revisiting a sequence.
func (ix *CausalIndex) RootCauses(sequence uint64) []uint64 {
	visited := map[uint64]bool{sequence: true}
	var roots []uint64
	frontier := []uint64{sequence}
	for len(frontier) > 0 {
		var next []uint64
		for _, seq := range frontier {
			causes := ix.causedBy[seq]
			if len(causes) == 0 {
				roots = append(roots, seq)
				continue
			}
			for _, cause := range causes {
				if visited[cause] {
					continue
				}
				visited[cause] = true
				next = append(next, cause)
			}
		}
		frontier = next
	}
	return roots
}

// Effects returns the sequences that declare sequence as one of their
// causes.
func (ix *CausalIndex) Effects(sequence uint64) []uint64 {
	return append([]uint64(nil), ix.causes[sequence]...)
}
