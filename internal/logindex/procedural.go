package logindex

import (
	"strings"

	"github.com/cogmem/cogmem/internal/block"
)

// ngramSize is the window of consecutive tool invocations the procedural
// index groups into one n-gram. Three calls is enough to distinguish most
// recorded procedures without over-fragmenting short ones.
const ngramSize = 3

// ProceduralIndex clusters tool invocations by the sequence of tool names
// that precede them, so a caller can ask "what else happened after a
// similar run of tool calls" (spec.md §4.I "procedural index").
type ProceduralIndex struct {
	ordered []toolCall
	ngrams  map[string][]uint64 // ngram key -> sequence of the ngram's last call
	ngramOf map[uint64]string
}

type toolCall struct {
	sequence uint64
	name     string
}

func NewProceduralIndex() *ProceduralIndex {
	return &ProceduralIndex{ngrams: map[string][]uint64{}, ngramOf: map[uint64]string{}}
}

func (ix *ProceduralIndex) Index(b block.Block) {
	ix.Remove(b.Sequence)
	tool, ok := b.Content.(block.Tool)
	if !ok {
		return
	}

	insertAt := len(ix.ordered)
	for i, c := range ix.ordered {
		if c.sequence > b.Sequence {
			insertAt = i
			break
		}
	}
	ix.ordered = append(ix.ordered, toolCall{})
	copy(ix.ordered[insertAt+1:], ix.ordered[insertAt:])
	ix.ordered[insertAt] = toolCall{sequence: b.Sequence, name: tool.ToolName}

	ix.reindexNgramsAround(insertAt)
}

// reindexNgramsAround rebuilds the n-grams that could include position i,
// since inserting or removing a call shifts every window touching it.
func (ix *ProceduralIndex) reindexNgramsAround(i int) {
	lo := i - ngramSize + 1
	if lo < 0 {
		lo = 0
	}
	hi := i + ngramSize
	if hi > len(ix.ordered) {
		hi = len(ix.ordered)
	}
	for end := lo + ngramSize - 1; end < hi; end++ {
		if end < ngramSize-1 {
			continue
		}
		start := end - ngramSize + 1
		window := ix.ordered[start : end+1]
		key := ngramKey(window)
		seq := window[len(window)-1].sequence
		if old, ok := ix.ngramOf[seq]; ok && old != key {
			ix.ngrams[old] = removeSeq(ix.ngrams[old], seq)
		}
		ix.ngramOf[seq] = key
		bucket := ix.ngrams[key]
		found := false
		for _, s := range bucket {
			if s == seq {
				found = true
				break
			}
		}
		if !found {
			ix.ngrams[key] = append(bucket, seq)
		}
	}
}

func ngramKey(window []toolCall) string {
	names := make([]string, len(window))
	for i, c := range window {
		names[i] = c.name
	}
	return strings.Join(names, ">")
}

func (ix *ProceduralIndex) Remove(sequence uint64) {
	idx := -1
	for i, c := range ix.ordered {
		if c.sequence == sequence {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if key, ok := ix.ngramOf[sequence]; ok {
		ix.ngrams[key] = removeSeq(ix.ngrams[key], sequence)
		delete(ix.ngramOf, sequence)
	}
	ix.ordered = append(ix.ordered[:idx], ix.ordered[idx+1:]...)
	ix.reindexNgramsAround(idx)
}

func (ix *ProceduralIndex) Rebuild(blocks []block.Block) {
	ix.ordered = nil
	ix.ngrams = map[string][]uint64{}
	ix.ngramOf = map[uint64]string{}
	for _, b := range blocks {
		ix.Index(b)
	}
}

// SimilarProcedures returns every sequence whose preceding ngramSize tool
// calls (inclusive) match the ngram ending at sequence, excluding
// sequence itself.
func (ix *ProceduralIndex) SimilarProcedures(sequence uint64) []uint64 {
	key, ok := ix.ngramOf[sequence]
	if !ok {
		return nil
	}
	var out []uint64
	for _, seq := range ix.ngrams[key] {
		if seq != sequence {
			out = append(out, seq)
		}
	}
	return out
}
