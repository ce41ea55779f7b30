package index

import (
	"strings"
	"unicode"

	"github.com/cogmem/cogmem/internal/types"
)

// Tokenize lowercases content and splits on whitespace and simple
// punctuation, discarding tokens shorter than 2 characters (spec.md §4.E
// "Text/hybrid search").
func Tokenize(content string) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// Posting is one (node, term frequency) entry in a term's postings list.
type Posting struct {
	ID   types.NodeID
	Freq int
}

// TermIndex is an inverted index over tokenized content, with per-document
// lengths retained for BM25-style scoring in the query engine.
type TermIndex struct {
	postings  map[string]map[types.NodeID]int
	docLength map[types.NodeID]int
	totalLen  int64
	docCount  int
}

func NewTermIndex() *TermIndex {
	return &TermIndex{
		postings:  make(map[string]map[types.NodeID]int),
		docLength: make(map[types.NodeID]int),
	}
}

func (ix *TermIndex) IndexEvent(ev types.Event) {
	ix.Remove(ev.ID)

	tokens := Tokenize(ev.Content)
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	for term, n := range freq {
		bucket, ok := ix.postings[term]
		if !ok {
			bucket = make(map[types.NodeID]int)
			ix.postings[term] = bucket
		}
		bucket[ev.ID] = n
	}
	ix.docLength[ev.ID] = len(tokens)
	ix.totalLen += int64(len(tokens))
	ix.docCount++
}

func (ix *TermIndex) Remove(id types.NodeID) {
	if n, ok := ix.docLength[id]; ok {
		ix.totalLen -= int64(n)
		ix.docCount--
		delete(ix.docLength, id)
	}
	for term, bucket := range ix.postings {
		if _, ok := bucket[id]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(ix.postings, term)
			}
		}
	}
}

func (ix *TermIndex) Rebuild(events []types.Event) {
	ix.postings = make(map[string]map[types.NodeID]int)
	ix.docLength = make(map[types.NodeID]int)
	ix.totalLen = 0
	ix.docCount = 0
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// Postings returns the postings list for a term.
func (ix *TermIndex) Postings(term string) []Posting {
	bucket := ix.postings[strings.ToLower(term)]
	out := make([]Posting, 0, len(bucket))
	for id, freq := range bucket {
		out = append(out, Posting{ID: id, Freq: freq})
	}
	return out
}

// DocLength returns the token count recorded for id.
func (ix *TermIndex) DocLength(id types.NodeID) int {
	return ix.docLength[id]
}

// AvgDocLength returns the mean document length across the corpus, the
// normalizer BM25 needs.
func (ix *TermIndex) AvgDocLength() float64 {
	if ix.docCount == 0 {
		return 0
	}
	return float64(ix.totalLen) / float64(ix.docCount)
}

// DocCount returns the number of documents currently indexed.
func (ix *TermIndex) DocCount() int {
	return ix.docCount
}

// DocFreq returns the number of documents containing term at least once.
func (ix *TermIndex) DocFreq(term string) int {
	return len(ix.postings[strings.ToLower(term)])
}
