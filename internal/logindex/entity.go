package logindex

import (
	"path/filepath"
	"strings"

	"github.com/cogmem/cogmem/internal/block"
)

// EntityIndex is an inverted index from "entity" strings (file paths and
// their ancestor directories, tool names, and path-like tokens found in
// free text) to the log sequences that touched them (spec.md §4.I "entity
// index").
type EntityIndex struct {
	postings map[string]map[uint64]bool
	entities map[uint64][]string
}

func NewEntityIndex() *EntityIndex {
	return &EntityIndex{postings: map[string]map[uint64]bool{}, entities: map[uint64][]string{}}
}

func (ix *EntityIndex) Index(b block.Block) {
	ix.Remove(b.Sequence)
	entities := extractEntities(b.Content)
	if len(entities) == 0 {
		return
	}
	ix.entities[b.Sequence] = entities
	for _, e := range entities {
		bucket, ok := ix.postings[e]
		if !ok {
			bucket = map[uint64]bool{}
			ix.postings[e] = bucket
		}
		bucket[b.Sequence] = true
	}
}

func (ix *EntityIndex) Remove(sequence uint64) {
	for _, e := range ix.entities[sequence] {
		if bucket, ok := ix.postings[e]; ok {
			delete(bucket, sequence)
			if len(bucket) == 0 {
				delete(ix.postings, e)
			}
		}
	}
	delete(ix.entities, sequence)
}

func (ix *EntityIndex) Rebuild(blocks []block.Block) {
	ix.postings = map[string]map[uint64]bool{}
	ix.entities = map[uint64][]string{}
	for _, b := range blocks {
		ix.Index(b)
	}
}

// Lookup returns every sequence that touched entity.
func (ix *EntityIndex) Lookup(entity string) []uint64 {
	bucket := ix.postings[entity]
	out := make([]uint64, 0, len(bucket))
	for seq := range bucket {
		out = append(out, seq)
	}
	return out
}

func extractEntities(c block.Content) []string {
	var entities []string
	switch v := c.(type) {
	case block.File:
		entities = append(entities, expandAncestors(v.Path)...)
	case block.Tool:
		entities = append(entities, "tool:"+v.ToolName)
		entities = append(entities, pathLikeTokens(v.Args)...)
	case block.Text:
		entities = append(entities, pathLikeTokens(v.Text)...)
	}
	return entities
}

// expandAncestors returns p and every ancestor directory of p, so a query
// for a directory finds every file touched beneath it.
func expandAncestors(p string) []string {
	p = filepath.Clean(p)
	out := []string{p}
	for {
		parent := filepath.Dir(p)
		if parent == p || parent == "." || parent == "/" {
			break
		}
		out = append(out, parent)
		p = parent
	}
	return out
}

// pathLikeTokens scans free text for tokens that look like filesystem
// paths (containing a '/' and no whitespace) and expands each to its
// ancestor chain.
func pathLikeTokens(text string) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		if strings.Contains(tok, "/") {
			out = append(out, expandAncestors(tok)...)
		}
	}
	return out
}
