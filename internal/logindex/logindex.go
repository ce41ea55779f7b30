// Package logindex implements the log-plane index family (spec.md §4.I):
// five derived views over the immortal log, each rebuildable by replaying
// the log from sequence 0 (spec.md §3 Ownership). Unlike the graph-plane
// indexes in internal/index, these key on log sequence number and block
// hash rather than node id, since the log has no notion of a node.
package logindex

import "github.com/cogmem/cogmem/internal/block"

// LogIndex is the contract every log-plane index implements.
type LogIndex interface {
	Index(b block.Block)
	Remove(sequence uint64)
	Rebuild(blocks []block.Block)
}

// IndexResult is one hit from a log-plane index lookup.
type IndexResult struct {
	Sequence uint64
	Hash     block.Hash
	Score    float64
}

// Set holds the full log-plane index family.
type Set struct {
	Temporal   *TemporalIndex
	Semantic   *SemanticIndex
	Causal     *CausalIndex
	Entity     *EntityIndex
	Procedural *ProceduralIndex

	members []LogIndex
}

// NewSet wires up a fresh, empty log-plane index family.
func NewSet(dim int) *Set {
	s := &Set{
		Temporal:   NewTemporalIndex(),
		Semantic:   NewSemanticIndex(dim),
		Causal:     NewCausalIndex(),
		Entity:     NewEntityIndex(),
		Procedural: NewProceduralIndex(),
	}
	s.members = []LogIndex{s.Temporal, s.Semantic, s.Causal, s.Entity, s.Procedural}
	return s
}

func (s *Set) Index(b block.Block) {
	for _, m := range s.members {
		m.Index(b)
	}
}

func (s *Set) Remove(sequence uint64) {
	for _, m := range s.members {
		m.Remove(sequence)
	}
}

func (s *Set) Rebuild(blocks []block.Block) {
	for _, m := range s.members {
		m.Rebuild(blocks)
	}
}
