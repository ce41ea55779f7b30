// Package index implements the graph-plane index family (spec.md §4.D):
// type, session, temporal, inverted term, cluster, and vector indexes. Each
// is a derived view over the in-memory graph — if lost, every one of them
// can be rebuilt by replaying the node set (spec.md §3 Ownership).
//
// All six implement the same small contract (spec.md §9 "polymorphic
// index" design note) so a Dispatcher can hold them as a heterogeneous
// collection and fan writes out to every index in lockstep.
package index

import "github.com/cogmem/cogmem/internal/types"

// Index is the contract every graph-plane index implements.
type Index interface {
	// IndexEvent adds or updates ev's entry in the index.
	IndexEvent(ev types.Event)
	// Remove drops id's entry from the index, if any.
	Remove(id types.NodeID)
	// Rebuild discards all state and reindexes every event from scratch.
	// Used after a corruption-triggered reload, since every index here is
	// a pure function of the node set.
	Rebuild(events []types.Event)
}

// Dispatcher holds the full graph-plane index family and fans writes out
// to each member. Its IndexEvent/Remove/Rebuild methods give it Index's
// method set, so it satisfies Index itself and serves as the single
// fan-out point.
type Dispatcher struct {
	Type     *TypeIndex
	Session  *SessionIndex
	Temporal *TemporalIndex
	Term     *TermIndex
	Cluster  *ClusterIndex
	Vector   *VectorIndex

	members []Index
}

// NewDispatcher wires up a fresh set of empty indexes.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		Type:     NewTypeIndex(),
		Session:  NewSessionIndex(),
		Temporal: NewTemporalIndex(),
		Term:     NewTermIndex(),
		Cluster:  NewClusterIndex(),
		Vector:   NewVectorIndex(),
	}
	d.members = []Index{d.Type, d.Session, d.Temporal, d.Term, d.Cluster, d.Vector}
	return d
}

func (d *Dispatcher) IndexEvent(ev types.Event) {
	for _, m := range d.members {
		m.IndexEvent(ev)
	}
}

func (d *Dispatcher) Remove(id types.NodeID) {
	for _, m := range d.members {
		m.Remove(id)
	}
}

func (d *Dispatcher) Rebuild(events []types.Event) {
	for _, m := range d.members {
		m.Rebuild(events)
	}
}
