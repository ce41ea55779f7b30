package index

import "github.com/cogmem/cogmem/internal/types"

// TypeIndex buckets node ids by event type.
type TypeIndex struct {
	byType map[types.EventType]map[types.NodeID]struct{}
}

func NewTypeIndex() *TypeIndex {
	return &TypeIndex{byType: make(map[types.EventType]map[types.NodeID]struct{})}
}

func (ix *TypeIndex) IndexEvent(ev types.Event) {
	ix.removeFromAllTypes(ev.ID)
	bucket, ok := ix.byType[ev.Type]
	if !ok {
		bucket = make(map[types.NodeID]struct{})
		ix.byType[ev.Type] = bucket
	}
	bucket[ev.ID] = struct{}{}
}

func (ix *TypeIndex) removeFromAllTypes(id types.NodeID) {
	for _, bucket := range ix.byType {
		delete(bucket, id)
	}
}

func (ix *TypeIndex) Remove(id types.NodeID) {
	ix.removeFromAllTypes(id)
}

func (ix *TypeIndex) Rebuild(events []types.Event) {
	ix.byType = make(map[types.EventType]map[types.NodeID]struct{})
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// Get returns every node id with the given event type.
func (ix *TypeIndex) Get(t types.EventType) []types.NodeID {
	bucket := ix.byType[t]
	out := make([]types.NodeID, 0, len(bucket))
	for id := range bucket {
		out = append(out, id)
	}
	return out
}

// SessionIndex buckets node ids by session id.
type SessionIndex struct {
	bySession map[types.SessionID]map[types.NodeID]struct{}
}

func NewSessionIndex() *SessionIndex {
	return &SessionIndex{bySession: make(map[types.SessionID]map[types.NodeID]struct{})}
}

func (ix *SessionIndex) IndexEvent(ev types.Event) {
	ix.removeFromAllSessions(ev.ID)
	bucket, ok := ix.bySession[ev.SessionID]
	if !ok {
		bucket = make(map[types.NodeID]struct{})
		ix.bySession[ev.SessionID] = bucket
	}
	bucket[ev.ID] = struct{}{}
}

func (ix *SessionIndex) removeFromAllSessions(id types.NodeID) {
	for _, bucket := range ix.bySession {
		delete(bucket, id)
	}
}

func (ix *SessionIndex) Remove(id types.NodeID) {
	ix.removeFromAllSessions(id)
}

func (ix *SessionIndex) Rebuild(events []types.Event) {
	ix.bySession = make(map[types.SessionID]map[types.NodeID]struct{})
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// Get returns every node id recorded under the given session.
func (ix *SessionIndex) Get(s types.SessionID) []types.NodeID {
	bucket := ix.bySession[s]
	out := make([]types.NodeID, 0, len(bucket))
	for id := range bucket {
		out = append(out, id)
	}
	return out
}
