package graph

import (
	"testing"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/types"
)

func mustAdd(t *testing.T, g *MemoryGraph, content string) types.NodeID {
	t.Helper()
	id, err := g.AddNode(types.Event{Type: types.EventFact, Content: content, Confidence: 1, DecayScore: 1})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	return id
}

func TestAddNodeAssignsDenseMonotonicIDs(t *testing.T) {
	g := New(0)
	a := mustAdd(t, g, "a")
	b := mustAdd(t, g, "b")
	if a != 1 || b != 2 {
		t.Fatalf("expected ids 1 then 2, got %d then %d", a, b)
	}
}

func TestAddEdgeRejectsSelfLoopAndMissingEndpoints(t *testing.T) {
	g := New(0)
	a := mustAdd(t, g, "a")

	if err := g.AddEdge(types.Edge{Source: a, Target: a, Type: types.EdgeRelatedTo, Weight: 1}); !cogerr.Is(err, cogerr.KindValidation) {
		t.Fatalf("expected self-loop to be rejected as validation error, got %v", err)
	}
	if err := g.AddEdge(types.Edge{Source: a, Target: 999, Type: types.EdgeRelatedTo, Weight: 1}); err == nil {
		t.Fatalf("expected missing target to be rejected")
	}
}

func TestNeighborsSortedByTargetThenType(t *testing.T) {
	g := New(0)
	a := mustAdd(t, g, "a")
	b := mustAdd(t, g, "b")
	c := mustAdd(t, g, "c")

	for _, e := range []types.Edge{
		{Source: a, Target: c, Type: types.EdgeRelatedTo, Weight: 1},
		{Source: a, Target: b, Type: types.EdgeSupports, Weight: 1},
		{Source: a, Target: b, Type: types.EdgeCausedBy, Weight: 1},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	edges, err := g.Neighbors(a, types.Forward)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(edges))
	}
	if edges[0].Target != b || edges[0].Type != types.EdgeCausedBy {
		t.Fatalf("expected first edge to be (b, caused_by), got (%d, %v)", edges[0].Target, edges[0].Type)
	}
	if edges[1].Target != b || edges[1].Type != types.EdgeSupports {
		t.Fatalf("expected second edge to be (b, supports), got (%d, %v)", edges[1].Target, edges[1].Type)
	}
	if edges[2].Target != c {
		t.Fatalf("expected third edge to target c, got %d", edges[2].Target)
	}
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	g := New(0)
	a := mustAdd(t, g, "a")
	b := mustAdd(t, g, "b")
	if err := g.AddEdge(types.Edge{Source: a, Target: b, Type: types.EdgeRelatedTo, Weight: 1}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if err := g.RemoveNode(b); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	edges, err := g.Neighbors(a, types.Forward)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges after removing target node, got %d", len(edges))
	}
}

func TestFromPartsRejectsDuplicateID(t *testing.T) {
	nodes := []types.Event{
		{ID: 1, Type: types.EventFact, Confidence: 1, DecayScore: 1},
		{ID: 1, Type: types.EventFact, Confidence: 1, DecayScore: 1},
	}
	if _, err := FromParts(nodes, nil, 0); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
}

func TestFromPartsSetsNextIDPastMax(t *testing.T) {
	nodes := []types.Event{
		{ID: 5, Type: types.EventFact, Confidence: 1, DecayScore: 1},
		{ID: 2, Type: types.EventFact, Confidence: 1, DecayScore: 1},
	}
	g, err := FromParts(nodes, nil, 0)
	if err != nil {
		t.Fatalf("FromParts: %v", err)
	}
	id, err := g.AddNode(types.Event{Type: types.EventFact, Confidence: 1, DecayScore: 1})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if id != 6 {
		t.Fatalf("expected next id 6 (past max existing id 5), got %d", id)
	}
}

func TestFromPartsSortsAdjacencyConsistentlyWithAddEdge(t *testing.T) {
	nodes := []types.Event{
		{ID: 1, Type: types.EventFact, Confidence: 1, DecayScore: 1},
		{ID: 2, Type: types.EventFact, Confidence: 1, DecayScore: 1},
		{ID: 3, Type: types.EventFact, Confidence: 1, DecayScore: 1},
	}
	edges := []types.Edge{
		{Source: 1, Target: 3, Type: types.EdgeRelatedTo, Weight: 1},
		{Source: 1, Target: 2, Type: types.EdgeSupports, Weight: 1},
	}
	g, err := FromParts(nodes, edges, 0)
	if err != nil {
		t.Fatalf("FromParts: %v", err)
	}
	out, err := g.Neighbors(1, types.Forward)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if out[0].Target != 2 || out[1].Target != 3 {
		t.Fatalf("expected edges sorted by target, got %v", out)
	}
}
