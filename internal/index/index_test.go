package index

import (
	"testing"

	"github.com/cogmem/cogmem/internal/types"
)

func TestDispatcherFansOutToEveryMember(t *testing.T) {
	d := NewDispatcher()
	ev := types.Event{ID: 1, Type: types.EventFact, SessionID: 7, Content: "concurrent workers", CreatedAt: 100, FeatureVec: []float32{1, 0}}
	d.IndexEvent(ev)

	if got := d.Type.Get(types.EventFact); len(got) != 1 || got[0] != 1 {
		t.Fatalf("TypeIndex not updated: %v", got)
	}
	if got := d.Session.Get(7); len(got) != 1 || got[0] != 1 {
		t.Fatalf("SessionIndex not updated: %v", got)
	}
	if got := d.Temporal.Range(0, 200); len(got) != 1 || got[0] != 1 {
		t.Fatalf("TemporalIndex not updated: %v", got)
	}
	if got := d.Term.Postings("workers"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("TermIndex not updated: %v", got)
	}
	if _, ok := d.Vector.Get(1); !ok {
		t.Fatalf("VectorIndex not updated")
	}
	if _, ok := d.Cluster.ClusterOf(1); !ok {
		t.Fatalf("ClusterIndex not updated")
	}

	d.Remove(1)
	if got := d.Type.Get(types.EventFact); len(got) != 0 {
		t.Fatalf("expected TypeIndex empty after Remove, got %v", got)
	}
	if _, ok := d.Vector.Get(1); ok {
		t.Fatalf("expected VectorIndex empty after Remove")
	}
}

func TestDispatcherRebuildReplacesState(t *testing.T) {
	d := NewDispatcher()
	d.IndexEvent(types.Event{ID: 1, Type: types.EventFact, Content: "stale"})

	d.Rebuild([]types.Event{{ID: 2, Type: types.EventDecision, Content: "fresh"}})

	if got := d.Type.Get(types.EventFact); len(got) != 0 {
		t.Fatalf("expected stale type bucket cleared, got %v", got)
	}
	if got := d.Type.Get(types.EventDecision); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected rebuilt type bucket to hold node 2, got %v", got)
	}
}

func TestTemporalIndexRangeIsAscendingAndExclusiveOutsideBounds(t *testing.T) {
	ix := NewTemporalIndex()
	ix.IndexEvent(types.Event{ID: 1, CreatedAt: 10})
	ix.IndexEvent(types.Event{ID: 2, CreatedAt: 30})
	ix.IndexEvent(types.Event{ID: 3, CreatedAt: 20})

	got := ix.Range(15, 25)
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected only node 3 in [15,25], got %v", got)
	}

	got = ix.Range(0, 100)
	want := []types.NodeID{1, 3, 2}
	for i, id := range want {
		if got[i] != id {
			t.Fatalf("expected ascending order %v, got %v", want, got)
		}
	}
}

func TestTermIndexTokenizeDropsShortTokensAndLowercases(t *testing.T) {
	toks := Tokenize("Go is Fun! A lot of fun, really.")
	for _, tok := range toks {
		if len(tok) < 2 {
			t.Fatalf("expected no tokens shorter than 2 chars, got %q in %v", tok, toks)
		}
		if tok != stringsLower(tok) {
			t.Fatalf("expected lowercase token, got %q", tok)
		}
	}
}

func stringsLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

func TestTermIndexPostingsAndAvgDocLength(t *testing.T) {
	ix := NewTermIndex()
	ix.IndexEvent(types.Event{ID: 1, Content: "alpha beta alpha"})
	ix.IndexEvent(types.Event{ID: 2, Content: "beta gamma"})

	postings := ix.Postings("alpha")
	if len(postings) != 1 || postings[0].ID != 1 || postings[0].Freq != 2 {
		t.Fatalf("expected alpha posting {1,2}, got %v", postings)
	}
	if ix.DocFreq("beta") != 2 {
		t.Fatalf("expected beta to appear in 2 docs, got %d", ix.DocFreq("beta"))
	}
	if avg := ix.AvgDocLength(); avg != 2.5 {
		t.Fatalf("expected avg doc length 2.5, got %f", avg)
	}

	ix.Remove(1)
	if ix.DocFreq("alpha") != 0 {
		t.Fatalf("expected alpha postings gone after removing its only document")
	}
	if ix.DocCount() != 1 {
		t.Fatalf("expected doc count 1 after remove, got %d", ix.DocCount())
	}
}

func TestVectorIndexTopKOrdersByScoreThenID(t *testing.T) {
	ix := NewVectorIndex()
	ix.IndexEvent(types.Event{ID: 1, FeatureVec: []float32{1, 0}})
	ix.IndexEvent(types.Event{ID: 2, FeatureVec: []float32{1, 0}})
	ix.IndexEvent(types.Event{ID: 3, FeatureVec: []float32{0, 1}})

	matches := ix.TopK([]float32{1, 0}, 10, 0.1)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches above threshold, got %v", matches)
	}
	if matches[0].ID != 1 || matches[1].ID != 2 {
		t.Fatalf("expected tie broken by ascending id, got %v", matches)
	}
}

func TestCosineHandlesZeroNormAndSymmetry(t *testing.T) {
	if c := Cosine([]float32{0, 0}, []float32{1, 1}); c != 0 {
		t.Fatalf("expected zero-norm vector to score 0, got %f", c)
	}
	a, b := []float32{1, 2, 3}, []float32{4, 5, 6}
	if Cosine(a, b) != Cosine(b, a) {
		t.Fatalf("expected cosine similarity to be symmetric")
	}
}

func TestClusterIndexJoinsNearCentroidAndStartsNewOtherwise(t *testing.T) {
	ix := NewClusterIndex()
	ix.SimilarityThreshold = 0.99
	ix.IndexEvent(types.Event{ID: 1, FeatureVec: []float32{1, 0}})
	ix.IndexEvent(types.Event{ID: 2, FeatureVec: []float32{1, 0.001}})
	ix.IndexEvent(types.Event{ID: 3, FeatureVec: []float32{0, 1}})

	c1, ok := ix.ClusterOf(1)
	if !ok {
		t.Fatalf("expected node 1 to be clustered")
	}
	c2, _ := ix.ClusterOf(2)
	c3, _ := ix.ClusterOf(3)
	if c1 != c2 {
		t.Fatalf("expected near-identical vectors to share a cluster")
	}
	if c1 == c3 {
		t.Fatalf("expected orthogonal vector to start its own cluster")
	}
}
