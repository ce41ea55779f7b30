package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/types"
)

func buildTestGraph(t *testing.T, dim int) *graph.MemoryGraph {
	t.Helper()
	g := graph.New(dim)
	var vec []float32
	if dim > 0 {
		vec = make([]float32, dim)
		vec[0] = 1
	}
	a, err := g.AddNode(types.Event{Type: types.EventFact, Content: "alpha", Confidence: 0.9, DecayScore: 1, FeatureVec: vec})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	b, err := g.AddNode(types.Event{Type: types.EventDecision, Content: "beta", Confidence: 0.5, DecayScore: 0.8})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddEdge(types.Edge{Source: b, Target: a, Type: types.EdgeCausedBy, Weight: 1}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, dim := range []int{0, 4} {
		g := buildTestGraph(t, dim)
		path := filepath.Join(t.TempDir(), "store.amem")

		if err := Write(path, g); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := Read(path)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		wantNodes, wantEdges := g.Snapshot()
		gotNodes, gotEdges := got.Snapshot()
		if len(gotNodes) != len(wantNodes) {
			t.Fatalf("expected %d nodes, got %d", len(wantNodes), len(gotNodes))
		}
		for i := range wantNodes {
			if gotNodes[i].Content != wantNodes[i].Content {
				t.Fatalf("node %d content mismatch: got %q want %q", i, gotNodes[i].Content, wantNodes[i].Content)
			}
		}
		if len(gotEdges) != len(wantEdges) {
			t.Fatalf("expected %d edges, got %d", len(wantEdges), len(gotEdges))
		}
	}
}

func TestReadRejectsBadChecksum(t *testing.T) {
	g := buildTestGraph(t, 0)
	path := filepath.Join(t.TempDir(), "store.amem")
	if err := Write(path, g); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Read(path)
	if !cogerr.Is(err, cogerr.KindCorrupt) {
		t.Fatalf("expected corrupt error for tampered checksum, got %v", err)
	}
}

func TestOpenMappedDecodesNodesAndEdgesDirectlyFromTheMapping(t *testing.T) {
	g := buildTestGraph(t, 4)
	path := filepath.Join(t.TempDir(), "store.amem")
	if err := Write(path, g); err != nil {
		t.Fatalf("Write: %v", err)
	}

	mg, err := OpenMapped(path)
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer mg.Close()

	wantNodes, wantEdges := g.Snapshot()
	if mg.NodeCount() != uint64(len(wantNodes)) {
		t.Fatalf("expected %d nodes, got %d", len(wantNodes), mg.NodeCount())
	}
	if mg.EdgeCount() != uint64(len(wantEdges)) {
		t.Fatalf("expected %d edges, got %d", len(wantEdges), mg.EdgeCount())
	}
	if mg.Dimension() != 4 {
		t.Fatalf("expected dimension 4, got %d", mg.Dimension())
	}

	for i := uint64(0); i < mg.NodeCount(); i++ {
		ev, err := mg.NodeAt(i)
		if err != nil {
			t.Fatalf("NodeAt(%d): %v", i, err)
		}
		if ev.Content != wantNodes[i].Content {
			t.Fatalf("node %d content mismatch: got %q want %q", i, ev.Content, wantNodes[i].Content)
		}
	}
	if _, err := mg.NodeAt(mg.NodeCount()); err == nil {
		t.Fatalf("expected out-of-range NodeAt to error")
	}
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.amem")
	if err := os.WriteFile(path, []byte("short"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Read(path)
	if !cogerr.Is(err, cogerr.KindCorrupt) {
		t.Fatalf("expected corrupt error for truncated file, got %v", err)
	}
}
