package logindex

import (
	"testing"

	"github.com/cogmem/cogmem/internal/block"
)

func mkBlock(seq uint64, ts int64, c block.Content) block.Block {
	return block.New(seq, block.ZeroHash, ts, c)
}

func TestTemporalRange(t *testing.T) {
	ix := NewTemporalIndex()
	ix.Index(mkBlock(0, 100, block.Text{Text: "a"}))
	ix.Index(mkBlock(1, 200, block.Text{Text: "b"}))
	ix.Index(mkBlock(2, 300, block.Text{Text: "c"}))

	got := ix.Range(150, 250)
	if len(got) != 1 || got[0].Sequence != 1 {
		t.Fatalf("expected only sequence 1, got %v", got)
	}
}

func TestSemanticTextFallback(t *testing.T) {
	ix := NewSemanticIndex(0)
	ix.Index(mkBlock(0, 0, block.Text{Text: "the go garbage collector"}))
	ix.Index(mkBlock(1, 0, block.Text{Text: "unrelated content about cooking"}))

	results := ix.Query(nil, "go garbage collector", 10)
	if len(results) != 1 || results[0].Sequence != 0 {
		t.Fatalf("expected sequence 0 to match, got %v", results)
	}
}

func TestCausalRootCauses(t *testing.T) {
	ix := NewCausalIndex()
	ix.Index(mkBlock(0, 0, block.Text{Text: "root"}))
	ix.Index(mkBlock(1, 0, block.Text{Text: "mid", Tags: []string{"causes:0"}}))
	ix.Index(mkBlock(2, 0, block.Text{Text: "leaf", Tags: []string{"causes:1"}}))

	roots := ix.RootCauses(2)
	if len(roots) != 1 || roots[0] != 0 {
		t.Fatalf("expected root 0, got %v", roots)
	}
}

func TestEntityIndexExpandsAncestors(t *testing.T) {
	ix := NewEntityIndex()
	ix.Index(mkBlock(0, 0, block.File{Path: "/a/b/c.go", Op: block.FileWrite}))

	got := ix.Lookup("/a/b")
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected sequence 0 under ancestor dir, got %v", got)
	}
}

func TestProceduralSimilarProcedures(t *testing.T) {
	ix := NewProceduralIndex()
	ix.Index(mkBlock(0, 0, block.Tool{ToolName: "read"}))
	ix.Index(mkBlock(1, 0, block.Tool{ToolName: "edit"}))
	ix.Index(mkBlock(2, 0, block.Tool{ToolName: "test"}))

	ix.Index(mkBlock(3, 0, block.Tool{ToolName: "read"}))
	ix.Index(mkBlock(4, 0, block.Tool{ToolName: "edit"}))
	ix.Index(mkBlock(5, 0, block.Tool{ToolName: "test"}))

	similar := ix.SimilarProcedures(5)
	found := false
	for _, s := range similar {
		if s == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected sequence 2 as a similar procedure to 5, got %v", similar)
	}
}
