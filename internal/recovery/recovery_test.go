package recovery

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/format"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/logstore"
	"github.com/cogmem/cogmem/internal/types"
)

func applyTextBlock(g *graph.MemoryGraph, b block.Block) error {
	txt, ok := b.Content.(block.Text)
	if !ok {
		return nil
	}
	_, err := g.AddNode(types.Event{Type: types.EventFact, Content: txt.Text, Confidence: 1, DecayScore: 1})
	return err
}

func TestRecoverRebuildsFromLogWhenSnapshotMissing(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "store.imem")
	graphPath := filepath.Join(dir, "store.amem")

	l, err := logstore.Open(logPath)
	if err != nil {
		t.Fatalf("Open log: %v", err)
	}
	if _, err := l.Append(block.Text{Text: "one"}, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append(block.Text{Text: "two"}, 2); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	g, l2, outcome, err := Recover(graphPath, logPath, 0, applyTextBlock)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	defer l2.Close()

	if outcome.SnapshotUsable {
		t.Fatalf("expected snapshot to be reported unusable when missing")
	}
	if outcome.Replayed != 2 {
		t.Fatalf("expected 2 blocks replayed, got %d", outcome.Replayed)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes in rebuilt graph, got %d", g.NodeCount())
	}
}

func TestRecoverReplaysOnlyBlocksPastMarker(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "store.imem")
	graphPath := filepath.Join(dir, "store.amem")

	l, err := logstore.Open(logPath)
	if err != nil {
		t.Fatalf("Open log: %v", err)
	}
	if _, err := l.Append(block.Text{Text: "one"}, 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	g := graph.New(0)
	b0, err := l.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := applyTextBlock(g, b0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := format.Write(graphPath, g); err != nil {
		t.Fatalf("Write snapshot: %v", err)
	}
	if err := WriteMarker(graphPath, RecoveryMarker{LastSequence: 1}); err != nil {
		t.Fatalf("WriteMarker: %v", err)
	}

	if _, err := l.Append(block.Text{Text: "two"}, 2); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	g2, l2, outcome, err := Recover(graphPath, logPath, 0, applyTextBlock)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	defer l2.Close()

	if !outcome.SnapshotUsable {
		t.Fatalf("expected snapshot to be usable")
	}
	if outcome.Replayed != 1 {
		t.Fatalf("expected 1 block replayed past the marker, got %d", outcome.Replayed)
	}
	if g2.NodeCount() != 2 {
		t.Fatalf("expected 2 total nodes after replay, got %d", g2.NodeCount())
	}
}

func TestWithRetryStopsOnNonIOError(t *testing.T) {
	calls := 0
	err := WithRetry(RetryConfig{MaxElapsedTime: 0, InitialInterval: 0}, func() error {
		calls++
		return cogerr.New(cogerr.KindValidation, "not retryable")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-IO error, got %d", calls)
	}
}

func TestWithRetrySucceedsAfterTransientIOError(t *testing.T) {
	calls := 0
	err := WithRetry(DefaultRetryConfig, func() error {
		calls++
		if calls < 2 {
			return cogerr.Wrap(cogerr.KindIO, "transient", errors.New("boom"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
