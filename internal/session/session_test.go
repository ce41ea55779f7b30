package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cogmem/cogmem/internal/retrieval"
	"github.com/cogmem/cogmem/internal/types"
	"github.com/cogmem/cogmem/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.GraphPath = filepath.Join(dir, "store.amem")
	cfg.Store.LogPath = filepath.Join(dir, "store.imem")
	cfg.Store.Dimension = 0
	cfg.Session.Strategy = "manual"
	cfg.Session.ManualID = "test-session"
	return cfg
}

func TestOpenAddMemoryAndSaveRoundTrips(t *testing.T) {
	cfg := testConfig(t)

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if s.SessionKey() != "test-session" {
		t.Fatalf("expected manual session key, got %q", s.SessionKey())
	}

	ev, err := s.AddMemory(AddMemoryRequest{Type: types.EventFact, Content: "rust ownership rules", Confidence: 0.9})
	if err != nil {
		t.Fatalf("AddMemory: %v", err)
	}
	if ev.SessionID != s.SessionID() {
		t.Fatalf("expected event tagged with session id %d, got %d", s.SessionID(), ev.SessionID)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if s2.g.NodeCount() != 1 {
		t.Fatalf("expected 1 node after reopen, got %d", s2.g.NodeCount())
	}
}

func TestSessionStartEndCreatesEpisode(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev, err := s.End(EndOptions{CreateEpisode: true, Summary: "worked on the parser"})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected an episode event")
	}
	if ev.Type != types.EventEpisode {
		t.Fatalf("expected episode type, got %v", ev.Type)
	}
}

func TestQueryFansOutSemantic(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		if _, err := s.AddMemory(AddMemoryRequest{Type: types.EventFact, Content: "go channels and goroutines", Confidence: 0.8}); err != nil {
			t.Fatalf("AddMemory: %v", err)
		}
	}

	res, err := s.Query(context.Background(), retrieval.Request{
		Strategy:  retrieval.StrategySemantic,
		QueryText: "goroutines",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Hits) == 0 {
		t.Fatalf("expected semantic hits")
	}
}

func TestRunMaintenanceTickClassifiesTiers(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.AddMemory(AddMemoryRequest{Type: types.EventFact, Content: "fresh fact", Confidence: 1}); err != nil {
		t.Fatalf("AddMemory: %v", err)
	}

	res, err := s.RunMaintenanceTick()
	if err != nil {
		t.Fatalf("RunMaintenanceTick: %v", err)
	}
	if res.TierCounts == nil {
		t.Fatalf("expected tier counts")
	}
	if res.RunID == "" {
		t.Fatalf("expected a non-empty run id")
	}
}
