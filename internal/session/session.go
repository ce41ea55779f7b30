// Package session is the engine facade (spec.md §4.M): it owns one open
// store end to end, wiring the graph, the immortal log, both index
// families, the write path, the query engine, and smart retrieval into a
// single handle a CLI or embedding host can call. It is the only package
// that constructs every other component; everything below it is a pure
// library with no knowledge of "a session" as a running process.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/format"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/logging"
	"github.com/cogmem/cogmem/internal/logindex"
	"github.com/cogmem/cogmem/internal/logstore"
	"github.com/cogmem/cogmem/internal/query"
	"github.com/cogmem/cogmem/internal/recovery"
	"github.com/cogmem/cogmem/internal/retrieval"
	"github.com/cogmem/cogmem/internal/tier"
	"github.com/cogmem/cogmem/internal/types"
	"github.com/cogmem/cogmem/internal/write"
	"github.com/cogmem/cogmem/pkg/config"
)

var log = logging.GetLogger("session")

// Session is one open store: the graph/log pair, their index families, and
// the engines layered on top, plus the current process's detected session
// identity.
type Session struct {
	mu sync.Mutex

	cfg *config.Config

	g      *graph.MemoryGraph
	l      *logstore.Log
	idx    *index.Dispatcher
	logIdx *logindex.Set

	writeEngine     *write.Engine
	queryEngine     *query.Engine
	retrievalEngine *retrieval.Engine
	tierThresholds  tier.Thresholds

	detector   *Detector
	sessionKey string
	sessionID  types.SessionID
}

// Open recovers the graph and log at the paths cfg names (replaying
// whatever the log holds past the snapshot's marker, or rebuilding from
// scratch if the snapshot is missing or stale — internal/recovery), rebuilds
// every index from the recovered state, and wires up the write, query and
// retrieval engines over it.
func Open(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: invalid config: %w", err)
	}

	g, l, outcome, err := recovery.Recover(cfg.Store.GraphPath, cfg.Store.LogPath, cfg.Store.Dimension, applyBlock)
	if err != nil {
		return nil, err
	}
	log.Info("store recovered", "snapshot_usable", outcome.SnapshotUsable, "blocks_replayed", outcome.Replayed)

	idx := index.NewDispatcher()
	nodes, _ := g.Snapshot()
	idx.Rebuild(nodes)

	logIdx := logindex.NewSet(cfg.Store.Dimension)
	logIdx.Rebuild(l.Iter())

	embed := buildEmbeddingProvider(cfg, nodes)

	writeEngine := write.New(g, idx, l, write.WithEmbeddingProvider(embed), write.WithLogIndex(logIdx))
	queryEngine := query.New(g, idx)
	retrievalEngine := retrieval.New(logIdx, l)

	detector := NewDetector(Strategy(cfg.Session.Strategy))
	detector.ManualID = cfg.Session.ManualID

	s := &Session{
		cfg:             cfg,
		g:               g,
		l:               l,
		idx:             idx,
		logIdx:          logIdx,
		writeEngine:     writeEngine,
		queryEngine:     queryEngine,
		retrievalEngine: retrievalEngine,
		tierThresholds: tier.Thresholds{
			WarmAfter:   cfg.Tiers.WarmAfter,
			ColdAfter:   cfg.Tiers.ColdAfter,
			FrozenAfter: cfg.Tiers.FrozenAfter,
		},
		detector: detector,
	}
	s.sessionKey = detector.DetectKey()
	s.sessionID = KeyToID(s.sessionKey)
	return s, nil
}

func buildEmbeddingProvider(cfg *config.Config, nodes []types.Event) embedding.Provider {
	switch cfg.Embedding.Provider {
	case "tfidf":
		corpus := make([]string, len(nodes))
		for i, ev := range nodes {
			corpus[i] = ev.Content
		}
		return embedding.NewTfIdf(corpus, cfg.Embedding.Dimension)
	default:
		return embedding.NewNoOp()
	}
}

// applyBlock replays one log block into the graph during recovery. Only
// Text blocks carry graph-plane content in this version of the store;
// Tool/File/Decision/Session/Boundary blocks live purely in the log plane
// and are picked up by the log-plane indexes instead (internal/logindex),
// never by the graph.
func applyBlock(g *graph.MemoryGraph, b block.Block) error {
	txt, ok := b.Content.(block.Text)
	if !ok {
		return nil
	}
	_, err := g.AddNode(types.Event{
		Type:       types.EventFact,
		Content:    txt.Text,
		CreatedAt:  b.TimestampMS * 1000,
		Confidence: 1,
		DecayScore: 1,
	})
	return err
}

// AddMemoryRequest is the caller-supplied half of a new memory, tagged with
// the running session's identity before it reaches the write engine.
type AddMemoryRequest struct {
	Type       types.EventType
	Content    string
	Confidence float64
	FeatureVec []float32
}

// AddMemory ingests a new event under the current session's identity.
func (s *Session) AddMemory(req AddMemoryRequest) (types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEngine.Ingest(write.IngestRequest{
		Type:       req.Type,
		Content:    req.Content,
		SessionID:  s.sessionID,
		Confidence: req.Confidence,
		FeatureVec: req.FeatureVec,
	})
}

// Link adds a typed edge between two already-ingested events.
func (s *Session) Link(edge types.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEngine.Link(edge)
}

// Query runs a smart-retrieval request over the session, filling in any
// zero-valued fan-out parameters from config defaults.
func (s *Session) Query(ctx context.Context, req retrieval.Request) (retrieval.Result, error) {
	if req.MaxConcurrency <= 0 {
		req.MaxConcurrency = s.cfg.Retrieval.MaxConcurrentFanout
	}
	if req.TokenBudget <= 0 {
		req.TokenBudget = s.cfg.Retrieval.DefaultTokenBudget
	}
	if req.TokensPerChar <= 0 {
		req.TokensPerChar = s.cfg.Retrieval.TokensPerChar
	}
	return s.retrievalEngine.Retrieve(ctx, req)
}

// QueryEngine exposes the raw query engine for callers (CLI subcommands,
// quality reports) that need a specific query operation rather than
// fused smart retrieval.
func (s *Session) QueryEngine() *query.Engine { return s.queryEngine }

// SessionKey returns the detected string key for the running session
// (e.g. a sanitized git directory name), for display purposes.
func (s *Session) SessionKey() string { return s.sessionKey }

// SessionID returns the numeric id derived from SessionKey that every
// ingested event in this process is tagged with.
func (s *Session) SessionID() types.SessionID { return s.sessionID }

// Start records a session-start boundary in the immortal log. It does not
// touch the graph: session boundaries are a log-plane concern, recovered
// by internal/logindex rather than replayed into nodes.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.l.Append(block.Session{ID: s.sessionKey, Kind: block.SessionStart}, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	s.logIdx.Index(b)
	return nil
}

// EndOptions configures SessionEnd.
type EndOptions struct {
	// CreateEpisode, if true, ingests a summarizing Episode event in
	// addition to recording the session-end boundary.
	CreateEpisode bool
	Summary       string
}

// End records a session-end boundary and, if requested, ingests an Episode
// event summarizing it — the only session-lifecycle operation that touches
// the graph, since an episode is itself a retrievable memory.
func (s *Session) End(opts EndOptions) (*types.Event, error) {
	s.mu.Lock()
	b, err := s.l.Append(block.Session{ID: s.sessionKey, Kind: block.SessionEnd}, time.Now().UnixMilli())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.logIdx.Index(b)
	s.mu.Unlock()

	if !opts.CreateEpisode {
		return nil, nil
	}
	ev, err := s.AddMemory(AddMemoryRequest{Type: types.EventEpisode, Content: opts.Summary, Confidence: 1})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MaintenanceResult reports what one maintenance tick did across both the
// write engine's decay pass and the storage tiering sweep.
type MaintenanceResult struct {
	write.MaintenanceResult
	TierCounts map[tier.Tier]int
	// RunID tags this tick for log correlation, the way the teacher tags
	// each benchmark run with a fresh uuid.
	RunID string
}

// RunMaintenanceTick runs decay recomputation and classifies every node
// into its storage tier as of now, for a caller (cmd/cogmem's maintain
// subcommand, or a timer in an embedding host) to act on.
func (s *Session) RunMaintenanceTick() (MaintenanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.New().String()
	log.Info("maintenance tick starting", "run_id", runID)

	wr, err := s.writeEngine.RunMaintenanceTick()
	if err != nil {
		return MaintenanceResult{}, err
	}

	now := time.Now()
	counts := map[tier.Tier]int{}
	for _, id := range s.g.AllNodeIDs() {
		ev, err := s.g.GetNode(id)
		if err != nil {
			continue
		}
		counts[tier.Classify(ev, now, s.tierThresholds)]++
	}

	log.Info("maintenance tick finished", "run_id", runID, "decay_updated", wr.DecayUpdated)
	return MaintenanceResult{MaintenanceResult: wr, TierCounts: counts, RunID: runID}, nil
}

// Save writes a fresh graph snapshot and advances its recovery marker to
// the log's current tail, so the next Open can skip replaying anything
// this snapshot already reflects.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := format.Write(s.cfg.Store.GraphPath, s.g); err != nil {
		return err
	}
	return recovery.WriteMarker(s.cfg.Store.GraphPath, recovery.RecoveryMarker{LastSequence: s.l.Len()})
}

// Close saves the graph and releases the log's exclusive lock.
func (s *Session) Close() error {
	if err := s.Save(); err != nil {
		return err
	}
	return s.l.Close()
}
