// Package write implements the store's single write path (spec.md §4.F):
// ingesting a new event into both the graph and the immortal log, decaying
// confidence over time, and running periodic maintenance.
package write

import (
	"math"
	"time"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/index"
	"github.com/cogmem/cogmem/internal/logindex"
	"github.com/cogmem/cogmem/internal/logstore"
	"github.com/cogmem/cogmem/internal/types"
)

// DecayConfig tunes how an event's decay score falls off with age. Decay
// follows exponential falloff: score(t) = exp(-age / HalfLife * ln(2)),
// floored at MinScore so a memory never fully vanishes from pattern queries
// (spec.md §4.F "decay").
type DecayConfig struct {
	HalfLife time.Duration
	MinScore float64
}

// DefaultDecayConfig is a one-week half-life with a 0.05 floor.
var DefaultDecayConfig = DecayConfig{HalfLife: 7 * 24 * time.Hour, MinScore: 0.05}

// Engine owns the single write path into the graph, the indexes, and the
// immortal log. It holds no lock of its own: the caller (the session
// facade) is responsible for the single-writer discipline spec.md §5
// requires.
type Engine struct {
	g      *graph.MemoryGraph
	idx    *index.Dispatcher
	log    *logstore.Log
	logIdx *logindex.Set
	embed  embedding.Provider
	decay  DecayConfig
	nowFn  func() time.Time
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithEmbeddingProvider sets the provider used to fill in a feature vector
// when Ingest is called without one.
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(e *Engine) { e.embed = p }
}

// WithDecayConfig overrides the default decay half-life and floor.
func WithDecayConfig(cfg DecayConfig) Option {
	return func(e *Engine) { e.decay = cfg }
}

// WithLogIndex wires the five log-plane indexes (spec.md §4.I) into the
// write path so every block Ingest appends is fanned into them
// incrementally, instead of only ever being picked up by a full Rebuild at
// Open.
func WithLogIndex(idx *logindex.Set) Option {
	return func(e *Engine) { e.logIdx = idx }
}

// New creates a write engine over the given graph, index dispatcher, and
// immortal log.
func New(g *graph.MemoryGraph, idx *index.Dispatcher, log *logstore.Log, opts ...Option) *Engine {
	e := &Engine{
		g: g, idx: idx, log: log,
		embed: embedding.NewNoOp(),
		decay: DefaultDecayConfig,
		nowFn: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToolCall describes a tool invocation an ingested event records, producing
// a block.Tool on the log plane instead of plain text (spec.md §4.G).
type ToolCall struct {
	Name   string
	Args   string
	Result string
}

// FileChange describes a filesystem operation an ingested event records,
// producing a block.File on the log plane instead of plain text.
type FileChange struct {
	Path    string
	Op      block.FileOp
	Content string
	HasBody bool
}

// IngestRequest is the caller-supplied half of a new event; the engine
// fills in ID, CreatedAt, DecayScore and (if absent) FeatureVec.
type IngestRequest struct {
	Type       types.EventType
	Content    string
	SessionID  types.SessionID
	Confidence float64
	FeatureVec []float32 // nil to let the embedding provider fill it in

	// Rationale is recorded alongside Content when Type is EventDecision,
	// producing a block.Decision rather than a block.Text.
	Rationale string
	// Tool, if set, overrides the block the log plane receives with a
	// block.Tool, so the Entity and Procedural indexes see the invocation
	// instead of Content's raw text.
	Tool *ToolCall
	// File, if set, overrides the block the log plane receives with a
	// block.File, so the Entity index sees the path directly.
	File *FileChange
	// Tags is attached to the synthesized block.Text when neither Tool nor
	// File is set.
	Tags []string
}

// blockContent maps an ingest request onto the log-plane content variant it
// produces (spec.md §4.G "content variants"): an explicit Tool or File
// override takes precedence, a Decision-typed event becomes a
// block.Decision, and everything else is recorded as plain block.Text.
func blockContent(req IngestRequest) block.Content {
	switch {
	case req.Tool != nil:
		return block.Tool{ToolName: req.Tool.Name, Args: req.Tool.Args, Result: req.Tool.Result}
	case req.File != nil:
		return block.File{Path: req.File.Path, Op: req.File.Op, Content: req.File.Content, HasBody: req.File.HasBody}
	case req.Type == types.EventDecision:
		return block.Decision{Decision: req.Content, Rationale: req.Rationale}
	default:
		return block.Text{Text: req.Content, Tags: req.Tags}
	}
}

// Ingest validates and inserts a new event: it assigns the event a node in
// the graph, fans it out to every graph-plane index, and appends a
// corresponding block to the immortal log so the event has a durable,
// hash-chained record independent of the graph snapshot (spec.md §3
// Ownership, §4.F "ingest").
func (e *Engine) Ingest(req IngestRequest) (types.Event, error) {
	now := e.nowFn()

	vec := req.FeatureVec
	if vec == nil && e.embed.Dimension() > 0 {
		vec = e.embed.Embed(req.Content)
	}

	ev := types.Event{
		Type:       req.Type,
		Content:    req.Content,
		SessionID:  req.SessionID,
		CreatedAt:  now.UnixMicro(),
		Confidence: req.Confidence,
		DecayScore: 1.0,
		FeatureVec: vec,
	}

	id, err := e.g.AddNode(ev)
	if err != nil {
		return types.Event{}, err
	}
	ev.ID = id
	e.idx.IndexEvent(ev)

	if e.log != nil {
		b, err := e.log.Append(blockContent(req), now.UnixMilli())
		if err != nil {
			return ev, err
		}
		if e.logIdx != nil {
			e.logIdx.Index(b)
		}
	}

	return ev, nil
}

// Link adds a typed edge between two already-ingested events.
func (e *Engine) Link(edge types.Edge) error {
	return e.g.AddEdge(edge)
}

// ApplyDecay recomputes every event's decay score from its age as of now,
// using exponential falloff floored at MinScore (spec.md §4.F "decay").
// Nodes whose recomputed score differs from the stored one are rewritten
// in place and reindexed so the pattern query's decay filter stays
// current.
func (e *Engine) ApplyDecay() (int, error) {
	now := e.nowFn()
	updated := 0
	for _, id := range e.g.AllNodeIDs() {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		score := e.decayScore(ev.CreatedAt, now)
		if score == ev.DecayScore {
			continue
		}
		ev.DecayScore = score
		if err := e.g.UpdateNode(ev); err != nil {
			return updated, err
		}
		e.idx.IndexEvent(ev)
		updated++
	}
	return updated, nil
}

func (e *Engine) decayScore(createdAtMicros int64, now time.Time) float64 {
	age := now.Sub(time.UnixMicro(createdAtMicros))
	if age <= 0 {
		return 1.0
	}
	halfLife := e.decay.HalfLife
	if halfLife <= 0 {
		return 1.0
	}
	ratio := float64(age) / float64(halfLife)
	score := math.Exp2(-ratio)
	if score < e.decay.MinScore {
		score = e.decay.MinScore
	}
	return score
}

// MaintenanceResult reports what one maintenance tick did.
type MaintenanceResult struct {
	DecayUpdated int
}

// RunMaintenanceTick runs the upkeep pass that Session.RunMaintenanceTick
// invokes (the session runs no timer of its own; the CLI's maintain
// command or a host calls it): currently just decay recomputation, structured so
// later maintenance steps (tiering sweeps, index compaction) have a
// natural home (spec.md §4.F "maintenance").
func (e *Engine) RunMaintenanceTick() (MaintenanceResult, error) {
	n, err := e.ApplyDecay()
	if err != nil {
		return MaintenanceResult{}, err
	}
	return MaintenanceResult{DecayUpdated: n}, nil
}
