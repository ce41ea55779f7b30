// Package recovery coordinates crash recovery between the two on-disk
// artifacts the engine owns (spec.md §4.H, §9): the .amem graph snapshot and
// the .imem immortal log. The log is the source of truth; the snapshot is a
// cache of it. A RecoveryMarker records how far the snapshot has caught up
// to the log, so Open can tell a clean shutdown (marker == log length) from
// a crash mid-tick (marker behind the log, requiring replay) from a missing
// or corrupt snapshot (requiring a full rebuild).
package recovery

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/format"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/logging"
	"github.com/cogmem/cogmem/internal/logstore"
)

var log = logging.GetLogger("recovery")

const markerMagic = "COGMRKR1"

// RecoveryMarker records the log sequence number the graph snapshot was
// last saved at. It is written atomically alongside the snapshot every
// time the snapshot is written, never independently.
type RecoveryMarker struct {
	// LastSequence is the number of log blocks reflected in the snapshot.
	// A graph written after replaying blocks [0, N) records LastSequence=N.
	LastSequence uint64
}

func markerPath(graphPath string) string {
	return graphPath + ".marker"
}

// WriteMarker atomically persists m alongside the graph file at graphPath.
func WriteMarker(graphPath string, m RecoveryMarker) error {
	var buf [len(markerMagic) + 8]byte
	copy(buf[:len(markerMagic)], markerMagic)
	binary.LittleEndian.PutUint64(buf[len(markerMagic):], m.LastSequence)
	return atomicWrite(markerPath(graphPath), buf[:])
}

// ReadMarker reads the marker beside graphPath. A missing marker is treated
// as LastSequence 0 (a snapshot with no recorded provenance is trusted for
// nothing and must be replayed in full).
func ReadMarker(graphPath string) (RecoveryMarker, error) {
	data, err := os.ReadFile(markerPath(graphPath))
	if os.IsNotExist(err) {
		return RecoveryMarker{}, nil
	}
	if err != nil {
		return RecoveryMarker{}, cogerr.Wrap(cogerr.KindIO, "read recovery marker", err)
	}
	if len(data) != len(markerMagic)+8 || string(data[:len(markerMagic)]) != markerMagic {
		return RecoveryMarker{}, cogerr.Wrap(cogerr.KindCorrupt, "bad recovery marker", cogerr.ErrCorruptFile)
	}
	return RecoveryMarker{LastSequence: binary.LittleEndian.Uint64(data[len(markerMagic):])}, nil
}

// Outcome reports what Recover had to do to bring the graph up to date with
// the log, for callers that want to log or surface it.
type Outcome struct {
	// SnapshotUsable is false when the on-disk .amem was missing or failed
	// to decode and an empty graph was used as the replay base instead.
	SnapshotUsable bool
	// Replayed is the number of log blocks applied on top of the snapshot
	// (or the empty base) to catch the graph up to the log's tail.
	Replayed uint64
}

// Recover opens the log at logPath (which truncates its own torn tail, per
// logstore.Open) and reconciles the graph at graphPath against it: if the
// snapshot decodes and its marker's LastSequence doesn't exceed the log
// length, the blocks between the marker and the log's tail are replayed as
// new nodes into the loaded graph. If the snapshot is missing, corrupt, or
// its marker claims more blocks than the log actually holds (the snapshot
// outran a log that was since truncated for a torn tail — spec.md §9's
// "snapshot ahead of log" edge case), the graph is rebuilt from scratch by
// replaying every block in the log.
func Recover(graphPath, logPath string, dim int, apply func(g *graph.MemoryGraph, b block.Block) error) (*graph.MemoryGraph, *logstore.Log, Outcome, error) {
	l, err := logstore.Open(logPath)
	if err != nil {
		return nil, nil, Outcome{}, err
	}

	g, marker, usable := loadSnapshot(graphPath, dim)
	logLen := l.Len()

	if !usable || marker.LastSequence > logLen {
		if !usable {
			log.Warn("graph snapshot unusable, rebuilding from log", "path", graphPath)
		} else {
			log.Warn("snapshot ahead of truncated log, rebuilding from log",
				"marker_sequence", marker.LastSequence, "log_length", logLen)
		}
		g = graph.New(dim)
		marker = RecoveryMarker{}
		usable = false
	}

	blocks, err := l.IterRange(marker.LastSequence, logLen)
	if err != nil {
		return nil, nil, Outcome{}, err
	}
	for _, b := range blocks {
		if err := apply(g, b); err != nil {
			return nil, nil, Outcome{}, cogerr.Wrap(cogerr.KindCorrupt, "replaying log block into graph", err)
		}
	}

	return g, l, Outcome{SnapshotUsable: usable, Replayed: uint64(len(blocks))}, nil
}

func loadSnapshot(graphPath string, dim int) (*graph.MemoryGraph, RecoveryMarker, bool) {
	if _, err := os.Stat(graphPath); os.IsNotExist(err) {
		return graph.New(dim), RecoveryMarker{}, false
	}
	g, err := format.Read(graphPath)
	if err != nil {
		log.Warn("graph snapshot failed to decode", "path", graphPath, "error", err)
		return graph.New(dim), RecoveryMarker{}, false
	}
	marker, err := ReadMarker(graphPath)
	if err != nil {
		log.Warn("recovery marker failed to decode", "path", graphPath, "error", err)
		return graph.New(dim), RecoveryMarker{}, false
	}
	return g, marker, true
}

// atomicWrite writes data to a temp file beside path and renames it into
// place, the same pattern internal/format uses for the graph snapshot
// itself: a crash mid-write must never leave a torn marker on disk.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cogerr.Wrap(cogerr.KindIO, "create marker directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return cogerr.Wrap(cogerr.KindIO, "create temp marker file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "write temp marker file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "fsync temp marker file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "close temp marker file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "rename marker file into place", err)
	}
	return nil
}
