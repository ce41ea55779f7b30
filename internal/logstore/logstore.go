// Package logstore implements the immortal log (spec.md §4.H): an
// append-only, content-addressed, hash-chained block store. It is the
// single source of truth for the engine; every other index is a derived
// view rebuildable from it (spec.md §3 Ownership).
package logstore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/cogmem/cogmem/internal/block"
	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/logging"
)

var log = logging.GetLogger("logstore")

var errTorn = cogerr.ErrTornAppend

// IntegrityReport is the result of a chain scan (spec.md §4.H).
type IntegrityReport struct {
	ChainIntact bool
	FirstBadSeq *uint64
	Total       uint64
}

// Log is the append-only, hash-chained block store backing one .imem file.
// All blocks are held in memory as well as on disk: the core's working set
// is expected to fit comfortably in RAM, and keeping an in-memory mirror is
// what lets iter/get/verify run without re-parsing the file on every call.
// The in-memory mirror is itself rebuilt from disk on Open, never trusted
// blindly.
type Log struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	lock   *flock.Flock
	blocks []block.Block
}

// Open opens an existing .imem file or creates a new one, truncating any
// torn trailing frame left by a crash mid-append (the log's only permitted
// mutation, per spec.md §4.H).
func Open(path string) (*Log, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, cogerr.Wrap(cogerr.KindIO, "acquire log lock", err)
	}
	if !locked {
		return nil, cogerr.Wrap(cogerr.KindConflict, "log already open by another process", cogerr.ErrConcurrentWriter)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, cogerr.Wrap(cogerr.KindIO, "open log file", err)
	}

	l := &Log{path: path, file: f, lock: lock}
	if err := l.load(); err != nil {
		f.Close()
		lock.Unlock()
		return nil, err
	}
	return l, nil
}

// Close releases the file and its exclusive lock.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.lock.Unlock()
	return err
}

// load reads every frame from disk into memory, truncating a torn trailing
// frame if the file ends mid-write, and refuses to drop anything else: a
// frame-shaped region that fails its checksum is mid-chain corruption, not a
// torn tail, and must surface as an error instead of being silently
// discarded along with everything after it (spec.md §7, §8).
func (l *Log) load() error {
	info, err := l.file.Stat()
	if err != nil {
		return cogerr.Wrap(cogerr.KindIO, "stat log file", err)
	}
	if info.Size() == 0 {
		if _, err := l.file.Write(writeHeader()); err != nil {
			return cogerr.Wrap(cogerr.KindIO, "write log header", err)
		}
		return nil
	}

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return cogerr.Wrap(cogerr.KindIO, "seek log file", err)
	}
	data := make([]byte, info.Size())
	if _, err := io.ReadFull(l.file, data); err != nil {
		return cogerr.Wrap(cogerr.KindIO, "read log file", err)
	}

	if !checkHeader(data) {
		return cogerr.Wrap(cogerr.KindCorrupt, "bad .imem magic/version", cogerr.ErrCorruptFile)
	}

	offset := headerSize
	var blocks []block.Block
	for offset < len(data) {
		consumed, b, status := tryReadFrame(data[offset:])
		switch status {
		case frameOK:
			blocks = append(blocks, b)
			offset += consumed
		case frameTorn:
			// Only a genuinely incomplete final frame may be truncated away.
			log.Warn("truncating torn trailing frame", "offset", offset, "file_size", len(data))
			if err := l.file.Truncate(int64(offset)); err != nil {
				return cogerr.Wrap(cogerr.KindIO, "truncate torn tail", err)
			}
			l.blocks = blocks
			return nil
		case frameCorrupt:
			badSeq := uint64(len(blocks))
			log.Error("corrupt frame detected mid-chain", "sequence", badSeq, "offset", offset)
			return cogerr.Wrap(cogerr.KindCorrupt, fmt.Sprintf("corrupt frame at sequence %d", badSeq), cogerr.ErrHashMismatch)
		}
	}

	l.blocks = blocks

	report := verifyChain(l.blocks)
	if !report.ChainIntact {
		return cogerr.Wrap(cogerr.KindCorrupt, fmt.Sprintf("broken hash chain at sequence %d", *report.FirstBadSeq), cogerr.ErrBrokenChain)
	}
	return nil
}

// frameStatus distinguishes a frame that decoded cleanly from the two ways
// it can fail: frameTorn means the file ran out of bytes before a complete
// frame boundary (legitimate only for the very last frame in the file, the
// sole mutation load() is allowed to make); frameCorrupt means a
// frame-shaped region of the expected size is present but its CRC or
// payload failed to decode, which can only mean mid-file corruption.
type frameStatus int

const (
	frameOK frameStatus = iota
	frameTorn
	frameCorrupt
)

// tryReadFrame parses one frame from the head of b. consumed is only
// meaningful when status is frameOK or frameCorrupt (the byte width of the
// frame-shaped region, so the caller can report its offset); callers must
// not advance past a frameTorn region since no complete frame was found.
func tryReadFrame(b []byte) (consumed int, blk block.Block, status frameStatus) {
	if len(b) < 4 {
		return 0, blk, frameTorn
	}
	plen := binary.LittleEndian.Uint32(b[:4])
	total := 4 + int(plen) + 4
	if total < 0 || len(b) < total {
		return 0, blk, frameTorn
	}
	payload := b[4 : 4+plen]
	wantCRC := binary.LittleEndian.Uint32(b[4+plen : total])
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return total, blk, frameCorrupt
	}
	decoded, err := decodePayload(payload)
	if err != nil {
		return total, blk, frameCorrupt
	}
	return total, decoded, frameOK
}

// Append computes the next block (sequence, prev_hash, hash) for content
// and durably appends it. Appends are serialized by the caller's writer
// lock (spec.md §5); Log's own mutex is also held for the whole append,
// file write included.
func (l *Log) Append(content block.Content, timestampMS int64) (block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var seq uint64
	prev := block.ZeroHash
	if n := len(l.blocks); n > 0 {
		seq = l.blocks[n-1].Sequence + 1
		prev = l.blocks[n-1].Hash
	}

	b := block.New(seq, prev, timestampMS, content)
	frame := encodeFrame(b)

	if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
		return block.Block{}, cogerr.Wrap(cogerr.KindIO, "seek to end of log", err)
	}
	if _, err := l.file.Write(frame); err != nil {
		return block.Block{}, cogerr.Wrap(cogerr.KindIO, "append frame", err)
	}
	if err := l.file.Sync(); err != nil {
		return block.Block{}, cogerr.Wrap(cogerr.KindIO, "fsync log append", err)
	}

	l.blocks = append(l.blocks, b)
	return b, nil
}

// Len returns the number of blocks in the log.
func (l *Log) Len() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.blocks))
}

// Get returns the block at sequence seq.
func (l *Log) Get(seq uint64) (block.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq >= uint64(len(l.blocks)) {
		return block.Block{}, cogerr.ErrBlockNotFound
	}
	return l.blocks[seq], nil
}

// Iter returns a snapshot slice of every block in sequence order. Callers
// receive a borrowed view (spec.md §3 Ownership): do not mutate in place.
func (l *Log) Iter() []block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]block.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// IterRange returns blocks with sequence in [lo, hi).
func (l *Log) IterRange(lo, hi uint64) ([]block.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := uint64(len(l.blocks))
	if lo > hi || hi > n {
		return nil, fmt.Errorf("logstore: range [%d,%d) out of bounds for length %d", lo, hi, n)
	}
	out := make([]block.Block, hi-lo)
	copy(out, l.blocks[lo:hi])
	return out, nil
}

// VerifyIntegrity scans the chain sequentially, recomputing each hash and
// checking prev_hash linkage, reporting the first broken sequence if any
// (spec.md §4.H, §8). The same scan already runs once at Open (see load),
// so a clean Open implies this returns ChainIntact; it remains exported for
// callers (the recovery path, a diagnostic CLI command) that want to
// re-verify an already-open log on demand.
func (l *Log) VerifyIntegrity() IntegrityReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return verifyChain(l.blocks)
}

// verifyChain recomputes each block's hash and checks prev_hash/sequence
// linkage, reporting the first broken sequence if any.
func verifyChain(blocks []block.Block) IntegrityReport {
	report := IntegrityReport{ChainIntact: true, Total: uint64(len(blocks))}
	prev := block.ZeroHash
	for i, b := range blocks {
		if b.Sequence != uint64(i) {
			bad := b.Sequence
			report.ChainIntact = false
			report.FirstBadSeq = &bad
			return report
		}
		if b.PrevHash != prev {
			report.ChainIntact = false
			report.FirstBadSeq = &b.Sequence
			return report
		}
		if !b.Verify() {
			report.ChainIntact = false
			report.FirstBadSeq = &b.Sequence
			return report
		}
		prev = b.Hash
	}
	return report
}
