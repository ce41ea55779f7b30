// Package format implements the binary .amem graph file (spec.md §4.B,
// §6): header, node table, edge table, feature-vector table, string pool,
// trailing CRC-32. It provides a streaming reader/writer pair that fully
// materializes a graph.MemoryGraph and a memory-mapped reader that exposes
// the same tables as contiguous slices without copying.
package format

import (
	"encoding/binary"
	"fmt"
)

var magic = [4]byte{'A', 'M', 'E', 'M'}

const (
	// CurrentVersion is the only version this package writes. Readers
	// accept only this version; anything else is Corrupt.
	CurrentVersion uint16 = 1
	endianMarker   uint16 = 0x0001

	// FlagHasVectors is set in the header when the feature-vector table
	// is present (dimension > 0).
	FlagHasVectors uint32 = 1 << 0
)

// HeaderSize is the fixed byte width of the header, per spec.md §6:
// magic(4) + version(2) + endian(2) + flags(4) + dimension(4) +
// node_count(8) + edge_count(8) + node_off(8) + edge_off(8) + vec_off(8) +
// strings_off(8).
const HeaderSize = 4 + 2 + 2 + 4 + 4 + 8 + 8 + 8 + 8 + 8 + 8

// Header is the .amem file header.
type Header struct {
	Version    uint16
	Flags      uint32
	Dimension  uint32
	NodeCount  uint64
	EdgeCount  uint64
	NodeOff    uint64
	EdgeOff    uint64
	VecOff     uint64
	StringsOff uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	off := 0
	copy(buf[off:], magic[:])
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], h.Version)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], endianMarker)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], h.Flags)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Dimension)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.NodeCount)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.EdgeCount)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.NodeOff)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.EdgeOff)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.VecOff)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.StringsOff)
	return buf
}

// decodeHeader validates magic, version and endian marker and parses the
// rest of the header.
func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("format: header truncated")
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] || buf[3] != magic[3] {
		return h, fmt.Errorf("format: bad magic")
	}
	off := 4
	h.Version = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	endian := binary.LittleEndian.Uint16(buf[off:])
	off += 2
	if endian != endianMarker {
		return h, fmt.Errorf("format: unsupported endian marker %#x", endian)
	}
	if h.Version != CurrentVersion {
		return h, fmt.Errorf("format: unsupported version %d", h.Version)
	}
	h.Flags = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.Dimension = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.NodeCount = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.EdgeCount = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.NodeOff = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.EdgeOff = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.VecOff = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.StringsOff = binary.LittleEndian.Uint64(buf[off:])
	return h, nil
}

// nodeRecordSize is the fixed width of one node-table row: id(8) +
// event_type(1) + session_id(4) + created_at(8) + confidence(8) +
// decay_score(8) + has_vector(1) + content_offset(4) + content_len(4).
const nodeRecordSize = 8 + 1 + 4 + 8 + 8 + 8 + 1 + 4 + 4

// edgeRecordSize is the fixed width of one edge-table row: source(8) +
// target(8) + edge_type(1) + weight(8).
const edgeRecordSize = 8 + 8 + 1 + 8
