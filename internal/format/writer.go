package format

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/types"
)

// Write serializes g to path, laying out header, node table, edge table,
// feature-vector table (omitted when dimension is 0) and string pool in
// that order, computing every offset before writing any table, and writing
// the trailing CRC-32 last. The file is written to a temp path and renamed
// into place so a crash mid-write never leaves path holding a partial file
// (spec.md §4.B, §8 "writer atomicity").
func Write(path string, g *graph.MemoryGraph) error {
	nodes, edges := g.Snapshot()
	dim := g.Dimension()

	nodeOff := uint64(HeaderSize)
	edgeOff := nodeOff + uint64(len(nodes))*nodeRecordSize
	vecOff := edgeOff + uint64(len(edges))*edgeRecordSize
	var stringsOff uint64
	if dim > 0 {
		stringsOff = vecOff + uint64(len(nodes))*uint64(dim)*4
	} else {
		stringsOff = vecOff
	}

	header := Header{
		Version:    CurrentVersion,
		Dimension:  uint32(dim),
		NodeCount:  uint64(len(nodes)),
		EdgeCount:  uint64(len(edges)),
		NodeOff:    nodeOff,
		EdgeOff:    edgeOff,
		VecOff:     vecOff,
		StringsOff: stringsOff,
	}
	if dim > 0 {
		header.Flags |= FlagHasVectors
	}

	var body []byte
	body = append(body, header.encode()...)

	// String pool is built alongside the node table so offsets are known
	// without a second pass.
	var pool []byte
	nodeTable := make([]byte, 0, len(nodes)*nodeRecordSize)
	for _, ev := range nodes {
		contentOff := uint32(len(pool))
		contentLen := uint32(len(ev.Content))
		pool = append(pool, ev.Content...)
		nodeTable = append(nodeTable, encodeNodeRecord(ev, contentOff, contentLen)...)
	}
	body = append(body, nodeTable...)

	edgeTable := make([]byte, 0, len(edges)*edgeRecordSize)
	for _, e := range edges {
		edgeTable = append(edgeTable, encodeEdgeRecord(e)...)
	}
	body = append(body, edgeTable...)

	if dim > 0 {
		vecTable := make([]byte, len(nodes)*dim*4)
		for i, ev := range nodes {
			if ev.FeatureVec == nil {
				continue
			}
			base := i * dim * 4
			for j, f := range ev.FeatureVec {
				binary.LittleEndian.PutUint32(vecTable[base+j*4:], math.Float32bits(f))
			}
		}
		body = append(body, vecTable...)
	}

	body = append(body, pool...)

	checksum := crc32.ChecksumIEEE(body)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], checksum)
	body = append(body, crcBuf[:]...)

	return atomicWrite(path, body)
}

func encodeNodeRecord(ev types.Event, contentOff, contentLen uint32) []byte {
	buf := make([]byte, nodeRecordSize)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], uint64(ev.ID))
	off += 8
	buf[off] = byte(ev.Type)
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(ev.SessionID))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(ev.CreatedAt))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(ev.Confidence))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(ev.DecayScore))
	off += 8
	if ev.FeatureVec != nil {
		buf[off] = 1
	}
	off++
	binary.LittleEndian.PutUint32(buf[off:], contentOff)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], contentLen)
	return buf
}

func encodeEdgeRecord(e types.Edge) []byte {
	buf := make([]byte, edgeRecordSize)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], uint64(e.Source))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(e.Target))
	off += 8
	buf[off] = byte(e.Type)
	off++
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(e.Weight))
	return buf
}

// atomicWrite writes data to a temp file in the same directory as path,
// fsyncs it, and renames it into place — a partial write is never
// observable at path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cogerr.Wrap(cogerr.KindIO, "create graph file directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return cogerr.Wrap(cogerr.KindIO, "create temp graph file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "write temp graph file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "fsync temp graph file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "close temp graph file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cogerr.Wrap(cogerr.KindIO, "rename graph file into place", err)
	}
	return nil
}
