package format

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/graph"
	"github.com/cogmem/cogmem/internal/types"
)

// Read streams a .amem file from disk, validating every field as it goes,
// and materializes a graph.MemoryGraph via graph.FromParts (spec.md §4.B).
// Any structural inconsistency — bad magic/version, checksum mismatch,
// offsets outside the file, a wrong-length feature vector — is reported as
// a Corrupt error.
func Read(path string) (*graph.MemoryGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.KindIO, "read graph file", err)
	}
	return decode(data)
}

func decode(data []byte) (*graph.MemoryGraph, error) {
	if len(data) < HeaderSize+4 {
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "file too small for header+checksum", cogerr.ErrCorruptFile)
	}

	body := data[:len(data)-4]
	wantCRC := binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != wantCRC {
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "checksum mismatch", cogerr.ErrCorruptFile)
	}

	h, err := decodeHeader(data)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.KindCorrupt, err.Error(), cogerr.ErrCorruptFile)
	}

	dim := int(h.Dimension)
	nodeTableEnd := h.NodeOff + h.NodeCount*nodeRecordSize
	edgeTableEnd := h.EdgeOff + h.EdgeCount*edgeRecordSize
	var vecTableEnd uint64
	if dim > 0 {
		vecTableEnd = h.VecOff + h.NodeCount*uint64(dim)*4
	} else {
		vecTableEnd = h.VecOff
	}
	fileLen := uint64(len(body))
	if h.NodeOff > fileLen || nodeTableEnd > fileLen ||
		h.EdgeOff > fileLen || edgeTableEnd > fileLen ||
		h.VecOff > fileLen || vecTableEnd > fileLen ||
		h.StringsOff > fileLen {
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "table offset outside file", cogerr.ErrCorruptFile)
	}

	pool := body[h.StringsOff:]

	nodes := make([]types.Event, h.NodeCount)
	for i := uint64(0); i < h.NodeCount; i++ {
		rec := body[h.NodeOff+i*nodeRecordSize : h.NodeOff+(i+1)*nodeRecordSize]
		ev, err := decodeNodeRecord(rec, pool, dim)
		if err != nil {
			return nil, cogerr.Wrap(cogerr.KindCorrupt, fmt.Sprintf("node record %d", i), err)
		}
		if dim > 0 && ev.FeatureVec != nil {
			vecBytes := body[h.VecOff+i*uint64(dim)*4 : h.VecOff+(i+1)*uint64(dim)*4]
			ev.FeatureVec = decodeVector(vecBytes, dim)
		}
		nodes[i] = ev
	}

	edges := make([]types.Edge, h.EdgeCount)
	for i := uint64(0); i < h.EdgeCount; i++ {
		rec := body[h.EdgeOff+i*edgeRecordSize : h.EdgeOff+(i+1)*edgeRecordSize]
		edges[i] = decodeEdgeRecord(rec)
	}

	g, err := graph.FromParts(nodes, edges, dim)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "rebuilding graph from parts", err)
	}
	return g, nil
}

func decodeNodeRecord(rec []byte, pool []byte, dim int) (types.Event, error) {
	var ev types.Event
	if len(rec) != nodeRecordSize {
		return ev, fmt.Errorf("truncated node record")
	}
	off := 0
	ev.ID = types.NodeID(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	ev.Type = types.EventType(rec[off])
	off++
	ev.SessionID = types.SessionID(binary.LittleEndian.Uint32(rec[off:]))
	off += 4
	ev.CreatedAt = int64(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	ev.Confidence = math.Float64frombits(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	ev.DecayScore = math.Float64frombits(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	hasVector := rec[off] != 0
	off++
	contentOff := binary.LittleEndian.Uint32(rec[off:])
	off += 4
	contentLen := binary.LittleEndian.Uint32(rec[off:])

	if uint64(contentOff)+uint64(contentLen) > uint64(len(pool)) {
		return ev, fmt.Errorf("content range outside string pool")
	}
	ev.Content = string(pool[contentOff : contentOff+contentLen])

	if hasVector {
		if dim == 0 {
			return ev, fmt.Errorf("node marked has_vector but store dimension is 0")
		}
		ev.FeatureVec = make([]float32, dim) // filled by caller from the vec table
	}
	return ev, nil
}

func decodeVector(b []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func decodeEdgeRecord(rec []byte) types.Edge {
	off := 0
	source := types.NodeID(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	target := types.NodeID(binary.LittleEndian.Uint64(rec[off:]))
	off += 8
	edgeType := types.EdgeType(rec[off])
	off++
	weight := math.Float64frombits(binary.LittleEndian.Uint64(rec[off:]))
	return types.Edge{Source: source, Target: target, Type: edgeType, Weight: weight}
}
