package format

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/cogmem/cogmem/internal/cogerr"
	"github.com/cogmem/cogmem/internal/types"
)

// MappedGraph exposes a .amem file's node and edge tables as contiguous,
// memory-mapped regions, decoding a record only when asked for it rather
// than materializing every node and edge up front (spec.md §4.B). It is
// read-only; the writer never mutates a file a MappedGraph has open (it
// writes a temp file and renames it into place), so an open mapping keeps
// showing the snapshot it was opened on (spec.md §5).
type MappedGraph struct {
	file   *os.File
	region mmap.MMap
	header Header
}

// OpenMapped validates the header and checksum exactly like Read, then
// keeps the file memory-mapped instead of copying it into Go-managed
// structures.
func OpenMapped(path string) (*MappedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.KindIO, "open graph file for mmap", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cogerr.Wrap(cogerr.KindIO, "stat graph file", err)
	}
	if info.Size() < HeaderSize+4 {
		f.Close()
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "file too small for header+checksum", cogerr.ErrCorruptFile)
	}

	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, cogerr.Wrap(cogerr.KindIO, "mmap graph file", err)
	}

	body := region[:len(region)-4]
	wantCRC := binary.LittleEndian.Uint32(region[len(region)-4:])
	if crc32.ChecksumIEEE(body) != wantCRC {
		region.Unmap()
		f.Close()
		return nil, cogerr.Wrap(cogerr.KindCorrupt, "checksum mismatch", cogerr.ErrCorruptFile)
	}

	h, err := decodeHeader(region)
	if err != nil {
		region.Unmap()
		f.Close()
		return nil, cogerr.Wrap(cogerr.KindCorrupt, err.Error(), cogerr.ErrCorruptFile)
	}

	mg := &MappedGraph{file: f, region: region, header: h}
	if err := mg.validateOffsets(); err != nil {
		mg.Close()
		return nil, cogerr.Wrap(cogerr.KindCorrupt, err.Error(), cogerr.ErrCorruptFile)
	}
	return mg, nil
}

func (mg *MappedGraph) validateOffsets() error {
	h := mg.header
	dim := int(h.Dimension)
	fileLen := uint64(len(mg.region)) - 4
	nodeTableEnd := h.NodeOff + h.NodeCount*nodeRecordSize
	edgeTableEnd := h.EdgeOff + h.EdgeCount*edgeRecordSize
	var vecTableEnd uint64
	if dim > 0 {
		vecTableEnd = h.VecOff + h.NodeCount*uint64(dim)*4
	} else {
		vecTableEnd = h.VecOff
	}
	if nodeTableEnd > fileLen || edgeTableEnd > fileLen || vecTableEnd > fileLen || h.StringsOff > fileLen {
		return fmt.Errorf("table offset outside file")
	}
	return nil
}

// Close unmaps the region and closes the underlying file.
func (mg *MappedGraph) Close() error {
	if err := mg.region.Unmap(); err != nil {
		mg.file.Close()
		return cogerr.Wrap(cogerr.KindIO, "unmap graph file", err)
	}
	return mg.file.Close()
}

// NodeCount and EdgeCount report the table sizes from the header without
// touching the tables themselves.
func (mg *MappedGraph) NodeCount() uint64 { return mg.header.NodeCount }
func (mg *MappedGraph) EdgeCount() uint64 { return mg.header.EdgeCount }
func (mg *MappedGraph) Dimension() int    { return int(mg.header.Dimension) }

// NodeAt decodes the i-th node record directly out of the mapped region.
func (mg *MappedGraph) NodeAt(i uint64) (types.Event, error) {
	if i >= mg.header.NodeCount {
		return types.Event{}, cogerr.ErrNodeNotFound
	}
	h := mg.header
	rec := mg.region[h.NodeOff+i*nodeRecordSize : h.NodeOff+(i+1)*nodeRecordSize]
	pool := mg.region[h.StringsOff : len(mg.region)-4]
	ev, err := decodeNodeRecord(rec, pool, int(h.Dimension))
	if err != nil {
		return ev, err
	}
	if ev.FeatureVec != nil {
		dim := int(h.Dimension)
		vecBytes := mg.region[h.VecOff+i*uint64(dim)*4 : h.VecOff+(i+1)*uint64(dim)*4]
		ev.FeatureVec = decodeVector(vecBytes, dim)
	}
	return ev, nil
}

// EdgeAt decodes the i-th edge record directly out of the mapped region.
func (mg *MappedGraph) EdgeAt(i uint64) (types.Edge, error) {
	if i >= mg.header.EdgeCount {
		return types.Edge{}, cogerr.ErrEdgeNotFound
	}
	h := mg.header
	rec := mg.region[h.EdgeOff+i*edgeRecordSize : h.EdgeOff+(i+1)*edgeRecordSize]
	return decodeEdgeRecord(rec), nil
}
