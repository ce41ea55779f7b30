package logstore

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cogmem/cogmem/internal/block"
)

// Magic and version identify the .imem file per spec.md §6.
var (
	magic      = [4]byte{'I', 'M', 'R', 'T'}
	versionStr = [16]byte{'3', '.', '0', '.', '0'} // null-padded
)

// headerSize is magic(4) + version(16).
const headerSize = 4 + 16

func writeHeader() []byte {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, magic[:]...)
	buf = append(buf, versionStr[:]...)
	return buf
}

func checkHeader(b []byte) bool {
	if len(b) < headerSize {
		return false
	}
	return b[0] == magic[0] && b[1] == magic[1] && b[2] == magic[2] && b[3] == magic[3] &&
		string(b[4:headerSize]) == string(versionStr[:])
}

// encodeFrame lays out a block as: 4-byte length, payload (sequence,
// prev_hash[32], hash[32], timestamp_ms, content tag+body), 4-byte CRC of
// payload (spec.md §6).
func encodeFrame(b block.Block) []byte {
	payload := encodePayload(b)

	frame := make([]byte, 0, 4+len(payload)+4)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, payload...)

	crc := crc32.ChecksumIEEE(payload)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	frame = append(frame, crcBuf[:]...)
	return frame
}

func encodePayload(b block.Block) []byte {
	buf := make([]byte, 0, 8+block.HashSize*2+8+32)
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], b.Sequence)
	buf = append(buf, seqBuf[:]...)
	buf = append(buf, b.PrevHash[:]...)
	buf = append(buf, b.Hash[:]...)
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(b.TimestampMS))
	buf = append(buf, tsBuf[:]...)
	buf = append(buf, block.Canonical(b.Content)...)
	return buf
}

// decodePayload parses a payload (without its length prefix or trailing
// CRC) back into a Block.
func decodePayload(payload []byte) (block.Block, error) {
	var b block.Block
	if len(payload) < 8+block.HashSize*2+8 {
		return b, errTorn
	}
	b.Sequence = binary.LittleEndian.Uint64(payload[0:8])
	off := 8
	copy(b.PrevHash[:], payload[off:off+block.HashSize])
	off += block.HashSize
	copy(b.Hash[:], payload[off:off+block.HashSize])
	off += block.HashSize
	b.TimestampMS = int64(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8
	content, err := block.Decode(payload[off:])
	if err != nil {
		return b, err
	}
	b.Content = content
	return b, nil
}
