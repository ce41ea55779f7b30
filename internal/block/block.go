// Package block defines the immortal log's atomic unit: an immutable,
// content-addressed record whose identity is a cryptographic hash over
// prev_hash, sequence, timestamp and its serialized content (spec.md §3/§4.G).
package block

import (
	"crypto/sha256"
	"encoding/binary"
)

// HashSize is the width of a block hash in bytes (sha256 digest).
const HashSize = 32

// Hash is a block's content-addressed identity.
type Hash [HashSize]byte

// ZeroHash is the genesis block's prev_hash.
var ZeroHash Hash

// Block is a single immutable entry in the immortal log.
type Block struct {
	Sequence    uint64
	PrevHash    Hash
	Hash        Hash
	TimestampMS int64
	Content     Content
}

// ComputeHash computes H(prev_hash ‖ sequence_le ‖ timestamp_le ‖
// canonical(content)) as specified in spec.md §4.G. Flipping any bit in any
// field of the preimage changes the digest (spec.md §8).
func ComputeHash(prevHash Hash, sequence uint64, timestampMS int64, content Content) Hash {
	h := sha256.New()
	h.Write(prevHash[:])

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)
	h.Write(seqBuf[:])

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(timestampMS))
	h.Write(tsBuf[:])

	h.Write(Canonical(content))

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// New builds a block for the given position in the chain, computing its
// hash. It does not append the block anywhere; that is the immortal log's
// job.
func New(sequence uint64, prevHash Hash, timestampMS int64, content Content) Block {
	return Block{
		Sequence:    sequence,
		PrevHash:    prevHash,
		Hash:        ComputeHash(prevHash, sequence, timestampMS, content),
		TimestampMS: timestampMS,
		Content:     content,
	}
}

// Verify recomputes b's hash from its fields and reports whether it matches
// the stored Hash — the per-block half of integrity verification.
func (b Block) Verify() bool {
	return ComputeHash(b.PrevHash, b.Sequence, b.TimestampMS, b.Content) == b.Hash
}

// IsGenesis reports whether b is the chain's first block (sequence 0,
// prev_hash all zero).
func (b Block) IsGenesis() bool {
	return b.Sequence == 0 && b.PrevHash == ZeroHash
}
