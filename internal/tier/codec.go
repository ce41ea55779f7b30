package tier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names the compression scheme a tier uses.
type Codec byte

const (
	CodecNone Codec = iota
	CodecLZ4
	CodecZstd
)

// Payload format: a single codec byte followed by a 4-byte little-endian
// uncompressed length, followed by the compressed stream. An empty input
// round-trips to an empty payload; a codec byte this package doesn't
// recognize on Decompress is returned unmodified as passthrough, so a
// store can add a codec later without breaking old payloads.
func Compress(codec Codec, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var compressed bytes.Buffer
	switch codec {
	case CodecNone:
		compressed.Write(data)
	case CodecLZ4:
		w := lz4.NewWriter(&compressed)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
	case CodecZstd:
		w, err := zstd.NewWriter(&compressed)
		if err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown codec %d", codec)
	}

	out := make([]byte, 5+compressed.Len())
	out[0] = byte(codec)
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(data)))
	copy(out[5:], compressed.Bytes())
	return out, nil
}

// Decompress reverses Compress. A payload whose codec byte this version
// doesn't recognize is passed through unchanged rather than rejected, so
// forward-compatible readers degrade gracefully.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if len(payload) < 5 {
		return payload, nil
	}

	codec := Codec(payload[0])
	uncompressedLen := binary.LittleEndian.Uint32(payload[1:5])
	body := payload[5:]

	switch codec {
	case CodecNone:
		return body, nil
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(body))
		out := make([]byte, uncompressedLen)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	case CodecZstd:
		r, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		defer r.Close()
		out := make([]byte, uncompressedLen)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	default:
		return payload, nil
	}
}

// CodecForTier returns the codec a tier compresses its content with. Hot
// and Warm events are never compressed.
func CodecForTier(t Tier) Codec {
	switch t {
	case Cold:
		return CodecLZ4
	case Frozen:
		return CodecZstd
	default:
		return CodecNone
	}
}
