// Package compress implements the self-describing block format used for
// dataset blobs embedded in an index.
//
// Block layout (little-endian):
//
//	[Type uint8][UncompressedSize uint32][CompressedSize uint32][CRC32C uint32][Data...]
//
// CompressedSize == 0 means Data is stored uncompressed. The checksum covers
// the uncompressed bytes.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/revindex/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for a better ratio.
	ZSTD Type = 2
)

// HeaderSize is the size of the block header in bytes.
const HeaderSize = 13

var (
	// ErrCorrupt is returned for truncated or otherwise malformed blocks.
	ErrCorrupt = errors.New("compress: corrupt block")

	// ErrChecksum is returned when the decoded bytes do not match the stored checksum.
	ErrChecksum = errors.New("compress: checksum mismatch")
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType parses "none", "lz4" or "zstd".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode compresses data into a block. Data that does not shrink below 90%
// of its size is stored uncompressed.
func Encode(data []byte, t Type) ([]byte, error) {
	var compressed []byte
	var err error

	switch t {
	case None:
	case LZ4:
		compressed, err = encodeLZ4(data)
	case ZSTD:
		compressed, err = encodeZSTD(data)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return frame(t, data, nil), nil
	}
	return frame(t, data, compressed), nil
}

func frame(t Type, data, compressed []byte) []byte {
	payload := compressed
	if payload == nil {
		payload = data
	}
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(out[9:], hash.CRC32C(data))
	copy(out[HeaderSize:], payload)
	return out
}

func encodeLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return buf[:n], nil
}

func encodeZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// Decode verifies and decompresses a block produced by Encode.
func Decode(block []byte) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(block))
	}

	t := Type(block[0])
	size := binary.LittleEndian.Uint32(block[1:])
	csize := binary.LittleEndian.Uint32(block[5:])
	sum := binary.LittleEndian.Uint32(block[9:])
	payload := block[HeaderSize:]

	var out []byte
	if csize == 0 {
		if uint32(len(payload)) != size {
			return nil, fmt.Errorf("%w: stored size %d, have %d", ErrCorrupt, size, len(payload))
		}
		out = payload
	} else {
		if uint32(len(payload)) != csize {
			return nil, fmt.Errorf("%w: compressed size %d, have %d", ErrCorrupt, csize, len(payload))
		}
		var err error
		out, err = decompress(t, payload, size)
		if err != nil {
			return nil, err
		}
	}

	if hash.CRC32C(out) != sum {
		return nil, ErrChecksum
	}
	return out, nil
}

func decompress(t Type, payload []byte, size uint32) ([]byte, error) {
	result := make([]byte, size)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return result, nil

	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression type %d", ErrCorrupt, t)
	}
}
