package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("ACGTACGTTTGA"), 512)
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i*131 + 7)
	}

	for _, typ := range []Type{None, LZ4, ZSTD} {
		for name, data := range map[string][]byte{
			"compressible": compressible,
			"short":        random,
			"empty":        {},
		} {
			t.Run(typ.String()+"/"+name, func(t *testing.T) {
				block, err := Encode(data, typ)
				require.NoError(t, err)

				got, err := Decode(block)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				assert.True(t, bytes.Equal(data, got))
			})
		}
	}
}

func TestEncodeShrinksCompressibleData(t *testing.T) {
	data := bytes.Repeat([]byte("ACGT"), 4096)
	for _, typ := range []Type{LZ4, ZSTD} {
		block, err := Encode(data, typ)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data)/2, typ.String())
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	data := bytes.Repeat([]byte("GATTACA"), 100)

	block, err := Encode(data, ZSTD)
	require.NoError(t, err)

	_, err = Decode(block[:HeaderSize-1])
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(block[:len(block)-1])
	require.ErrorIs(t, err, ErrCorrupt)

	raw, err := Encode(data, None)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = Decode(raw)
	require.ErrorIs(t, err, ErrChecksum)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": None, "none": None, "LZ4": LZ4, " zstd ": ZSTD} {
		got, err := ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("brotli")
	require.Error(t, err)
}
