package sketch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature() *Signature {
	k31 := NewMinHash(31, 1000, DNA, true)
	k31.AddAbundance(100, 2)
	k31.AddAbundance(50, 1)
	k21 := NewMinHash(21, 1000, DNA, false)
	k21.AddMany([]uint64{7, 9})
	return NewSignature("NC_000001.1 test genome", "genome.fa.gz", k31, k21)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, []*Signature{testSignature()}, compress))
		if compress {
			assert.Equal(t, []byte{0x1f, 0x8b}, buf.Bytes()[:2])
		}

		sigs, err := Load(&buf)
		require.NoError(t, err)
		require.Len(t, sigs, 1)

		sig := sigs[0]
		assert.Equal(t, "NC_000001.1 test genome", sig.Name)
		require.Len(t, sig.Sketches, 2)

		mh := sig.Sketches[0]
		assert.Equal(t, uint32(31), mh.Ksize())
		assert.Equal(t, uint32(1000), mh.Scaled())
		assert.Equal(t, DNA, mh.Moltype())
		assert.True(t, mh.TrackAbundance())
		assert.Equal(t, []uint64{50, 100}, mh.Hashes())
		assert.Equal(t, []uint64{1, 2}, mh.Abundances())
		assert.Equal(t, testSignature().Sketches[0].MD5(), mh.MD5())

		assert.False(t, sig.Sketches[1].TrackAbundance())
	}
}

func TestParseSingleObjectAndUnsortedMins(t *testing.T) {
	data := `{"class":"sourmash_signature","filename":"x.fa","signatures":[
		{"num":0,"ksize":31,"seed":42,"max_hash":1844674407370955,"mins":[30,10,20,10],"molecule":"dna"}
	],"version":0.4}`

	sigs, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	mh := sigs[0].MinHash()
	assert.Equal(t, []uint64{10, 20, 30}, mh.Hashes())
	assert.Equal(t, uint32(10000), mh.Scaled())
	assert.Equal(t, DNA, mh.Moltype())
	assert.Equal(t, "x.fa", sigs[0].DisplayName())
}

func TestParseRejectsNumSketches(t *testing.T) {
	_, err := Parse([]byte(`[{"signatures":[{"num":500,"ksize":31,"mins":[1]}]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num sketches")
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "[", `[{"class":"other"}]`} {
		_, err := Load(strings.NewReader(in))
		require.Error(t, err, "input %q", in)
	}
}

func TestSelect(t *testing.T) {
	sig := testSignature()

	sel, err := sig.Select(Selection{Ksize: 31, Scaled: 10000})
	require.NoError(t, err)
	require.Len(t, sel.Sketches, 1)
	assert.Equal(t, uint32(10000), sel.MinHash().Scaled())
	assert.Equal(t, uint32(1000), sig.Sketches[0].Scaled(), "source is untouched")

	none, err := sig.Select(Selection{Ksize: 51})
	require.NoError(t, err)
	assert.Nil(t, none.MinHash())

	finer, err := sig.Select(Selection{Ksize: 31, Scaled: 100})
	require.NoError(t, err)
	assert.Empty(t, finer.Sketches)
}

func TestSelectionCheckQuery(t *testing.T) {
	idx := Selection{Ksize: 31, Scaled: 10000, Moltype: DNA}

	require.NoError(t, idx.CheckQuery(Selection{Ksize: 31, Scaled: 10000, Moltype: DNA}))
	require.NoError(t, idx.CheckQuery(Selection{Ksize: 31, Scaled: 20000}))
	require.NoError(t, idx.CheckQuery(Selection{}))

	for _, q := range []Selection{
		{Ksize: 21, Scaled: 10000},
		{Ksize: 31, Scaled: 1000},
		{Ksize: 31, Moltype: Protein},
	} {
		require.ErrorIs(t, idx.CheckQuery(q), ErrIncompatible, "%s", q)
	}
}
