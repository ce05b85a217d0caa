package binenc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapstream/mapstream/internal/chunk"
)

func sampleRecords() []chunk.Record {
	return []chunk.Record{
		{
			Archetype: 1234,
			Pos:       [3]float64{10.5, -200.25, 33.0},
			Rot:       [4]float32{0, 0.70710677, 0, 0.70710677},
			Scale:     [3]float32{1, 1, 1},
			Tint:      2,
			Guid:      900,
			Parent:    800,
			Subset:    77,
			Flags:     chunk.FlagHasParent | chunk.FlagInSubset,
		},
		{
			Archetype: 5,
			Pos:       [3]float64{-0.5, 0.5, 0},
			Rot:       [4]float32{0, 0, 0, 1},
			Scale:     [3]float32{2, 2, 2},
		},
	}
}

func TestInstances_RoundTrip(t *testing.T) {
	recs := sampleRecords()
	data := EncodeInstances(recs)
	assert.Equal(t, HeaderSize+len(recs)*StrideV3, len(data))
	assert.Equal(t, MagicInstances, string(data[:4]))

	back, err := DecodeInstances(data)
	require.NoError(t, err)
	require.Len(t, back, len(recs))
	for i := range recs {
		assert.Equal(t, recs[i].Archetype, back[i].Archetype)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, recs[i].Pos[j], back[i].Pos[j], 1e-5)
			assert.InDelta(t, recs[i].Scale[j], back[i].Scale[j], 1e-5)
		}
		for j := 0; j < 4; j++ {
			assert.InDelta(t, recs[i].Rot[j], back[i].Rot[j], 1e-5)
		}
		assert.Equal(t, recs[i].Tint, back[i].Tint)
		assert.Equal(t, recs[i].Guid, back[i].Guid)
		assert.Equal(t, recs[i].Parent, back[i].Parent)
		assert.Equal(t, recs[i].Subset, back[i].Subset)
		assert.Equal(t, recs[i].Flags, back[i].Flags)
	}
}

func TestPositions_RoundTrip(t *testing.T) {
	recs := sampleRecords()
	data := EncodePositions(recs)
	assert.Equal(t, HeaderSize+len(recs)*PositionStride, len(data))
	assert.Equal(t, MagicPositions, string(data[:4]))

	pos, err := DecodePositions(data)
	require.NoError(t, err)
	require.Len(t, pos, 2)
	assert.InDelta(t, 10.5, pos[0][0], 1e-5)
	assert.InDelta(t, -200.25, pos[0][1], 1e-5)
	assert.InDelta(t, 33.0, pos[0][2], 1e-5)
}

// Older revisions carry fewer trailing fields; the decoder must accept them
// by stride alone and default the rest.
func TestDecodeInstances_OlderStrides(t *testing.T) {
	for _, stride := range []int{StrideV1, StrideV2} {
		full := EncodeInstances(sampleRecords())
		data := make([]byte, 0, HeaderSize+2*stride)
		data = append(data, full[:HeaderSize]...)
		data = append(data, full[HeaderSize:HeaderSize+stride]...)
		data = append(data, full[HeaderSize+StrideV3:HeaderSize+StrideV3+stride]...)

		back, err := DecodeInstances(data)
		require.NoError(t, err, "stride %d", stride)
		require.Len(t, back, 2)
		assert.Equal(t, uint32(1234), back[0].Archetype)
		if stride >= StrideV2 {
			assert.Equal(t, uint32(2), back[0].Tint)
		} else {
			assert.Zero(t, back[0].Tint)
		}
		assert.Zero(t, back[0].Guid, "stride %d has no guid", stride)
		assert.Zero(t, back[0].Flags, "stride %d has no flags", stride)
	}
}

func TestDecodeInstances_UnknownStrideFailsLoudly(t *testing.T) {
	data := EncodeInstances(sampleRecords())

	// Truncated body: size no longer divides evenly.
	_, err := DecodeInstances(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrUnknownStride)

	// Divides evenly but matches no revision.
	odd := binary.LittleEndian.AppendUint32([]byte(MagicInstances), 2)
	odd = append(odd, make([]byte, 2*52)...)
	_, err = DecodeInstances(odd)
	assert.ErrorIs(t, err, ErrUnknownStride)

	// Zero count with a non-empty body is also suspect.
	empty := EncodeInstances(nil)
	_, err = DecodeInstances(append(empty, 1, 2, 3, 4))
	assert.ErrorIs(t, err, ErrUnknownStride)
}

func TestDecode_BadMagic(t *testing.T) {
	data := EncodePositions(sampleRecords())
	_, err := DecodeInstances(data)
	assert.ErrorContains(t, err, "bad magic")
	_, err = DecodePositions([]byte("CE"))
	assert.ErrorContains(t, err, "truncated")
}
