package bitrate

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizeRoundTrip(t *testing.T) {
	payload := []float64{-2, -1, 0, 0.5, 2}
	levels, scale := Quantize(payload)
	assert.InDelta(t, 2.0/127, scale, 1e-15)
	assert.Equal(t, int8(127), int8(levels[4]))
	assert.Equal(t, int8(-127), int8(levels[0]))

	back := Dequantize(levels, scale)
	for i, v := range payload {
		assert.InDelta(t, v, back[i], scale/2+1e-12)
	}
}

func TestQuantizeZeroPayload(t *testing.T) {
	levels, scale := Quantize([]float64{0, 0, 0})
	assert.Equal(t, 0.0, scale)
	assert.Equal(t, []byte{0, 0, 0}, levels)
}

func TestEncodeDecodes(t *testing.T) {
	payload := []float64{0.1, -0.4, 0.9, 0.9, 0.9, 0}
	encoded, err := Encode(payload)
	require.NoError(t, err)

	scale := float64(math.Float32frombits(binary.LittleEndian.Uint32(encoded[:headerBytes])))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	levels, err := dec.DecodeAll(encoded[headerBytes:], nil)
	require.NoError(t, err)

	back := Dequantize(levels, scale)
	for i, v := range payload {
		assert.InDelta(t, v, back[i], 0.01)
	}
}

func TestEstimateGrowsWithPayload(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	small := make([]float64, 64)
	large := make([]float64, 4096)
	for i := range large {
		large[i] = rng.NormFloat64()
		if i < len(small) {
			small[i] = rng.NormFloat64()
		}
	}

	bppSmall, _, err := Estimate(small, 64*64)
	require.NoError(t, err)
	bppLarge, n, err := Estimate(large, 64*64)
	require.NoError(t, err)

	assert.Greater(t, bppLarge, bppSmall)
	assert.InDelta(t, 8*float64(n)/4096, bppLarge, 1e-12)

	_, _, err = Estimate(small, 0)
	assert.Error(t, err)
}
