package preprocess

import (
	"math/rand"
	"testing"

	"compressbench/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(c, h, w int) *models.Image {
	img := models.NewImage(c, h, w)
	for i := range img.Data {
		img.Data[i] = float64(i%97) / 96
	}
	return img
}

func TestParseDomain(t *testing.T) {
	for in, want := range map[string]Domain{
		"compressed": Compressed, "com": Compressed,
		"decompressed": Decompressed, "dec": Decompressed,
	} {
		got, err := ParseDomain(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDomain("raw")
	assert.Error(t, err)
}

func TestDecompressedPassthroughAtOriginalSize(t *testing.T) {
	c, err := New(Size{32, 32}, nil, Decompressed, nil)
	require.NoError(t, err)
	img := ramp(3, 32, 32)

	out, err := c.Apply(img)
	require.NoError(t, err)
	assert.True(t, img.Equal(out))
	assert.Equal(t, 1.0, c.RealRatio())
}

func TestDecompressedKeepsShape(t *testing.T) {
	c, err := New(Size{32, 32}, []Size{{16, 16}}, Decompressed, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	img := ramp(3, 32, 32)

	out, err := c.Apply(img)
	require.NoError(t, err)
	assert.Equal(t, img.Shape(), out.Shape())
	assert.Equal(t, 4.0, c.RealRatio())
	assert.False(t, img.Equal(out))
}

func TestCompressedReturnsCoefficients(t *testing.T) {
	c, err := New(Size{32, 32}, []Size{{8, 8}}, Compressed, nil)
	require.NoError(t, err)

	out, err := c.Apply(ramp(3, 32, 32))
	require.NoError(t, err)
	assert.Equal(t, models.Shape{C: 3, H: 8, W: 8}, out.Shape())
	assert.Equal(t, 16.0, c.RealRatio())
}

func TestRealRatioFollowsInputShape(t *testing.T) {
	// the ratio comes from the configured sizes, the achieved ratio from
	// the actual input
	c, err := New(Size{32, 32}, []Size{{16, 16}}, Compressed, nil)
	require.NoError(t, err)
	out, err := c.Apply(ramp(1, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, 32, out.Height)
	assert.Equal(t, 4.0, c.RealRatio())
}

func TestSeededChoiceIsReproducible(t *testing.T) {
	sizes := []Size{{8, 8}, {16, 16}, {32, 32}}
	run := func() []float64 {
		c, err := New(Size{32, 32}, sizes, Compressed, rand.New(rand.NewSource(42)))
		require.NoError(t, err)
		var ratios []float64
		for i := 0; i < 20; i++ {
			_, err := c.Apply(ramp(1, 32, 32))
			require.NoError(t, err)
			ratios = append(ratios, c.RealRatio())
		}
		return ratios
	}
	first := run()
	assert.Equal(t, first, run())
	for _, r := range first {
		assert.Contains(t, []float64{16, 4, 1}, r)
	}
}

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(Size{0, 32}, nil, Compressed, nil)
	assert.Error(t, err)
	_, err = New(Size{32, 32}, []Size{{0, 8}}, Compressed, nil)
	assert.Error(t, err)
	_, err = New(Size{32, 32}, nil, Domain("raw"), nil)
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	c, err := New(Size{224, 224}, nil, Decompressed, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, c.Ratio(Size{112, 112}))
	assert.InDelta(t, 224.0*224/(160*128), c.Ratio(Size{160, 128}), 1e-12)
}

func TestZeroValueFields(t *testing.T) {
	c := &RandomCompressor{OriginalSize: Size{16, 16}, NewSizes: []Size{{8, 8}}, Domain: Decompressed}
	out, err := c.Apply(ramp(1, 16, 16))
	require.NoError(t, err)
	assert.Equal(t, models.Shape{C: 1, H: 16, W: 16}, out.Shape())
	assert.Equal(t, 4.0, c.RealRatio())

	_, err = (&RandomCompressor{OriginalSize: Size{16, 16}}).Apply(ramp(1, 16, 16))
	assert.Error(t, err)
}
