package patch

import (
	"math/rand"
	"testing"

	"compressbench/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(rng *rand.Rand, c, h, w int) *models.Image {
	img := models.NewImage(c, h, w)
	for i := range img.Data {
		img.Data[i] = rng.Float64()
	}
	return img
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		c, h, w int
		size    Size
	}{
		{1, 8, 8, Square(8)},
		{3, 32, 32, Square(8)},
		{3, 16, 24, Square(4)},
		{2, 12, 20, Size{H: 3, W: 5}},
		{1, 5, 7, Square(1)},
	}

	for _, tc := range cases {
		img := randomImage(rng, tc.c, tc.h, tc.w)
		orig := img.Clone()

		g, err := ToPatches(img, tc.size)
		require.NoError(t, err)
		assert.Equal(t, (tc.h/tc.size.H)*(tc.w/tc.size.W), g.NumPatches())

		back, err := FromPatches(g, img.Shape())
		require.NoError(t, err)
		assert.True(t, back.Equal(orig), "round trip for %v with patch %v", img.Shape(), tc.size)
		assert.True(t, img.Equal(orig), "input was modified")
	}
}

func TestPatchOrderIsRowMajor(t *testing.T) {
	img := models.NewImage(1, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(0, y, x, float64(y*4+x))
		}
	}

	g, err := ToPatches(img, Square(2))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 4, 5}, g.Patch(0, 0))
	assert.Equal(t, []float64{2, 3, 6, 7}, g.Patch(0, 1))
	assert.Equal(t, []float64{8, 9, 12, 13}, g.Patch(0, 2))
	assert.Equal(t, []float64{10, 11, 14, 15}, g.Patch(0, 3))
}

func TestIndivisibleShape(t *testing.T) {
	img := models.NewImage(3, 10, 16)
	_, err := ToPatches(img, Square(8))
	assert.True(t, errors.Is(err, ErrIndivisible))

	_, err = ToPatches(img, Size{H: 0, W: 2})
	assert.Error(t, err)
}

func TestFlattenRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	img := randomImage(rng, 3, 16, 8)

	g, err := ToPatches(img, Square(4))
	require.NoError(t, err)

	m := Flatten(g)
	rows, cols := m.Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 3*16, cols)

	// channel 1 of patch 2 starts right after channel 0's 16 values
	assert.Equal(t, g.Patch(1, 2)[0], m.At(2, 16))

	back, err := Unflatten(m, g)
	require.NoError(t, err)
	assert.Equal(t, g.Data, back.Data)

	_, err = Unflatten(m.Slice(0, 4, 0, cols), g)
	assert.Error(t, err)
}
