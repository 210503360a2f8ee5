package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func randomBlock(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

func TestDCTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, dims := range [][2]int{{8, 8}, {16, 24}, {1, 5}, {7, 3}} {
		d := NewDCT(dims[0], dims[1])
		src := randomBlock(rng, dims[0]*dims[1])

		coeffs := make([]float64, len(src))
		d.Forward(coeffs, src)
		back := make([]float64, len(src))
		d.Inverse(back, coeffs)

		assert.True(t, floats.EqualApprox(src, back, 1e-12), "dims %v", dims)
	}
}

func TestDCTConstantBlock(t *testing.T) {
	d := NewDCT(4, 4)
	src := make([]float64, 16)
	for i := range src {
		src[i] = 0.5
	}
	coeffs := make([]float64, 16)
	d.Forward(coeffs, src)

	// orthonormal DC term of a constant block is n·value
	assert.InDelta(t, 2.0, coeffs[0], 1e-12)
	for _, c := range coeffs[1:] {
		assert.InDelta(t, 0, c, 1e-12)
	}
}

func TestDCTPreservesEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	d := NewDCT(12, 12)
	src := randomBlock(rng, 144)
	coeffs := make([]float64, 144)
	d.Forward(coeffs, src)

	assert.InDelta(t, floats.Dot(src, src), floats.Dot(coeffs, coeffs), 1e-9)
}

func TestTruncateAndRetained(t *testing.T) {
	d := NewDCT(3, 3)
	c := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, []float64{1, 2, 4, 5}, d.Retained(c, 2))

	d.Truncate(c, 2)
	assert.Equal(t, []float64{1, 2, 0, 4, 5, 0, 0, 0, 0}, c)

	d.Truncate(c, 0)
	assert.Equal(t, make([]float64, 9), c)
}

func TestLowRankFullRankReconstructs(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := mat.NewDense(6, 4, randomBlock(rng, 24))

	lr, err := Truncate(a, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, lr.Rank)
	assert.True(t, mat.EqualApprox(a, lr.Reconstruct(), 1e-10))
	assert.Len(t, lr.Payload(), 4*(6+4))
}

func TestLowRankRankOne(t *testing.T) {
	// outer product u·vᵀ is exactly rank one
	u := []float64{1, 2, 3}
	v := []float64{0.5, -1, 2, 0}
	a := mat.NewDense(3, 4, nil)
	for i := range u {
		for j := range v {
			a.Set(i, j, u[i]*v[j])
		}
	}

	lr, err := Truncate(a, 1)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a, lr.Reconstruct(), 1e-12))
}

func TestLowRankZero(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	lr, err := Truncate(a, 0)
	require.NoError(t, err)

	out := lr.Reconstruct()
	r, c := out.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.0, mat.Norm(out, 1))
	assert.Nil(t, lr.Payload())
}

func TestLowRankErrorDecreasesWithRank(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := mat.NewDense(10, 10, randomBlock(rng, 100))

	prev := math.Inf(1)
	for r := 0; r <= 10; r++ {
		lr, err := Truncate(a, r)
		require.NoError(t, err)
		var diff mat.Dense
		diff.Sub(a, lr.Reconstruct())
		e := mat.Norm(&diff, 2)
		assert.LessOrEqual(t, e, prev+1e-12)
		prev = e
	}
}

func BenchmarkDCTForward224(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	d := NewDCT(224, 224)
	src := randomBlock(rng, 224*224)
	dst := make([]float64, len(src))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Forward(dst, src)
	}
}
