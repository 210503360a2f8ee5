package ratio

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		m, n   int
		ratio  float64
		want   int
	}{
		{"rank 64x64 at 8", Factorization, 64, 64, 8, 4},
		{"frequency 224x224 at 4", Frequency, 224, 224, 4, 112},
		{"frequency unit ratio keeps all", Frequency, 224, 224, 1, 224},
		{"frequency patch 8x8 at 1", Frequency, 8, 8, 1, 8},
		{"frequency patch 8x8 at 2", Frequency, 8, 8, 2, 5},
		{"frequency patch 8x8 at 64", Frequency, 8, 8, 64, 1},
		{"frequency patch 8x8 at 100", Frequency, 8, 8, 100, 0},
		{"frequency below one is clamped", Frequency, 8, 8, 0.25, 8},
		{"rank unit ratio", Factorization, 224, 224, 1, 112},
		{"rank flattened patch matrix", Factorization, 784, 192, 4, 38},
		{"rank huge ratio", Factorization, 32, 32, 1000, 0},
		{"rank rectangular", Factorization, 32, 96, 2, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.family, tt.m, tt.n, tt.ratio)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveRejectsInvalidRatio(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN()} {
		_, err := Derive(Frequency, 8, 8, r)
		assert.True(t, errors.Is(err, ErrInvalidRatio), "ratio %v", r)
	}

	_, err := Derive(Frequency, 0, 8, 2)
	assert.Error(t, err)
}

func TestAchieved(t *testing.T) {
	assert.Equal(t, 4.0, Achieved(Frequency, 224, 224, 112))
	assert.Equal(t, 8.0, Achieved(Factorization, 64, 64, 4))
	assert.True(t, math.IsInf(Achieved(Frequency, 8, 8, 0), 1))
	assert.True(t, math.IsInf(Achieved(Factorization, 8, 8, 0), 1))
}

// TestAchievedMonotonic checks that the realised ratio never decreases as
// the requested ratio grows.
func TestAchievedMonotonic(t *testing.T) {
	shapes := [][2]int{{224, 224}, {8, 8}, {32, 48}, {784, 192}}
	for _, family := range []Family{Frequency, Factorization} {
		for _, s := range shapes {
			prev := 0.0
			for r := 1.0; r <= 40; r += 0.25 {
				param, err := Derive(family, s[0], s[1], r)
				require.NoError(t, err)
				got := Achieved(family, s[0], s[1], param)
				assert.GreaterOrEqual(t, got, prev, "%v %v ratio %v", family, s, r)
				prev = got
			}
		}
	}
}

func TestScale(t *testing.T) {
	s, err := Scale(4)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)

	_, err = Scale(0)
	assert.Error(t, err)
}
