// Package ratio maps a requested compression ratio to the integer codec
// parameter of a transform family, and back to the ratio actually achieved.
package ratio

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidRatio is returned for ratios that are not strictly positive
var ErrInvalidRatio = errors.New("compression ratio must be positive")

// Family selects how retained elements are counted
type Family int

const (
	// Frequency keeps a top-left R×R block of transform coefficients
	Frequency Family = iota

	// Factorization keeps R singular components of an M×N matrix,
	// which costs R·(M+N) stored numbers
	Factorization
)

func (f Family) String() string {
	switch f {
	case Frequency:
		return "frequency"
	case Factorization:
		return "factorization"
	default:
		return "unknown"
	}
}

// floorTolerance keeps exact integer quotients from flooring one step low
// because of binary representation error.
const floorTolerance = 1e-9

// Validate returns ErrInvalidRatio unless r is a finite or infinite positive number
func Validate(r float64) error {
	if math.IsNaN(r) || r <= 0 {
		return errors.Wrapf(ErrInvalidRatio, "got %v", r)
	}
	return nil
}

// Derive returns the retained parameter R for an m×n transform at the
// requested ratio.
//
// For Frequency, R = floor(sqrt(m·n / ratio)).
// For Factorization, R = floor(m·n / (ratio·(m+n))).
//
// R is clamped to [0, min(m, n)]. R == 0 is a valid outcome.
func Derive(family Family, m, n int, r float64) (int, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	if m <= 0 || n <= 0 {
		return 0, errors.Errorf("invalid transform shape %dx%d", m, n)
	}

	var raw float64
	switch family {
	case Frequency:
		raw = math.Sqrt(float64(m) * float64(n) / r)
	case Factorization:
		raw = float64(m) * float64(n) / (r * float64(m+n))
	default:
		return 0, errors.Errorf("unknown transform family %d", family)
	}

	param := int(math.Floor(raw + floorTolerance))
	return clamp(param, 0, min(m, n)), nil
}

// Achieved returns the compression ratio realised by parameter R on an m×n
// transform. R == 0 retains nothing and yields +Inf.
func Achieved(family Family, m, n, r int) float64 {
	if r <= 0 {
		return math.Inf(1)
	}
	total := float64(m) * float64(n)
	switch family {
	case Frequency:
		return total / float64(r*r)
	case Factorization:
		return total / (float64(r) * float64(m+n))
	default:
		return math.NaN()
	}
}

// Scale returns the per-dimension scale factor ratio^-0.5 used by the
// spatial rescale baseline.
func Scale(r float64) (float64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	return math.Pow(r, -0.5), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
