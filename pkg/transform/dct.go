package transform

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// DCT is a separable, orthonormal 2D type-II discrete cosine transform for
// rows×cols blocks stored in row-major order.
//
// The 1D transform is expressed as a basis matrix B with
//
//	B[k][j] = s(k) · cos(π·k·(2j+1) / 2n),  s(0) = sqrt(1/n), s(k>0) = sqrt(2/n)
//
// so the forward 2D transform is Br·X·Bcᵀ and the inverse is Brᵀ·Y·Bc.
// B is orthogonal, which makes Inverse(Forward(x)) == x up to rounding.
type DCT struct {
	rows, cols int
	br, bc     *mat.Dense
}

var (
	basisMu    sync.Mutex
	basisCache = map[int]*mat.Dense{}
)

// NewDCT returns a transform for rows×cols blocks. Basis matrices are shared
// between transforms of the same size and must not be modified.
func NewDCT(rows, cols int) *DCT {
	return &DCT{
		rows: rows,
		cols: cols,
		br:   basis(rows),
		bc:   basis(cols),
	}
}

// Dims returns the block size handled by the transform
func (d *DCT) Dims() (rows, cols int) { return d.rows, d.cols }

// Forward writes the DCT coefficients of src into dst. Both hold rows·cols
// values and must not overlap.
func (d *DCT) Forward(dst, src []float64) {
	x := mat.NewDense(d.rows, d.cols, src)
	out := mat.NewDense(d.rows, d.cols, dst)

	var tmp mat.Dense
	tmp.Mul(d.br, x)
	out.Mul(&tmp, d.bc.T())
}

// Inverse reconstructs the block whose coefficients are in src into dst.
// Both hold rows·cols values and must not overlap.
func (d *DCT) Inverse(dst, src []float64) {
	y := mat.NewDense(d.rows, d.cols, src)
	out := mat.NewDense(d.rows, d.cols, dst)

	var tmp mat.Dense
	tmp.Mul(d.br.T(), y)
	out.Mul(&tmp, d.bc)
}

// Truncate zeroes every coefficient outside the top-left r×r block
func (d *DCT) Truncate(coeffs []float64, r int) {
	for i := 0; i < d.rows; i++ {
		row := coeffs[i*d.cols : (i+1)*d.cols]
		if i >= r {
			for j := range row {
				row[j] = 0
			}
			continue
		}
		for j := r; j < d.cols; j++ {
			row[j] = 0
		}
	}
}

// Retained copies the top-left r×r block of coeffs into a new slice
func (d *DCT) Retained(coeffs []float64, r int) []float64 {
	r = min(r, d.rows, d.cols)
	out := make([]float64, 0, r*r)
	for i := 0; i < r; i++ {
		out = append(out, coeffs[i*d.cols:i*d.cols+r]...)
	}
	return out
}

// basis returns the cached n×n orthonormal DCT-II matrix
func basis(n int) *mat.Dense {
	basisMu.Lock()
	defer basisMu.Unlock()

	if b, ok := basisCache[n]; ok {
		return b
	}

	b := mat.NewDense(n, n, nil)
	s0 := math.Sqrt(1 / float64(n))
	sk := math.Sqrt(2 / float64(n))
	for k := 0; k < n; k++ {
		scale := sk
		if k == 0 {
			scale = s0
		}
		for j := 0; j < n; j++ {
			b.Set(k, j, scale*math.Cos(math.Pi*float64(k)*float64(2*j+1)/(2*float64(n))))
		}
	}
	basisCache[n] = b
	return b
}
