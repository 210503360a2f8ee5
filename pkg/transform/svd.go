// Package transform holds the numeric primitives behind the codecs: an
// orthonormal 2D DCT and rank-truncated singular value decomposition.
package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrFactorize is returned when the SVD does not converge
var ErrFactorize = errors.New("singular value decomposition failed")

// LowRank holds the leading r singular triplets of a matrix
type LowRank struct {
	// Rank is the number of components kept, possibly fewer than requested
	Rank int

	// U is m×Rank with columns scaled by the singular values
	U *mat.Dense

	// V is n×Rank
	V *mat.Dense

	rows, cols int
}

// Truncate factorizes a with a thin SVD and keeps the top r components.
// r is clamped to the number of singular values; r <= 0 keeps none.
func Truncate(a mat.Matrix, r int) (*LowRank, error) {
	m, n := a.Dims()
	lr := &LowRank{rows: m, cols: n}
	if r <= 0 {
		return lr, nil
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.Wrapf(ErrFactorize, "%dx%d matrix", m, n)
	}

	values := svd.Values(nil)
	r = min(r, len(values))

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	us := mat.DenseCopyOf(u.Slice(0, m, 0, r))
	for j := 0; j < r; j++ {
		for i := 0; i < m; i++ {
			us.Set(i, j, us.At(i, j)*values[j])
		}
	}

	lr.Rank = r
	lr.U = us
	lr.V = mat.DenseCopyOf(v.Slice(0, n, 0, r))
	return lr, nil
}

// Reconstruct returns the m×n product U·Vᵀ. A rank-0 factorization yields
// the zero matrix.
func (lr *LowRank) Reconstruct() *mat.Dense {
	out := mat.NewDense(lr.rows, lr.cols, nil)
	if lr.Rank == 0 {
		return out
	}
	out.Mul(lr.U, lr.V.T())
	return out
}

// Payload returns the stored numbers of the factorization, U then V
func (lr *LowRank) Payload() []float64 {
	if lr.Rank == 0 {
		return nil
	}
	out := make([]float64, 0, lr.Rank*(lr.rows+lr.cols))
	out = append(out, lr.U.RawMatrix().Data...)
	return append(out, lr.V.RawMatrix().Data...)
}
