package curve

import (
	"math"
	"sort"

	"compressbench/internal/models"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// degree of the interpolating spline
const degree = 2

// Interpolant evaluates a fitted curve at any x, extrapolating beyond the
// fitted range.
type Interpolant interface {
	Predict(x float64) float64
}

// Prepare drops non-finite points, sorts by x and removes duplicate x values
// keeping the first occurrence in the input order.
func Prepare(points []models.Point) []models.Point {
	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if isFinite(p.X) && isFinite(p.Y) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })

	unique := out[:0]
	for i, p := range out {
		if i > 0 && p.X == unique[len(unique)-1].X {
			continue
		}
		unique = append(unique, p)
	}
	return unique
}

// Fit returns an interpolant through points, which must already be prepared
// (finite, strictly increasing x). Three or more points give a quadratic
// spline, two a line and one a constant.
func Fit(points []models.Point) (Interpolant, error) {
	switch len(points) {
	case 0:
		return nil, errors.New("no points to interpolate")
	case 1:
		return constant(points[0].Y), nil
	case 2:
		return newLinear(points[0], points[1]), nil
	}

	s, err := newQuadraticSpline(points)
	if err != nil {
		// a singular collocation system only arises from degenerate spacing
		return newPolyline(points), nil
	}
	return s, nil
}

type constant float64

func (c constant) Predict(float64) float64 { return float64(c) }

type linear struct {
	x0, y0, slope float64
}

func newLinear(a, b models.Point) linear {
	return linear{x0: a.X, y0: a.Y, slope: (b.Y - a.Y) / (b.X - a.X)}
}

func (l linear) Predict(x float64) float64 { return l.y0 + l.slope*(x-l.x0) }

// polyline interpolates linearly between points and extends the end segments
type polyline []models.Point

func newPolyline(points []models.Point) polyline {
	return append(polyline(nil), points...)
}

func (p polyline) Predict(x float64) float64 {
	i := sort.Search(len(p), func(i int) bool { return p[i].X > x })
	i = max(1, min(i, len(p)-1))
	return newLinear(p[i-1], p[i]).Predict(x)
}

// quadraticSpline is a degree-2 B-spline interpolant. Its knot vector has
// triple knots at both ends of the data and interior knots at the midpoints
// between consecutive samples, omitting the first and last midpoint, which
// gives exactly one coefficient per sample.
type quadraticSpline struct {
	knots  []float64
	coeffs []float64
}

func newQuadraticSpline(points []models.Point) (*quadraticSpline, error) {
	n := len(points)
	knots := make([]float64, 0, n+degree+1)
	for i := 0; i <= degree; i++ {
		knots = append(knots, points[0].X)
	}
	for i := 1; i < n-2; i++ {
		knots = append(knots, (points[i].X+points[i+1].X)/2)
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, points[n-1].X)
	}

	s := &quadraticSpline{knots: knots, coeffs: make([]float64, n)}

	a := mat.NewDense(n, n, nil)
	y := mat.NewVecDense(n, nil)
	for i, p := range points {
		l := s.interval(p.X)
		for j := 0; j <= degree; j++ {
			a.Set(i, l-degree+j, s.basis(l, j, p.X))
		}
		y.SetVec(i, p.Y)
	}

	var c mat.VecDense
	if err := c.SolveVec(a, y); err != nil {
		return nil, errors.Wrap(err, "solving spline collocation system")
	}
	for i := range s.coeffs {
		s.coeffs[i] = c.AtVec(i)
		if !isFinite(s.coeffs[i]) {
			return nil, errors.New("non-finite spline coefficient")
		}
	}
	return s, nil
}

// interval returns l such that knots[l] <= x < knots[l+1], clamped to the
// first and last polynomial pieces so that x outside the data extrapolates.
func (s *quadraticSpline) interval(x float64) int {
	last := len(s.coeffs) - 1
	l := degree
	for l < last && x >= s.knots[l+1] {
		l++
	}
	return l
}

// basis evaluates the j-th non-zero basis function on interval l at x
func (s *quadraticSpline) basis(l, j int, x float64) float64 {
	var d [degree + 1]float64
	d[j] = 1
	return s.deBoor(l, d, x)
}

// deBoor evaluates the polynomial piece of interval l with local
// coefficients d at x
func (s *quadraticSpline) deBoor(l int, d [degree + 1]float64, x float64) float64 {
	t := s.knots
	for r := 1; r <= degree; r++ {
		for j := degree; j >= r; j-- {
			lo := t[j+l-degree]
			hi := t[j+1+l-r]
			alpha := 0.0
			if hi != lo {
				alpha = (x - lo) / (hi - lo)
			}
			d[j] = (1-alpha)*d[j-1] + alpha*d[j]
		}
	}
	return d[degree]
}

func (s *quadraticSpline) Predict(x float64) float64 {
	l := s.interval(x)
	var d [degree + 1]float64
	copy(d[:], s.coeffs[l-degree:l+1])
	return s.deBoor(l, d, x)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
