// Package curve resamples irregular per-image metric curves onto a shared
// x axis and summarises them across images.
//
// Each image contributes its own (x, y) samples, where x is an achieved
// compression ratio or a bit rate that differs per image. The samples are
// interpolated with a quadratic spline and evaluated on a fixed grid,
// extrapolating outside the observed range. Extrapolated values are an
// approximation and may be non-physical near the edges of the grid.
package curve

import (
	"math"

	"compressbench/internal/models"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned when no image has a usable sample
var ErrNoData = errors.New("no finite samples to aggregate")

// Curve is the aggregate of one method's per-image curves
type Curve struct {
	Name string

	// Grid is the shared x axis
	Grid []float64

	// Values holds one row per image, one column per grid point
	Values *mat.Dense

	// Mean and Std are the per-grid-point mean and population standard
	// deviation across images
	Mean []float64
	Std  []float64

	// ImageXMin is the smallest observed x of every aggregated image
	ImageXMin []float64

	// XMin is the smallest observed x over all images. Grid points at or
	// below it are extrapolated for at least one image.
	XMin float64

	// Skipped counts images without a single finite sample
	Skipped int
}

// Linspace returns num evenly spaced values over [start, stop]
func Linspace(start, stop float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	if num == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, num), start, stop)
}

// Aggregate interpolates every image's samples onto grid and reduces them.
// images[i] holds the samples of image i in any order.
func Aggregate(name string, images [][]models.Point, grid []float64) (*Curve, error) {
	if len(grid) == 0 {
		return nil, errors.New("empty grid")
	}

	c := &Curve{Name: name, Grid: append([]float64(nil), grid...), XMin: math.Inf(1)}
	var rows [][]float64
	for i, samples := range images {
		points := Prepare(samples)
		if len(points) == 0 {
			c.Skipped++
			continue
		}
		f, err := Fit(points)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: image %d", name, i)
		}

		row := make([]float64, len(grid))
		for j, x := range grid {
			row[j] = f.Predict(x)
		}
		rows = append(rows, row)

		c.ImageXMin = append(c.ImageXMin, points[0].X)
		c.XMin = math.Min(c.XMin, points[0].X)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrNoData, "%s", name)
	}

	c.Values = mat.NewDense(len(rows), len(grid), nil)
	for i, row := range rows {
		c.Values.SetRow(i, row)
	}

	c.Mean = make([]float64, len(grid))
	c.Std = make([]float64, len(grid))
	col := make([]float64, len(rows))
	for j := range grid {
		mat.Col(col, j, c.Values)
		if len(col) == 1 {
			c.Mean[j] = col[0]
			continue
		}
		c.Mean[j], c.Std[j] = stat.PopMeanStdDev(col, nil)
	}
	return c, nil
}

// Step is the spacing of the grid, or zero for a single point
func (c *Curve) Step() float64 {
	if len(c.Grid) < 2 {
		return 0
	}
	return c.Grid[1] - c.Grid[0]
}

// Solid returns the grid indices at or above XMin, inside the range the
// method was observed over.
func (c *Curve) Solid() []int {
	var idx []int
	for i, x := range c.Grid {
		if x >= c.XMin {
			idx = append(idx, i)
		}
	}
	return idx
}

// Dashed returns the extrapolated grid indices below XMin, extended by one
// grid step so the dashed segment joins the solid one.
func (c *Curve) Dashed() []int {
	var idx []int
	limit := c.XMin + c.Step()
	for i, x := range c.Grid {
		if x <= limit {
			idx = append(idx, i)
		}
	}
	return idx
}

// Extrapolated reports whether grid point j lies below the observed range
// of image i
func (c *Curve) Extrapolated(i, j int) bool {
	return c.Grid[j] < c.ImageXMin[i]
}
