// Package metrics scores a reconstruction against its original.
//
// All functions take the original first. They panic when the two images do
// not have the same number of elements, following gonum's floats package.
package metrics

import (
	"math"
	"sort"

	"compressbench/internal/models"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Func compares an original image a with a reconstruction b
type Func func(a, b *models.Image) float64

var registry = map[string]Func{
	"mae":  MAE,
	"mse":  MSE,
	"psnr": PSNR,
	"ssim": SSIM,
}

// Lookup returns the metric registered under name
func Lookup(name string) (Func, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown metric %q", name)
	}
	return f, nil
}

// Names lists the registered metric identifiers in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MAE is the mean absolute error over every element
func MAE(a, b *models.Image) float64 {
	return floats.Distance(a.Data, b.Data, 1) / float64(len(a.Data))
}

// MSE is the mean squared error over every element
func MSE(a, b *models.Image) float64 {
	diff := make([]float64, len(a.Data))
	floats.SubTo(diff, a.Data, b.Data)
	return floats.Dot(diff, diff) / float64(len(diff))
}

// PSNR returns 20·log10(max(a) / sqrt(mse)). A perfect reconstruction has no
// noise and yields +Inf.
func PSNR(a, b *models.Image) float64 {
	mse := MSE(a, b)
	if mse == 0 {
		return math.Inf(1)
	}
	return 20 * math.Log10(floats.Max(a.Data)/math.Sqrt(mse))
}

// SSIM constants for a unit data range
const (
	ssimWindow = 7
	ssimK1     = 0.01
	ssimK2     = 0.03
)

// SSIM computes the mean structural similarity over 7×7 uniform windows,
// averaged over channels. Images smaller than the window fall back to a
// single global window.
func SSIM(a, b *models.Image) float64 {
	if len(a.Data) != len(b.Data) {
		panic("metrics: length mismatch")
	}
	total := 0.0
	for c := 0; c < a.Channels; c++ {
		if a.Height < ssimWindow || a.Width < ssimWindow {
			total += globalSSIM(a.Plane(c), b.Plane(c))
			continue
		}
		total += windowedSSIM(a.Plane(c), b.Plane(c), a.Height, a.Width)
	}
	return total / float64(a.Channels)
}

func globalSSIM(x, y []float64) float64 {
	c1 := ssimK1 * ssimK1
	c2 := ssimK2 * ssimK2

	muX := stat.Mean(x, nil)
	muY := stat.Mean(y, nil)
	varX := stat.Variance(x, nil)
	varY := stat.Variance(y, nil)
	cov := stat.Covariance(x, y, nil)
	if len(x) < 2 {
		varX, varY, cov = 0, 0, 0
	}

	num := (2*muX*muY + c1) * (2*cov + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	return num / den
}

// windowedSSIM slides a 7×7 window over every valid position and averages
// the local index. Local statistics use the unbiased covariance.
func windowedSSIM(x, y []float64, h, w int) float64 {
	c1 := ssimK1 * ssimK1
	c2 := ssimK2 * ssimK2
	n := float64(ssimWindow * ssimWindow)
	norm := n / (n - 1)

	sum := 0.0
	count := 0
	for top := 0; top+ssimWindow <= h; top++ {
		for left := 0; left+ssimWindow <= w; left++ {
			var sx, sy, sxx, syy, sxy float64
			for dy := 0; dy < ssimWindow; dy++ {
				row := (top+dy)*w + left
				for dx := 0; dx < ssimWindow; dx++ {
					vx := x[row+dx]
					vy := y[row+dx]
					sx += vx
					sy += vy
					sxx += vx * vx
					syy += vy * vy
					sxy += vx * vy
				}
			}
			muX := sx / n
			muY := sy / n
			varX := norm * (sxx/n - muX*muX)
			varY := norm * (syy/n - muY*muY)
			cov := norm * (sxy/n - muX*muY)

			num := (2*muX*muY + c1) * (2*cov + c2)
			den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
			sum += num / den
			count++
		}
	}
	return sum / float64(count)
}
