package benchmark

import (
	"compressbench/internal/models"

	"github.com/pkg/errors"
)

// Axis selects the x value of extracted curves
type Axis string

const (
	// AxisRatio plots against the achieved compression ratio
	AxisRatio Axis = "ratio"

	// AxisBPP plots against the estimated bits per pixel
	AxisBPP Axis = "bpp"
)

// MethodCurves holds one method's points, one slice per image
type MethodCurves struct {
	Method string
	Images [][]models.Point
}

// Curves extracts per-method per-image (x, metric) points from res, in the
// method order of res.
func Curves(res *Results, metric string, axis Axis) ([]MethodCurves, error) {
	if axis != AxisRatio && axis != AxisBPP {
		return nil, errors.Errorf("unknown axis %q", axis)
	}

	out := make([]MethodCurves, 0, len(res.Methods))
	for _, method := range res.Methods {
		entries, ok := res.Entries[method]
		if !ok {
			return nil, errors.Errorf("no entries for method %q", method)
		}

		images := make([][]models.Point, res.ImageCount)
		for _, e := range entries {
			ys, ok := e.Values[metric]
			if !ok {
				return nil, errors.Errorf("metric %q not recorded", metric)
			}
			xs := e.AchievedPerImage
			if axis == AxisBPP {
				xs = e.BPP
			}
			if len(xs) != res.ImageCount || len(ys) != res.ImageCount {
				return nil, errors.Errorf("%s at ratio %g: %d x values and %d %s values for %d images",
					method, e.Requested, len(xs), len(ys), metric, res.ImageCount)
			}
			for i := range images {
				images[i] = append(images[i], models.Point{X: xs[i], Y: ys[i]})
			}
		}
		out = append(out, MethodCurves{Method: method, Images: images})
	}
	return out, nil
}
