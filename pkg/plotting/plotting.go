// Package plotting renders aggregated metric curves of several methods into
// one comparison figure.
package plotting

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"compressbench/pkg/curve"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// bandAlpha is the opacity of the ±1σ band
const bandAlpha = 0x40

// Options describes the figure
type Options struct {
	Title  string
	XLabel string
	YLabel string

	// XLim and YLim fix an axis range when they hold two values
	XLim []float64
	YLim []float64

	// Width and Height in inches
	Width  float64
	Height float64
}

// Figure builds the comparison plot. Every curve gets a solid line with
// markers and a shaded ±1σ band over its observed range, and a dashed line
// where it is extrapolated below that range.
func Figure(curves []*curve.Curve, opts Options) (*plot.Plot, error) {
	if len(curves) == 0 {
		return nil, errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	for i, c := range curves {
		col := plotutil.Color(i)

		solid := points(c, c.Solid(), 0)
		if len(solid) > 0 {
			if len(solid) > 1 {
				band, err := plotter.NewPolygon(bandOutline(c, c.Solid()))
				if err != nil {
					return nil, errors.Wrapf(err, "%s: band", c.Name)
				}
				band.Color = withAlpha(col, bandAlpha)
				band.LineStyle.Width = 0
				p.Add(band)
			}

			line, marks, err := plotter.NewLinePoints(solid)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: line", c.Name)
			}
			line.Color = col
			line.Width = vg.Points(1.5)
			marks.Color = col
			marks.Shape = draw.CircleGlyph{}
			marks.Radius = vg.Points(2)
			p.Add(line, marks)
			p.Legend.Add(c.Name, line, marks)
		}

		dashed := points(c, c.Dashed(), 0)
		if len(dashed) > 1 {
			line, err := plotter.NewLine(dashed)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: extrapolation", c.Name)
			}
			line.Color = col
			line.Width = vg.Points(1.5)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(line)
			if len(solid) == 0 {
				p.Legend.Add(c.Name, line)
			}
		}
	}

	p.Legend.Top = false
	p.Legend.Left = false

	if len(opts.XLim) == 2 {
		p.X.Min, p.X.Max = opts.XLim[0], opts.XLim[1]
	}
	if len(opts.YLim) == 2 {
		p.Y.Min, p.Y.Max = opts.YLim[0], opts.YLim[1]
	}
	return p, nil
}

// Save renders the figure to path; the extension selects the format
func Save(curves []*curve.Curve, opts Options, path string) error {
	p, err := Figure(curves, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating figure directory")
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 6
	}
	if height <= 0 {
		height = 4.5
	}
	if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return nil
}

// points returns the mean curve at the given grid indices, offset by k
// standard deviations. Non-finite values are left out.
func points(c *curve.Curve, idx []int, k float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(idx))
	for _, j := range idx {
		y := c.Mean[j] + k*c.Std[j]
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: c.Grid[j], Y: y})
	}
	return xys
}

// bandOutline traces mean+σ left to right and mean−σ back
func bandOutline(c *curve.Curve, idx []int) plotter.XYs {
	upper := points(c, idx, 1)
	lower := points(c, idx, -1)
	outline := make(plotter.XYs, 0, len(upper)+len(lower))
	outline = append(outline, upper...)
	for i := len(lower) - 1; i >= 0; i-- {
		outline = append(outline, lower[i])
	}
	return outline
}

func withAlpha(c color.Color, a uint8) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = a
	return n
}
