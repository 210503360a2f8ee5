// Package patch converts images to and from grids of fixed-size,
// non-overlapping patches.
//
// Patches are ordered row-major over the tiling grid and the channel axis is
// kept as the outermost axis, so a Grid has the logical layout
// (channels, numPatches, patchH, patchW).
package patch

import (
	"compressbench/internal/models"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrIndivisible is returned when an image cannot be tiled exactly
var ErrIndivisible = errors.New("image dimensions are not divisible by the patch size")

// Size is the height and width of a patch
type Size struct {
	H, W int
}

// Square returns a p×p patch size
func Square(p int) Size { return Size{H: p, W: p} }

// Area is the number of pixels covered by one patch
func (s Size) Area() int { return s.H * s.W }

// Grid is an image reinterpreted as a sequence of patches
type Grid struct {
	Channels int

	// Rows and Cols count patches along the height and width of the image
	Rows int
	Cols int

	Size Size

	// Data is laid out as [channel][patch][py][px]
	Data []float64
}

// NumPatches returns the number of patches per channel
func (g *Grid) NumPatches() int { return g.Rows * g.Cols }

// Patch returns the backing slice of patch p of channel c, row-major
func (g *Grid) Patch(c, p int) []float64 {
	area := g.Size.Area()
	start := (c*g.NumPatches() + p) * area
	return g.Data[start : start+area]
}

// ImageShape returns the shape of the image this grid tiles
func (g *Grid) ImageShape() models.Shape {
	return models.Shape{C: g.Channels, H: g.Rows * g.Size.H, W: g.Cols * g.Size.W}
}

// Check verifies that shape can be tiled by size without remainder
func Check(shape models.Shape, size Size) error {
	if size.H <= 0 || size.W <= 0 {
		return errors.Errorf("invalid patch size %dx%d", size.H, size.W)
	}
	if shape.H%size.H != 0 || shape.W%size.W != 0 {
		return errors.Wrapf(ErrIndivisible, "image %dx%d, patch %dx%d", shape.H, shape.W, size.H, size.W)
	}
	return nil
}

// ToPatches tiles img into patches of the given size. The image is not modified.
func ToPatches(img *models.Image, size Size) (*Grid, error) {
	shape := img.Shape()
	if err := Check(shape, size); err != nil {
		return nil, err
	}

	g := &Grid{
		Channels: shape.C,
		Rows:     shape.H / size.H,
		Cols:     shape.W / size.W,
		Size:     size,
		Data:     make([]float64, shape.Len()),
	}

	for c := 0; c < g.Channels; c++ {
		plane := img.Plane(c)
		for pr := 0; pr < g.Rows; pr++ {
			for pc := 0; pc < g.Cols; pc++ {
				dst := g.Patch(c, pr*g.Cols+pc)
				for py := 0; py < size.H; py++ {
					y := pr*size.H + py
					x := pc * size.W
					copy(dst[py*size.W:(py+1)*size.W], plane[y*shape.W+x:y*shape.W+x+size.W])
				}
			}
		}
	}

	return g, nil
}

// FromPatches reassembles a grid into an image of the given shape. It is the
// exact inverse of ToPatches.
func FromPatches(g *Grid, shape models.Shape) (*models.Image, error) {
	if g.ImageShape() != shape {
		return nil, errors.Errorf("grid tiles %v, requested %v", g.ImageShape(), shape)
	}

	img := models.NewImageFromShape(shape)
	for c := 0; c < g.Channels; c++ {
		plane := img.Plane(c)
		for pr := 0; pr < g.Rows; pr++ {
			for pc := 0; pc < g.Cols; pc++ {
				src := g.Patch(c, pr*g.Cols+pc)
				for py := 0; py < g.Size.H; py++ {
					y := pr*g.Size.H + py
					x := pc * g.Size.W
					copy(plane[y*shape.W+x:y*shape.W+x+g.Size.W], src[py*g.Size.W:(py+1)*g.Size.W])
				}
			}
		}
	}

	return img, nil
}

// Flatten folds the channel axis into the patch vector and returns a
// numPatches × (channels·patchH·patchW) matrix, one patch per row.
func Flatten(g *Grid) *mat.Dense {
	rows := g.NumPatches()
	area := g.Size.Area()
	cols := g.Channels * area

	out := mat.NewDense(rows, cols, nil)
	for p := 0; p < rows; p++ {
		row := out.RawRowView(p)
		for c := 0; c < g.Channels; c++ {
			copy(row[c*area:(c+1)*area], g.Patch(c, p))
		}
	}
	return out
}

// Unflatten is the inverse of Flatten. like supplies the grid geometry.
func Unflatten(m mat.Matrix, like *Grid) (*Grid, error) {
	rows, cols := m.Dims()
	area := like.Size.Area()
	if rows != like.NumPatches() || cols != like.Channels*area {
		return nil, errors.Errorf("matrix %dx%d does not match grid of %d patches × %d values",
			rows, cols, like.NumPatches(), like.Channels*area)
	}

	g := &Grid{
		Channels: like.Channels,
		Rows:     like.Rows,
		Cols:     like.Cols,
		Size:     like.Size,
		Data:     make([]float64, len(like.Data)),
	}
	for p := 0; p < rows; p++ {
		for c := 0; c < g.Channels; c++ {
			dst := g.Patch(c, p)
			for i := range dst {
				dst[i] = m.At(p, c*area+i)
			}
		}
	}
	return g, nil
}
