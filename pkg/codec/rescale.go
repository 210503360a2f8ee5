package codec

import (
	"image"
	"image/color"
	"math"

	"compressbench/internal/models"
	"compressbench/pkg/ratio"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

var kernels = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// Rescale is the spatial baseline: it shrinks the image by ratio^-0.5 along
// each axis and scales it back up to the original size.
type Rescale struct {
	mode   string
	kernel resize.InterpolationFunction
}

// NewRescale returns a rescale codec using the named interpolation kernel.
// An empty mode selects bilinear.
func NewRescale(mode string) (*Rescale, error) {
	if mode == "" {
		mode = "bilinear"
	}
	k, ok := kernels[mode]
	if !ok {
		return nil, errors.Errorf("unknown interpolation %q", mode)
	}
	return &Rescale{mode: mode, kernel: k}, nil
}

func (c *Rescale) ID() string   { return "rescale" }
func (c *Rescale) Name() string { return "Rescale" }

// Mode returns the interpolation kernel name
func (c *Rescale) Mode() string { return c.mode }

// DownsampledSize returns the intermediate dimensions for an h×w image
func DownsampledSize(h, w int, r float64) (int, int, error) {
	scale, err := ratio.Scale(r)
	if err != nil {
		return 0, 0, err
	}
	dh := max(1, int(math.Round(float64(h)*scale)))
	dw := max(1, int(math.Round(float64(w)*scale)))
	return min(dh, h), min(dw, w), nil
}

func (c *Rescale) EncodeDecode(img *models.Image, r float64) (*Result, error) {
	dh, dw, err := DownsampledSize(img.Height, img.Width, r)
	if err != nil {
		return nil, err
	}
	if r == 1 || (dh == img.Height && dw == img.Width) {
		return passthrough(img, img.Height), nil
	}

	out := models.NewImage(img.Channels, img.Height, img.Width)
	payload := make([]float64, 0, img.Channels*dh*dw)
	for ch := 0; ch < img.Channels; ch++ {
		plane := toGray16(img.Plane(ch), img.Height, img.Width)
		small := resize.Resize(uint(dw), uint(dh), plane, c.kernel)
		payload = appendGray(payload, small)

		restored := resize.Resize(uint(img.Width), uint(img.Height), small, c.kernel)
		readGray(out.Plane(ch), restored)
	}

	return &Result{
		Image:         out.Clip(),
		Param:         dh,
		AchievedRatio: float64(img.Height*img.Width) / float64(dh*dw),
		Payload:       payload,
	}, nil
}

// toGray16 encodes a [0, 1] plane as a 16-bit grayscale image
func toGray16(plane []float64, h, w int) *image.Gray16 {
	g := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := math.Max(0, math.Min(1, plane[y*w+x]))
			g.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 65535))})
		}
	}
	return g
}

func appendGray(dst []float64, img image.Image) []float64 {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v, _, _, _ := color.Gray16Model.Convert(img.At(x, y)).RGBA()
			dst = append(dst, float64(v)/65535)
		}
	}
	return dst
}

// readGray copies img into plane, which must hold exactly its pixel count
func readGray(plane []float64, img image.Image) {
	b := img.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v, _, _, _ := color.Gray16Model.Convert(img.At(x, y)).RGBA()
			plane[(y-b.Min.Y)*w+(x-b.Min.X)] = float64(v) / 65535
		}
	}
}
