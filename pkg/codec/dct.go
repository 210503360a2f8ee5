package codec

import (
	"compressbench/internal/models"
	"compressbench/pkg/patch"
	"compressbench/pkg/ratio"
	"compressbench/pkg/transform"
)

// DCT keeps the low-frequency top-left R×R block of each channel's
// whole-image cosine transform.
type DCT struct{}

// NewDCT returns the whole-image frequency truncation codec
func NewDCT() *DCT { return &DCT{} }

func (c *DCT) ID() string   { return "dct" }
func (c *DCT) Name() string { return "DCT" }

// Param returns the retained frequency extent for an h×w image
func (c *DCT) Param(h, w int, r float64) (int, error) {
	return ratio.Derive(ratio.Frequency, h, w, r)
}

func (c *DCT) EncodeDecode(img *models.Image, r float64) (*Result, error) {
	param, err := c.Param(img.Height, img.Width, r)
	if err != nil {
		return nil, err
	}
	if r == 1 {
		return passthrough(img, param), nil
	}

	d := transform.NewDCT(img.Height, img.Width)
	out := models.NewImage(img.Channels, img.Height, img.Width)
	coeffs := make([]float64, img.Height*img.Width)
	payload := make([]float64, 0, img.Channels*param*param)

	for ch := 0; ch < img.Channels; ch++ {
		d.Forward(coeffs, img.Plane(ch))
		d.Truncate(coeffs, param)
		payload = append(payload, d.Retained(coeffs, param)...)
		d.Inverse(out.Plane(ch), coeffs)
	}

	return &Result{
		Image:         out.Clip(),
		Param:         param,
		AchievedRatio: ratio.Achieved(ratio.Frequency, img.Height, img.Width, param),
		Payload:       payload,
	}, nil
}

// Coefficients returns the retained R×R coefficient block of every channel
// as a (channels, R, R) image without reconstructing. It backs the
// compressed-domain input of the classifier wrapper.
func (c *DCT) Coefficients(img *models.Image, r float64) (*models.Image, int, error) {
	param, err := c.Param(img.Height, img.Width, r)
	if err != nil {
		return nil, 0, err
	}

	d := transform.NewDCT(img.Height, img.Width)
	out := models.NewImage(img.Channels, param, param)
	coeffs := make([]float64, img.Height*img.Width)
	for ch := 0; ch < img.Channels; ch++ {
		d.Forward(coeffs, img.Plane(ch))
		copy(out.Plane(ch), d.Retained(coeffs, param))
	}
	return out, param, nil
}

// PatchDCT applies frequency truncation independently to every patch
type PatchDCT struct {
	size patch.Size
	dct  *transform.DCT
}

// NewPatchDCT returns a patched frequency truncation codec
func NewPatchDCT(size patch.Size) (*PatchDCT, error) {
	if err := patch.Check(models.Shape{C: 1, H: size.H, W: size.W}, size); err != nil {
		return nil, err
	}
	return &PatchDCT{size: size, dct: transform.NewDCT(size.H, size.W)}, nil
}

func (c *PatchDCT) ID() string   { return "patch_dct" }
func (c *PatchDCT) Name() string { return "DCT Patches" }

// PatchSize returns the tile size
func (c *PatchDCT) PatchSize() patch.Size { return c.size }

func (c *PatchDCT) EncodeDecode(img *models.Image, r float64) (*Result, error) {
	param, err := ratio.Derive(ratio.Frequency, c.size.H, c.size.W, r)
	if err != nil {
		return nil, err
	}
	if err := patch.Check(img.Shape(), c.size); err != nil {
		return nil, err
	}
	if r == 1 {
		return passthrough(img, param), nil
	}

	grid, err := patch.ToPatches(img, c.size)
	if err != nil {
		return nil, err
	}

	coeffs := make([]float64, c.size.Area())
	payload := make([]float64, 0, grid.Channels*grid.NumPatches()*param*param)
	for ch := 0; ch < grid.Channels; ch++ {
		for p := 0; p < grid.NumPatches(); p++ {
			block := grid.Patch(ch, p)
			c.dct.Forward(coeffs, block)
			c.dct.Truncate(coeffs, param)
			payload = append(payload, c.dct.Retained(coeffs, param)...)
			c.dct.Inverse(block, coeffs)
		}
	}

	out, err := patch.FromPatches(grid, img.Shape())
	if err != nil {
		return nil, err
	}

	return &Result{
		Image:         out.Clip(),
		Param:         param,
		AchievedRatio: ratio.Achieved(ratio.Frequency, c.size.H, c.size.W, param),
		Payload:       payload,
	}, nil
}
