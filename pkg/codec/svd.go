package codec

import (
	"compressbench/internal/models"
	"compressbench/pkg/patch"
	"compressbench/pkg/ratio"
	"compressbench/pkg/transform"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SVD keeps the top R singular components of every channel
type SVD struct{}

// NewSVD returns the whole-image low-rank codec
func NewSVD() *SVD { return &SVD{} }

func (c *SVD) ID() string   { return "svd" }
func (c *SVD) Name() string { return "SVD" }

func (c *SVD) EncodeDecode(img *models.Image, r float64) (*Result, error) {
	m, n := img.Height, img.Width
	param, err := ratio.Derive(ratio.Factorization, m, n, r)
	if err != nil {
		return nil, err
	}

	out := models.NewImage(img.Channels, m, n)
	var payload []float64
	for ch := 0; ch < img.Channels; ch++ {
		// copy so the factorization cannot alias the caller's pixels
		a := mat.NewDense(m, n, append([]float64(nil), img.Plane(ch)...))
		lr, err := transform.Truncate(a, param)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", ch)
		}
		copy(out.Plane(ch), lr.Reconstruct().RawMatrix().Data)
		payload = append(payload, lr.Payload()...)
	}

	return &Result{
		Image:         out.Clip(),
		Param:         param,
		AchievedRatio: ratio.Achieved(ratio.Factorization, m, n, param),
		Payload:       payload,
	}, nil
}

// PatchSVD flattens every patch into one row of a single matrix and keeps
// the top R singular components of that matrix.
//
// R is derived from the flattened numPatches × (channels·patchH·patchW)
// shape, not from a single patch. This matches the reference experiments.
type PatchSVD struct {
	size patch.Size
}

// NewPatchSVD returns a patched low-rank codec
func NewPatchSVD(size patch.Size) (*PatchSVD, error) {
	if err := patch.Check(models.Shape{C: 1, H: size.H, W: size.W}, size); err != nil {
		return nil, err
	}
	return &PatchSVD{size: size}, nil
}

func (c *PatchSVD) ID() string   { return "patch_svd" }
func (c *PatchSVD) Name() string { return "SVD Patches" }

// PatchSize returns the tile size
func (c *PatchSVD) PatchSize() patch.Size { return c.size }

func (c *PatchSVD) EncodeDecode(img *models.Image, r float64) (*Result, error) {
	if err := ratio.Validate(r); err != nil {
		return nil, err
	}
	grid, err := patch.ToPatches(img, c.size)
	if err != nil {
		return nil, err
	}

	flat := patch.Flatten(grid)
	m, n := flat.Dims()
	param, err := ratio.Derive(ratio.Factorization, m, n, r)
	if err != nil {
		return nil, err
	}

	lr, err := transform.Truncate(flat, param)
	if err != nil {
		return nil, err
	}

	rebuilt, err := patch.Unflatten(lr.Reconstruct(), grid)
	if err != nil {
		return nil, err
	}
	out, err := patch.FromPatches(rebuilt, img.Shape())
	if err != nil {
		return nil, err
	}

	return &Result{
		Image:         out.Clip(),
		Param:         param,
		AchievedRatio: ratio.Achieved(ratio.Factorization, m, n, param),
		Payload:       lr.Payload(),
	}, nil
}
