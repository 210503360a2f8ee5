// Package preprocess compresses classifier inputs to a randomly chosen
// effective size, either returning the reconstruction or the retained
// frequency coefficients themselves.
package preprocess

import (
	"math/rand"

	"compressbench/internal/models"
	"compressbench/pkg/codec"

	"github.com/pkg/errors"
)

// Domain selects what Apply returns
type Domain string

const (
	// Compressed returns the retained R×R coefficients of every channel
	Compressed Domain = "compressed"

	// Decompressed returns the reconstruction at the input shape
	Decompressed Domain = "decompressed"
)

// ParseDomain accepts the full names and their three-letter short forms
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "compressed", "com":
		return Compressed, nil
	case "decompressed", "dec":
		return Decompressed, nil
	}
	return "", errors.Errorf("unknown domain %q", s)
}

// Size is a (height, width) target
type Size struct {
	H, W int
}

// RandomCompressor picks one of NewSizes per call and compresses the input
// by the ratio between OriginalSize and the chosen size.
type RandomCompressor struct {
	OriginalSize Size
	NewSizes     []Size
	Domain       Domain

	// Rand drives the size choice; a nil Rand is seeded from zero
	Rand *rand.Rand

	dct       *codec.DCT
	realRatio float64
}

// New validates the parameters. An empty sizes list keeps the original size.
func New(original Size, sizes []Size, domain Domain, rng *rand.Rand) (*RandomCompressor, error) {
	if original.H <= 0 || original.W <= 0 {
		return nil, errors.Errorf("invalid original size %dx%d", original.H, original.W)
	}
	if domain != Compressed && domain != Decompressed {
		return nil, errors.Errorf("unknown domain %q", domain)
	}
	if len(sizes) == 0 {
		sizes = []Size{original}
	}
	for _, s := range sizes {
		if s.H <= 0 || s.W <= 0 {
			return nil, errors.Errorf("invalid new size %dx%d", s.H, s.W)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &RandomCompressor{
		OriginalSize: original,
		NewSizes:     append([]Size(nil), sizes...),
		Domain:       domain,
		Rand:         rng,
		dct:          codec.NewDCT(),
	}, nil
}

// Ratio returns the compression ratio of a target size
func (c *RandomCompressor) Ratio(s Size) float64 {
	return float64(c.OriginalSize.H*c.OriginalSize.W) / float64(s.H*s.W)
}

// Apply compresses img at a randomly chosen size
func (c *RandomCompressor) Apply(img *models.Image) (*models.Image, error) {
	if len(c.NewSizes) == 0 {
		return nil, errors.New("no target sizes")
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(0))
	}
	if c.dct == nil {
		c.dct = codec.NewDCT()
	}
	size := c.NewSizes[c.Rand.Intn(len(c.NewSizes))]
	r := c.Ratio(size)

	if c.Domain == Compressed {
		coeffs, param, err := c.dct.Coefficients(img, r)
		if err != nil {
			return nil, errors.Wrapf(err, "compressing to %dx%d", size.H, size.W)
		}
		c.realRatio = float64(img.Height*img.Width) / float64(param*param)
		return coeffs, nil
	}

	res, err := c.dct.EncodeDecode(img, r)
	if err != nil {
		return nil, errors.Wrapf(err, "compressing to %dx%d", size.H, size.W)
	}
	c.realRatio = res.AchievedRatio
	return res.Image, nil
}

// RealRatio is the ratio achieved by the most recent Apply, or zero before
// the first call
func (c *RandomCompressor) RealRatio() float64 {
	return c.realRatio
}
