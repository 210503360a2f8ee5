// Package codec implements the lossy image codecs being benchmarked.
//
// Every codec fuses encoding and decoding: EncodeDecode takes an image and a
// requested compression ratio and returns the reconstruction together with
// the ratio actually achieved after the integer codec parameter was derived.
// Codecs never modify their input.
package codec

import (
	"sort"

	"compressbench/internal/models"
	"compressbench/pkg/patch"

	"github.com/pkg/errors"
)

// ErrUnknownCodec is returned by New for unregistered identifiers
var ErrUnknownCodec = errors.New("unknown codec")

// DefaultPatchSize is the block size used by the patched codecs
var DefaultPatchSize = patch.Square(8)

// Codec is a compression strategy under benchmark
type Codec interface {
	// ID is the configuration identifier, e.g. "patch_dct"
	ID() string

	// Name is the human readable label used in results and plots
	Name() string

	// EncodeDecode compresses img at the requested ratio and reconstructs it
	EncodeDecode(img *models.Image, ratio float64) (*Result, error)
}

// Result is one reconstruction
type Result struct {
	// Image is the reconstruction, same shape as the input, clipped to [0, 1]
	Image *models.Image

	// Param is the derived integer parameter: retained frequency extent,
	// retained rank, or downsampled height for the rescale baseline
	Param int

	// AchievedRatio is the ratio realised by Param
	AchievedRatio float64

	// Payload holds the numbers a real encoder would have to store. For a
	// passthrough it is the image itself.
	Payload []float64

	// Passthrough is set when the codec returned the input unchanged
	Passthrough bool
}

// Options configures codec construction
type Options struct {
	// PatchSize is used by the patched codecs; zero means DefaultPatchSize
	PatchSize patch.Size

	// Interpolation selects the rescale kernel; empty means bilinear
	Interpolation string
}

func (o Options) patchSize() patch.Size {
	if o.PatchSize.H == 0 && o.PatchSize.W == 0 {
		return DefaultPatchSize
	}
	return o.PatchSize
}

type factory func(Options) (Codec, error)

var registry = map[string]factory{
	"rescale":   func(o Options) (Codec, error) { return NewRescale(o.Interpolation) },
	"dct":       func(Options) (Codec, error) { return NewDCT(), nil },
	"patch_dct": func(o Options) (Codec, error) { return NewPatchDCT(o.patchSize()) },
	"svd":       func(Options) (Codec, error) { return NewSVD(), nil },
	"patch_svd": func(o Options) (Codec, error) { return NewPatchSVD(o.patchSize()) },
}

// aliases maps names used by older experiment configs onto registered IDs
var aliases = map[string]string{
	"interpolate": "rescale",
	"patchsvd":    "patch_svd",
	"patchdct":    "patch_dct",
}

// New constructs the codec registered under id
func New(id string, opts Options) (Codec, error) {
	if canonical, ok := aliases[id]; ok {
		id = canonical
	}
	f, ok := registry[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCodec, "%q", id)
	}
	return f(opts)
}

// NewAll constructs every codec in ids, preserving order
func NewAll(ids []string, opts Options) ([]Codec, error) {
	out := make([]Codec, 0, len(ids))
	for _, id := range ids {
		c, err := New(id, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// IDs lists the registered codec identifiers in sorted order
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func passthrough(img *models.Image, param int) *Result {
	out := img.Clone()
	return &Result{
		Image:         out,
		Param:         param,
		AchievedRatio: 1,
		Payload:       out.Data,
		Passthrough:   true,
	}
}
