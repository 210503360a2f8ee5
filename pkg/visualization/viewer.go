package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"compressbench/internal/models"
	"compressbench/pkg/imageio"
)

// Frame is one reconstruction shown by the viewer
type Frame struct {
	Method   string
	Ratio    float64
	Achieved float64
	Image    *models.Image
}

// Viewer collects the reconstructions of a single image so they can be
// inspected side by side with the original
type Viewer struct {
	// original is the uncompressed input
	original *models.Image

	// frames in insertion order
	frames []Frame
}

// NewViewer creates a viewer for the given original image
func NewViewer(original *models.Image) *Viewer {
	return &Viewer{original: original}
}

// Add records a reconstruction. Its shape must match the original.
func (v *Viewer) Add(f Frame) error {
	if f.Image == nil {
		return fmt.Errorf("%s at ratio %g: no image", f.Method, f.Ratio)
	}
	if f.Image.Shape() != v.original.Shape() {
		return fmt.Errorf("%s at ratio %g: shape %v does not match original %v",
			f.Method, f.Ratio, f.Image.Shape(), v.original.Shape())
	}
	v.frames = append(v.frames, f)
	return nil
}

// Len returns the number of recorded reconstructions
func (v *Viewer) Len() int { return len(v.frames) }

// ExtractFrame renders frame i; index -1 renders the original
func (v *Viewer) ExtractFrame(i int) (image.Image, error) {
	img, err := v.frame(i)
	if err != nil {
		return nil, err
	}
	return imageio.FromModel(img)
}

// ExtractChannel renders one channel of frame i as grayscale; index -1
// renders the original
func (v *Viewer) ExtractChannel(i, channel int) (image.Image, error) {
	img, err := v.frame(i)
	if err != nil {
		return nil, err
	}
	return imageio.Channel(img, channel)
}

// ExtractDifference renders the absolute error of frame i against the
// original, scaled so the largest error is white
func (v *Viewer) ExtractDifference(i int) (image.Image, error) {
	if i == -1 {
		return nil, fmt.Errorf("the original has no difference image")
	}
	img, err := v.frame(i)
	if err != nil {
		return nil, err
	}

	diff := models.NewImageFromShape(img.Shape())
	peak := 0.0
	for k := range diff.Data {
		d := img.Data[k] - v.original.Data[k]
		if d < 0 {
			d = -d
		}
		diff.Data[k] = d
		if d > peak {
			peak = d
		}
	}
	if peak > 0 {
		for k := range diff.Data {
			diff.Data[k] /= peak
		}
	}
	return imageio.FromModel(diff)
}

func (v *Viewer) frame(i int) (*models.Image, error) {
	if i == -1 {
		return v.original, nil
	}
	if i < 0 || i >= len(v.frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(v.frames))
	}
	return v.frames[i].Image, nil
}

// FrameName is the file name stem of frame i, e.g. "dct_patches_r4"
func (v *Viewer) FrameName(i int) string {
	f := v.frames[i]
	method := strings.ToLower(strings.ReplaceAll(f.Method, " ", "_"))
	ratio := strings.ReplaceAll(fmt.Sprintf("%g", f.Ratio), ".", "p")
	return fmt.Sprintf("%s_r%s", method, ratio)
}

// SaveSequence writes the original and every reconstruction as PNG files,
// with a difference image next to each reconstruction when withDiff is set
func (v *Viewer) SaveSequence(outputDir string, withDiff bool) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	img, err := v.ExtractFrame(-1)
	if err != nil {
		return err
	}
	if err := imageio.Save(img, filepath.Join(outputDir, "original.png")); err != nil {
		return err
	}

	for i := range v.frames {
		img, err := v.ExtractFrame(i)
		if err != nil {
			return err
		}
		name := v.FrameName(i)
		if err := imageio.Save(img, filepath.Join(outputDir, name+".png")); err != nil {
			return err
		}
		if !withDiff {
			continue
		}
		diff, err := v.ExtractDifference(i)
		if err != nil {
			return err
		}
		if err := imageio.Save(diff, filepath.Join(outputDir, name+"_diff.png")); err != nil {
			return err
		}
	}
	return nil
}
