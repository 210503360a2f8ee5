// Package imageio converts between decoded images and the float tensors the
// codecs operate on, and reads and writes image files.
package imageio

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"compressbench/internal/models"

	"github.com/pkg/errors"
)

// ErrFormat is returned for file extensions that cannot be read or written
var ErrFormat = errors.New("unsupported image format")

// Extensions lists the file extensions Load accepts
var Extensions = []string{".png", ".jpg", ".jpeg"}

// Supported reports whether path has a readable image extension
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load decodes a PNG or JPEG file
func Load(path string) (image.Image, error) {
	if !Supported(path) {
		return nil, errors.Wrap(ErrFormat, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

// Save encodes img as PNG or JPEG depending on the extension of path
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating image directory")
	}

	var encode func(*os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: 90}) }
	default:
		return errors.Wrap(ErrFormat, path)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(file); err != nil {
		file.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	return file.Close()
}

// ToModel converts img into a float image in [0,1]. Colour images become
// three channels, or one luminance channel when grayscale is set.
func ToModel(img image.Image, grayscale bool) *models.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	channels := 3
	if grayscale || isGray(img) {
		channels = 1
	}
	out := models.NewImage(channels, height, width)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			if channels == 1 {
				g := color.Gray16Model.Convert(c).(color.Gray16)
				out.Set(0, y, x, float64(g.Y)/65535.0)
				continue
			}
			// colour values are un-premultiplied so that transparent
			// regions keep their colour
			n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
			out.Set(0, y, x, float64(n.R)/65535.0)
			out.Set(1, y, x, float64(n.G)/65535.0)
			out.Set(2, y, x, float64(n.B)/65535.0)
		}
	}
	return out
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

// FromModel converts a one- or three-channel float image back to a 16-bit
// image. Values are clipped to [0,1].
func FromModel(img *models.Image) (image.Image, error) {
	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.Channels {
	case 1:
		out := image.NewGray16(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				out.SetGray16(x, y, color.Gray16{Y: to16(img.At(0, y, x))})
			}
		}
		return out, nil

	case 3:
		out := image.NewNRGBA64(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				out.SetNRGBA64(x, y, color.NRGBA64{
					R: to16(img.At(0, y, x)),
					G: to16(img.At(1, y, x)),
					B: to16(img.At(2, y, x)),
					A: 0xffff,
				})
			}
		}
		return out, nil
	}
	return nil, errors.Errorf("cannot render %d channels", img.Channels)
}

// Channel renders one channel of img as a grayscale image
func Channel(img *models.Image, c int) (*image.Gray16, error) {
	if c < 0 || c >= img.Channels {
		return nil, errors.Errorf("channel %d out of range [0, %d)", c, img.Channels)
	}
	out := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetGray16(x, y, color.Gray16{Y: to16(img.At(c, y, x))})
		}
	}
	return out, nil
}

func to16(v float64) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
}
