package models

import (
	"fmt"
	"math"
)

// Shape describes the (channel, height, width) layout of an Image
type Shape struct {
	C, H, W int
}

// Len returns the number of elements an image of this shape holds
func (s Shape) Len() int { return s.C * s.H * s.W }

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.C, s.H, s.W)
}

// Image is a multi-channel image with values normalized to [0, 1].
// Data is stored channel by channel, each channel in row-major order,
// so element (c, y, x) lives at c*H*W + y*W + x.
type Image struct {
	// Channels is the number of colour planes (1 for grayscale, 3 for RGB)
	Channels int

	// Height and Width are the spatial dimensions in pixels
	Height int
	Width  int

	// Data holds Channels*Height*Width samples
	Data []float64
}

// NewImage allocates a zeroed image of the given shape
func NewImage(channels, height, width int) *Image {
	return &Image{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float64, channels*height*width),
	}
}

// NewImageFromShape allocates a zeroed image with shape s
func NewImageFromShape(s Shape) *Image {
	return NewImage(s.C, s.H, s.W)
}

// Shape returns the (C, H, W) shape of the image
func (img *Image) Shape() Shape {
	return Shape{C: img.Channels, H: img.Height, W: img.Width}
}

// At returns the sample at channel c, row y, column x
func (img *Image) At(c, y, x int) float64 {
	return img.Data[(c*img.Height+y)*img.Width+x]
}

// Set stores v at channel c, row y, column x
func (img *Image) Set(c, y, x int, v float64) {
	img.Data[(c*img.Height+y)*img.Width+x] = v
}

// Plane returns the backing slice of channel c. Writes go to the image.
func (img *Image) Plane(c int) []float64 {
	n := img.Height * img.Width
	return img.Data[c*n : (c+1)*n]
}

// Clone returns a deep copy of the image
func (img *Image) Clone() *Image {
	out := &Image{
		Channels: img.Channels,
		Height:   img.Height,
		Width:    img.Width,
		Data:     make([]float64, len(img.Data)),
	}
	copy(out.Data, img.Data)
	return out
}

// Clip clamps every sample into [0, 1] in place and returns the image
func (img *Image) Clip() *Image {
	for i, v := range img.Data {
		img.Data[i] = math.Max(0, math.Min(1, v))
	}
	return img
}

// Equal reports whether both images have the same shape and identical samples
func (img *Image) Equal(other *Image) bool {
	if img.Shape() != other.Shape() {
		return false
	}
	for i, v := range img.Data {
		if other.Data[i] != v {
			return false
		}
	}
	return true
}

// Sample is one dataset item. Label is carried through untouched.
type Sample struct {
	Index int
	Image *Image
	Label string
}

// MetricSample is a single scored reconstruction. The requested and achieved
// ratios differ whenever the codec parameter was rounded or clamped.
type MetricSample struct {
	Method         string
	RequestedRatio float64
	AchievedRatio  float64
	Metric         string
	Value          float64
}

// Point is an (x, y) sample on a metric curve
type Point struct {
	X, Y float64
}
