// Package bitrate estimates the encoded size of a codec payload.
//
// The estimate quantizes the retained numbers to signed bytes against their
// peak magnitude and entropy-codes them with zstd. It is an approximation of
// what a real bitstream would cost, useful for plotting quality against
// bits per pixel.
package bitrate

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// headerBytes holds the float32 dequantization scale
const headerBytes = 4

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error
)

// encoder returns the shared zstd encoder. EncodeAll is safe for concurrent use.
func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBestCompression),
			zstd.WithEncoderConcurrency(1),
		)
	})
	return enc, encErr
}

// Quantize maps payload onto int8 levels scaled by its peak magnitude and
// returns the levels together with the scale needed to invert them.
func Quantize(payload []float64) ([]byte, float64) {
	peak := 0.0
	for _, v := range payload {
		peak = math.Max(peak, math.Abs(v))
	}

	out := make([]byte, len(payload))
	if peak == 0 {
		return out, 0
	}
	scale := peak / 127
	for i, v := range payload {
		out[i] = byte(int8(math.Round(v / scale)))
	}
	return out, scale
}

// Dequantize inverts Quantize
func Dequantize(levels []byte, scale float64) []float64 {
	out := make([]float64, len(levels))
	for i, b := range levels {
		out[i] = float64(int8(b)) * scale
	}
	return out
}

// Encode returns the compressed representation of payload
func Encode(payload []float64) ([]byte, error) {
	e, err := encoder()
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd encoder")
	}

	levels, scale := Quantize(payload)
	buf := make([]byte, headerBytes, headerBytes+len(levels))
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(scale)))
	return e.EncodeAll(levels, buf), nil
}

// Estimate returns the bits per pixel of the encoded payload for an image
// with the given number of pixels, and the encoded size in bytes.
func Estimate(payload []float64, pixels int) (float64, int, error) {
	if pixels <= 0 {
		return 0, 0, errors.Errorf("invalid pixel count %d", pixels)
	}
	encoded, err := Encode(payload)
	if err != nil {
		return 0, 0, err
	}
	return 8 * float64(len(encoded)) / float64(pixels), len(encoded), nil
}
