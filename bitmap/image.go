// Package bitmap provides the raster transforms that turn a decoded image
// into a packed monochrome bitmap for a thermal printer.
package bitmap

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThreshold is the default threshold for dark pixels.
	DefaultThreshold = 128
	// DefaultGamma is a special value that disables gamma correction.
	DefaultGamma = 0.0
)

var (
	// ErrInvalidDimensions is returned when the width or height of a raster
	// is not positive.
	ErrInvalidDimensions = errors.New("invalid raster dimensions")
	// ErrBufferSize is returned when the pixel buffer length does not match
	// the declared dimensions.
	ErrBufferSize = errors.New("pixel buffer size mismatch")
)

// Raster is a single channel 8-bit luminance raster, row-major.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster allocates a black (zero filled) raster of the given size.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Raster{Width: width, Height: height, Pix: make([]uint8, width*height)}, nil
}

// NewUniform returns a raster filled with the luminance value v.
func NewUniform(width, height int, v uint8) (*Raster, error) {
	r, err := NewRaster(width, height)
	if err != nil {
		return nil, err
	}
	for i := range r.Pix {
		r.Pix[i] = v
	}
	return r, nil
}

// Validate checks that the raster dimensions are positive and match the
// pixel buffer.
func (r *Raster) Validate() error {
	if r == nil {
		return ErrInvalidDimensions
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height {
		return fmt.Errorf("%w: have %d, want %d", ErrBufferSize, len(r.Pix), r.Width*r.Height)
	}
	return nil
}

// At returns the luminance at x, y.
func (r *Raster) At(x, y int) uint8 {
	return r.Pix[y*r.Width+x]
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Gray returns the raster as an [image.Gray] sharing the pixel buffer.
func (r *Raster) Gray() *image.Gray {
	return &image.Gray{
		Pix:    r.Pix,
		Stride: r.Width,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// GrayFromRGBA converts a non-premultiplied RGBA buffer (4 bytes per pixel)
// to luminance using the BT.601 luma weights.  Alpha is ignored.
func GrayFromRGBA(pix []byte, width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrBufferSize, len(pix), width*height*4)
	}
	r := &Raster{Width: width, Height: height, Pix: make([]uint8, width*height)}
	for i := range r.Pix {
		p := pix[i*4 : i*4+3 : i*4+3]
		r.Pix[i] = luma(p[0], p[1], p[2])
	}
	return r, nil
}

// GrayFromImage flattens any image to non-premultiplied RGBA and converts it
// to luminance.
func GrayFromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, ErrInvalidDimensions
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Dx(), b.Dy())
	}
	nrgba := imaging.Clone(img)
	return GrayFromRGBA(nrgba.Pix, b.Dx(), b.Dy())
}

// luma is 0.299R + 0.587G + 0.114B, truncated.  Integer weights keep pure
// white at 255.
func luma(r, g, b uint8) uint8 {
	y := (299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000
	if y > math.MaxUint8 {
		y = math.MaxUint8
	}
	return uint8(y)
}

// histogram returns the 256 bin luminance histogram of the raster.
func (r *Raster) histogram() [math.MaxUint8 + 1]int {
	var hist [math.MaxUint8 + 1]int
	for _, v := range r.Pix {
		hist[v]++
	}
	return hist
}

// IsDocument reports whether the raster looks like a scanned document, that
// is, more than 85% of pixels are either darker than darkThreshold or lighter
// than lightThreshold.  Zero thresholds select 50 and 200.
func (r *Raster) IsDocument(darkThreshold, lightThreshold uint8) bool {
	if r == nil || len(r.Pix) == 0 {
		return false
	}
	if darkThreshold == 0 {
		darkThreshold = 50
	}
	if lightThreshold == 0 {
		lightThreshold = 200
	}
	histogram := r.histogram()
	var (
		darkPixelCount  float64
		lightPixelCount float64
		totalPixelCount float64
	)
	for i, count := range histogram {
		totalPixelCount += float64(count)
		if i < int(darkThreshold) {
			darkPixelCount += float64(count)
		} else if i >= int(lightThreshold) {
			lightPixelCount += float64(count)
		}
	}
	if totalPixelCount == 0 {
		return false
	}
	return (darkPixelCount+lightPixelCount)/totalPixelCount > 0.85
}
