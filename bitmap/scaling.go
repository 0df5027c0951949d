package bitmap

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultWidth is the printable width of a 58mm printer at 203 dpi.
const DefaultWidth = 384

// DefaultFilter is the resampling filter used for downscaling.
var DefaultFilter = imaging.Lanczos

// ErrEmptyCrop is returned when the crop rectangle does not overlap the image.
var ErrEmptyCrop = errors.New("crop rectangle is empty")

// FitSize computes the dimensions of a w x h image fitted to maxWidth.  A
// landscape image wider than maxWidth is rotated first (rotated is true, and
// the dimensions are swapped), then, if it is still too wide, it is scaled
// down to exactly maxWidth preserving the aspect ratio.  Images are never
// upscaled.
func FitSize(w, h, maxWidth int) (fw, fh int, rotated bool) {
	if maxWidth <= 0 {
		return w, h, false
	}
	if w > maxWidth && w > h {
		w, h = h, w
		rotated = true
	}
	if w > maxWidth {
		h = int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
		w = maxWidth
		if h < 1 {
			h = 1
		}
	}
	return w, h, rotated
}

// FitToWidth rotates and resizes img as computed by [FitSize].  Rotation is
// 90 degrees counter-clockwise.  If the image already fits, it is returned
// as is.
func FitToWidth(img image.Image, maxWidth int, filter imaging.ResampleFilter) image.Image {
	b := img.Bounds()
	w, h, rotated := FitSize(b.Dx(), b.Dy(), maxWidth)
	if rotated {
		img = imaging.Rotate90(img)
		b = img.Bounds()
	}
	if w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(img, w, h, filter)
	}
	return img
}

// Crop crops img to rect, clamped to the image bounds.  A zero rect returns
// the image unchanged.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	if rect == (image.Rectangle{}) {
		return img, nil
	}
	r := rect.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v outside %v", ErrEmptyCrop, rect, img.Bounds())
	}
	return imaging.Crop(img, r), nil
}

// AdjustGamma applies gamma correction.  [DefaultGamma] and 1.0 are no-op.
func AdjustGamma(img image.Image, gamma float64) image.Image {
	if gamma == DefaultGamma || gamma == 1.0 {
		return img
	}
	return imaging.AdjustGamma(img, gamma)
}
