package bitmap

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

// PatternFunc draws a test pattern that is width pixels wide.
type PatternFunc func(width int) image.Image

var patterns = map[string]PatternFunc{
	"lastline":   LastLineTest,
	"millimeter": MillimeterLines,
	"sinusoidal": Sinusoidal,
	"checkers":   Checkers,
	"gradient":   Gradient,
	"frame":      Frame,
}

// Pattern returns the pattern function by name.
func Pattern(name string) (PatternFunc, bool) {
	fn, ok := patterns[name]
	return fn, ok
}

// AllPatterns returns the sorted pattern names.
func AllPatterns() []string {
	names := make([]string, 0, len(patterns))
	for k := range patterns {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func whiteCanvas(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// LastLineTest draws 8 bands, 2 dots high each, of alternating dots shifted
// by one dot per band, so that the head fires every other dot.
//
//	| | | |
//	 | | | |
//	| | | |
//	 | | | |
func LastLineTest(width int) image.Image {
	img := whiteCanvas(width, 16)
	for y := 0; y < 8; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y*2, color.Gray{})
				img.SetGray(x, y*2+1, color.Gray{})
			}
		}
	}
	return img
}

// MillimeterLines draws a running staircase of 8-dot (1mm at 203 dpi)
// segments, repeated every 40 dots.
//
//	--      --
//	  --      --
//	    --      --
func MillimeterLines(width int) image.Image {
	img := whiteCanvas(width, 48)
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := y * 8; x < width; x += 40 {
			for x1 := x; x1 < x+8 && x1 < width; x1++ {
				img.SetGray(x1, y, color.Gray{})
			}
		}
	}
	return img
}

// Sinusoidal draws a single dot sine wave with a period of 100 dots.
func Sinusoidal(width int) image.Image {
	img := whiteCanvas(width, 64)
	for x := 0; x < width; x++ {
		y := int(32 + 30*math.Sin(float64(x)*2*math.Pi/100))
		if y >= 0 && y < img.Bounds().Dy() {
			img.SetGray(x, y, color.Gray{})
		}
	}
	return img
}

// Checkers draws a one dot checkerboard, 16 rows high, starting with white
// in the top left corner.
func Checkers(width int) image.Image {
	img := whiteCanvas(width, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 1 {
				img.SetGray(x, y, color.Gray{})
			}
		}
	}
	return img
}

// Gradient draws a horizontal black to white ramp, 64 rows high.  Useful to
// compare dither modes.
func Gradient(width int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, 64))
	for x := 0; x < width; x++ {
		v := uint8(0)
		if width > 1 {
			v = uint8(x * 255 / (width - 1))
		}
		for y := 0; y < 64; y++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// Frame draws a one dot frame around a width x width/2 canvas with a
// diagonal from the top left corner.
func Frame(width int) image.Image {
	h := max(width/2, 1)
	img := whiteCanvas(width, h)
	for x := 0; x < width; x++ {
		img.SetGray(x, 0, color.Gray{})
		img.SetGray(x, h-1, color.Gray{})
	}
	for y := 0; y < h; y++ {
		img.SetGray(0, y, color.Gray{})
		img.SetGray(width-1, y, color.Gray{})
		if y < width {
			img.SetGray(y, y, color.Gray{})
		}
	}
	return img
}
