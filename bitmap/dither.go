package bitmap

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/makeworld-the-better-one/dither/v2"
)

// DitherMode selects the binarisation algorithm.
type DitherMode uint8

const (
	// DitherNone is a plain threshold at [DefaultThreshold].
	DitherNone DitherMode = iota
	// DitherBayer is ordered dithering with a 4x4 Bayer matrix.
	DitherBayer
	// DitherFloydSteinberg is Floyd-Steinberg error diffusion.
	DitherFloydSteinberg
	// DitherAtkinson is Atkinson error diffusion.
	DitherAtkinson
	// DitherStucki is Stucki error diffusion.
	DitherStucki
)

// DefaultDitherMode is the mode used when none is given.
const DefaultDitherMode = DitherFloydSteinberg

// ErrUnknownDither is returned by [ParseDitherMode] and [Dither] for
// unsupported modes.
var ErrUnknownDither = errors.New("unknown dither mode")

// DitherFunc converts a luminance raster to a monochrome bitmap.  It must not
// modify the input.
type DitherFunc func(r *Raster) *Mono

var ditherFunctions = map[DitherMode]DitherFunc{
	DitherNone:           Threshold,
	DitherBayer:          Bayer,
	DitherFloydSteinberg: FloydSteinberg,
	DitherAtkinson:       Atkinson,
	DitherStucki:         Stucki,
}

var modeNames = map[DitherMode]string{
	DitherNone:           "none",
	DitherBayer:          "bayer",
	DitherFloydSteinberg: "floyd",
	DitherAtkinson:       "atkinson",
	DitherStucki:         "stucki",
}

var modeAliases = map[string]DitherMode{
	"threshold":       DitherNone,
	"no-dither":       DitherNone,
	"floyd-steinberg": DitherFloydSteinberg,
}

func (m DitherMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("DitherMode(%d)", uint8(m))
}

// Set implements [flag.Value].
func (m *DitherMode) Set(s string) error {
	v, err := ParseDitherMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseDitherMode parses the dither mode name.  Empty string returns
// [DefaultDitherMode].
func ParseDitherMode(s string) (DitherMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultDitherMode, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	if m, ok := modeAliases[s]; ok {
		return m, nil
	}
	return DitherNone, fmt.Errorf("%w: %q", ErrUnknownDither, s)
}

// AllDitherModes returns a sorted list of all dither mode names.
func AllDitherModes() []string {
	keys := make([]string, 0, len(modeNames))
	for _, name := range modeNames {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Dither applies the dithering algorithm m to the raster.
func Dither(r *Raster, m DitherMode) (*Mono, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	fn, ok := ditherFunctions[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDither, m)
	}
	return fn(r), nil
}

// Threshold marks pixels darker than [DefaultThreshold] as black.
func Threshold(r *Raster) *Mono {
	out := newMonoLike(r)
	for i, v := range r.Pix {
		if v < DefaultThreshold {
			out.Bits[i] = 1
		}
	}
	return out
}

var bayer4 = [4][4]float64{
	{15, 7, 13, 5},
	{3, 11, 1, 9},
	{12, 4, 14, 6},
	{0, 8, 2, 10},
}

// Bayer applies ordered dithering with the 4x4 Bayer matrix.
func Bayer(r *Raster) *Mono {
	const n = 4
	out := newMonoLike(r)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			threshold := (bayer4[y%n][x%n] + 0.5) * (255.0 / (n * n))
			if float64(r.Pix[y*r.Width+x]) < threshold {
				out.Bits[y*r.Width+x] = 1
			}
		}
	}
	return out
}

// workCopy returns a float copy of the raster pixels for error diffusion.
func workCopy(r *Raster) []float32 {
	g := make([]float32, len(r.Pix))
	for i, v := range r.Pix {
		g[i] = float32(v)
	}
	return g
}

// quantize returns the nearest of 0 and 255 for v, and whether it is black.
func quantize(v float32) (float32, bool) {
	if v < DefaultThreshold {
		return 0, true
	}
	return 255, false
}

// diffuse adds share of the error to g[j].  The share and the sum are
// computed in float64 and rounded to float32 once, on store.
func diffuse(g []float32, j int, err, num, den float64) {
	g[j] = float32(float64(g[j]) + err*num/den)
}

// FloydSteinberg applies Floyd-Steinberg error diffusion.  Error that would
// fall outside the raster is dropped.
func FloydSteinberg(r *Raster) *Mono {
	w, h := r.Width, r.Height
	out := newMonoLike(r)
	g := workCopy(r)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			old := g[i]
			nv, black := quantize(old)
			if black {
				out.Bits[i] = 1
			}
			err := float64(old) - float64(nv)
			if x+1 < w {
				diffuse(g, i+1, err, 7, 16)
			}
			if y+1 < h {
				if x > 0 {
					diffuse(g, i+w-1, err, 3, 16)
				}
				diffuse(g, i+w, err, 5, 16)
				if x+1 < w {
					diffuse(g, i+w+1, err, 1, 16)
				}
			}
		}
	}
	return out
}

// atkinsonSpread lists the neighbours that receive 1/8 of the error each.
var atkinsonSpread = [...]struct{ dx, dy int }{
	{1, 0}, {2, 0},
	{-1, 1}, {0, 1}, {1, 1},
	{0, 2},
}

// Atkinson applies Atkinson error diffusion.  Only 6/8 of the error is
// propagated, out-of-bounds shares are dropped.
func Atkinson(r *Raster) *Mono {
	w, h := r.Width, r.Height
	out := newMonoLike(r)
	g := workCopy(r)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			old := g[i]
			nv, black := quantize(old)
			if black {
				out.Bits[i] = 1
			}
			err := float64(old) - float64(nv)
			for _, d := range atkinsonSpread {
				nx, ny := x+d.dx, y+d.dy
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					diffuse(g, ny*w+nx, err, 1, 8)
				}
			}
		}
	}
	return out
}

// Stucki applies Stucki error diffusion using the dither library.
func Stucki(r *Raster) *Mono {
	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	d.Matrix = dither.Stucki
	pal := d.DitherPaletted(r.Gray())
	out := newMonoLike(r)
	for y := 0; y < r.Height; y++ {
		row := pal.Pix[y*pal.Stride : y*pal.Stride+r.Width]
		for x, idx := range row {
			if idx == 0 { // black is the first palette entry
				out.Bits[y*r.Width+x] = 1
			}
		}
	}
	return out
}
