package bitmap

import (
	"image"
	"image/color"
)

// Mono is a monochrome bitmap with one byte per pixel, 1 meaning black.
// It implements [image.Image].
type Mono struct {
	Width  int
	Height int
	Bits   []uint8
}

var monoPalette = color.Palette{color.White, color.Black}

func newMonoLike(r *Raster) *Mono {
	return &Mono{Width: r.Width, Height: r.Height, Bits: make([]uint8, r.Width*r.Height)}
}

func (m *Mono) ColorModel() color.Model { return monoPalette }

func (m *Mono) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Mono) At(x, y int) color.Color {
	return monoPalette[m.ColorIndexAt(x, y)]
}

// ColorIndexAt implements [image.PalettedImage], so that PNG previews are
// written as 1-bit images.
func (m *Mono) ColorIndexAt(x, y int) uint8 {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return 0
	}
	return m.Bits[y*m.Width+x] & 1
}

// Black returns the number of black pixels.
func (m *Mono) Black() int {
	n := 0
	for _, b := range m.Bits {
		n += int(b & 1)
	}
	return n
}

// Raster converts the bitmap back to luminance, black as 0 and white as 255.
func (m *Mono) Raster() *Raster {
	r := &Raster{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Bits))}
	for i, b := range m.Bits {
		if b == 0 {
			r.Pix[i] = 255
		}
	}
	return r
}

// Packed is a bitmap with 8 pixels per byte, most significant bit first.
// Each row occupies RowBytes bytes, trailing bits of the last byte are zero.
type Packed struct {
	Width    int
	Height   int
	RowBytes int
	Data     []byte
}

// RowBytes returns the number of bytes needed for a row of width pixels.
func RowBytes(width int) int {
	return (width + 7) / 8
}

// Pack packs the bitmap.
func (m *Mono) Pack() *Packed {
	rowBytes := RowBytes(m.Width)
	p := &Packed{
		Width:    m.Width,
		Height:   m.Height,
		RowBytes: rowBytes,
		Data:     make([]byte, rowBytes*m.Height),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] != 0 {
				p.Data[y*rowBytes+(x>>3)] |= 1 << (7 - (x & 7))
			}
		}
	}
	return p
}

// Bit reports whether the pixel at x, y is black.
func (p *Packed) Bit(x, y int) bool {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return false
	}
	return p.Data[y*p.RowBytes+(x>>3)]&(1<<(7-(x&7))) != 0
}

// Row returns the packed bytes of row y.
func (p *Packed) Row(y int) []byte {
	return p.Data[y*p.RowBytes : (y+1)*p.RowBytes]
}
