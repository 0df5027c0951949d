package bitmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMono_Pack(t *testing.T) {
	tests := []struct {
		name string
		mono *Mono
		want *Packed
	}{
		{
			name: "8x1 all black",
			mono: &Mono{Width: 8, Height: 1, Bits: []uint8{1, 1, 1, 1, 1, 1, 1, 1}},
			want: &Packed{Width: 8, Height: 1, RowBytes: 1, Data: []byte{0xff}},
		},
		{
			name: "msb first",
			mono: &Mono{Width: 8, Height: 1, Bits: []uint8{1, 0, 0, 0, 0, 0, 0, 1}},
			want: &Packed{Width: 8, Height: 1, RowBytes: 1, Data: []byte{0x81}},
		},
		{
			name: "padding bits are zero",
			mono: &Mono{Width: 10, Height: 2, Bits: []uint8{
				1, 0, 0, 0, 0, 0, 0, 0, 0, 1,
				1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
			}},
			want: &Packed{Width: 10, Height: 2, RowBytes: 2, Data: []byte{
				0x80, 0x40,
				0xff, 0xc0,
			}},
		},
		{
			name: "1x1 white",
			mono: &Mono{Width: 1, Height: 1, Bits: []uint8{0}},
			want: &Packed{Width: 1, Height: 1, RowBytes: 1, Data: []byte{0x00}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mono.Pack())
		})
	}
}

func TestMono_Pack_length(t *testing.T) {
	for _, w := range []int{1, 7, 8, 9, 383, 384, 385} {
		for _, h := range []int{1, 3} {
			m := &Mono{Width: w, Height: h, Bits: make([]uint8, w*h)}
			for i := range m.Bits {
				m.Bits[i] = 1
			}
			p := m.Pack()
			assert.Len(t, p.Data, ((w+7)/8)*h, "%dx%d", w, h)
			// every pixel round trips and nothing beyond the width is set.
			for y := 0; y < h; y++ {
				for x := 0; x < p.RowBytes*8; x++ {
					set := p.Row(y)[x>>3]&(1<<(7-(x&7))) != 0
					assert.Equal(t, x < w, set, "%dx%d at %d,%d", w, h, x, y)
					assert.Equal(t, x < w, p.Bit(x, y))
				}
			}
		}
	}
}

func TestPacked_Row(t *testing.T) {
	p := &Packed{Width: 16, Height: 2, RowBytes: 2, Data: []byte{1, 2, 3, 4}}
	assert.Equal(t, []byte{3, 4}, p.Row(1))
}

func TestMono_image(t *testing.T) {
	m := &Mono{Width: 2, Height: 1, Bits: []uint8{1, 0}}
	assert.Equal(t, image.Rect(0, 0, 2, 1), m.Bounds())
	assert.Equal(t, color.Black, m.At(0, 0))
	assert.Equal(t, color.White, m.At(1, 0))
	assert.Equal(t, color.White, m.At(5, 5))
	assert.Equal(t, &Raster{Width: 2, Height: 1, Pix: []uint8{0, 255}}, m.Raster())
}
