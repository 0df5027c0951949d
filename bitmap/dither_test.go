package bitmap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(t *testing.T, w, h int, v uint8) *Raster {
	t.Helper()
	r, err := NewUniform(w, h, v)
	require.NoError(t, err)
	return r
}

func blackFraction(m *Mono) float64 {
	return float64(m.Black()) / float64(len(m.Bits))
}

func TestParseDitherMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DitherMode
		wantErr bool
	}{
		{"none", DitherNone, false},
		{"threshold", DitherNone, false},
		{"no-dither", DitherNone, false},
		{"bayer", DitherBayer, false},
		{"floyd", DitherFloydSteinberg, false},
		{"Floyd-Steinberg", DitherFloydSteinberg, false},
		{"atkinson", DitherAtkinson, false},
		{" stucki ", DitherStucki, false},
		{"", DefaultDitherMode, false},
		{"sierra", DitherNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDitherMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownDither)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDitherMode_String(t *testing.T) {
	for _, name := range AllDitherModes() {
		m, err := ParseDitherMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	assert.Equal(t, "DitherMode(42)", DitherMode(42).String())
}

func TestAllDitherModes(t *testing.T) {
	assert.Equal(t, []string{"atkinson", "bayer", "floyd", "none", "stucki"}, AllDitherModes())
}

func TestDither(t *testing.T) {
	t.Run("invalid raster", func(t *testing.T) {
		_, err := Dither(&Raster{Width: 1, Height: 1}, DitherNone)
		assert.ErrorIs(t, err, ErrBufferSize)
	})
	t.Run("unknown mode", func(t *testing.T) {
		_, err := Dither(uniform(t, 1, 1, 0), DitherMode(99))
		assert.ErrorIs(t, err, ErrUnknownDither)
	})
	t.Run("dimensions are preserved", func(t *testing.T) {
		for _, name := range AllDitherModes() {
			m, _ := ParseDitherMode(name)
			got, err := Dither(uniform(t, 5, 3, 128), m)
			require.NoError(t, err, name)
			assert.Equal(t, 5, got.Width, name)
			assert.Equal(t, 3, got.Height, name)
			assert.Len(t, got.Bits, 15, name)
		}
	})
	t.Run("input is not modified", func(t *testing.T) {
		for _, name := range AllDitherModes() {
			m, _ := ParseDitherMode(name)
			r := uniform(t, 8, 8, 100)
			_, err := Dither(r, m)
			require.NoError(t, err)
			assert.Equal(t, uniform(t, 8, 8, 100), r, name)
		}
	})
}

func TestThreshold(t *testing.T) {
	r := &Raster{Width: 4, Height: 1, Pix: []uint8{127, 128, 0, 255}}
	assert.Equal(t, []uint8{1, 0, 1, 0}, Threshold(r).Bits)
}

func TestThreshold_idempotent(t *testing.T) {
	r, err := NewRaster(16, 16)
	require.NoError(t, err)
	for i := range r.Pix {
		r.Pix[i] = uint8(i * 7)
	}
	first := Threshold(r)
	second := Threshold(first.Raster())
	assert.Equal(t, first.Bits, second.Bits)
}

func TestBayer(t *testing.T) {
	t.Run("white stays white", func(t *testing.T) {
		assert.Zero(t, Bayer(uniform(t, 16, 16, 255)).Black())
	})
	t.Run("black stays black", func(t *testing.T) {
		assert.Equal(t, 256, Bayer(uniform(t, 16, 16, 0)).Black())
	})
	t.Run("matrix order", func(t *testing.T) {
		// 8 lies between thresholds of m=0 (7.97) and m=1 (23.9), so only
		// the cell with m == 0 stays white.
		got := Bayer(uniform(t, 4, 4, 8))
		want := make([]uint8, 16)
		for i := range want {
			want[i] = 1
		}
		want[3*4+0] = 0
		assert.Equal(t, want, got.Bits)
	})
	t.Run("mid gray is half", func(t *testing.T) {
		got := Bayer(uniform(t, 4, 4, 128))
		assert.Equal(t, 8, got.Black())
	})
}

func TestFloydSteinberg(t *testing.T) {
	t.Run("error flows east", func(t *testing.T) {
		got := FloydSteinberg(&Raster{Width: 2, Height: 1, Pix: []uint8{100, 100}})
		assert.Equal(t, []uint8{1, 0}, got.Bits)
	})
	t.Run("rounds once per update", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(1))
		for n := 0; n < 20; n++ {
			r, err := NewRaster(64, 64)
			require.NoError(t, err)
			for i := range r.Pix {
				r.Pix[i] = uint8(rnd.Intn(256))
			}
			assert.Equal(t, floydSteinbergFloat64(r), FloydSteinberg(r).Bits, "raster %d", n)
		}
	})
	t.Run("tracks mean darkness", func(t *testing.T) {
		prev := 1.0
		for v := 0; v <= 255; v += 17 {
			got := blackFraction(FloydSteinberg(uniform(t, 64, 64, uint8(v))))
			want := float64(255-v) / 255
			assert.InDelta(t, want, got, 0.02, "level %d", v)
			assert.LessOrEqual(t, got, prev, "level %d", v)
			prev = got
		}
	})
}

func TestFloydSteinberg_edges(t *testing.T) {
	// Expected bits are computed by hand.  Moving the dropped edge shares
	// onto a neighbour flips at least one pixel in every case.
	tests := []struct {
		name string
		r    *Raster
		want []uint8
	}{
		{
			// 90 + 100*5/16 = 121.25, black.  With the SW and SE shares it
			// would be 146.25.
			name: "single column",
			r:    &Raster{Width: 1, Height: 2, Pix: []uint8{100, 90}},
			want: []uint8{1, 1},
		},
		{
			// (1,0) drops its SE share.  (1,1) = 150 + 31.25 - 55.234375 =
			// 126.015625, black.  With the SE share it would be 132.27.
			name: "2x2 right edge",
			r:    &Raster{Width: 2, Height: 2, Pix: []uint8{255, 100, 110, 150}},
			want: []uint8{0, 1, 0, 1},
		},
		{
			// (0,1) drops its SW share.  (0,2) = 80 + 31.25 + 8.203125 =
			// 119.453125, black.  With the SW share it would be 138.2.
			name: "3x3 left edge",
			r: &Raster{Width: 3, Height: 3, Pix: []uint8{
				255, 255, 255,
				100, 255, 255,
				80, 255, 255,
			}},
			want: []uint8{
				0, 0, 0,
				1, 0, 0,
				1, 0, 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FloydSteinberg(tt.r).Bits)
		})
	}
}

// floydSteinbergFloat64 diffuses the error over a float32 buffer, computing
// each update in float64.
func floydSteinbergFloat64(r *Raster) []uint8 {
	w, h := r.Width, r.Height
	g := make([]float32, len(r.Pix))
	for i, v := range r.Pix {
		g[i] = float32(v)
	}
	bits := make([]uint8, len(g))
	add := func(j int, v float64) { g[j] = float32(float64(g[j]) + v) }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			old := float64(g[i])
			nv := 255.0
			if old < 128 {
				nv = 0
				bits[i] = 1
			}
			e := old - nv
			if x+1 < w {
				add(i+1, e*7/16)
			}
			if y+1 < h {
				if x > 0 {
					add(i+w-1, e*3/16)
				}
				add(i+w, e*5/16)
				if x+1 < w {
					add(i+w+1, e*1/16)
				}
			}
		}
	}
	return bits
}

func TestAtkinson_edges(t *testing.T) {
	// (0,0) drops its (-1,1) share.  (0,1) = 110 + 12.5 + 1.5625 = 124.0625,
	// black.  With the dropped share it would be 136.5625.
	got := Atkinson(&Raster{Width: 2, Height: 2, Pix: []uint8{100, 255, 110, 255}})
	assert.Equal(t, []uint8{1, 0, 1, 0}, got.Bits)
}

func TestAtkinson(t *testing.T) {
	t.Run("two eighths are lost", func(t *testing.T) {
		// The third pixel receives 100+12.5+14.0625 and stays black.
		got := Atkinson(&Raster{Width: 3, Height: 1, Pix: []uint8{100, 100, 100}})
		assert.Equal(t, []uint8{1, 1, 1}, got.Bits)
	})
	t.Run("tracks mean darkness", func(t *testing.T) {
		prev := 1.0
		for v := 0; v <= 255; v += 51 {
			got := blackFraction(Atkinson(uniform(t, 64, 64, uint8(v))))
			assert.LessOrEqual(t, got, prev, "level %d", v)
			prev = got
		}
		assert.Equal(t, 1.0, blackFraction(Atkinson(uniform(t, 64, 64, 0))))
		assert.Equal(t, 0.0, blackFraction(Atkinson(uniform(t, 64, 64, 255))))
	})
}

func TestStucki(t *testing.T) {
	assert.Zero(t, Stucki(uniform(t, 16, 16, 255)).Black())
	assert.Equal(t, 256, Stucki(uniform(t, 16, 16, 0)).Black())
}
