package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaster_Equalize(t *testing.T) {
	tests := []struct {
		name string
		in   []uint8
		want []uint8
	}{
		{
			name: "uniform raster is unchanged",
			in:   []uint8{7, 7, 7, 7},
			want: []uint8{7, 7, 7, 7},
		},
		{
			name: "uniform black is unchanged",
			in:   []uint8{0, 0},
			want: []uint8{0, 0},
		},
		{
			name: "two levels are stretched",
			in:   []uint8{10, 10, 200, 200},
			want: []uint8{0, 0, 255, 255},
		},
		{
			name: "even ramp",
			in:   []uint8{0, 1, 2, 3},
			want: []uint8{0, 85, 170, 255},
		},
		{
			name: "skewed distribution",
			in:   []uint8{50, 50, 50, 60, 70},
			want: []uint8{0, 0, 0, 128, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Raster{Width: len(tt.in), Height: 1, Pix: append([]uint8(nil), tt.in...)}
			got := r.Equalize()
			assert.Equal(t, tt.want, got.Pix)
			assert.Equal(t, tt.in, r.Pix, "input must not be modified")
		})
	}
}
