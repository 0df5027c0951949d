package bitmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrayFromRGBA(t *testing.T) {
	type args struct {
		pix    []byte
		width  int
		height int
	}
	tests := []struct {
		name    string
		args    args
		want    []uint8
		wantErr error
	}{
		{
			name: "primary colours",
			args: args{
				pix: []byte{
					255, 255, 255, 255,
					0, 0, 0, 255,
					255, 0, 0, 255,
					0, 255, 0, 255,
					0, 0, 255, 255,
				},
				width:  5,
				height: 1,
			},
			want: []uint8{255, 0, 76, 149, 29},
		},
		{
			name: "alpha is ignored",
			args: args{
				pix:    []byte{200, 200, 200, 0, 10, 10, 10, 128},
				width:  1,
				height: 2,
			},
			want: []uint8{200, 10},
		},
		{
			name:    "zero width",
			args:    args{pix: nil, width: 0, height: 1},
			wantErr: ErrInvalidDimensions,
		},
		{
			name:    "negative height",
			args:    args{pix: nil, width: 1, height: -1},
			wantErr: ErrInvalidDimensions,
		},
		{
			name:    "short buffer",
			args:    args{pix: make([]byte, 7), width: 2, height: 1},
			wantErr: ErrBufferSize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GrayFromRGBA(tt.args.pix, tt.args.width, tt.args.height)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.args.width, got.Width)
			assert.Equal(t, tt.args.height, got.Height)
			assert.Equal(t, tt.want, got.Pix)
		})
	}
}

func TestGrayFromImage(t *testing.T) {
	t.Run("offset bounds", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(2, 3, 4, 4))
		img.Set(2, 3, color.NRGBA{255, 255, 255, 255})
		img.Set(3, 3, color.NRGBA{0, 0, 0, 255})
		got, err := GrayFromImage(img)
		require.NoError(t, err)
		assert.Equal(t, &Raster{Width: 2, Height: 1, Pix: []uint8{255, 0}}, got)
	})
	t.Run("gray image", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 3, 1))
		img.Pix = []uint8{0, 100, 255}
		got, err := GrayFromImage(img)
		require.NoError(t, err)
		assert.Equal(t, []uint8{0, 100, 255}, got.Pix)
	})
	t.Run("empty image", func(t *testing.T) {
		_, err := GrayFromImage(image.NewRGBA(image.Rect(0, 0, 0, 10)))
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
	t.Run("nil image", func(t *testing.T) {
		_, err := GrayFromImage(nil)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
}

func TestRaster_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       *Raster
		wantErr error
	}{
		{"ok", &Raster{Width: 2, Height: 2, Pix: make([]uint8, 4)}, nil},
		{"nil", nil, ErrInvalidDimensions},
		{"zero size", &Raster{}, ErrInvalidDimensions},
		{"buffer mismatch", &Raster{Width: 2, Height: 2, Pix: make([]uint8, 3)}, ErrBufferSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRaster_IsDocument(t *testing.T) {
	white, err := NewUniform(10, 10, 255)
	require.NoError(t, err)
	assert.True(t, white.IsDocument(0, 0))

	ramp, err := NewRaster(256, 1)
	require.NoError(t, err)
	for i := range ramp.Pix {
		ramp.Pix[i] = uint8(i)
	}
	assert.False(t, ramp.IsDocument(0, 0))
	assert.False(t, (*Raster)(nil).IsDocument(0, 0))
}

func TestRaster_Gray(t *testing.T) {
	r := &Raster{Width: 2, Height: 1, Pix: []uint8{10, 20}}
	g := r.Gray()
	assert.Equal(t, image.Rect(0, 0, 2, 1), g.Bounds())
	assert.Equal(t, color.Gray{Y: 20}, g.GrayAt(1, 0))
}
