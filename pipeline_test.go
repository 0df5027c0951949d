package posprint

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

func uniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// testSender records the frames.
type testSender struct {
	frames [][]byte
	err    error
}

func (s *testSender) Send(_ context.Context, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, data)
	return nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, bitmap.DitherFloydSteinberg, cfg.Dither)
	assert.False(t, cfg.AutoEqualize)
	assert.False(t, cfg.IncludeTimestamp)
	assert.Empty(t, cfg.PrefixText)
	assert.Equal(t, 384, cfg.MaxRasterWidth)
	assert.Equal(t, escpos.UTF8, cfg.Encoding)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero width", func(c *Config) { c.MaxRasterWidth = 0 }, true},
		{"negative gamma", func(c *Config) { c.Gamma = -1 }, true},
		{"unknown dither", func(c *Config) { c.Dither = bitmap.DitherMode(200) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestBuild_black8x1(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dither = bitmap.DitherNone
	got, err := Build(uniformImage(8, 1, color.Black), cfg)
	require.NoError(t, err)
	want := []byte{
		0x1b, 0x40, 0x1b, 0x33, 0x00,
		0x1b, 0x40,
		0x1d, 0x76, 0x30, 0x00, 0x01, 0x00, 0x01, 0x00,
		0xff,
		0x0a, 0x0a,
	}
	assert.Equal(t, want, got)
}

func TestBuild_rotateAndResize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dither = bitmap.DitherNone
	got, err := Build(uniformImage(1000, 500, color.White), cfg)
	require.NoError(t, err)
	// 384 dots = 48 bytes per row, 768 rows = 0x0300.
	header := []byte{0x1d, 0x76, 0x30, 0x00, 48, 0x00, 0x00, 0x03}
	assert.Equal(t, header, got[7:15])
	assert.Len(t, got, 7+8+48*768+2)
}

func TestBuild_prefixAndTimestamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefixText = "Hello"
	cfg.IncludeTimestamp = true
	cfg.Now = func() time.Time { return time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC) }
	got, err := Build(uniformImage(8, 1, color.White), cfg)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, []byte("\x1b@\x1b3\x00Hello\n\x1b@")))
	assert.True(t, bytes.HasSuffix(got, []byte("\x00\nWed, Oct 14, 2026, 9:05 AM\n\n")), "%q", got)
}

func TestPrepare(t *testing.T) {
	t.Run("nil image", func(t *testing.T) {
		_, err := Prepare(nil, DefaultConfig())
		assert.ErrorIs(t, err, bitmap.ErrInvalidDimensions)
	})
	t.Run("crop", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Crop = image.Rect(0, 0, 10, 5)
		m, err := Prepare(uniformImage(100, 100, color.White), cfg)
		require.NoError(t, err)
		assert.Equal(t, 10, m.Width)
		assert.Equal(t, 5, m.Height)
	})
	t.Run("crop outside", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Crop = image.Rect(200, 200, 300, 300)
		_, err := Prepare(uniformImage(100, 100, color.White), cfg)
		assert.ErrorIs(t, err, bitmap.ErrEmptyCrop)
	})
	t.Run("equalize stretches contrast", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 2, 1))
		img.Pix = []uint8{100, 110}
		cfg := DefaultConfig()
		cfg.Dither = bitmap.DitherNone

		m, err := Prepare(img, cfg)
		require.NoError(t, err)
		assert.Equal(t, []uint8{1, 1}, m.Bits)

		cfg.AutoEqualize = true
		m, err = Prepare(img, cfg)
		require.NoError(t, err)
		assert.Equal(t, []uint8{1, 0}, m.Bits)
	})
	t.Run("auto dither detects documents", func(t *testing.T) {
		img := uniformImage(16, 16, color.White)
		// a gray block (140) on white, error diffusion would speckle it
		draw.Draw(img, image.Rect(0, 0, 4, 4), image.NewUniform(color.Gray{Y: 140}), image.Point{}, draw.Src)
		cfg := DefaultConfig()
		cfg.AutoDither = true
		m, err := Prepare(img, cfg)
		require.NoError(t, err)
		assert.Zero(t, m.Black())
	})
}

func TestFrame_invalid(t *testing.T) {
	tests := []struct {
		name string
		mono *bitmap.Mono
		want error
	}{
		{"nil", nil, bitmap.ErrInvalidDimensions},
		{"empty", &bitmap.Mono{}, bitmap.ErrInvalidDimensions},
		{"short buffer", &bitmap.Mono{Width: 8, Height: 2, Bits: make([]uint8, 8)}, bitmap.ErrInvalidDimensions},
		{"too tall", &bitmap.Mono{Width: 1, Height: escpos.MaxRasterHeight + 1, Bits: make([]uint8, escpos.MaxRasterHeight+1)}, ErrTooTall},
		{"too wide", &bitmap.Mono{Width: maxRasterWidth + 1, Height: 1, Bits: make([]uint8, maxRasterWidth+1)}, ErrInvalidWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Frame(tt.mono, DefaultConfig())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuild_blankPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dither = bitmap.DitherNone
	want, err := Build(uniformImage(8, 1, color.Black), cfg)
	require.NoError(t, err)

	cfg.PrefixText = "  \t "
	got, err := Build(uniformImage(8, 1, color.Black), cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cfg.PrefixText = " Hi "
	got, err = Build(uniformImage(8, 1, color.Black), cfg)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, []byte("\x1b@\x1b3\x00Hi\n\x1b@")), "%q", got)
}

func TestPrint(t *testing.T) {
	img := uniformImage(8, 1, color.Black)
	cfg := DefaultConfig()
	t.Run("ok", func(t *testing.T) {
		s := &testSender{}
		require.NoError(t, Print(context.Background(), s, img, cfg))
		want, err := Build(img, cfg)
		require.NoError(t, err)
		require.Len(t, s.frames, 1)
		assert.Equal(t, want, s.frames[0])
	})
	t.Run("writer sender", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(context.Background(), transport.NewWriter(&buf), img, cfg))
		assert.Equal(t, 18, buf.Len())
	})
	t.Run("send failure", func(t *testing.T) {
		s := &testSender{err: transport.ErrDisconnected}
		err := Print(context.Background(), s, img, cfg)
		assert.ErrorIs(t, err, transport.ErrDisconnected)
	})
	t.Run("build failure", func(t *testing.T) {
		s := &testSender{}
		bad := cfg
		bad.MaxRasterWidth = -1
		err := Print(context.Background(), s, img, bad)
		assert.ErrorIs(t, err, ErrInvalidWidth)
		assert.Empty(t, s.frames)
	})
}

func TestSavePreview(t *testing.T) {
	m := &bitmap.Mono{Width: 3, Height: 2, Bits: []uint8{1, 0, 1, 0, 1, 0}}
	filename := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, SavePreview(m, filename))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Zero(t, r)
	r, _, _, _ = img.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, uniformImage(2, 2, color.White)))
	img, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 2, img.Bounds().Dx())

	_, _, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
