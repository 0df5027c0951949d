package bootstrap

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Rectangle
		wantErr bool
	}{
		{"", image.Rectangle{}, false},
		{"0,0,10,20", image.Rect(0, 0, 10, 20), false},
		{" 5, 5 ,1,1", image.Rect(1, 1, 5, 5), false},
		{"1,2,3", image.Rectangle{}, true},
		{"a,b,c,d", image.Rectangle{}, true},
		{"1,1,1,5", image.Rectangle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig(t *testing.T) {
	t.Cleanup(func() {
		cfg.Dither = bitmap.DefaultDitherMode
		cfg.Encoding = string(escpos.UTF8)
		cfg.Equalize = false
	})
	cfg.Dither = bitmap.DitherAtkinson
	cfg.Encoding = "cp437"
	cfg.Equalize = true
	c, err := Config()
	require.NoError(t, err)
	assert.Equal(t, bitmap.DitherAtkinson, c.Dither)
	assert.Equal(t, escpos.CP437, c.Encoding)
	assert.True(t, c.AutoEqualize)

	cfg.Encoding = "klingon"
	_, err = Config()
	assert.ErrorIs(t, err, escpos.ErrUnknownEncoding)
}

func TestOpen(t *testing.T) {
	t.Cleanup(func() {
		cfg.PrinterURL = ""
	})
	_, _, err := open(context.Background(), "pigeon")
	assert.Error(t, err)

	_, _, err = open(context.Background(), cfg.TransportHTTP)
	assert.ErrorIs(t, err, ErrNoTarget)

	cfg.PrinterURL = "http://printer.local:8080"
	s, closer, err := open(context.Background(), cfg.TransportHTTP)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &transport.HTTP{}, s)

	s, _, err = open(context.Background(), cfg.TransportFile)
	require.NoError(t, err)
	assert.IsType(t, &transport.Writer{}, s)
}

func TestPreviewFile(t *testing.T) {
	t.Cleanup(func() {
		cfg.DryRun = false
		cfg.PreviewFile = ""
	})
	cfg.DryRun = false
	assert.Empty(t, PreviewFile("cat.jpg"))
	cfg.DryRun = true
	assert.Equal(t, "cat_preview.png", PreviewFile("/tmp/cat.jpg"))
	cfg.PreviewFile = "x.png"
	assert.Equal(t, "x.png", PreviewFile("/tmp/cat.jpg"))
}
