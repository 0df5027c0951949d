// Package posprint converts images into ESC/POS raster print jobs for 58mm
// thermal receipt printers and sends them to the printer.
//
// The pipeline is: crop, fit to the print width (rotating landscape images),
// gamma, grayscale, optional histogram equalization, dithering, bit packing
// and framing.
package posprint

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

// DefaultRasterWidth is the print width of 58mm printers, in dots.
const DefaultRasterWidth = bitmap.DefaultWidth

// maxRasterWidth is the widest raster the GS v 0 header can describe.
const maxRasterWidth = 0xFFFF * 8

var (
	ErrInvalidWidth = errors.New("invalid raster width")
	ErrTooTall      = errors.New("image is too tall for a single raster")
)

// Config is the pipeline configuration.
type Config struct {
	// Dither is the dithering algorithm.
	Dither bitmap.DitherMode
	// AutoEqualize enables histogram equalization before dithering.
	AutoEqualize bool
	// AutoDither switches to plain threshold for images that look like
	// documents (mostly black and white).
	AutoDither bool
	// PrefixText is printed above the image.
	PrefixText string
	// IncludeTimestamp prints the date and time below the image.
	IncludeTimestamp bool
	// MaxRasterWidth is the printer width in dots.
	MaxRasterWidth int
	// Crop is the optional crop rectangle in image coordinates.
	Crop image.Rectangle
	// Gamma correction, 0 disables.
	Gamma float64
	// Encoding of the text.
	Encoding escpos.Encoding
	// TimeLayout of the timestamp, escpos.DefaultTimeLayout if empty.
	TimeLayout string
	// Now returns the time for the timestamp, time.Now if nil.
	Now func() time.Time
}

// DefaultConfig returns Floyd-Steinberg dithering without equalization for
// a 384 dot printer, with UTF-8 text.
func DefaultConfig() Config {
	return Config{
		Dither:         bitmap.DefaultDitherMode,
		MaxRasterWidth: DefaultRasterWidth,
		Encoding:       escpos.UTF8,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxRasterWidth <= 0 || c.MaxRasterWidth > maxRasterWidth {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, c.MaxRasterWidth)
	}
	if _, err := bitmap.ParseDitherMode(c.Dither.String()); err != nil {
		return err
	}
	if c.Gamma < 0 {
		return fmt.Errorf("invalid gamma: %v", c.Gamma)
	}
	return nil
}

func (c Config) frameOptions() escpos.Options {
	return escpos.Options{
		PrefixText: strings.TrimSpace(c.PrefixText),
		Timestamp:  c.IncludeTimestamp,
		Now:        c.Now,
		TimeLayout: c.TimeLayout,
		Encoding:   c.Encoding,
	}
}

// Prepare runs the image through the pipeline up to dithering.
func Prepare(img image.Image, cfg Config) (*bitmap.Mono, error) {
	if img == nil {
		return nil, bitmap.ErrInvalidDimensions
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, err := bitmap.Crop(img, cfg.Crop)
	if err != nil {
		return nil, err
	}
	src = bitmap.FitToWidth(src, cfg.MaxRasterWidth, bitmap.DefaultFilter)
	src = bitmap.AdjustGamma(src, cfg.Gamma)

	gray, err := bitmap.GrayFromImage(src)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}
	if cfg.AutoEqualize {
		gray = gray.Equalize()
	}
	mode := cfg.Dither
	if cfg.AutoDither && gray.IsDocument(0, 0) {
		slog.Debug("document detected, dithering disabled")
		mode = bitmap.DitherNone
	}
	mono, err := bitmap.Dither(gray, mode)
	if err != nil {
		return nil, err
	}
	slog.Debug("image prepared", "in", img.Bounds().Size(), "out", mono.Bounds().Size(), "dither", mode, "equalize", cfg.AutoEqualize)
	return mono, nil
}

// Frame packs the bitmap and wraps it into a print job.
func Frame(mono *bitmap.Mono, cfg Config) ([]byte, error) {
	if mono == nil || mono.Width <= 0 || mono.Height <= 0 || len(mono.Bits) != mono.Width*mono.Height {
		return nil, bitmap.ErrInvalidDimensions
	}
	if mono.Width > maxRasterWidth {
		return nil, fmt.Errorf("%w: %d dots, maximum is %d", ErrInvalidWidth, mono.Width, maxRasterWidth)
	}
	if mono.Height > escpos.MaxRasterHeight {
		return nil, fmt.Errorf("%w: %d rows, maximum is %d", ErrTooTall, mono.Height, escpos.MaxRasterHeight)
	}
	return escpos.Build(mono.Pack(), cfg.frameOptions()), nil
}

// Build returns the print job for the image.
func Build(img image.Image, cfg Config) ([]byte, error) {
	mono, err := Prepare(img, cfg)
	if err != nil {
		return nil, err
	}
	return Frame(mono, cfg)
}

// Print builds the print job and sends it.
func Print(ctx context.Context, s transport.Sender, img image.Image, cfg Config) error {
	data, err := Build(img, cfg)
	if err != nil {
		return fmt.Errorf("failed to build print job: %w", err)
	}
	if err := s.Send(ctx, data); err != nil {
		return fmt.Errorf("failed to send print job: %w", err)
	}
	slog.InfoContext(ctx, "print job sent", "bytes", len(data))
	return nil
}

// SavePreview writes the bitmap as a PNG file.
func SavePreview(mono *bitmap.Mono, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, mono); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return f.Close()
}
