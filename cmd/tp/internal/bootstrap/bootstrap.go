// Package bootstrap connects to the printer and builds the pipeline
// configuration from the command line flags.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rusq/posprint"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

var ErrNoTarget = errors.New("printer address is not set")

// Sender returns the sender for the configured transport.  The connection is
// closed on exit.
func Sender(ctx context.Context) (transport.Sender, error) {
	t := cfg.Transport
	if cfg.DryRun {
		if cfg.Output == "-" {
			cfg.Log.InfoContext(ctx, "dry run, print job is discarded")
			return transport.NewWriter(io.Discard), nil
		}
		t = cfg.TransportFile
	}
	s, closer, err := open(ctx, t)
	if err != nil {
		base.SetExitStatus(base.STransportError)
		return nil, err
	}
	if closer != nil {
		base.AtExit(func() {
			if err := closer.Close(); err != nil {
				cfg.Log.ErrorContext(ctx, "error disconnecting from printer", "transport", t, "error", err)
			}
		})
	}
	return s, nil
}

func open(ctx context.Context, t string) (transport.Sender, io.Closer, error) {
	switch strings.ToLower(t) {
	case cfg.TransportBLE:
		if err := cfg.Adapter().Enable(); err != nil {
			return nil, nil, fmt.Errorf("failed to enable Bluetooth adapter: %w", err)
		}
		conn, err := transport.ConnectBLE(ctx, cfg.Adapter(), cfg.SearchParams,
			transport.WithChunkSize(cfg.ChunkSize),
			transport.WithChunkDelay(cfg.ChunkDelay),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to printer: %w", err)
		}
		return conn, conn, nil
	case cfg.TransportHTTP:
		if cfg.PrinterURL == "" {
			return nil, nil, fmt.Errorf("%w: use -url or TP_URL", ErrNoTarget)
		}
		h, err := transport.NewHTTP(cfg.PrinterURL)
		if err != nil {
			return nil, nil, err
		}
		return h, nil, nil
	case cfg.TransportSerial:
		if cfg.SerialPort == "" {
			return nil, nil, fmt.Errorf("%w: use -port or TP_PORT", ErrNoTarget)
		}
		s, err := transport.OpenSerial(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case cfg.TransportUSB:
		if cfg.USBDevice == "" {
			return nil, nil, fmt.Errorf("%w: use -usb or TP_USB", ErrNoTarget)
		}
		vid, pid, err := transport.ParseVIDPID(cfg.USBDevice)
		if err != nil {
			return nil, nil, err
		}
		u, err := transport.OpenUSB(vid, pid, 0)
		if err != nil {
			return nil, nil, err
		}
		return u, u, nil
	case cfg.TransportFile:
		if cfg.Output == "" || cfg.Output == "-" {
			return transport.NewWriter(os.Stdout), nil, nil
		}
		f, err := os.Create(cfg.Output)
		if err != nil {
			return nil, nil, err
		}
		cfg.Log.InfoContext(ctx, "print job will be written to file", "filename", cfg.Output)
		return transport.NewWriter(f), f, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport: %q", t)
	}
}

// PreviewFile returns the preview filename, in dry run mode it defaults to
// the name with ".png" extension.
func PreviewFile(name string) string {
	if cfg.PreviewFile != "" || !cfg.DryRun {
		return cfg.PreviewFile
	}
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + "_preview.png"
}

// Config returns the pipeline configuration from the image flags.
func Config() (posprint.Config, error) {
	enc, err := escpos.ParseEncoding(cfg.Encoding)
	if err != nil {
		return posprint.Config{}, err
	}
	crop, err := ParseRect(cfg.CropRect)
	if err != nil {
		return posprint.Config{}, err
	}
	c := posprint.DefaultConfig()
	c.Dither = cfg.Dither
	c.AutoEqualize = cfg.Equalize
	c.AutoDither = cfg.AutoDither
	c.Gamma = cfg.Gamma
	c.PrefixText = cfg.PrefixText
	c.IncludeTimestamp = cfg.Timestamp
	c.MaxRasterWidth = cfg.Width
	c.Encoding = enc
	c.Crop = crop
	if err := c.Validate(); err != nil {
		return posprint.Config{}, err
	}
	return c, nil
}

// ParseRect parses "x0,y0,x1,y1".  Empty string returns the zero rectangle.
func ParseRect(s string) (image.Rectangle, error) {
	if s == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid rectangle %q, want x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid rectangle %q: %w", s, err)
		}
		v[i] = n
	}
	r := image.Rect(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("empty rectangle %q", s)
	}
	return r, nil
}
