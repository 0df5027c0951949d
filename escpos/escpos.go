// Package escpos serialises packed bitmaps into ESC/POS print jobs using the
// GS v 0 raster bit image command.
package escpos

import (
	"time"

	"github.com/rusq/posprint/bitmap"
)

const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

var (
	// Initialize is ESC @, resets the printer.
	Initialize = []byte{ESC, '@'}
	// LineSpacingZero is ESC 3 0.
	LineSpacingZero = []byte{ESC, '3', 0x00}
)

// MaxRasterHeight is the tallest raster that fits in a single GS v 0
// header.
const MaxRasterHeight = 0xFFFF

// DefaultTimeLayout prints the weekday, short month, day, year and
// hour:minute, i.e. "Wed, Oct 14, 2026, 3:04 PM".
const DefaultTimeLayout = "Mon, Jan 2, 2006, 3:04 PM"

// Options control the text around the raster.
type Options struct {
	// PrefixText is printed before the image, if not empty.
	PrefixText string
	// Timestamp enables the date line after the image.
	Timestamp bool
	// Now returns the time for the timestamp, time.Now if nil.
	Now func() time.Time
	// TimeLayout is the layout for the timestamp, [DefaultTimeLayout] if
	// empty.
	TimeLayout string
	// Encoding for the text, UTF-8 if empty.
	Encoding Encoding
}

func (o Options) timestamp() string {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	layout := DefaultTimeLayout
	if o.TimeLayout != "" {
		layout = o.TimeLayout
	}
	return now().Format(layout)
}

// RasterHeader returns GS v 0 m xL xH yL yH for normal density.
func RasterHeader(bytesPerRow, height int) []byte {
	return []byte{
		GS, 'v', '0', 0x00,
		byte(bytesPerRow & 0xff), byte((bytesPerRow >> 8) & 0xff),
		byte(height & 0xff), byte((height >> 8) & 0xff),
	}
}

// Build returns the complete print job for the packed bitmap:
//
//	ESC @, ESC 3 0, [prefix LF], ESC @, GS v 0 header, data, LF,
//	[timestamp LF], LF
//
// The payload is copied verbatim.
func Build(p *bitmap.Packed, opt Options) []byte {
	var prefix, stamp []byte
	if opt.PrefixText != "" {
		prefix = opt.Encoding.Encode(opt.PrefixText)
	}
	if opt.Timestamp {
		stamp = opt.Encoding.Encode(opt.timestamp())
	}

	size := len(Initialize)*2 + len(LineSpacingZero) + 8 + len(p.Data) + 2
	if prefix != nil {
		size += len(prefix) + 1
	}
	if stamp != nil {
		size += len(stamp) + 1
	}

	out := make([]byte, 0, size)
	out = append(out, Initialize...)
	out = append(out, LineSpacingZero...)
	if prefix != nil {
		out = append(out, prefix...)
		out = append(out, LF)
	}
	out = append(out, Initialize...)
	out = append(out, RasterHeader(p.RowBytes, p.Height)...)
	out = append(out, p.Data...)
	out = append(out, LF)
	if stamp != nil {
		out = append(out, stamp...)
		out = append(out, LF)
	}
	out = append(out, LF)
	return out
}
