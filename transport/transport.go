// Package transport delivers complete ESC/POS print jobs to a printer.
//
// A sender performs one send at a time, writes the frame in order, and
// never retries: any failure is returned to the caller and the frame must be
// considered not printed.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sender delivers a print job.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

var (
	// ErrEmptyFrame is returned when there is nothing to send.
	ErrEmptyFrame = errors.New("empty print frame")
	// ErrDisconnected is returned when the printer connection is gone.
	ErrDisconnected = errors.New("printer disconnected")
	// ErrNotFound is returned when the printer can't be located.
	ErrNotFound = errors.New("printer not found")
)

// StatusError is returned by the HTTP sender on a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("printer returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("printer returned HTTP %d: %s", e.Code, e.Body)
}

// shortWrite is returned when a writer accepted fewer bytes than given.
func shortWrite(n, want int) error {
	return fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, want)
}

// Writer sends the frame to an io.Writer, i.e. a file, a character device or
// stdout for the dry runs.
type Writer struct {
	W io.Writer
}

// NewWriter returns a sender that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

func (w *Writer) Send(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := w.W.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(data) {
		return shortWrite(n, len(data))
	}
	slog.DebugContext(ctx, "frame written", "bytes", n)
	return nil
}
