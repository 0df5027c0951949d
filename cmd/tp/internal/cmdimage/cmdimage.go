// Package cmdimage provides image printing subcommand.
package cmdimage

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rusq/posprint"
	"github.com/rusq/posprint/cmd/tp/internal/bootstrap"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/transport"
)

var CmdImage = &base.Command{
	Run:        runImage,
	UsageLine:  "tp image [flags] <image file> [...]",
	Short:      "prints image files",
	PrintFlags: true,
	Long: `
Prints one or more images.  PNG, JPEG, GIF, BMP and WebP files are supported.

Landscape images wider than the printer are rotated, then the image is scaled
down to the printer width, converted to grayscale, optionally equalized and
dithered with the algorithm selected by -dither.
`,
}

func runImage(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) == 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("expected at least one image")
	}
	c, err := bootstrap.Config()
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}

	images := make([]image.Image, 0, len(args))
	for _, filename := range args {
		img, err := posprint.Open(filename)
		if err != nil {
			base.SetExitStatus(base.SInvalidParameters)
			return err
		}
		images = append(images, img)
	}

	s, err := bootstrap.Sender(ctx)
	if err != nil {
		return err
	}
	for i, img := range images {
		if err := Print(ctx, s, img, c, bootstrap.PreviewFile(args[i])); err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
	}
	return nil
}

// Print renders the image, saves the preview if the preview filename is set,
// and sends the frame.
func Print(ctx context.Context, s transport.Sender, img image.Image, c posprint.Config, preview string) error {
	mono, err := posprint.Prepare(img, c)
	if err != nil {
		base.SetExitStatus(base.SApplicationError)
		return err
	}
	if preview != "" {
		if err := posprint.SavePreview(mono, preview); err != nil {
			base.SetExitStatus(base.SApplicationError)
			return err
		}
		cfg.Log.InfoContext(ctx, "preview saved", "filename", preview)
	}
	frame, err := posprint.Frame(mono, c)
	if err != nil {
		base.SetExitStatus(base.SApplicationError)
		return err
	}
	if err := s.Send(ctx, frame); err != nil {
		base.SetExitStatus(base.STransportError)
		return fmt.Errorf("failed to send print job: %w", err)
	}
	cfg.Log.InfoContext(ctx, "printed", "size", mono.Bounds().Size(), "bytes", len(frame))
	return nil
}
