// Package cmdsend provides the raw frame sending subcommand.
package cmdsend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rusq/posprint/cmd/tp/internal/bootstrap"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/transport"
)

var CmdSend = &base.Command{
	Run:        runSend,
	UsageLine:  "tp send [flags] <file>",
	Short:      "sends a prepared ESC/POS file to the printer",
	FlagMask:   cfg.OmitCommonImageFlags,
	PrintFlags: true,
	Long: `
Sends the contents of the file to the printer as is.  Use "-" to read from
STDIN.  The file is usually created with "tp image -t file -o <file>".
`,
}

func runSend(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("expected one file")
	}
	data, err := readInput(args[0])
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}
	if len(data) == 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return transport.ErrEmptyFrame
	}

	s, err := bootstrap.Sender(ctx)
	if err != nil {
		return err
	}
	if h, ok := s.(*transport.HTTP); ok {
		reply, err := h.Post(ctx, data)
		if err != nil {
			base.SetExitStatus(base.STransportError)
			return err
		}
		cfg.Log.InfoContext(ctx, "print server replied", "reply", reply)
		return nil
	}
	if err := s.Send(ctx, data); err != nil {
		base.SetExitStatus(base.STransportError)
		return fmt.Errorf("failed to send: %w", err)
	}
	cfg.Log.InfoContext(ctx, "sent", "bytes", len(data))
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}
