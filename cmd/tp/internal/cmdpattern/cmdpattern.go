// Package cmdpattern provides pattern printing subcommand.
package cmdpattern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/cmd/tp/internal/bootstrap"
	"github.com/rusq/posprint/cmd/tp/internal/cmdimage"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
)

var CmdPattern = &base.Command{
	Run:        runPattern,
	UsageLine:  "tp pattern [flags] <pattern name>",
	Short:      "prints a test pattern",
	PrintFlags: true,
	Long: `
Prints a test pattern, drawn for the printer width (-w).  Run with -list to
see available patterns.
`,
}

var ListPatterns bool

func init() {
	CmdPattern.Flag.BoolVar(&ListPatterns, "list", false, "list patterns")
}

func runPattern(ctx context.Context, cmd *base.Command, args []string) error {
	if ListPatterns {
		return listPatterns(os.Stdout)
	}
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		listPatterns(os.Stderr)
		return errors.New("expected pattern name")
	}
	fn, ok := bitmap.Pattern(args[0])
	if !ok {
		base.SetExitStatus(base.SInvalidParameters)
		listPatterns(os.Stderr)
		return fmt.Errorf("unknown pattern: %q", args[0])
	}
	c, err := bootstrap.Config()
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}

	s, err := bootstrap.Sender(ctx)
	if err != nil {
		return err
	}
	return cmdimage.Print(ctx, s, fn(c.MaxRasterWidth), c, bootstrap.PreviewFile(args[0]))
}

func listPatterns(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Available test patterns: %v\n", bitmap.AllPatterns())
	return err
}
