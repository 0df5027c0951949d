// Package cmdmodes provides the subcommand that lists supported dithering
// algorithms, text encodings and test patterns.
package cmdmodes

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/escpos"
)

var CmdModes = &base.Command{
	Run:       runModes,
	UsageLine: "tp modes",
	Short:     "lists dithering algorithms, encodings and test patterns",
	FlagMask:  cfg.OmitAll,
	Long: `
Lists the values accepted by -dither, -enc and the pattern command.
`,
}

func runModes(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return render(os.Stdout)
}

func modesTable() pterm.TableData {
	mark := func(names []string, def string) string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = n
			if n == def {
				out[i] += " (default)"
			}
		}
		return strings.Join(out, ", ")
	}
	return pterm.TableData{
		{"Option", "Values"},
		{"-dither", mark(bitmap.AllDitherModes(), bitmap.DefaultDitherMode.String())},
		{"-enc", mark(escpos.AllEncodings(), string(escpos.UTF8))},
		{"pattern", mark(bitmap.AllPatterns(), "")},
	}
}

func render(w io.Writer) error {
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(modesTable()).Render()
}
