package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"

	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/cmdimage"
	"github.com/rusq/posprint/cmd/tp/internal/cmdmodes"
	"github.com/rusq/posprint/cmd/tp/internal/cmdpattern"
	"github.com/rusq/posprint/cmd/tp/internal/cmdscan"
	"github.com/rusq/posprint/cmd/tp/internal/cmdsend"
	"github.com/rusq/posprint/cmd/tp/internal/cmdserver"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/cmd/tp/internal/golang/help"
)

func init() {
	base.PosprintCommand.Commands = []*base.Command{
		cmdimage.CmdImage,
		cmdpattern.CmdPattern,
		cmdsend.CmdSend,
		cmdscan.CmdScan,
		cmdserver.CmdServer,
		cmdmodes.CmdModes,
	}
}

func main() {
	flag.Usage = base.Usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		base.Usage()
		// Usage terminates the program.
		return
	}
	base.CmdName = args[0]
	if args[0] == "help" {
		help.Help(os.Stdout, args[1:])
		return
	}

	cmd, err := lookup(base.PosprintCommand, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tp %s: %s\nRun 'tp help' for usage.\n", base.CmdName, err)
		base.SetExitStatus(base.SInvalidParameters)
		base.Exit()
	}
	if err := invoke(cmd, args); err != nil {
		msg := fmt.Sprintf("%03[1]d (%[1]s): %[2]s.", base.ExitStatus(), err)
		slog.Error(msg)
	}
	base.Exit()
}

var errUnknownCommand = errors.New("unknown command")

// lookup returns the runnable command with the given name.
func lookup(root *base.Command, name string) (*base.Command, error) {
	for _, cmd := range root.Commands {
		if cmd.Name() == name && cmd.Runnable() {
			return cmd, nil
		}
	}
	return nil, errUnknownCommand
}

func init() {
	base.Usage = mainUsage
}

func mainUsage() {
	help.PrintUsage(os.Stderr, base.PosprintCommand)
	os.Exit(2)
}

func invoke(cmd *base.Command, args []string) error {
	if cmd.CustomFlags {
		args = args[1:]
	} else {
		var err error
		args, err = parseFlags(cmd, args)
		if err != nil {
			return err
		}
	}

	// maybe start trace
	if err := initTrace(cfg.TraceFile); err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to start trace: %w", err)
	}

	// SIGTERM stops the print server when it runs under a service manager.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trapSigInfo()

	ctx, task := trace.NewTask(ctx, "command")
	defer task.End()

	// initialise default logging.
	if lg, err := initLog(cfg.LogFile, cfg.JSONHandler, cfg.Verbose); err != nil {
		return err
	} else {
		cfg.Log = lg.With("command", cmd.Name())
	}
	if cmd.FlagMask&cfg.OmitConnectFlags == 0 {
		cfg.Log = cfg.Log.With("transport", cfg.Transport)
		cfg.Log.DebugContext(ctx, "printer settings", "width", cfg.Width, "dither", cfg.Dither, "dry_run", cfg.DryRun)
	}

	trace.Log(ctx, "command", fmt.Sprint("Running ", cmd.Name(), " command"))
	return cmd.Run(ctx, cmd, args)
}

func parseFlags(cmd *base.Command, args []string) ([]string, error) {
	cfg.SetBaseFlags(&cmd.Flag, cmd.FlagMask)
	cmd.Flag.Usage = func() { cmd.Usage() }
	if err := cmd.Flag.Parse(args[1:]); err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return nil, err
	}
	return cmd.Flag.Args(), nil
}

// initTrace starts the runtime trace into filename, if it is set.  The trace
// is stopped and the file closed on exit.
func initTrace(filename string) error {
	if filename == "" {
		return nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		f.Close()
		slog.Warn("failed to start trace", "err", err)
		return nil
	}
	slog.Debug("trace will be written to", "filename", filename)
	base.AtExit(func() {
		trace.Stop()
		if err := f.Close(); err != nil {
			slog.Warn("failed to close trace file", "filename", filename, "error", err)
		}
	})
	return nil
}

// initLog sets up the default logger.  Messages go to stderr, or are appended
// to filename if it is set, in which case the file is closed on exit.
func initLog(filename string, jsonHandler bool, verbose bool) (*slog.Logger, error) {
	if verbose {
		cfg.SetDebugLevel()
	}
	var w io.Writer = os.Stderr
	if filename != "" {
		lf, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			return slog.Default(), fmt.Errorf("failed to create the log file: %w", err)
		}
		log.SetOutput(lf) // panics and the standard logger end up in the file too.
		base.AtExit(func() {
			if err := lf.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to close the log file: %s\n", err)
			}
		})
		w = lf
	} else if !jsonHandler {
		// keep the default text output on the terminal.
		return slog.Default(), nil
	}
	lg := slog.New(newHandler(w, jsonHandler, verbose))
	slog.SetDefault(lg)
	if filename != "" {
		lg.Debug("log messages will be written to file", "filename", filename)
	}
	return lg, nil
}

func newHandler(w io.Writer, jsonHandler bool, verbose bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: iftrue(verbose, slog.LevelDebug, slog.LevelInfo),
	}
	if jsonHandler {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func iftrue[T any](cond bool, t T, f T) T {
	if cond {
		return t
	}
	return f
}
