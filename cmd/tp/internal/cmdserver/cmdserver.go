// Package cmdserver provides the print server subcommand.
package cmdserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rusq/posprint/cmd/tp/internal/bootstrap"
	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/printsrv"
)

var CmdServer = &base.Command{
	Run:        runServer,
	UsageLine:  "tp server [flags]",
	Short:      "start the print server",
	PrintFlags: true,
	Long: `
Starts the HTTP print server in front of the printer.

  POST /print    sends the request body (ESC/POS frame) to the printer as is
  POST /image    renders the image and prints it, the query parameters
                 dither, equalize, prefix, timestamp, width, encoding and
                 gamma override the image flags
  GET  /jobs     lists recent jobs

Other tp instances print through the server with "-t http -url".
`,
}

var (
	addr     string
	instance string
	history  int
	maxSize  int64
)

func init() {
	CmdServer.Flag.StringVar(&addr, "addr", "localhost:8080", "listen `address`")
	CmdServer.Flag.StringVar(&instance, "mdns", "", "advertise the server over mDNS with the instance `name`")
	CmdServer.Flag.IntVar(&history, "history", printsrv.DefaultJobHistory, "number of jobs to keep")
	CmdServer.Flag.Int64Var(&maxSize, "max-size", printsrv.MaxDocumentSize, "maximum request `bytes`")
}

func runServer(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	c, err := bootstrap.Config()
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}
	sender, err := bootstrap.Sender(ctx)
	if err != nil {
		return fmt.Errorf("failed to get printer: %w", err)
	}
	opts := []printsrv.Option{
		printsrv.WithConfig(c),
		printsrv.WithJobHistory(history),
		printsrv.WithMaxDocumentSize(maxSize),
	}
	if instance != "" {
		opts = append(opts, printsrv.WithMDNS(instance))
	}
	s, err := printsrv.New(sender, opts...)
	if err != nil {
		base.SetExitStatus(base.SApplicationError)
		return err
	}
	cfg.RegisterSigInfoReporter(s.Info)
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			cfg.Log.Error("error shutting down server", "err", err)
		} else {
			cfg.Log.Info("server shut down successfully")
		}
	}()

	cfg.Log.Info("starting server", "addr", addr, "transport", cfg.Transport)
	if err := s.ListenAndServe(addr); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		base.SetExitStatus(base.SApplicationError)
		return fmt.Errorf("error starting server: %w", err)
	}
	return nil
}
