//go:build unix && !darwin

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rusq/posprint/cmd/tp/internal/cfg"
)

func trapSigInfo() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for range ch {
			fmt.Fprint(os.Stderr, "POSPRINT STATUS REPORT\n")
			cfg.SigInfo(os.Stderr)
		}
	}()
}
