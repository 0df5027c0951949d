package cfg

import (
	"io"
	"sync"
)

// InfoReportFunc writes the status report of a component.
type InfoReportFunc func(w io.Writer)

var sigReporters struct {
	mu  sync.Mutex
	fns []InfoReportFunc
}

// RegisterSigInfoReporter adds the reporter that is called on SIGINFO
// (SIGUSR1 on Linux).
func RegisterSigInfoReporter(fn InfoReportFunc) {
	if fn == nil {
		return
	}
	sigReporters.mu.Lock()
	defer sigReporters.mu.Unlock()
	sigReporters.fns = append(sigReporters.fns, fn)
}

// SigInfo runs all registered reporters.
func SigInfo(w io.Writer) {
	if w == nil {
		return
	}
	sigReporters.mu.Lock()
	fns := append([]InfoReportFunc(nil), sigReporters.fns...)
	sigReporters.mu.Unlock()
	for _, fn := range fns {
		fn(w)
	}
}
