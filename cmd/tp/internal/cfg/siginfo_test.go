package cfg

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigInfo(t *testing.T) {
	t.Cleanup(func() { sigReporters.fns = nil })
	RegisterSigInfoReporter(nil)
	RegisterSigInfoReporter(func(w io.Writer) { fmt.Fprintln(w, "one") })
	RegisterSigInfoReporter(func(w io.Writer) { fmt.Fprintln(w, "two") })

	var buf bytes.Buffer
	SigInfo(&buf)
	assert.Equal(t, "one\ntwo\n", buf.String())
	SigInfo(nil)
}
