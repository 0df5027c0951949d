// Package base defines shared basic pieces of the tp command,
// in particular logging and the Command structure.
package base

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rusq/posprint/cmd/tp/internal/cfg"
)

// A Command is an implementation of a tp command.
type Command struct {
	// Run runs the command.
	// The args are the arguments after the command name.
	Run func(ctx context.Context, cmd *Command, args []string) error

	// UsageLine is the one-line usage message.
	// The words between "tp" and the first flag or argument in the line are taken to be the command name.
	UsageLine string

	// Short is the short description shown in the 'tp help' output.
	Short string

	// Long is the long message shown in the 'tp help <this-command>' output.
	Long string

	// Flag is a set of flags specific to this command.
	Flag flag.FlagSet

	// FlagMask is a set of global flags to omit.
	FlagMask cfg.FlagMask

	// PrintFlags enables printing of the flags in the help output.
	PrintFlags bool

	// CustomFlags indicates that the command will do its own
	// flag parsing.
	CustomFlags bool

	// Commands lists the available commands and help topics.
	// The order here is the order in which they are printed by 'tp help'.
	// Note that subcommands are in general best avoided.
	Commands []*Command
}

// PosprintCommand is the root command.
var PosprintCommand = &Command{
	UsageLine: "tp",
	Long:      `tp prints images on ESC/POS thermal receipt printers.`,
	// Commands initialised in package main
}

// CmdName is the name of the command being run, set in main.
var CmdName string

// LongName returns the command's long name: all the words in the usage line between "tp" and a flag or argument.
func (c *Command) LongName() string {
	name := c.UsageLine
	if i := strings.Index(name, " ["); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, " <"); i >= 0 {
		name = name[:i]
	}
	if name == "tp" {
		return ""
	}
	return strings.TrimPrefix(name, "tp ")
}

// Name returns the command's short name: the last word in the usage line before a flag or argument.
func (c *Command) Name() string {
	name := c.LongName()
	if i := strings.LastIndex(name, " "); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (c *Command) Usage() {
	fmt.Fprintf(os.Stderr, "usage: %s\n", c.UsageLine)
	fmt.Fprintf(os.Stderr, "Run 'tp help %s' for details.\n", c.LongName())
	SetExitStatus(SInvalidParameters)
	Exit()
}

// Runnable reports whether the command can be run; otherwise
// it is a documentation pseudo-command.
func (c *Command) Runnable() bool {
	return c.Run != nil
}

// Usage is the usage function of the tool, it is set in package main.
var Usage func()

var atExitFuncs struct {
	mu  sync.Mutex
	fns []func()
}

// AtExit registers the function to be called on Exit.  Functions are called
// in the reverse order.
func AtExit(f func()) {
	atExitFuncs.mu.Lock()
	defer atExitFuncs.mu.Unlock()
	atExitFuncs.fns = append(atExitFuncs.fns, f)
}

// Exit runs the exit functions and terminates the program with the exit
// status.
func Exit() {
	atExitFuncs.mu.Lock()
	fns := atExitFuncs.fns
	atExitFuncs.fns = nil
	atExitFuncs.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	os.Exit(int(ExitStatus()))
}
