// Package admin implements the tasktracker-admin command: RSA key generation
// and out-of-band account registration.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUsage is returned for an unknown or missing subcommand.
var ErrUsage = errors.New("usage: tasktracker-admin <keygen|register|help> [flags]")

type App struct {
	in    *bufio.Reader
	out   io.Writer
	ttyFD int
}

// NewApp reads answers from in and writes prompts to out. ttyFD is the
// terminal used for password prompts, normally os.Stdin.Fd().
func NewApp(in io.Reader, out io.Writer, ttyFD int) *App {
	return &App{in: bufio.NewReader(in), out: out, ttyFD: ttyFD}
}

// Run dispatches args[0] to a subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "keygen":
		return a.keygen(rest)
	case "register":
		return a.register(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, ErrUsage.Error())
		fmt.Fprintln(a.out, "  keygen   -out <dir> [-bits 2048] [-force]")
		fmt.Fprintln(a.out, "  register [-c config] [-d dsn]")
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}
