// Package core provides shared functionality for sandbox commands.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Exit codes following POSIX conventions
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Stdio holds the standard I/O streams for a command.
// This allows for easy testing by injecting mock streams.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DefaultStdio returns Stdio configured with os.Stdin, os.Stdout, os.Stderr.
func DefaultStdio() *Stdio {
	return &Stdio{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// Errorf writes a formatted error message to stderr.
func (s *Stdio) Errorf(format string, args ...any) {
	fmt.Fprintf(s.Err, format, args...)
}

// Printf writes a formatted message to stdout.
func (s *Stdio) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Print writes a message to stdout.
func (s *Stdio) Print(args ...any) {
	fmt.Fprint(s.Out, args...)
}

// Println writes a message to stdout with a newline.
func (s *Stdio) Println(args ...any) {
	fmt.Fprintln(s.Out, args...)
}

// Env is what a command reaches besides its streams: the sandbox
// filesystem, the working directory, exported variables and a way back
// into the shell.
type Env struct {
	Ctx  context.Context
	FS   vfs.FS
	Dir  string
	Vars map[string]string
	// Exec runs a command line in a subshell with the given streams.
	Exec func(stdio *Stdio, cmdline string) int
	// Fetch is nil when networking is disabled.
	Fetch func(ctx context.Context, method, url string) (status int, body string, err error)
}

// Path resolves name against the working directory.
func (e *Env) Path(name string) string {
	return vfs.ResolvePath(e.Dir, name)
}

// Open returns a reader for name, where "-" is standard input.
func (e *Env) Open(stdio *Stdio, name string) (io.Reader, error) {
	if name == "-" {
		return stdio.In, nil
	}
	data, err := e.FS.ReadFile(e.Path(name))
	if err != nil {
		return nil, err
	}
	return strings.NewReader(data), nil
}

// UsageError prints a usage error and returns ExitUsage.
func UsageError(stdio *Stdio, applet, message string) int {
	stdio.Errorf("%s: %s\n", applet, message)
	return ExitUsage
}

// FileError prints a file-related error and returns ExitFailure.
func FileError(stdio *Stdio, applet, path string, err error) int {
	stdio.Errorf("%s: %s: %s\n", applet, path, vfs.ErrorText(err))
	return ExitFailure
}

// ParseBoolFlags parses short boolean flags (e.g., -abc) and returns remaining args.
func ParseBoolFlags(stdio *Stdio, applet string, args []string, flags map[byte]*bool, aliases map[byte]byte) ([]string, int) {
	var files []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			files = append(files, args[i+1:]...)
			break
		}
		if len(arg) > 1 && arg[0] == '-' {
			for _, c := range arg[1:] {
				flagKey := byte(c)
				if alias, ok := aliases[flagKey]; ok {
					flagKey = alias
				}
				target, ok := flags[flagKey]
				if !ok {
					return nil, UsageError(stdio, applet, "invalid option -- '"+string(c)+"'")
				}
				if target != nil {
					*target = true
				}
			}
		} else {
			files = append(files, arg)
		}
	}
	return files, ExitSuccess
}
