package interp

import (
	"context"

	"github.com/rcarmo/sandsh/pkg/vfs"
)

// ExecResult is the outcome of running a script or a command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// FetchRequest is a network request made on behalf of a command.
type FetchRequest struct {
	Method string
	URL    string
	Header map[string]string
	Body   string
}

// FetchResponse is the host's answer to a FetchRequest.
type FetchResponse struct {
	Status int
	Header map[string]string
	Body   string
}

// FetchFunc performs network access for commands. Hosts that disable
// networking leave it nil.
type FetchFunc func(ctx context.Context, req FetchRequest) (FetchResponse, error)

// CommandContext is everything a command may touch.
type CommandContext struct {
	Args  []string // arguments, without the command name
	Stdin string
	Dir   string
	Env   map[string]string
	FS    vfs.FS

	// Exec runs a command line through the interpreter in a subshell.
	Exec func(ctx context.Context, cmdline string) ExecResult
	// Fetch is nil when networking is unavailable.
	Fetch FetchFunc
}

// Command is a named program the interpreter can dispatch to after
// functions and builtins.
type Command interface {
	Name() string
	Run(ctx context.Context, cc *CommandContext) ExecResult
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc struct {
	CmdName string
	Fn      func(ctx context.Context, cc *CommandContext) ExecResult
}

func (c CommandFunc) Name() string { return c.CmdName }

func (c CommandFunc) Run(ctx context.Context, cc *CommandContext) ExecResult {
	return c.Fn(ctx, cc)
}
