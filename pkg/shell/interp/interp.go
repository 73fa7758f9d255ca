// Package interp executes parsed shell scripts against a virtual
// filesystem. A Runner owns one shell State and persists it across Run
// calls, so a host can feed a session line by line.
package interp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Runner interprets scripts.
type Runner struct {
	fs       vfs.FS
	commands map[string]Command
	limits   Limits
	fetch    FetchFunc

	env   map[string]string
	dir   string
	stdin string
	arg0  string
	args  []string

	st     *State
	exited bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithFS sets the filesystem. The default is an empty MemFS.
func WithFS(fsys vfs.FS) Option {
	return func(r *Runner) { r.fs = fsys }
}

// WithCommands registers commands dispatched after functions and builtins.
func WithCommands(cmds ...Command) Option {
	return func(r *Runner) {
		for _, c := range cmds {
			r.commands[c.Name()] = c
		}
	}
}

// WithLimits overrides the execution limits.
func WithLimits(l Limits) Option {
	return func(r *Runner) { r.limits = l }
}

// WithEnv sets exported variables.
func WithEnv(env map[string]string) Option {
	return func(r *Runner) {
		for k, v := range env {
			r.env[k] = v
		}
	}
}

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithStdin sets the script's standard input.
func WithStdin(s string) Option {
	return func(r *Runner) { r.stdin = s }
}

// WithArgs sets $0 and the positional parameters.
func WithArgs(arg0 string, args ...string) Option {
	return func(r *Runner) {
		r.arg0 = arg0
		r.args = args
	}
}

// WithFetch installs the network callback handed to commands.
func WithFetch(f FetchFunc) Option {
	return func(r *Runner) { r.fetch = f }
}

// New returns a Runner with a fresh shell state.
func New(opts ...Option) *Runner {
	r := &Runner{
		commands: map[string]Command{},
		limits:   DefaultLimits(),
		env:      map[string]string{},
		dir:      "/",
		arg0:     "bash",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = vfs.NewMemFS()
	}
	r.limits = r.limits.withDefaults()
	r.st = r.newShell()
	return r
}

var defaultEnv = map[string]string{
	"HOME":     "/home/user",
	"PATH":     "/usr/local/bin:/usr/bin:/bin",
	"SHELL":    "/bin/bash",
	"USER":     "user",
	"LOGNAME":  "user",
	"HOSTNAME": "sandbox",
	"TERM":     "dumb",
}

func (r *Runner) newShell() *State {
	st := newState(r.fs)
	st.cwd = vfs.ResolvePath("/", r.dir)
	st.arg0 = r.arg0
	st.positional = append([]string(nil), r.args...)
	st.fds[0] = newContent(r.stdin)
	for k, v := range defaultEnv {
		if _, ok := r.env[k]; !ok {
			st.globals[k] = &Var{Value: v, Set: true, Exported: true}
		}
	}
	for k, v := range r.env {
		st.globals[k] = &Var{Value: v, Set: true, Exported: true}
	}
	st.globals["PWD"] = &Var{Value: st.cwd, Set: true, Exported: true}
	st.globals["IFS"] = &Var{Value: " \t\n", Set: true}
	st.globals["PS4"] = &Var{Value: "+ ", Set: true}
	st.globals["OPTIND"] = &Var{Value: "1", Set: true}
	st.globals["BASH_VERSION"] = &Var{Value: "5.2.0(1)-release", Set: true}
	st.globals["BASH"] = &Var{Value: "/bin/bash", Set: true}
	return st
}

// Run parses and executes src. Output and the exit status are returned in
// the result; the error is non-nil only when a limit was exceeded or ctx
// was canceled.
func (r *Runner) Run(ctx context.Context, src string) (ExecResult, error) {
	script, _ := syntax.Parse(src)
	return r.RunScript(ctx, script)
}

// RunScript executes an already parsed script.
func (r *Runner) RunScript(ctx context.Context, script *syntax.Script) (ExecResult, error) {
	st := r.st
	stdout, stderr := newBuffer(), newBuffer()
	st.fds[1], st.fds[2] = stdout, stderr

	status, err := r.runStmts(ctx, st, script.Stmts)
	if code, ok := exitCode(err); ok {
		status = code
		if _, isExit := err.(*ExitSignal); isExit {
			r.exited = true
		}
		err = nil
	} else if err != nil && !isFatal(err) {
		// break or continue outside any loop
		err = nil
	}
	if err == nil {
		status, err = r.runExitTrap(ctx, st, status)
	}
	st.lastExit = status
	res := ExecResult{Stdout: stdout.buf.String(), Stderr: stderr.buf.String(), ExitCode: status}
	return res, err
}

// Exited reports whether the script ran the exit builtin.
func (r *Runner) Exited() bool { return r.exited }

// Get returns the value of a shell variable.
func (r *Runner) Get(name string) (string, bool) {
	return r.lookupScalar(r.st, name)
}

// Dir returns the current working directory.
func (r *Runner) Dir() string { return r.st.cwd }

// Functions returns the names of defined functions.
func (r *Runner) Functions() []string {
	names := make([]string, 0, len(r.st.funcs))
	for name := range r.st.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runExitTrap runs the EXIT trap once and returns the final status.
// Limit and cancellation errors from the action are returned.
func (r *Runner) runExitTrap(ctx context.Context, st *State, status int) (int, error) {
	action, ok := st.traps["EXIT"]
	if !ok {
		return status, nil
	}
	delete(st.traps, "EXIT")
	st.lastExit = status
	script, _ := syntax.Parse(action)
	_, err := r.runStmts(ctx, st, script.Stmts)
	if isFatal(err) {
		return status, err
	}
	var ex *ExitSignal
	if errors.As(err, &ex) {
		return ex.Code, nil
	}
	return status, nil
}

// diag writes a "bash: ..." diagnostic to standard error.
func diag(st *State, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	st.errf("bash: " + msg)
}
