// Package commands registers the reference commands that scripts can
// run besides functions and builtins.
package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rcarmo/sandsh/pkg/commands/awk"
	"github.com/rcarmo/sandsh/pkg/commands/cat"
	"github.com/rcarmo/sandsh/pkg/commands/cp"
	"github.com/rcarmo/sandsh/pkg/commands/cut"
	"github.com/rcarmo/sandsh/pkg/commands/gunzip"
	"github.com/rcarmo/sandsh/pkg/commands/gzip"
	"github.com/rcarmo/sandsh/pkg/commands/head"
	"github.com/rcarmo/sandsh/pkg/commands/ls"
	"github.com/rcarmo/sandsh/pkg/commands/mkdir"
	"github.com/rcarmo/sandsh/pkg/commands/mv"
	"github.com/rcarmo/sandsh/pkg/commands/rm"
	"github.com/rcarmo/sandsh/pkg/commands/sleep"
	sortcmd "github.com/rcarmo/sandsh/pkg/commands/sort"
	"github.com/rcarmo/sandsh/pkg/commands/tail"
	"github.com/rcarmo/sandsh/pkg/commands/tr"
	"github.com/rcarmo/sandsh/pkg/commands/uniq"
	"github.com/rcarmo/sandsh/pkg/commands/wc"
	"github.com/rcarmo/sandsh/pkg/commands/wget"
	"github.com/rcarmo/sandsh/pkg/commands/xargs"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
)

// RunFunc is the entry point every reference command exposes.
type RunFunc func(stdio *core.Stdio, env *core.Env, args []string) int

var registry = map[string]RunFunc{
	"awk":    awk.Run,
	"cat":    cat.Run,
	"cp":     cp.Run,
	"cut":    cut.Run,
	"gunzip": gunzip.Run,
	"gzip":   gzip.Run,
	"head":   head.Run,
	"ls":     ls.Run,
	"mkdir":  mkdir.Run,
	"mv":     mv.Run,
	"rm":     rm.Run,
	"sleep":  sleep.Run,
	"sort":   sortcmd.Run,
	"tail":   tail.Run,
	"tr":     tr.Run,
	"uniq":   uniq.Run,
	"wc":     wc.Run,
	"wget":   wget.Run,
	"xargs":  xargs.Run,
}

// Names returns the registered command names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered command.
func All() []interp.Command {
	cmds, _ := Lookup(Names()...)
	return cmds
}

// Lookup returns the named commands, failing on the first unknown name.
func Lookup(names ...string) ([]interp.Command, error) {
	cmds := make([]interp.Command, 0, len(names))
	for _, name := range names {
		run, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown command %q", name)
		}
		cmds = append(cmds, &command{name: name, run: run})
	}
	return cmds, nil
}

// command adapts a RunFunc to interp.Command.
type command struct {
	name string
	run  RunFunc
}

func (c *command) Name() string { return c.name }

func (c *command) Run(ctx context.Context, cc *interp.CommandContext) interp.ExecResult {
	var out, errOut strings.Builder
	stdio := &core.Stdio{In: strings.NewReader(cc.Stdin), Out: &out, Err: &errOut}
	env := &core.Env{
		Ctx:  ctx,
		FS:   cc.FS,
		Dir:  cc.Dir,
		Vars: cc.Env,
	}
	if cc.Exec != nil {
		env.Exec = func(s *core.Stdio, cmdline string) int {
			res := cc.Exec(ctx, cmdline)
			_, _ = io.WriteString(s.Out, res.Stdout)
			_, _ = io.WriteString(s.Err, res.Stderr)
			return res.ExitCode
		}
	}
	if cc.Fetch != nil {
		env.Fetch = func(ctx context.Context, method, url string) (int, string, error) {
			resp, err := cc.Fetch(ctx, interp.FetchRequest{Method: method, URL: url})
			return resp.Status, resp.Body, err
		}
	}
	code := c.run(stdio, env, cc.Args)
	return interp.ExecResult{Stdout: out.String(), Stderr: errOut.String(), ExitCode: code}
}
