// Command sandsh runs bash scripts against a sandboxed filesystem.
//
//	sandsh [-config file] [-c script [name [args...]] | file [args...]]
//
// With no script it reads one from standard input, or prompts line by line
// when standard input is a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/config"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, core.DefaultStdio(), os.Args[1:], isTerminal(os.Stdin)))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func run(ctx context.Context, stdio *core.Stdio, args []string, interactive bool) int {
	flags := flag.NewFlagSet("sandsh", flag.ContinueOnError)
	flags.SetOutput(stdio.Err)
	configFile := flags.String("config", "", "YAML configuration `file`")
	command := flags.String("c", "", "run `script` instead of reading a file")
	if err := flags.Parse(args); err != nil {
		return core.ExitUsage
	}
	rest := flags.Args()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			stdio.Errorf("sandsh: config: %v\n", err)
			return core.ExitFailure
		}
	}
	ctx, cancel, err := withTimeout(ctx, cfg)
	if err != nil {
		stdio.Errorf("sandsh: config: %v\n", err)
		return core.ExitFailure
	}
	defer cancel()

	var src, arg0 string
	var input io.Reader = stdio.In
	commandSet := false
	flags.Visit(func(f *flag.Flag) { commandSet = commandSet || f.Name == "c" })
	switch {
	case commandSet:
		src, arg0 = *command, "sandsh"
		if len(rest) > 0 {
			arg0, rest = rest[0], rest[1:]
		}
	case len(rest) > 0:
		data, err := os.ReadFile(rest[0])
		if err != nil {
			stdio.Errorf("sandsh: %s: %v\n", rest[0], err)
			return 127
		}
		src, arg0, rest = string(data), rest[0], rest[1:]
	case interactive:
		return prompt(ctx, stdio, cfg)
	default:
		data, err := io.ReadAll(stdio.In)
		if err != nil {
			stdio.Errorf("sandsh: %v\n", err)
			return core.ExitFailure
		}
		src, arg0, input = string(data), "sandsh", nil
	}

	var stdin string
	if input != nil && !interactive {
		data, err := io.ReadAll(input)
		if err != nil {
			stdio.Errorf("sandsh: %v\n", err)
			return core.ExitFailure
		}
		stdin = string(data)
	}

	r, code := newRunner(stdio, cfg, interp.WithArgs(arg0, rest...), interp.WithStdin(stdin))
	if r == nil {
		return code
	}
	res, err := r.Run(ctx, src)
	return report(ctx, stdio, res, err)
}

func newRunner(stdio *core.Stdio, cfg *config.Config, opts ...interp.Option) (*interp.Runner, int) {
	fsys, err := cfg.Filesystem()
	if err != nil {
		stdio.Errorf("sandsh: config: %v\n", err)
		return nil, core.ExitFailure
	}
	cmds, err := cfg.EnabledCommands()
	if err != nil {
		stdio.Errorf("sandsh: config: %v\n", err)
		return nil, core.ExitFailure
	}
	base := []interp.Option{
		interp.WithFS(fsys),
		interp.WithCommands(cmds...),
		interp.WithLimits(cfg.RunnerLimits()),
		interp.WithEnv(cfg.Env),
		interp.WithDir(cfg.Dir),
	}
	if cfg.Network.Enabled {
		base = append(base, interp.WithFetch(httpFetch(cfg)))
	}
	return interp.New(append(base, opts...)...), core.ExitSuccess
}

// report writes a result and maps fatal errors to the process status.
func report(ctx context.Context, stdio *core.Stdio, res interp.ExecResult, err error) int {
	stdio.Print(res.Stdout)
	fmt.Fprint(stdio.Err, res.Stderr)
	if err == nil {
		return res.ExitCode
	}
	var limit *interp.LimitError
	switch {
	case errors.As(err, &limit):
		stdio.Errorf("sandsh: %v\n", limit)
		return core.ExitFailure
	case errors.Is(err, context.DeadlineExceeded):
		stdio.Errorf("sandsh: %v\n", context.Cause(ctx))
		return 124
	case errors.Is(err, context.Canceled):
		return 130
	}
	stdio.Errorf("sandsh: %v\n", err)
	return core.ExitFailure
}

// prompt runs statements as they are typed, holding back input that
// ends in the middle of a construct.
func prompt(ctx context.Context, stdio *core.Stdio, cfg *config.Config) int {
	r, code := newRunner(stdio, cfg, interp.WithArgs("sandsh"))
	if r == nil {
		return code
	}
	sc := bufio.NewScanner(stdio.In)
	var pending strings.Builder
	status := core.ExitSuccess
	for {
		if pending.Len() == 0 {
			fmt.Fprint(stdio.Err, "$ ")
		} else {
			fmt.Fprint(stdio.Err, "> ")
		}
		if !sc.Scan() {
			break
		}
		pending.WriteString(sc.Text())
		pending.WriteByte('\n')
		if _, err := syntax.Parse(pending.String()); incomplete(err) {
			continue
		}
		res, err := r.Run(ctx, pending.String())
		pending.Reset()
		status = report(ctx, stdio, res, err)
		if err != nil || r.Exited() {
			return status
		}
	}
	if pending.Len() > 0 {
		res, err := r.Run(ctx, pending.String())
		status = report(ctx, stdio, res, err)
	}
	fmt.Fprintln(stdio.Err)
	return status
}

func incomplete(err error) bool {
	var se *syntax.SyntaxError
	if !errors.As(err, &se) {
		return false
	}
	return strings.Contains(se.Msg, "unexpected end of file") ||
		strings.Contains(se.Msg, "unexpected EOF")
}

// withTimeout bounds ctx by the configured timeout, if any.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return ctx, func() {}, err
	}
	if timeout <= 0 {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, fmt.Errorf("timed out after %s", cfg.TimeoutText()))
	return ctx, cancel, nil
}
