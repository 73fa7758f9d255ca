package interp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func (r *Runner) runStmts(ctx context.Context, st *State, stmts []*syntax.Statement) (int, error) {
	status := 0
	for _, stmt := range stmts {
		var err error
		status, err = r.execStatement(ctx, st, stmt)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// execStatement runs an and-or list. errexit fires only when the last
// pipeline of the list ran, failed and was not negated.
func (r *Runner) execStatement(ctx context.Context, st *State, stmt *syntax.Statement) (int, error) {
	if stmt.Line > 0 {
		st.line = stmt.Line
	}
	if stmt.Err != nil {
		diag(st, "line %d: %s", stmt.Err.Line, stmt.Err.Msg)
		st.lastExit = 2
		return 2, errSyntaxAbort
	}
	if st.opts.Verbose && stmt.Source != "" {
		st.errf(stmt.Source + "\n")
	}
	if st.opts.Noexec {
		return 0, nil
	}
	if stmt.Background {
		return r.execBackground(ctx, st, stmt)
	}

	status := st.lastExit
	last, negated := -1, false
	for i, pl := range stmt.Pipelines {
		if i > 0 {
			op := stmt.Ops[i-1]
			if (op == syntax.AndAnd && status != 0) || (op == syntax.OrOr && status == 0) {
				continue
			}
		}
		guarded := i < len(stmt.Pipelines)-1
		if guarded {
			st.noErrexit++
		}
		s, err := r.execPipeline(ctx, st, pl)
		if guarded {
			st.noErrexit--
		}
		status = s
		st.lastExit = s
		last, negated = i, pl.Negated
		if err != nil {
			return status, err
		}
	}
	if status != 0 && last == len(stmt.Pipelines)-1 && !negated && st.noErrexit == 0 {
		if action, ok := st.traps["ERR"]; ok && action != "" {
			if err := r.runTrap(ctx, st, action); err != nil {
				return status, err
			}
			st.lastExit = status
		}
		if st.opts.Errexit {
			return status, &ErrexitSignal{Code: status}
		}
	}
	return status, nil
}

// execBackground runs an & list to completion in a subshell; there is no
// job control, only $! bookkeeping.
func (r *Runner) execBackground(ctx context.Context, st *State, stmt *syntax.Statement) (int, error) {
	if err := r.enter(st); err != nil {
		return 1, err
	}
	sub := st.clone()
	fg := *stmt
	fg.Background = false
	_, err := r.execStatement(ctx, sub, &fg)
	if err != nil && isFatal(err) {
		return 1, err
	}
	st.lastBg++
	st.lastExit = 0
	return 0, nil
}

func (r *Runner) execPipeline(ctx context.Context, st *State, pl *syntax.Pipeline) (int, error) {
	start := time.Now()
	if pl.Negated {
		st.noErrexit++
	}
	status, codes, err := r.runStages(ctx, st, pl)
	if pl.Negated {
		st.noErrexit--
	}
	if pl.Timed {
		st.errf(fmt.Sprintf("\nreal\t%s\nuser\t0m0.000s\nsys\t0m0.000s\n", formatDuration(time.Since(start))))
	}
	if err != nil {
		return status, err
	}
	vals := make([]string, len(codes))
	for i, c := range codes {
		vals[i] = strconv.Itoa(c)
	}
	_ = st.setArray("PIPESTATUS", vals)
	if pl.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, nil
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := d.Seconds() - float64(m*60)
	return fmt.Sprintf("%dm%.3fs", m, s)
}

// runStages runs the commands of a pipeline in order, each stage in its
// own subshell when there is more than one, feeding each stage's output to
// the next stage's input.
func (r *Runner) runStages(ctx context.Context, st *State, pl *syntax.Pipeline) (int, []int, error) {
	if len(pl.Cmds) == 1 {
		status, err := r.execCommand(ctx, st, pl.Cmds[0])
		return status, []int{status}, err
	}
	codes := make([]int, 0, len(pl.Cmds))
	var input *fdEntry
	for i, cmd := range pl.Cmds {
		if err := r.enter(st); err != nil {
			return 1, codes, err
		}
		sub := st.clone()
		if input != nil {
			sub.fds[0] = input
		}
		var out *fdEntry
		if i < len(pl.Cmds)-1 {
			out = newBuffer()
			sub.fds[1] = out
			if pl.PipeStderr[i] {
				sub.fds[2] = out
			}
		}
		code, err := r.execCommand(ctx, sub, cmd)
		if err != nil {
			if isFatal(err) {
				return 1, codes, err
			}
			if c, ok := exitCode(err); ok {
				code = c
			}
		}
		if out != nil {
			input = newContent(out.buf.String())
		}
		codes = append(codes, code)
	}
	status := codes[len(codes)-1]
	if st.opts.Pipefail {
		for i := len(codes) - 1; i >= 0; i-- {
			if codes[i] != 0 {
				status = codes[i]
				break
			}
		}
	}
	return status, codes, nil
}

func (r *Runner) execCommand(ctx context.Context, st *State, cmd syntax.Command) (status int, err error) {
	mark := len(st.procs)
	defer func() {
		if perr := r.closeProcs(ctx, st, mark); perr != nil && err == nil {
			status, err = 1, perr
		}
	}()
	switch c := cmd.(type) {
	case *syntax.SimpleCommand:
		return r.execSimple(ctx, st, c)
	case *syntax.FunctionDef:
		if _, isBuiltin := builtins[c.Name]; isBuiltin && isSpecialBuiltin(c.Name) {
			diag(st, "`%s': is a special builtin", c.Name)
			return 1, nil
		}
		st.funcs[c.Name] = c
		return 0, nil
	}
	return r.execCompound(ctx, st, cmd)
}

// execSimple expands and dispatches a simple command.
func (r *Runner) execSimple(ctx context.Context, st *State, c *syntax.SimpleCommand) (int, error) {
	if c.Line > 0 {
		st.line = c.Line
	}
	st.lastSubst = 0
	fields, declArgs, err := r.expandCommandWords(ctx, st, c)
	if err != nil {
		return r.expansionFailed(st, err)
	}

	if len(fields) == 0 {
		return r.assignOnly(ctx, st, c)
	}
	if err := r.tick(ctx, st); err != nil {
		return 1, err
	}
	if st.opts.Xtrace {
		r.trace(st, c.Assigns, fields)
	}

	restore, err := r.applyRedirs(ctx, st, c.Redirs)
	if err != nil {
		return r.expansionFailed(st, err)
	}
	defer restore()

	undo, err := r.prefixAssign(ctx, st, c.Assigns)
	if err != nil {
		return r.expansionFailed(st, err)
	}
	defer undo()

	return r.dispatch(ctx, st, fields, declArgs)
}

// dispatch looks a command name up as function, builtin, registered
// command and finally a script path.
func (r *Runner) dispatch(ctx context.Context, st *State, fields []string, declArgs map[int]*syntax.Assignment) (int, error) {
	name := fields[0]
	if fn, ok := st.funcs[name]; ok {
		return r.callFunction(ctx, st, fn, fields)
	}
	if b, ok := builtins[name]; ok {
		bc := &builtinCall{r: r, ctx: ctx, st: st, name: name, args: fields[1:], decl: declArgs}
		return b(bc)
	}
	if cmd, ok := r.commands[name]; ok {
		return r.runCommand(ctx, st, cmd, fields[1:])
	}
	if strings.Contains(name, "/") {
		return r.runScriptFile(ctx, st, name, fields[1:])
	}
	diag(st, "%s: command not found", name)
	return 127, nil
}

// runCommand hands a registered command its context and copies its output
// into the current descriptors.
func (r *Runner) runCommand(ctx context.Context, st *State, cmd Command, args []string) (int, error) {
	cc := &CommandContext{
		Args:  args,
		Stdin: st.readAll(0),
		Dir:   st.cwd,
		Env:   st.environ(),
		FS:    &fdFS{FS: r.fs, st: st},
		Fetch: r.fetch,
	}
	cc.Exec = func(ctx context.Context, cmdline string) ExecResult {
		return r.execNested(ctx, st, cmdline)
	}
	res := cmd.Run(ctx, cc)
	if err := ctx.Err(); err != nil {
		return 1, fmt.Errorf("%w: %w", errCanceled, err)
	}
	if err := st.write(1, res.Stdout); err != nil {
		diag(st, "%s: write error: %s", cmd.Name(), err)
		return 1, nil
	}
	st.errf(res.Stderr)
	return res.ExitCode, nil
}

// execNested runs cmdline in a subshell with its output captured, for
// commands such as xargs.
func (r *Runner) execNested(ctx context.Context, st *State, cmdline string) ExecResult {
	if err := r.enter(st); err != nil {
		return ExecResult{Stderr: err.Error() + "\n", ExitCode: 1}
	}
	sub := st.clone()
	stdout, stderr := newBuffer(), newBuffer()
	sub.fds[0] = newContent("")
	sub.fds[1], sub.fds[2] = stdout, stderr
	script, _ := syntax.Parse(cmdline)
	status, err := r.runStmts(ctx, sub, script.Stmts)
	if code, ok := exitCode(err); ok {
		status = code
	} else if err != nil {
		stderr.buf.WriteString("bash: " + err.Error() + "\n")
		status = 1
	}
	return ExecResult{Stdout: stdout.buf.String(), Stderr: stderr.buf.String(), ExitCode: status}
}

// runScriptFile executes a script stored in the filesystem in a subshell.
func (r *Runner) runScriptFile(ctx context.Context, st *State, name string, args []string) (int, error) {
	p := vfs.ResolvePath(st.cwd, name)
	if r.fs.IsDir(p) {
		diag(st, "%s: Is a directory", name)
		return 126, nil
	}
	src, err := r.fs.ReadFile(p)
	if err != nil {
		diag(st, "%s: %s", name, vfs.ErrorText(err))
		return 127, nil
	}
	if err := r.enter(st); err != nil {
		return 1, err
	}
	sub := st.clone()
	sub.arg0 = name
	sub.positional = append([]string(nil), args...)
	sub.frames = nil
	sub.funcDepth, sub.loopDepth = 0, 0
	script, _ := syntax.Parse(src)
	status, err := r.runStmts(ctx, sub, script.Stmts)
	if code, ok := exitCode(err); ok {
		status = code
	} else if err != nil {
		if isFatal(err) {
			return 1, err
		}
	}
	return r.runExitTrap(ctx, sub, status)
}

// callFunction runs a function body with its own positional parameters
// and local scope.
func (r *Runner) callFunction(ctx context.Context, st *State, fn *syntax.FunctionDef, fields []string) (int, error) {
	if err := r.enter(st); err != nil {
		return 1, err
	}
	savedArgs := st.positional
	st.positional = append([]string(nil), fields[1:]...)
	st.frames = append(st.frames, &frame{name: fn.Name, vars: map[string]*Var{}})
	st.depth++
	st.funcDepth++
	defer func() {
		st.funcDepth--
		st.depth--
		st.frames = st.frames[:len(st.frames)-1]
		st.positional = savedArgs
	}()

	restore, err := r.applyRedirs(ctx, st, fn.Redirs)
	if err != nil {
		return r.expansionFailed(st, err)
	}
	defer restore()

	status, err := r.execCommand(ctx, st, fn.Body)
	var rs *ReturnSignal
	if errors.As(err, &rs) {
		return rs.Code, nil
	}
	return status, err
}

// assignOnly handles a command made only of assignments and redirections.
func (r *Runner) assignOnly(ctx context.Context, st *State, c *syntax.SimpleCommand) (int, error) {
	if len(c.Assigns) > 0 || len(c.Redirs) > 0 {
		if err := r.tick(ctx, st); err != nil {
			return 1, err
		}
	}
	if st.opts.Xtrace && len(c.Assigns) > 0 {
		r.trace(st, c.Assigns, nil)
	}
	restore, err := r.applyRedirs(ctx, st, c.Redirs)
	if err != nil {
		return r.expansionFailed(st, err)
	}
	restore()
	status := 0
	for _, a := range c.Assigns {
		if err := r.assign(ctx, st, a, false); err != nil {
			s, ferr := r.expansionFailed(st, err)
			if ferr != nil {
				return s, ferr
			}
			status = s
		}
	}
	if status == 0 {
		status = st.lastSubst
	}
	return status, nil
}

// expansionFailed reports an expansion error. Fatal expansion errors
// terminate the shell.
func (r *Runner) expansionFailed(st *State, err error) (int, error) {
	if isFatal(err) {
		return 1, err
	}
	if _, ok := exitCode(err); ok {
		return 1, err
	}
	var xe *expandError
	if errors.As(err, &xe) {
		diag(st, "%s", xe.msg)
		if xe.fatal {
			return 1, &ExitSignal{Code: 1}
		}
		return 1, nil
	}
	diag(st, "%s", err)
	return 1, nil
}

// trace writes the set -x line for a command.
func (r *Runner) trace(st *State, assigns []*syntax.Assignment, fields []string) {
	prefix, _ := r.lookupScalar(st, "PS4")
	var parts []string
	for _, a := range assigns {
		v, _ := r.lookupScalar(st, a.Name)
		parts = append(parts, a.Name+"="+quoteTrace(v))
	}
	for _, f := range fields {
		parts = append(parts, quoteTrace(f))
	}
	if len(parts) == 0 {
		return
	}
	st.errf(prefix + strings.Join(parts, " ") + "\n")
}

func quoteTrace(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$`*?[]|&;<>(){}#~!") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// runTrap executes a trap action, preserving $?. Only exit and fatal
// errors escape the action.
func (r *Runner) runTrap(ctx context.Context, st *State, action string) error {
	saved := st.lastExit
	script, _ := syntax.Parse(action)
	noErr := st.noErrexit
	st.noErrexit++
	_, err := r.runStmts(ctx, st, script.Stmts)
	st.noErrexit = noErr
	st.lastExit = saved
	var ex *ExitSignal
	if isFatal(err) || errors.As(err, &ex) {
		return err
	}
	return nil
}
