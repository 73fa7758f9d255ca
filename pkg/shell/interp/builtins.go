package interp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// builtinCall is one invocation of a builtin.
type builtinCall struct {
	r    *Runner
	ctx  context.Context
	st   *State
	name string
	args []string
	// declaration arguments in assignment form, keyed by index in args
	decl map[int]*syntax.Assignment
}

// errorf reports "bash: name: msg".
func (b *builtinCall) errorf(format string, args ...any) {
	diag(b.st, "%s: %s", b.name, fmt.Sprintf(format, args...))
}

// write sends s to standard output and reports a failed write.
func (b *builtinCall) write(s string) int {
	if err := b.st.write(1, s); err != nil {
		b.errorf("write error: %s", err)
		return 1
	}
	return 0
}

type builtinFunc func(b *builtinCall) (int, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		":":         func(*builtinCall) (int, error) { return 0, nil },
		"true":      func(*builtinCall) (int, error) { return 0, nil },
		"false":     func(*builtinCall) (int, error) { return 1, nil },
		"echo":      builtinEcho,
		"printf":    builtinPrintf,
		"exit":      builtinExit,
		"return":    builtinReturn,
		"break":     builtinBreak,
		"continue":  builtinBreak,
		"shift":     builtinShift,
		"cd":        builtinCd,
		"pwd":       builtinPwd,
		"export":    builtinExport,
		"readonly":  builtinReadonly,
		"local":     builtinDeclare,
		"declare":   builtinDeclare,
		"typeset":   builtinDeclare,
		"unset":     builtinUnset,
		"set":       builtinSet,
		"shopt":     builtinShopt,
		"read":      builtinRead,
		"mapfile":   builtinMapfile,
		"readarray": builtinMapfile,
		"eval":      builtinEval,
		"source":    builtinSource,
		".":         builtinSource,
		"let":       builtinLet,
		"type":      builtinType,
		"command":   builtinCommand,
		"exec":      builtinExec,
		"trap":      builtinTrap,
		"wait":      func(*builtinCall) (int, error) { return 0, nil },
		"getopts":   builtinGetopts,
		"test":      builtinTest,
		"[":         builtinTest,
	}
}

var specialBuiltins = map[string]bool{
	":": true, ".": true, "break": true, "continue": true, "eval": true,
	"exec": true, "exit": true, "export": true, "readonly": true,
	"return": true, "set": true, "shift": true, "source": true,
	"trap": true, "unset": true,
}

func isSpecialBuiltin(name string) bool { return specialBuiltins[name] }

func builtinExit(b *builtinCall) (int, error) {
	code := b.st.lastExit
	if len(b.args) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(b.args[0]))
		if err != nil {
			b.errorf("%s: numeric argument required", b.args[0])
			return 2, &ExitSignal{Code: 2}
		}
		if len(b.args) > 1 {
			b.errorf("too many arguments")
			return 1, nil
		}
		code = n & 255
	}
	return code, &ExitSignal{Code: code}
}

func builtinReturn(b *builtinCall) (int, error) {
	if b.st.funcDepth == 0 && b.st.srcDepth == 0 {
		b.errorf("can only `return' from a function or sourced script")
		return 1, nil
	}
	code := b.st.lastExit
	if len(b.args) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(b.args[0]))
		if err != nil {
			b.errorf("%s: numeric argument required", b.args[0])
			return 2, &ReturnSignal{Code: 2}
		}
		code = n & 255
	}
	return code, &ReturnSignal{Code: code}
}

// builtinBreak implements break and continue.
func builtinBreak(b *builtinCall) (int, error) {
	n := 1
	if len(b.args) > 0 {
		v, err := strconv.Atoi(b.args[0])
		if err != nil {
			b.errorf("%s: numeric argument required", b.args[0])
			return 1, nil
		}
		if v < 1 {
			b.errorf("%s: loop count out of range", b.args[0])
			return 1, nil
		}
		n = v
	}
	if b.st.loopDepth == 0 {
		b.errorf("only meaningful in a `for', `while', or `until' loop")
		return 0, nil
	}
	n = min(n, b.st.loopDepth)
	if b.name == "break" {
		return 0, &BreakSignal{N: n}
	}
	return 0, &ContinueSignal{N: n}
}

func builtinShift(b *builtinCall) (int, error) {
	n := 1
	if len(b.args) > 0 {
		v, err := strconv.Atoi(b.args[0])
		if err != nil || v < 0 {
			b.errorf("%s: shift count out of range", b.args[0])
			return 1, nil
		}
		n = v
	}
	if n > len(b.st.positional) {
		return 1, nil
	}
	b.st.positional = b.st.positional[n:]
	return 0, nil
}

func builtinCd(b *builtinCall) (int, error) {
	st := b.st
	args := b.args
	for len(args) > 0 && (args[0] == "-L" || args[0] == "-P") {
		args = args[1:]
	}
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) > 1 {
		b.errorf("too many arguments")
		return 1, nil
	}
	var dir string
	printDir := false
	switch {
	case len(args) == 0:
		home, ok := b.r.lookupScalar(st, "HOME")
		if !ok || home == "" {
			b.errorf("HOME not set")
			return 1, nil
		}
		dir = home
	case args[0] == "-":
		old, ok := b.r.lookupScalar(st, "OLDPWD")
		if !ok || old == "" {
			b.errorf("OLDPWD not set")
			return 1, nil
		}
		dir, printDir = old, true
	default:
		dir = args[0]
	}
	p := vfs.ResolvePath(st.cwd, dir)
	if !b.r.fs.Exists(p) {
		b.errorf("%s: No such file or directory", dir)
		return 1, nil
	}
	if !b.r.fs.IsDir(p) {
		b.errorf("%s: Not a directory", dir)
		return 1, nil
	}
	_ = b.r.setValue(b.ctx, st, "OLDPWD", st.cwd, false)
	st.cwd = p
	_ = b.r.setValue(b.ctx, st, "PWD", p, false)
	if printDir {
		return b.write(p + "\n"), nil
	}
	return 0, nil
}

func builtinPwd(b *builtinCall) (int, error) {
	return b.write(b.st.cwd + "\n"), nil
}

// runSource parses and runs src in the current shell, as eval and source
// do. A deferred syntax error ends src with status 2.
func (r *Runner) runSource(ctx context.Context, st *State, src string) (int, error) {
	if err := r.enter(st); err != nil {
		return 1, err
	}
	st.depth++
	defer func() { st.depth-- }()
	script, _ := syntax.Parse(src)
	status, err := r.runStmts(ctx, st, script.Stmts)
	if errors.Is(err, errSyntaxAbort) {
		return 2, nil
	}
	return status, err
}

func builtinEval(b *builtinCall) (int, error) {
	src := strings.Join(b.args, " ")
	if strings.TrimSpace(src) == "" {
		return 0, nil
	}
	return b.r.runSource(b.ctx, b.st, src)
}

func builtinSource(b *builtinCall) (int, error) {
	st := b.st
	if len(b.args) == 0 {
		b.errorf("filename argument required")
		return 2, nil
	}
	name := b.args[0]
	src, err := b.r.readPath(st, name)
	if err != nil {
		diag(st, "%s: %s", name, vfs.ErrorText(err))
		return 1, nil
	}
	if len(b.args) > 1 {
		saved := st.positional
		st.positional = append([]string(nil), b.args[1:]...)
		defer func() { st.positional = saved }()
	}
	st.srcDepth++
	status, err := b.r.runSource(b.ctx, st, src)
	st.srcDepth--
	var rs *ReturnSignal
	if errors.As(err, &rs) {
		return rs.Code, nil
	}
	return status, err
}

func builtinLet(b *builtinCall) (int, error) {
	if len(b.args) == 0 {
		b.errorf("expression expected")
		return 1, nil
	}
	var last int64
	for _, expr := range b.args {
		n, err := b.r.evalArithString(b.ctx, b.st, expr)
		if err != nil {
			var xe *expandError
			if errors.As(err, &xe) && xe.fatal {
				return b.r.expansionFailed(b.st, err)
			}
			b.errorf("%s: %s", expr, err)
			return 1, nil
		}
		last = n
	}
	if last == 0 {
		return 1, nil
	}
	return 0, nil
}

// describe classifies a command name the way type does.
func (r *Runner) describe(st *State, name string) (kind, detail string) {
	switch {
	case syntax.IsReserved(name):
		return "keyword", ""
	case st.funcs[name] != nil:
		return "function", st.funcs[name].Source
	case builtins[name] != nil:
		return "builtin", ""
	case r.commands[name] != nil:
		return "file", "/usr/bin/" + name
	}
	if strings.Contains(name, "/") && r.fs.IsFile(vfs.ResolvePath(st.cwd, name)) {
		return "file", name
	}
	return "", ""
}

func builtinType(b *builtinCall) (int, error) {
	terse, pathOnly := false, false
	args := b.args
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && len(args[0]) > 1 {
		for _, c := range args[0][1:] {
			switch c {
			case 't':
				terse = true
			case 'p', 'P':
				pathOnly = true
			case 'a', 'f':
			default:
				b.errorf("-%c: invalid option", c)
				return 2, nil
			}
		}
		args = args[1:]
	}
	status := 0
	var out strings.Builder
	for _, name := range args {
		kind, detail := b.r.describe(b.st, name)
		switch {
		case kind == "":
			if !terse && !pathOnly {
				b.errorf("%s: not found", name)
			}
			status = 1
		case terse:
			out.WriteString(kind + "\n")
		case pathOnly:
			if kind == "file" {
				out.WriteString(detail + "\n")
			}
		case kind == "keyword":
			out.WriteString(name + " is a shell keyword\n")
		case kind == "function":
			out.WriteString(name + " is a function\n" + detail + "\n")
		case kind == "builtin":
			out.WriteString(name + " is a shell builtin\n")
		default:
			out.WriteString(name + " is " + detail + "\n")
		}
	}
	if code := b.write(out.String()); code != 0 {
		return code, nil
	}
	return status, nil
}

func builtinCommand(b *builtinCall) (int, error) {
	args := b.args
	verbose, describe := false, false
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && len(args[0]) > 1 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		for _, c := range args[0][1:] {
			switch c {
			case 'v':
				describe = true
			case 'V':
				verbose = true
			case 'p':
			default:
				b.errorf("-%c: invalid option", c)
				return 2, nil
			}
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return 0, nil
	}
	if describe || verbose {
		status := 0
		for _, name := range args {
			kind, detail := b.r.describe(b.st, name)
			switch {
			case kind == "":
				if verbose {
					b.errorf("%s: not found", name)
				}
				status = 1
			case verbose:
				call := &builtinCall{r: b.r, ctx: b.ctx, st: b.st, name: "type", args: []string{name}}
				if _, err := builtinType(call); err != nil {
					return 1, err
				}
			case kind == "file":
				b.write(detail + "\n")
			default:
				b.write(name + "\n")
			}
		}
		return status, nil
	}
	// functions are bypassed
	name := args[0]
	if fn, ok := builtins[name]; ok {
		return fn(&builtinCall{r: b.r, ctx: b.ctx, st: b.st, name: name, args: args[1:]})
	}
	if cmd, ok := b.r.commands[name]; ok {
		return b.r.runCommand(b.ctx, b.st, cmd, args[1:])
	}
	if strings.Contains(name, "/") {
		return b.r.runScriptFile(b.ctx, b.st, name, args[1:])
	}
	diag(b.st, "%s: command not found", name)
	return 127, nil
}

func builtinExec(b *builtinCall) (int, error) {
	if len(b.args) == 0 {
		b.st.keepRedirs = true
		return 0, nil
	}
	saved := b.st.funcs
	b.st.funcs = map[string]*syntax.FunctionDef{}
	status, err := b.r.dispatch(b.ctx, b.st, b.args, nil)
	b.st.funcs = saved
	if err != nil {
		return status, err
	}
	return status, &ExitSignal{Code: status}
}

var signalNames = []string{
	"HUP", "INT", "QUIT", "ILL", "TRAP", "ABRT", "BUS", "FPE", "KILL", "USR1",
	"SEGV", "USR2", "PIPE", "ALRM", "TERM",
}

// trapName normalises a signal specification.
func trapName(spec string) (string, bool) {
	s := strings.ToUpper(spec)
	s = strings.TrimPrefix(s, "SIG")
	switch s {
	case "0", "EXIT":
		return "EXIT", true
	case "ERR", "DEBUG", "RETURN":
		return s, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(signalNames) {
			return signalNames[n-1], true
		}
		return "", false
	}
	for _, name := range signalNames {
		if name == s {
			return s, true
		}
	}
	return "", false
}

func builtinTrap(b *builtinCall) (int, error) {
	st := b.st
	args := b.args
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) > 0 && args[0] == "-l" {
		var out strings.Builder
		for i, name := range signalNames {
			fmt.Fprintf(&out, "%2d) SIG%s\n", i+1, name)
		}
		return b.write(out.String()), nil
	}
	if len(args) == 0 || args[0] == "-p" {
		names := make([]string, 0, len(st.traps))
		for name := range st.traps {
			names = append(names, name)
		}
		sort.Strings(names)
		var out strings.Builder
		for _, name := range names {
			out.WriteString("trap -- " + shellQuote(st.traps[name]) + " " + name + "\n")
		}
		return b.write(out.String()), nil
	}
	action := args[0]
	specs := args[1:]
	if len(specs) == 0 {
		// trap SIG resets
		specs, action = args, "-"
	}
	status := 0
	for _, spec := range specs {
		name, ok := trapName(spec)
		if !ok {
			b.errorf("%s: invalid signal specification", spec)
			status = 1
			continue
		}
		if action == "-" {
			delete(st.traps, name)
			continue
		}
		st.traps[name] = action
	}
	return status, nil
}

func builtinGetopts(b *builtinCall) (int, error) {
	st := b.st
	if len(b.args) < 2 {
		diag(st, "getopts: usage: getopts optstring name [arg ...]")
		return 2, nil
	}
	optstring, name := b.args[0], b.args[1]
	args := st.positional
	if len(b.args) > 2 {
		args = b.args[2:]
	}
	silent := strings.HasPrefix(optstring, ":")
	if silent {
		optstring = optstring[1:]
	}
	optindStr, _ := b.r.lookupScalar(st, "OPTIND")
	optind, err := strconv.Atoi(optindStr)
	if err != nil || optind < 1 {
		optind = 1
	}
	if optindStr != st.lastGetopts {
		// OPTIND was reset by the script
		st.getoptsPos = 0
	}
	set := func(v string) { _ = b.r.setValue(b.ctx, st, name, v, false) }
	finish := func() (int, error) {
		set("?")
		_ = st.unset("OPTARG")
		st.getoptsPos = 0
		b.setOptind(optind)
		return 1, nil
	}
	if optind > len(args) {
		return finish()
	}
	arg := args[optind-1]
	if st.getoptsPos == 0 {
		if arg == "--" {
			optind++
			return finish()
		}
		if len(arg) < 2 || arg[0] != '-' {
			return finish()
		}
		st.getoptsPos = 1
	}
	c := arg[st.getoptsPos]
	st.getoptsPos++
	advance := func() {
		if st.getoptsPos >= len(arg) {
			st.getoptsPos = 0
			optind++
		}
	}
	i := strings.IndexByte(optstring, c)
	if i < 0 || c == ':' {
		advance()
		if silent {
			_ = b.r.setValue(b.ctx, st, "OPTARG", string(c), false)
		} else {
			st.errf(fmt.Sprintf("%s: illegal option -- %c\n", st.arg0, c))
			_ = st.unset("OPTARG")
		}
		set("?")
		b.setOptind(optind)
		return 0, nil
	}
	if i+1 < len(optstring) && optstring[i+1] == ':' {
		var optarg string
		switch {
		case st.getoptsPos < len(arg):
			optarg = arg[st.getoptsPos:]
			st.getoptsPos = 0
			optind++
		case optind < len(args):
			optarg = args[optind]
			st.getoptsPos = 0
			optind += 2
		default:
			st.getoptsPos = 0
			optind++
			if silent {
				set(":")
				_ = b.r.setValue(b.ctx, st, "OPTARG", string(c), false)
			} else {
				st.errf(fmt.Sprintf("%s: option requires an argument -- %c\n", st.arg0, c))
				set("?")
				_ = st.unset("OPTARG")
			}
			b.setOptind(optind)
			return 0, nil
		}
		_ = b.r.setValue(b.ctx, st, "OPTARG", optarg, false)
	} else {
		advance()
		_ = st.unset("OPTARG")
	}
	set(string(c))
	b.setOptind(optind)
	return 0, nil
}

func (b *builtinCall) setOptind(n int) {
	s := strconv.Itoa(n)
	_ = b.r.setValue(b.ctx, b.st, "OPTIND", s, false)
	b.st.lastGetopts = s
}
