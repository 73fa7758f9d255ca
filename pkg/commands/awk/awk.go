// Package awk implements the awk command on top of GoAWK.
//
// Programs run sandboxed: no system(), no pipes, no file output, and
// input files are read from the shell filesystem rather than the host.
package awk

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Run executes the awk command with the given arguments.
//
// Supported flags:
//
//	-F SEP      Set field separator (default whitespace)
//	-v VAR=VAL  Assign variable before execution
//	-f FILE     Read program from FILE
//	-e PROG     Add PROG text to the program (allows multiple)
//
// The first non-flag argument is the AWK program text (unless -f or -e
// is used). Remaining arguments are input files or VAR=VAL assignments;
// stdin is read if no files are given.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts, err := parseArgs(stdio, env, args)
	if err != nil {
		return core.UsageError(stdio, "awk", err.Error())
	}
	if opts.program == "" {
		return core.UsageError(stdio, "awk", "missing program")
	}
	return runProgram(stdio, env, opts)
}

type options struct {
	program  string
	files    []string
	vars     map[string]string
	fieldSep string
}

type argError struct {
	msg string
}

func (e *argError) Error() string {
	return e.msg
}

func errMissing(what string) error {
	return &argError{msg: "option requires an argument -- " + what}
}

func errInvalid(arg string) error {
	return &argError{msg: "invalid option -- '" + strings.TrimPrefix(arg, "-") + "'"}
}

// parseArgs follows POSIX awk command-line parsing.
func parseArgs(stdio *core.Stdio, env *core.Env, args []string) (*options, error) {
	opts := &options{vars: map[string]string{}}
	explicit := false
	pos := 0
	for ; pos < len(args); pos++ {
		arg := args[pos]
		if arg == "--" {
			pos++
			break
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			break
		}
		if len(arg) < 2 || strings.IndexByte("fevF", arg[1]) < 0 {
			return nil, errInvalid(arg)
		}
		val, usedNext, err := optValue(arg, pos, args)
		if err != nil {
			return nil, err
		}
		if usedNext {
			pos++
		}
		switch arg[1] {
		case 'f':
			r, err := env.Open(stdio, val)
			if err != nil {
				return nil, &argError{msg: "can't open file " + val}
			}
			content, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			opts.program += "\n" + string(content)
			explicit = true
		case 'e':
			opts.program += "\n" + val
			explicit = true
		case 'F':
			opts.fieldSep = unescapeString(val)
		case 'v':
			key, v, ok := parseAssignment(val)
			if !ok {
				return nil, &argError{msg: "invalid variable assignment " + val}
			}
			opts.vars[key] = unescapeString(v)
		}
	}
	rest := args[pos:]
	if !explicit {
		if len(rest) == 0 {
			return opts, nil
		}
		opts.program = rest[0]
		rest = rest[1:]
	}
	opts.files = rest
	opts.program = strings.TrimSpace(opts.program)
	if opts.fieldSep == "t" {
		opts.fieldSep = "\t"
	}
	return opts, nil
}

func optValue(arg string, pos int, args []string) (string, bool, error) {
	if len(arg) > 2 {
		return arg[2:], false, nil
	}
	if pos+1 >= len(args) {
		return "", false, errMissing(arg[1:])
	}
	return args[pos+1], true, nil
}

func parseAssignment(expr string) (string, string, bool) {
	eq := strings.IndexByte(expr, '=')
	if eq <= 0 {
		return "", "", false
	}
	name := expr[:eq]
	if !isName(name) {
		return "", "", false
	}
	return name, expr[eq+1:], true
}

func isName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return name != ""
}

// input concatenates the named operands, reading them from the shell
// filesystem. Operand assignments apply before any input is read.
func input(stdio *core.Stdio, env *core.Env, opts *options) (io.Reader, int) {
	var readers []io.Reader
	code := core.ExitSuccess
	for _, name := range opts.files {
		if key, val, ok := parseAssignment(name); ok {
			opts.vars[key] = unescapeString(val)
			continue
		}
		r, err := env.Open(stdio, name)
		if err != nil {
			stdio.Errorf("awk: cannot open %s (%s)\n", name, vfs.ErrorText(err))
			code = core.ExitFailure
			continue
		}
		readers = append(readers, r)
	}
	if len(readers) == 0 && code == core.ExitSuccess {
		return stdio.In, code
	}
	return io.MultiReader(readers...), code
}

func runProgram(stdio *core.Stdio, env *core.Env, opts *options) int {
	prog, err := parser.ParseProgram([]byte(opts.program), nil)
	if err != nil {
		reportParseError(stdio, err)
		return core.ExitUsage
	}
	stdin, code := input(stdio, env, opts)
	if code != core.ExitSuccess {
		return code
	}

	config := &interp.Config{
		Argv0:        "awk",
		Stdin:        stdin,
		Output:       stdio.Out,
		Error:        stdio.Err,
		NoExec:       true,
		NoFileWrites: true,
		NoFileReads:  true,
	}
	if opts.fieldSep != "" {
		config.Vars = append(config.Vars, "FS", opts.fieldSep)
	}
	keys := make([]string, 0, len(opts.vars))
	for key := range opts.vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		config.Vars = append(config.Vars, key, opts.vars[key])
	}
	config.Environ = make([]string, 0, len(env.Vars)*2)
	for name, value := range env.Vars {
		config.Environ = append(config.Environ, name, value)
	}

	status, err := interp.ExecProgram(prog, config)
	if err != nil {
		stdio.Errorf("awk: %v\n", err)
		return core.ExitUsage
	}
	return status
}

func reportParseError(stdio *core.Stdio, err error) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		stdio.Errorf("awk: cmd. line:%d: %s\n", pe.Position.Line, pe.Message)
		return
	}
	stdio.Errorf("awk: %v\n", err)
}

func unescapeString(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			buf.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			buf.WriteByte('\n')
		case 't':
			buf.WriteByte('\t')
		case 'r':
			buf.WriteByte('\r')
		case 'a':
			buf.WriteByte('\a')
		case 'b':
			buf.WriteByte('\b')
		case 'f':
			buf.WriteByte('\f')
		case 'v':
			buf.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := s[i] - '0'
			for count := 1; count < 3 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; count++ {
				i++
				val = val*8 + (s[i] - '0')
			}
			buf.WriteByte(val)
		default:
			buf.WriteByte(s[i])
		}
	}
	return buf.String()
}
