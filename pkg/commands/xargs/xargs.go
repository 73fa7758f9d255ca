// Package xargs implements xargs. Commands run through the shell that
// invoked it, so functions, builtins and other commands are all
// reachable.
package xargs

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Options holds xargs command options.
type Options struct {
	ZeroTerm   bool   // -0
	Trace      bool   // -t
	NoRun      bool   // -r
	EOFStr     string // -E
	EOFEnabled bool
	MaxSize    int    // -s
	MaxArgs    int    // -n
	Replace    string // -I
}

// Run executes the xargs command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts, args, code := parseArgs(stdio, args)
	if code != core.ExitSuccess {
		return code
	}
	if env.Exec == nil {
		stdio.Errorf("xargs: cannot run commands\n")
		return 126
	}

	cmdBase := []string{"echo"}
	if len(args) > 0 {
		cmdBase = args
	}

	words, err := readWords(stdio.In, opts)
	if err != nil {
		stdio.Errorf("xargs: %v\n", err)
		return core.ExitFailure
	}

	if opts.NoRun && len(words) == 0 {
		return core.ExitSuccess
	}

	x := &runner{stdio: stdio, env: env, trace: opts.Trace}
	switch {
	case opts.Replace != "":
		for _, w := range words {
			cmd := make([]string, len(cmdBase))
			for i, a := range cmdBase {
				cmd[i] = strings.ReplaceAll(a, opts.Replace, w)
			}
			if !x.run(cmd) {
				break
			}
		}
	case opts.MaxSize > 0:
		x.batchBySize(cmdBase, words, opts.MaxSize)
	case opts.MaxArgs > 0:
		for i := 0; i < len(words); i += opts.MaxArgs {
			end := i + opts.MaxArgs
			if end > len(words) {
				end = len(words)
			}
			if !x.run(append(append([]string{}, cmdBase...), words[i:end]...)) {
				break
			}
		}
	default:
		x.run(append(append([]string{}, cmdBase...), words...))
	}
	return x.status
}

func parseArgs(stdio *core.Stdio, args []string) (*Options, []string, int) {
	opts := &Options{}
	value := func(arg string, j int, flag string) (string, bool) {
		val := arg[j+1:]
		if val == "" {
			if len(args) == 0 {
				core.UsageError(stdio, "xargs", "option requires an argument -- '"+flag+"'")
				return "", false
			}
			val = args[0]
			args = args[1:]
		}
		return val, true
	}
	number := func(arg string, j int, flag string) (int, bool) {
		val, ok := value(arg, j, flag)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			core.UsageError(stdio, "xargs", "invalid number \""+val+"\" for -"+flag+" option")
			return 0, false
		}
		return n, true
	}

	for len(args) > 0 && strings.HasPrefix(args[0], "-") && args[0] != "-" && args[0] != "--" {
		arg := args[0]
		args = args[1:]
		for j := 1; j < len(arg); j++ {
			var ok bool
			switch arg[j] {
			case '0':
				opts.ZeroTerm = true
				continue
			case 't':
				opts.Trace = true
				continue
			case 'r':
				opts.NoRun = true
				continue
			case 'E':
				opts.EOFStr, ok = value(arg, j, "E")
				opts.EOFEnabled = true
			case 'e':
				if val := arg[j+1:]; val != "" {
					opts.EOFStr, opts.EOFEnabled = val, true
				}
				ok = true
			case 'I':
				opts.Replace, ok = value(arg, j, "I")
			case 's':
				opts.MaxSize, ok = number(arg, j, "s")
			case 'n':
				opts.MaxArgs, ok = number(arg, j, "n")
			default:
				return nil, nil, core.UsageError(stdio, "xargs", "invalid option -- '"+string(arg[j])+"'")
			}
			if !ok {
				return nil, nil, core.ExitUsage
			}
			break
		}
	}
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	return opts, args, core.ExitSuccess
}

type runner struct {
	stdio  *core.Stdio
	env    *core.Env
	trace  bool
	status int
}

// run executes one command line and reports whether to continue.
// Failing invocations make xargs exit 123; 126, 127 and 255 stop it.
func (x *runner) run(cmd []string) bool {
	if x.trace {
		x.stdio.Errorf("%s\n", strings.Join(cmd, " "))
	}
	quoted := make([]string, len(cmd))
	for i, a := range cmd {
		quoted[i] = shellQuote(a)
	}
	rc := x.env.Exec(x.stdio, strings.Join(quoted, " "))
	switch {
	case rc == 0:
		return true
	case rc == 126 || rc == 127:
		x.status = rc
		return false
	case rc == 255:
		x.stdio.Errorf("xargs: %s: exited with status 255; aborting\n", cmd[0])
		x.status = 124
		return false
	}
	x.status = 123
	return true
}

func (x *runner) batchBySize(cmdBase []string, words []string, maxSize int) {
	baseLen := len(strings.Join(cmdBase, " "))
	var batch []string
	currentLen := baseLen
	for _, w := range words {
		newLen := currentLen + 1 + len(w)
		if len(batch) > 0 && newLen+1 > maxSize {
			if !x.run(append(append([]string{}, cmdBase...), batch...)) {
				return
			}
			batch = nil
			currentLen = baseLen
		}
		batch = append(batch, w)
		currentLen += 1 + len(w)
	}
	if len(batch) > 0 {
		x.run(append(append([]string{}, cmdBase...), batch...))
	}
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r == '-' || r == '.' || r == '/' || r == '=' || r == ',' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func readWords(r io.Reader, opts *Options) ([]string, error) {
	if opts.ZeroTerm {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		var words []string
		for _, part := range strings.Split(string(data), "\x00") {
			if part != "" {
				words = append(words, part)
			}
		}
		return words, nil
	}
	scanner := bufio.NewScanner(r)
	var words []string
	for scanner.Scan() {
		line := scanner.Text()
		if opts.Replace != "" {
			// -I takes whole lines, minus leading blanks
			if line = strings.TrimLeft(line, " \t"); line != "" {
				if opts.EOFEnabled && line == opts.EOFStr {
					break
				}
				words = append(words, line)
			}
			continue
		}
		for _, w := range splitQuoted(line) {
			if opts.EOFEnabled && w == opts.EOFStr {
				return words, nil
			}
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// splitQuoted splits a line on blanks, honouring single and double
// quotes and backslash escapes.
func splitQuoted(line string) []string {
	var words []string
	var cur strings.Builder
	inWord := false
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words
}
