// Package uniq implements the uniq command.
package uniq

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/textutil"
)

// Options holds uniq command options.
type Options struct {
	Count      bool // -c
	Repeated   bool // -d
	Unique     bool // -u
	IgnoreCase bool // -i
	SkipFields int  // -f N
	SkipChars  int  // -s N
	CheckChars int  // -w N
}

// Run executes the uniq command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	var operands []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			operands = append(operands, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			operands = append(operands, arg)
			continue
		}
		for j := 1; j < len(arg); j++ {
			var target *int
			switch arg[j] {
			case 'c':
				opts.Count = true
			case 'd':
				opts.Repeated = true
			case 'u':
				opts.Unique = true
			case 'i':
				opts.IgnoreCase = true
			case 'f':
				target = &opts.SkipFields
			case 's':
				target = &opts.SkipChars
			case 'w':
				target = &opts.CheckChars
			default:
				return core.UsageError(stdio, "uniq", "invalid option -- '"+string(arg[j])+"'")
			}
			if target == nil {
				continue
			}
			val := arg[j+1:]
			if val == "" {
				if i+1 >= len(args) {
					return core.UsageError(stdio, "uniq", "option requires an argument -- '"+string(arg[j])+"'")
				}
				i++
				val = args[i]
			}
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return core.UsageError(stdio, "uniq", "invalid number: '"+val+"'")
			}
			*target = n
			break
		}
	}
	if len(operands) > 2 {
		return core.UsageError(stdio, "uniq", "extra operand '"+operands[2]+"'")
	}

	file := "-"
	if len(operands) > 0 {
		file = operands[0]
	}
	r, err := env.Open(stdio, file)
	if err != nil {
		return core.FileError(stdio, "uniq", file, err)
	}

	var out strings.Builder
	emit := func(line string, n int) {
		if (opts.Repeated && n < 2) || (opts.Unique && n > 1) {
			return
		}
		if opts.Count {
			fmt.Fprintf(&out, "%7d %s\n", n, line)
			return
		}
		out.WriteString(line + "\n")
	}

	scanner := bufio.NewScanner(r)
	var prev, prevKey string
	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		key := compareKey(line, &opts)
		if n > 0 && key == prevKey {
			n++
			continue
		}
		if n > 0 {
			emit(prev, n)
		}
		prev, prevKey, n = line, key, 1
	}
	if err := scanner.Err(); err != nil {
		stdio.Errorf("uniq: %v\n", err)
		return core.ExitFailure
	}
	if n > 0 {
		emit(prev, n)
	}

	if len(operands) == 2 {
		if err := env.FS.WriteFile(env.Path(operands[1]), out.String()); err != nil {
			return core.FileError(stdio, "uniq", operands[1], err)
		}
		return core.ExitSuccess
	}
	stdio.Print(out.String())
	return core.ExitSuccess
}

func compareKey(line string, opts *Options) string {
	key := textutil.NormalizeLine(line, opts.SkipFields, opts.SkipChars)
	if opts.CheckChars > 0 {
		if runes := []rune(key); len(runes) > opts.CheckChars {
			key = string(runes[:opts.CheckChars])
		}
	}
	if opts.IgnoreCase {
		key = strings.ToLower(key)
	}
	return key
}
