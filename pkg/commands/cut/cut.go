// Package cut implements the cut command.
package cut

import (
	"bufio"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/textutil"
)

// Run executes the cut command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	var (
		mode            byte
		spec            string
		delimiter       rune = '\t'
		outputDelimiter string
		suppress        bool
	)
	files := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			files = append(files, args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "--output-delimiter") {
			if v, ok := strings.CutPrefix(arg, "--output-delimiter="); ok {
				outputDelimiter = v
				continue
			}
			if i+1 >= len(args) {
				return core.UsageError(stdio, "cut", "option '--output-delimiter' requires an argument")
			}
			i++
			outputDelimiter = args[i]
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			files = append(files, arg)
			continue
		}
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			if c == 's' {
				suppress = true
				continue
			}
			if c == 'n' {
				continue
			}
			if strings.IndexByte("dfcb", c) < 0 {
				return core.UsageError(stdio, "cut", "invalid option -- '"+string(c)+"'")
			}
			val := arg[j+1:]
			if val == "" {
				if i+1 >= len(args) {
					return core.UsageError(stdio, "cut", "option requires an argument -- '"+string(c)+"'")
				}
				i++
				val = args[i]
			}
			if c == 'd' {
				runes := []rune(val)
				if len(runes) != 1 {
					return core.UsageError(stdio, "cut", "the delimiter must be a single character")
				}
				delimiter = runes[0]
			} else {
				if mode != 0 && mode != c {
					return core.UsageError(stdio, "cut", "only one type of list may be specified")
				}
				mode = c
				spec = val
			}
			break
		}
	}

	if mode == 0 {
		return core.UsageError(stdio, "cut", "you must specify a list of bytes, characters, or fields")
	}
	if len(files) == 0 {
		files = []string{"-"}
	}

	ranges, err := textutil.ParseRanges(spec)
	if err != nil {
		return core.UsageError(stdio, "cut", "invalid field value '"+spec+"'")
	}

	project := func(line string) (string, bool) { return line, true }
	switch mode {
	case 'f':
		project = textutil.BuildFieldFunc(ranges, delimiter, outputDelimiter, suppress)
	case 'c':
		chars := textutil.BuildCharFunc(ranges)
		project = func(line string) (string, bool) { return chars(line), true }
	case 'b':
		bytes := textutil.BuildByteFunc(ranges)
		project = func(line string) (string, bool) { return bytes(line), true }
	}

	exitCode := core.ExitSuccess
	for _, file := range files {
		r, err := env.Open(stdio, file)
		if err != nil {
			core.FileError(stdio, "cut", file, err)
			exitCode = core.ExitFailure
			continue
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if out, ok := project(scanner.Text()); ok {
				stdio.Println(out)
			}
		}
		if err := scanner.Err(); err != nil {
			stdio.Errorf("cut: %v\n", err)
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}
