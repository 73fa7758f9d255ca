// Package cat implements the cat command.
package cat

import (
	"bufio"
	"io"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Options holds cat command options.
type Options struct {
	NumberLines    bool // -n: number all lines
	NumberNonBlank bool // -b: number non-blank lines
	ShowEnds       bool // -e: show $ at end of lines
	ShowTabs       bool // -t: show tabs as ^I
	ShowNonprint   bool // -v: show nonprinting characters
}

// Run executes the cat command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	var showAll bool
	files, code := core.ParseBoolFlags(stdio, "cat", args, map[byte]*bool{
		'n': &opts.NumberLines,
		'b': &opts.NumberNonBlank,
		'e': &opts.ShowEnds,
		't': &opts.ShowTabs,
		'v': &opts.ShowNonprint,
		'A': &showAll,
		'u': nil,
	}, nil)
	if code != core.ExitSuccess {
		return code
	}
	if showAll {
		opts.ShowEnds, opts.ShowTabs, opts.ShowNonprint = true, true, true
	}
	if opts.NumberNonBlank {
		opts.NumberLines = false
	}

	// If no files specified, read from stdin
	if len(files) == 0 {
		files = []string{"-"}
	}

	exitCode := core.ExitSuccess
	lineNum := 0
	for _, file := range files {
		if err := catFile(stdio, env, file, &opts, &lineNum); err != nil {
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}

func catFile(stdio *core.Stdio, env *core.Env, path string, opts *Options, lineNum *int) error {
	reader, err := env.Open(stdio, path)
	if err != nil {
		core.FileError(stdio, "cat", path, err)
		return err
	}

	// Simple case: no options
	if !opts.NumberLines && !opts.NumberNonBlank && !opts.ShowEnds && !opts.ShowTabs && !opts.ShowNonprint {
		_, err := io.Copy(stdio.Out, reader)
		return err
	}

	br := bufio.NewReader(reader)
	for {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		hasNewline := len(line) > 0 && line[len(line)-1] == '\n'
		if hasNewline {
			line = line[:len(line)-1]
		}
		isBlank := len(line) == 0

		if opts.ShowTabs {
			line = showTabs(line)
		}
		if opts.ShowNonprint {
			line = showNonprint(line)
		}

		if opts.NumberLines || (opts.NumberNonBlank && !isBlank) {
			*lineNum++
			stdio.Printf("%6d\t", *lineNum)
		}

		stdio.Print(line)

		if hasNewline {
			if opts.ShowEnds {
				stdio.Print("$")
			}
			stdio.Println()
		}
	}
}

func showTabs(line string) string {
	if line == "" {
		return line
	}
	buf := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] == '\t' {
			buf = append(buf, '^', 'I')
			continue
		}
		buf = append(buf, line[i])
	}
	return string(buf)
}

func showNonprint(line string) string {
	if line == "" {
		return line
	}
	buf := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		b := line[i]
		if b >= 0x20 && b != 0x7f {
			buf = append(buf, b)
			continue
		}
		switch b {
		case '\t':
			buf = append(buf, '\t')
		case 0x7f:
			buf = append(buf, '^', '?')
		default:
			buf = append(buf, '^', b+0x40)
		}
	}
	return string(buf)
}
