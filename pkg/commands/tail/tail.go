// Package tail implements the tail command.
package tail

import (
	"io"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Run executes the tail command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	return core.RunHeadTail(stdio, env, "tail", args, tailFile)
}

func tailFile(stdio *core.Stdio, env *core.Env, path string, opts *core.HeadTailOptions) error {
	reader, err := env.Open(stdio, path)
	if err != nil {
		core.FileError(stdio, "tail", path, err)
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		core.FileError(stdio, "tail", path, err)
		return err
	}

	if opts.Bytes >= 0 {
		stdio.Print(tailBytes(string(data), opts.Bytes, opts.From))
		return nil
	}
	stdio.Print(tailLines(string(data), opts.Lines, opts.From))
	return nil
}

// tailLines returns the last n lines of s, or everything from line n
// when from is set.
func tailLines(s string, n int, from bool) string {
	if s == "" {
		return ""
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	start := len(lines) - n
	if from {
		start = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	return strings.Join(lines[start:], "")
}

func tailBytes(s string, n int, from bool) string {
	start := len(s) - n
	if from {
		start = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	return s[start:]
}
