// Package wc implements the wc (word count) command.
package wc

import (
	"bufio"
	"io"
	"strconv"
	"unicode"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Options holds wc command options.
type Options struct {
	Lines bool // -l: count lines
	Words bool // -w: count words
	Chars bool // -m: count characters
	Bytes bool // -c: count bytes
}

// Counts holds the counts for a file.
type Counts struct {
	Lines int64
	Words int64
	Chars int64
	Bytes int64
}

// Run executes the wc command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	files, code := core.ParseBoolFlags(stdio, "wc", args, map[byte]*bool{
		'l': &opts.Lines,
		'w': &opts.Words,
		'm': &opts.Chars,
		'c': &opts.Bytes,
	}, nil)
	if code != core.ExitSuccess {
		return code
	}

	// Default: show all
	if !opts.Lines && !opts.Words && !opts.Chars && !opts.Bytes {
		opts.Lines = true
		opts.Words = true
		opts.Bytes = true
	}

	named := len(files) > 0
	if !named {
		files = []string{"-"}
	}

	exitCode := core.ExitSuccess
	var total Counts
	var results []*Counts
	var names []string

	for _, file := range files {
		reader, err := env.Open(stdio, file)
		if err != nil {
			core.FileError(stdio, "wc", file, err)
			exitCode = core.ExitFailure
			continue
		}
		counts, err := Count(reader)
		if err != nil {
			core.FileError(stdio, "wc", file, err)
			exitCode = core.ExitFailure
			continue
		}
		results = append(results, counts)
		names = append(names, file)

		total.Lines += counts.Lines
		total.Words += counts.Words
		total.Chars += counts.Chars
		total.Bytes += counts.Bytes
	}
	if len(files) > 1 {
		results = append(results, &total)
		names = append(names, "total")
	}

	// a single count read from stdin is printed bare; otherwise columns
	// are padded to the widest number
	width := 1
	if named || countColumns(&opts) > 1 {
		width = len(strconv.FormatInt(maxCount(total, results), 10))
		if !named && width < 7 {
			width = 7
		}
	}
	for i, c := range results {
		name := names[i]
		if !named {
			name = ""
		}
		printCounts(stdio, c, name, &opts, width)
	}

	return exitCode
}

func countColumns(opts *Options) int {
	n := 0
	for _, on := range []bool{opts.Lines, opts.Words, opts.Chars, opts.Bytes} {
		if on {
			n++
		}
	}
	return n
}

func maxCount(total Counts, results []*Counts) int64 {
	m := int64(0)
	for _, c := range append(results, &total) {
		for _, v := range []int64{c.Lines, c.Words, c.Chars, c.Bytes} {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Count reads r to the end and tallies it.
func Count(r io.Reader) (*Counts, error) {
	counts := &Counts{}
	br := bufio.NewReader(r)
	inWord := false

	for {
		r, size, err := br.ReadRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		counts.Bytes += int64(size)
		counts.Chars++

		if r == '\n' {
			counts.Lines++
		}

		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			inWord = true
			counts.Words++
		}
	}

	return counts, nil
}

func printCounts(stdio *core.Stdio, c *Counts, name string, opts *Options, width int) {
	var cols []int64
	if opts.Lines {
		cols = append(cols, c.Lines)
	}
	if opts.Words {
		cols = append(cols, c.Words)
	}
	if opts.Chars {
		cols = append(cols, c.Chars)
	}
	if opts.Bytes {
		cols = append(cols, c.Bytes)
	}
	for i, v := range cols {
		if i > 0 {
			stdio.Print(" ")
		}
		stdio.Printf("%*d", width, v)
	}
	if name != "" {
		stdio.Print(" " + name)
	}
	stdio.Println()
}
