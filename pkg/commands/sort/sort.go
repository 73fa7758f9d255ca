// Package sort implements the sort command.
package sort

import (
	"bufio"
	"sort"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/textutil"
)

type options struct {
	reverse  bool
	numeric  bool
	unique   bool
	ignore   bool
	check    bool
	sep      string
	keyField int
	keyChar  int
	outFile  string
}

// Run executes the sort command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := options{}
	files := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			files = append(files, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			files = append(files, arg)
			continue
		}
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			switch c {
			case 'r':
				opts.reverse = true
				continue
			case 'n':
				opts.numeric = true
				continue
			case 'u':
				opts.unique = true
				continue
			case 'f':
				opts.ignore = true
				continue
			case 'c':
				opts.check = true
				continue
			case 'b', 's':
				continue
			case 't', 'k', 'o':
			default:
				return core.UsageError(stdio, "sort", "invalid option -- '"+string(c)+"'")
			}
			val := arg[j+1:]
			if val == "" {
				if i+1 >= len(args) {
					return core.UsageError(stdio, "sort", "option requires an argument -- '"+string(c)+"'")
				}
				i++
				val = args[i]
			}
			switch c {
			case 't':
				if len([]rune(val)) != 1 {
					return core.UsageError(stdio, "sort", "multi-character tab '"+val+"'")
				}
				opts.sep = val
			case 'k':
				field, char, err := textutil.ParseKeySpec(val)
				if err != nil {
					return core.UsageError(stdio, "sort", "invalid number at field start: invalid count at start of '"+val+"'")
				}
				opts.keyField, opts.keyChar = field, char
				if strings.ContainsRune(val, 'n') {
					opts.numeric = true
				}
				if strings.ContainsRune(val, 'r') {
					opts.reverse = true
				}
			case 'o':
				opts.outFile = val
			}
			break
		}
	}

	if len(files) == 0 {
		files = []string{"-"}
	}

	lines := []string{}
	for _, f := range files {
		r, err := env.Open(stdio, f)
		if err != nil {
			return core.FileError(stdio, "sort", f, err)
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			stdio.Errorf("sort: %v\n", err)
			return core.ExitFailure
		}
	}

	cmp := func(a, b string) int { return compare(a, b, &opts) }

	if opts.check {
		for i := 1; i < len(lines); i++ {
			if c := cmp(lines[i-1], lines[i]); c > 0 || (opts.unique && c == 0) {
				stdio.Errorf("sort: %s:%d: disorder: %s\n", files[0], i+1, lines[i])
				return core.ExitFailure
			}
		}
		return core.ExitSuccess
	}

	sort.SliceStable(lines, func(i, j int) bool {
		c := cmp(lines[i], lines[j])
		if c == 0 && !opts.unique {
			// last-resort comparison on the whole line
			c = strings.Compare(lines[i], lines[j])
			if opts.reverse {
				c = -c
			}
		}
		return c < 0
	})

	output := make([]string, 0, len(lines))
	for i, l := range lines {
		if opts.unique && i > 0 && cmp(lines[i-1], l) == 0 {
			continue
		}
		output = append(output, l)
	}

	var out strings.Builder
	for _, line := range output {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if opts.outFile != "" {
		if err := env.FS.WriteFile(env.Path(opts.outFile), out.String()); err != nil {
			return core.FileError(stdio, "sort", opts.outFile, err)
		}
		return core.ExitSuccess
	}
	stdio.Print(out.String())
	return core.ExitSuccess
}

func sortKey(line string, opts *options) string {
	key := line
	if opts.keyField > 0 {
		key = textutil.ExtractKey(line, opts.keyField, opts.keyChar, opts.sep)
	}
	if opts.ignore {
		key = strings.ToLower(key)
	}
	return key
}

// compare orders two lines by key, honouring -n and -r.
func compare(a, b string, opts *options) int {
	ka, kb := sortKey(a, opts), sortKey(b, opts)
	var c int
	if opts.numeric {
		c = compareFloat(leadingNumber(ka), leadingNumber(kb))
	} else {
		c = strings.Compare(ka, kb)
	}
	if opts.reverse {
		return -c
	}
	return c
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// leadingNumber parses the numeric prefix of s; text without one sorts
// as zero.
func leadingNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return n
}
