// headtail.go provides shared argument parsing for the head and tail commands.
package core

import (
	"strconv"
)

// HeadTailOptions holds shared flags for head/tail.
type HeadTailOptions struct {
	Lines   int
	Bytes   int
	Quiet   bool
	Verbose bool
	Files   []string
	// From counts from the start of input (tail -n +N).
	From bool
}

// ParseHeadTailArgs parses head/tail-style arguments.
func ParseHeadTailArgs(stdio *Stdio, applet string, args []string) (*HeadTailOptions, int) {
	opts := &HeadTailOptions{
		Lines: 10,
		Bytes: -1,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			opts.Files = append(opts.Files, args[i+1:]...)
			break
		}
		if len(arg) > 1 && arg[0] == '-' {
			if arg[1] >= '0' && arg[1] <= '9' {
				n, err := strconv.Atoi(arg[1:])
				if err != nil {
					return nil, UsageError(stdio, applet, "invalid number: "+arg[1:])
				}
				opts.Lines = n
				continue
			}
			for j := 1; j < len(arg); j++ {
				switch arg[j] {
				case 'n', 'c':
					val, from, nextI, code := parseNumericFlagValue(args, i, arg, j, applet, stdio)
					if code != ExitSuccess {
						return nil, code
					}
					i = nextI
					if from {
						if applet == "head" {
							return nil, UsageError(stdio, applet, "invalid number: +"+strconv.Itoa(val))
						}
						opts.From = true
					}
					if arg[j] == 'n' {
						opts.Lines = val
					} else {
						opts.Bytes = val
					}
					j = len(arg)
				case 'q':
					opts.Quiet = true
				case 'v':
					opts.Verbose = true
				default:
					return nil, UsageError(stdio, applet, "invalid option -- '"+string(arg[j])+"'")
				}
			}
		} else {
			opts.Files = append(opts.Files, arg)
		}
	}

	if len(opts.Files) == 0 {
		opts.Files = []string{"-"}
	}

	return opts, ExitSuccess
}

// HeadTailFileFunc is a handler for head/tail file processing.
type HeadTailFileFunc func(stdio *Stdio, env *Env, path string, opts *HeadTailOptions) error

// RunHeadTail runs shared logic for head and tail commands.
func RunHeadTail(stdio *Stdio, env *Env, applet string, args []string, fn HeadTailFileFunc) int {
	opts, code := ParseHeadTailArgs(stdio, applet, args)
	if code != ExitSuccess {
		return code
	}

	showHeaders := (len(opts.Files) > 1 && !opts.Quiet) || opts.Verbose
	exitCode := ExitSuccess

	for i, file := range opts.Files {
		if showHeaders {
			if i > 0 {
				stdio.Println()
			}
			stdio.Printf("==> %s <==\n", file)
		}

		if err := fn(stdio, env, file, opts); err != nil {
			exitCode = ExitFailure
		}
	}

	return exitCode
}

func parseNumericFlagValue(args []string, i int, arg string, j int, applet string, stdio *Stdio) (int, bool, int, int) {
	var valStr string
	if j+1 < len(arg) {
		valStr = arg[j+1:]
	} else if i+1 < len(args) {
		i++
		valStr = args[i]
	} else {
		return 0, false, i, UsageError(stdio, applet, "option requires an argument -- '"+string(arg[j])+"'")
	}
	from := false
	if len(valStr) > 0 && valStr[0] == '+' {
		from = true
		valStr = valStr[1:]
	}
	n, err := strconv.Atoi(valStr)
	if err != nil || n < 0 {
		return 0, false, i, UsageError(stdio, applet, "invalid number: "+valStr)
	}
	return n, from, i, ExitSuccess
}
