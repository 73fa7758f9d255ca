// Package wget implements a minimal wget command over the host's
// fetch callback.
package wget

import (
	"net/url"
	"path"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Run executes the wget command with the given arguments.
//
//	-O FILE   Write the document to FILE ("-" for stdout)
//	-q        Quiet
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	out := ""
	quiet := false
	var urls []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-O":
			if i+1 >= len(args) {
				return core.UsageError(stdio, "wget", "option requires an argument -- 'O'")
			}
			i++
			out = args[i]
		case strings.HasPrefix(arg, "-O"):
			out = arg[2:]
		case arg == "-q":
			quiet = true
		case len(arg) > 1 && arg[0] == '-':
			return core.UsageError(stdio, "wget", "invalid option -- '"+arg[1:]+"'")
		default:
			urls = append(urls, arg)
		}
	}
	if len(urls) == 0 {
		return core.UsageError(stdio, "wget", "missing URL")
	}
	if env.Fetch == nil {
		stdio.Errorf("wget: network access is disabled\n")
		return core.ExitFailure
	}

	exitCode := core.ExitSuccess
	for _, u := range urls {
		status, body, err := env.Fetch(env.Ctx, "GET", u)
		if err != nil {
			stdio.Errorf("wget: %v\n", err)
			exitCode = core.ExitFailure
			continue
		}
		if status < 200 || status >= 300 {
			stdio.Errorf("wget: server returned error: HTTP %d\n", status)
			exitCode = core.ExitFailure
			continue
		}
		name := out
		if name == "" {
			name = outputName(u)
		}
		if name == "-" {
			stdio.Print(body)
			continue
		}
		if err := env.FS.WriteFile(env.Path(name), body); err != nil {
			core.FileError(stdio, "wget", name, err)
			exitCode = core.ExitFailure
			continue
		}
		if !quiet {
			stdio.Errorf("saved '%s'\n", name)
		}
	}
	return exitCode
}

func outputName(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	base := path.Base(strings.TrimSuffix(p, "/"))
	if base == "" || base == "." || base == "/" {
		return "index.html"
	}
	return base
}
