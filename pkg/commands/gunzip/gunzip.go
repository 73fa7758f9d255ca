// Package gunzip implements the gunzip command.
package gunzip

import (
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/archiveutil"
)

// Options holds gunzip command options.
type Options struct {
	ToStdout bool // -c
	Keep     bool // -k
	Force    bool // -f
	Test     bool // -t
}

// Run executes the gunzip command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	files, code := core.ParseBoolFlags(stdio, "gunzip", args, map[byte]*bool{
		'c': &opts.ToStdout,
		'k': &opts.Keep,
		'f': &opts.Force,
		't': &opts.Test,
		'q': nil,
		'v': nil,
		'd': nil,
	}, nil)
	if code != core.ExitSuccess {
		return code
	}
	return Decompress(stdio, env, files, &opts)
}

// Decompress expands each file, or standard input when there are none.
// gzip -d shares it.
func Decompress(stdio *core.Stdio, env *core.Env, files []string, opts *Options) int {
	if len(files) == 0 {
		files = []string{"-"}
	}

	exitCode := core.ExitSuccess
	for _, name := range files {
		if err := gunzipFile(stdio, env, name, opts); err != nil {
			exitCode = core.ExitFailure
		}
	}
	return exitCode
}

func gunzipFile(stdio *core.Stdio, env *core.Env, name string, opts *Options) error {
	in, err := env.Open(stdio, name)
	if err != nil {
		return fail(stdio, name, err)
	}
	var out strings.Builder
	if err := archiveutil.GunzipToWriter(in, &out); err != nil {
		stdio.Errorf("gunzip: %s: %v\n", name, err)
		return err
	}
	if opts.Test {
		return nil
	}
	if name == "-" || opts.ToStdout {
		stdio.Print(out.String())
		return nil
	}

	outName := strings.TrimSuffix(name, ".gz")
	if strings.HasSuffix(name, ".tgz") {
		outName = strings.TrimSuffix(name, ".tgz") + ".tar"
	}
	if outName == name {
		stdio.Errorf("gunzip: %s: unknown suffix -- ignored\n", name)
		return errUnknownSuffix
	}
	target := env.Path(outName)
	if env.FS.Exists(target) && !opts.Force {
		stdio.Errorf("gunzip: %s: File exists\n", outName)
		return errExists
	}
	if err := env.FS.WriteFile(target, out.String()); err != nil {
		return fail(stdio, outName, err)
	}
	if !opts.Keep {
		if err := env.FS.Remove(env.Path(name), false); err != nil {
			return fail(stdio, name, err)
		}
	}
	return nil
}

func fail(stdio *core.Stdio, name string, err error) error {
	core.FileError(stdio, "gunzip", name, err)
	return err
}
