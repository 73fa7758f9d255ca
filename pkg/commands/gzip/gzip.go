// Package gzip implements the gzip command.
package gzip

import (
	"strings"

	"github.com/rcarmo/sandsh/pkg/commands/gunzip"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/archiveutil"
)

// Run executes the gzip command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	toStdout := false
	keep := false
	force := false
	decompress := false
	level := archiveutil.DefaultCompression
	var files []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			files = append(files, args[i+1:]...)
			break
		}
		if len(arg) > 1 && arg[0] == '-' {
			for _, c := range arg[1:] {
				switch {
				case c == 'c':
					toStdout = true
				case c == 'd':
					decompress = true
				case c == 'f':
					force = true
				case c == 'k':
					keep = true
				case c == 'n' || c == 'q' || c == 'v':
					// no-name, quiet and verbose are accepted and ignored
				case c >= '1' && c <= '9':
					level = int(c - '0')
				default:
					return core.UsageError(stdio, "gzip", "invalid option -- '"+string(c)+"'")
				}
			}
		} else {
			files = append(files, arg)
		}
	}

	if decompress {
		return gunzip.Decompress(stdio, env, files, &gunzip.Options{ToStdout: toStdout, Keep: keep, Force: force})
	}

	if len(files) == 0 {
		files = []string{"-"}
	}

	exitCode := core.ExitSuccess
	for _, name := range files {
		if err := gzipFile(stdio, env, name, level, toStdout, keep, force); err != nil {
			exitCode = core.ExitFailure
		}
	}
	return exitCode
}

func gzipFile(stdio *core.Stdio, env *core.Env, name string, level int, toStdout, keep, force bool) error {
	if name != "-" && env.FS.IsDir(env.Path(name)) {
		stdio.Errorf("gzip: %s is a directory -- ignored\n", name)
		return errIsDir
	}
	in, err := env.Open(stdio, name)
	if err != nil {
		core.FileError(stdio, "gzip", name, err)
		return err
	}
	var out strings.Builder
	if err := archiveutil.GzipToWriter(in, &out, level); err != nil {
		stdio.Errorf("gzip: %s: %v\n", name, err)
		return err
	}
	if name == "-" || toStdout {
		stdio.Print(out.String())
		return nil
	}

	if strings.HasSuffix(name, ".gz") && !force {
		stdio.Errorf("gzip: %s already has .gz suffix -- unchanged\n", name)
		return errHasSuffix
	}
	target := env.Path(name + ".gz")
	if env.FS.Exists(target) && !force {
		stdio.Errorf("gzip: %s.gz already exists\n", name)
		return errExists
	}
	if err := env.FS.WriteFile(target, out.String()); err != nil {
		core.FileError(stdio, "gzip", name+".gz", err)
		return err
	}
	if !keep {
		if err := env.FS.Remove(env.Path(name), false); err != nil {
			core.FileError(stdio, "gzip", name, err)
			return err
		}
	}
	return nil
}
