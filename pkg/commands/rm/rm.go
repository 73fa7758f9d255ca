// Package rm implements the rm command.
package rm

import (
	"errors"
	"path"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Options holds rm command options.
type Options struct {
	Recursive   bool // -r, -R: remove directories and their contents
	Force       bool // -f: ignore nonexistent files, never prompt
	Interactive bool // -i: accepted, there is nobody to prompt
	Verbose     bool // -v: verbose output
	Dir         bool // -d: remove empty directories
}

var errIsDir = errors.New("is a directory")

// Run executes the rm command with the given arguments.
//
// Supported flags:
//
//	-r, -R    Remove directories and their contents recursively
//	-f        Force: ignore nonexistent files, never prompt
//	-i        Prompt before every removal (accepted, never prompts)
//	-d        Remove empty directories
//	-v        Verbose: print each file as it is removed
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	paths, code := core.ParseBoolFlags(stdio, "rm", args, map[byte]*bool{
		'r': &opts.Recursive,
		'f': &opts.Force,
		'i': &opts.Interactive,
		'v': &opts.Verbose,
		'd': &opts.Dir,
	}, map[byte]byte{'R': 'r'})
	if code != core.ExitSuccess {
		return code
	}

	if len(paths) == 0 {
		if opts.Force {
			return core.ExitSuccess
		}
		return core.UsageError(stdio, "rm", "missing operand")
	}

	exitCode := core.ExitSuccess
	for _, p := range paths {
		if base := path.Base(p); base == "." || base == ".." {
			stdio.Errorf("rm: refusing to remove '.' or '..' directory: skipping '%s'\n", p)
			exitCode = core.ExitFailure
			continue
		}
		if err := removePath(stdio, env, p, &opts); err != nil {
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}

func removePath(stdio *core.Stdio, env *core.Env, name string, opts *Options) error {
	full := env.Path(name)
	info, err := env.FS.Stat(full)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) && opts.Force {
			return nil
		}
		stdio.Errorf("rm: cannot remove '%s': %s\n", name, vfs.ErrorText(err))
		return err
	}

	if info.IsDir {
		if !opts.Recursive && !opts.Dir {
			stdio.Errorf("rm: cannot remove '%s': Is a directory\n", name)
			return errIsDir
		}
		if err := env.FS.Remove(full, opts.Recursive); err != nil {
			stdio.Errorf("rm: cannot remove '%s': %s\n", name, vfs.ErrorText(err))
			return err
		}
		if opts.Verbose {
			stdio.Printf("removed directory '%s'\n", name)
		}
		return nil
	}

	if err := env.FS.Remove(full, false); err != nil {
		stdio.Errorf("rm: cannot remove '%s': %s\n", name, vfs.ErrorText(err))
		return err
	}
	if opts.Verbose {
		stdio.Printf("removed '%s'\n", name)
	}
	return nil
}
