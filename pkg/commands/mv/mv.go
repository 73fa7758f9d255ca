// Package mv implements the mv command.
package mv

import (
	"errors"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/fileutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Options holds mv command options.
type Options struct {
	Force       bool // -f: force overwrite
	Interactive bool // -i: accepted, there is nobody to prompt
	NoClobber   bool // -n: do not overwrite existing files
	Verbose     bool // -v: verbose output
}

// Run executes the mv command with the given arguments. The filesystem
// has no rename, so a move is a copy followed by a removal.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	paths, code := core.ParseBoolFlags(stdio, "mv", args, map[byte]*bool{
		'f': &opts.Force,
		'i': &opts.Interactive,
		'n': &opts.NoClobber,
		'v': &opts.Verbose,
	}, nil)
	if code != core.ExitSuccess {
		return code
	}

	if len(paths) < 2 {
		return core.UsageError(stdio, "mv", "missing file operand")
	}

	dest := paths[len(paths)-1]
	sources := paths[:len(paths)-1]
	destIsDir, code := fileutil.ResolveDest(env, sources, dest)
	if code != core.ExitSuccess {
		return core.UsageError(stdio, "mv", "target '"+dest+"' is not a directory")
	}

	exitCode := core.ExitSuccess
	for _, src := range sources {
		target := fileutil.TargetPath(src, dest, destIsDir)
		if err := movePath(stdio, env, src, target, &opts); err != nil {
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}

func movePath(stdio *core.Stdio, env *core.Env, src, dest string, opts *Options) error {
	from, to := env.Path(src), env.Path(dest)
	info, err := env.FS.Stat(from)
	if err != nil {
		stdio.Errorf("mv: cannot stat '%s': %s\n", src, vfs.ErrorText(err))
		return err
	}
	if from == to {
		stdio.Errorf("mv: '%s' and '%s' are the same file\n", src, dest)
		return errSame
	}

	if env.FS.Exists(to) {
		if opts.NoClobber {
			return nil
		}
		if env.FS.IsDir(to) != info.IsDir {
			stdio.Errorf("mv: cannot overwrite '%s': type mismatch\n", dest)
			return errSame
		}
		if err := env.FS.Remove(to, true); err != nil {
			stdio.Errorf("mv: cannot remove '%s': %s\n", dest, vfs.ErrorText(err))
			return err
		}
	}

	if err := fileutil.CopyTree(env.FS, from, to, nil); err != nil {
		if errors.Is(err, fileutil.ErrIntoSelf) {
			stdio.Errorf("mv: cannot move '%s' to a subdirectory of itself, '%s'\n", src, dest)
			return err
		}
		stdio.Errorf("mv: cannot move '%s' to '%s': %s\n", src, dest, vfs.ErrorText(err))
		return err
	}
	if err := env.FS.Remove(from, true); err != nil {
		stdio.Errorf("mv: cannot remove '%s': %s\n", src, vfs.ErrorText(err))
		return err
	}

	if opts.Verbose {
		stdio.Printf("renamed '%s' -> '%s'\n", src, dest)
	}
	return nil
}

var errSame = errors.New("same file")
