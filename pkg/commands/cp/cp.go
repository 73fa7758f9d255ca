// Package cp implements the cp command.
package cp

import (
	"errors"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/fileutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Options holds cp command options.
type Options struct {
	Recursive   bool // -r, -R: copy directories recursively
	Force       bool // -f: force overwrite
	NoClobber   bool // -n: do not overwrite existing files
	Verbose     bool // -v: verbose output
	CopyToDir   string
	NoTargetDir bool
}

// Run executes the cp command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	var paths []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			paths = append(paths, args[i+1:]...)
			break
		}
		if len(arg) > 1 && arg[0] == '-' {
			switch arg {
			case "-t":
				if i+1 >= len(args) {
					return core.UsageError(stdio, "cp", "option requires an argument -- 't'")
				}
				i++
				opts.CopyToDir = args[i]
			case "-T":
				opts.NoTargetDir = true
			default:
				for _, c := range arg[1:] {
					switch c {
					case 'f':
						opts.Force = true
					case 'n':
						opts.NoClobber = true
					case 'v':
						opts.Verbose = true
					case 'r', 'R', 'a':
						opts.Recursive = true
					case 'i', 'p', 'P', 'L':
						// nobody to prompt; modes and links are not kept
					default:
						return core.UsageError(stdio, "cp", "invalid option -- '"+string(c)+"'")
					}
				}
			}
		} else {
			paths = append(paths, arg)
		}
	}

	sources := paths
	var dest string
	if opts.CopyToDir != "" {
		dest = opts.CopyToDir
	} else {
		if len(paths) == 1 {
			return core.UsageError(stdio, "cp", "missing destination file operand after '"+paths[0]+"'")
		}
		if len(paths) < 2 {
			return core.UsageError(stdio, "cp", "missing file operand")
		}
		dest = paths[len(paths)-1]
		sources = paths[:len(paths)-1]
	}

	destIsDir, code := fileutil.ResolveDest(env, sources, dest)
	if code != core.ExitSuccess {
		return core.UsageError(stdio, "cp", "target '"+dest+"' is not a directory")
	}
	if opts.NoTargetDir && destIsDir {
		return core.UsageError(stdio, "cp", "cannot overwrite directory '"+dest+"' with non-directory")
	}

	exitCode := core.ExitSuccess
	for _, src := range sources {
		target := fileutil.TargetPath(src, dest, destIsDir)
		if err := copyPath(stdio, env, src, target, &opts); err != nil {
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}

func copyPath(stdio *core.Stdio, env *core.Env, src, dest string, opts *Options) error {
	from, to := env.Path(src), env.Path(dest)
	info, err := env.FS.Stat(from)
	if err != nil {
		stdio.Errorf("cp: cannot stat '%s': %s\n", src, vfs.ErrorText(err))
		return err
	}
	if from == to {
		stdio.Errorf("cp: '%s' and '%s' are the same file\n", src, dest)
		return errOmitted
	}
	if info.IsDir && !opts.Recursive {
		stdio.Errorf("cp: -r not specified; omitting directory '%s'\n", src)
		return errOmitted
	}
	if !info.IsDir && env.FS.Exists(to) {
		if opts.NoClobber {
			return nil
		}
		if env.FS.IsDir(to) {
			stdio.Errorf("cp: cannot overwrite directory '%s' with non-directory\n", dest)
			return errOmitted
		}
	}
	err = fileutil.CopyTree(env.FS, from, to, func(s, d string) {
		if opts.Verbose && !env.FS.IsDir(s) {
			stdio.Printf("'%s' -> '%s'\n", src+strings.TrimPrefix(s, from), dest+strings.TrimPrefix(d, to))
		}
	})
	if errors.Is(err, fileutil.ErrIntoSelf) {
		stdio.Errorf("cp: cannot copy a directory, '%s', into itself, '%s'\n", src, dest)
		return err
	}
	if err != nil {
		stdio.Errorf("cp: cannot create '%s': %s\n", dest, vfs.ErrorText(err))
		return err
	}
	return nil
}

var errOmitted = errors.New("omitted")
