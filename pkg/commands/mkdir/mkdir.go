// Package mkdir implements the mkdir command.
package mkdir

import (
	"strconv"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Run executes the mkdir command with the given arguments.
//
// -m is validated but has no effect: the shell filesystem keeps a fixed
// mode for directories.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	parents := false
	verbose := false
	var dirs []string

	// Parse arguments
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			dirs = append(dirs, args[i+1:]...)
			break
		}
		if len(arg) > 0 && arg[0] == '-' && len(arg) > 1 {
			for j := 1; j < len(arg); j++ {
				switch arg[j] {
				case 'p':
					parents = true
				case 'v':
					verbose = true
				case 'm':
					var modeStr string
					if j+1 < len(arg) {
						modeStr = arg[j+1:]
						j = len(arg)
					} else if i+1 < len(args) {
						i++
						modeStr = args[i]
					} else {
						return core.UsageError(stdio, "mkdir", "option requires an argument -- 'm'")
					}
					if _, err := strconv.ParseUint(modeStr, 8, 32); err != nil {
						return core.UsageError(stdio, "mkdir", "invalid mode: "+modeStr)
					}
				default:
					return core.UsageError(stdio, "mkdir", "invalid option -- '"+string(arg[j])+"'")
				}
			}
		} else {
			dirs = append(dirs, arg)
		}
	}

	if len(dirs) == 0 {
		return core.UsageError(stdio, "mkdir", "missing operand")
	}

	exitCode := core.ExitSuccess
	for _, dir := range dirs {
		full := env.Path(dir)
		if parents && env.FS.IsDir(full) {
			continue
		}
		if err := env.FS.Mkdir(full, parents); err != nil {
			stdio.Errorf("mkdir: cannot create directory '%s': %s\n", dir, vfs.ErrorText(err))
			exitCode = core.ExitFailure
			continue
		}
		if verbose {
			stdio.Printf("mkdir: created directory '%s'\n", dir)
		}
	}

	return exitCode
}
