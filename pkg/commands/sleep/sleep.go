// Package sleep implements the sleep command.
package sleep

import (
	"time"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/timeutil"
)

// Run executes the sleep command. It returns early with status 130 when
// the script's context is cancelled.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	if len(args) == 0 {
		return core.UsageError(stdio, "sleep", "missing operand")
	}

	total := time.Duration(0)
	for _, arg := range args {
		spec, err := timeutil.ParseDuration(arg)
		if err != nil || spec.Duration < 0 {
			stdio.Errorf("sleep: invalid time interval '%s'\n", arg)
			return core.ExitFailure
		}
		if spec.Duration > timeutil.Infinite-total {
			total = timeutil.Infinite
			continue
		}
		total += spec.Duration
	}

	timer := time.NewTimer(total)
	defer timer.Stop()
	select {
	case <-timer.C:
		return core.ExitSuccess
	case <-env.Ctx.Done():
		return 130
	}
}
