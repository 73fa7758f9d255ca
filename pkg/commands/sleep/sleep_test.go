package sleep_test

import (
	"context"
	"testing"
	"time"

	"github.com/rcarmo/sandsh/pkg/commands/sleep"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestSleep(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "missing operand",
			WantCode: core.ExitUsage,
		},
		{
			Name:     "short",
			Args:     []string{"0.01", "0s"},
			WantCode: core.ExitSuccess,
		},
		{
			Name:     "invalid",
			Args:     []string{"1x"},
			WantCode: core.ExitFailure,
			WantErr:  "invalid time interval '1x'",
		},
	}
	testutil.RunCommandTests(t, sleep.Run, tests)
}

func TestSleepCancel(t *testing.T) {
	env := testutil.NewEnv(vfs.NewMemFS())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	env.Ctx = ctx

	stdio, _, _ := testutil.CaptureStdio("")
	start := time.Now()
	code := sleep.Run(stdio, env, []string{"1h"})
	testutil.AssertExitCode(t, code, 130)
	if time.Since(start) > time.Minute {
		t.Error("sleep ignored cancellation")
	}
}
