package xargs_test

import (
	"strings"
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/xargs"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

// echoExec prints each command line it is given; "fail" exits 1 and
// "missing" exits 127.
func echoExec(_ *testing.T, env *core.Env) {
	env.Exec = func(stdio *core.Stdio, cmdline string) int {
		stdio.Println(cmdline)
		switch {
		case strings.HasPrefix(cmdline, "fail"):
			return 1
		case strings.HasPrefix(cmdline, "missing"):
			return 127
		}
		return 0
	}
}

func TestXargs(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "default echo",
			Input:    "a b\nc\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "echo a b c\n",
		},
		{
			Name:     "command and base args",
			Args:     []string{"rm", "-f"},
			Input:    "x y\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "rm -f x y\n",
		},
		{
			Name:     "max args",
			Args:     []string{"-n", "2", "echo"},
			Input:    "1 2 3\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "echo 1 2\necho 3\n",
		},
		{
			Name:     "quoting",
			Input:    "'a b' \"c'd\" e\\ f\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "echo 'a b' 'c'\\''d' 'e f'\n",
		},
		{
			Name:     "null separated",
			Args:     []string{"-0"},
			Input:    "a b\x00c\x00",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "echo 'a b' c\n",
		},
		{
			Name:     "replace",
			Args:     []string{"-I", "{}", "mv", "{}", "{}.bak"},
			Input:    "one\ntwo\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "mv one one.bak\nmv two two.bak\n",
		},
		{
			Name:     "eof string",
			Args:     []string{"-E", "STOP"},
			Input:    "a STOP b\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "echo a\n",
		},
		{
			Name:     "no run if empty",
			Args:     []string{"-r"},
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantOut:  "",
		},
		{
			Name:     "trace",
			Args:     []string{"-t"},
			Input:    "x\n",
			Setup:    echoExec,
			WantCode: core.ExitSuccess,
			WantErr:  "echo x\n",
		},
		{
			Name:     "failure is 123",
			Args:     []string{"-n1", "fail"},
			Input:    "a b\n",
			Setup:    echoExec,
			WantCode: 123,
			WantOut:  "fail a\nfail b\n",
		},
		{
			Name:     "not found stops",
			Args:     []string{"-n1", "missing"},
			Input:    "a b\n",
			Setup:    echoExec,
			WantCode: 127,
			WantOut:  "missing a\n",
		},
		{
			Name:     "bad number",
			Args:     []string{"-n", "x"},
			Setup:    echoExec,
			WantCode: core.ExitUsage,
			WantErr:  "invalid number",
		},
		{
			Name:     "no exec",
			Input:    "a\n",
			WantCode: 126,
		},
	}
	testutil.RunCommandTests(t, xargs.Run, tests)
}
