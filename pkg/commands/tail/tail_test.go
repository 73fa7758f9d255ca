package tail_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/tail"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestTail(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "last lines",
			Args:     []string{"-n", "2"},
			Input:    "1\n2\n3\n4\n",
			WantCode: core.ExitSuccess,
			WantOut:  "3\n4\n",
		},
		{
			Name:     "from line",
			Args:     []string{"-n", "+3"},
			Input:    "1\n2\n3\n4\n",
			WantCode: core.ExitSuccess,
			WantOut:  "3\n4\n",
		},
		{
			Name:     "no trailing newline",
			Args:     []string{"-n1", "f"},
			Files:    map[string]string{"f": "a\nb"},
			WantCode: core.ExitSuccess,
			WantOut:  "b",
		},
		{
			Name:     "bytes",
			Args:     []string{"-c", "3"},
			Input:    "abcdef",
			WantCode: core.ExitSuccess,
			WantOut:  "def",
		},
		{
			Name:     "more than available",
			Args:     []string{"-n", "20"},
			Input:    "x\n",
			WantCode: core.ExitSuccess,
			WantOut:  "x\n",
		},
		{
			Name:     "missing file",
			Args:     []string{"nope"},
			WantCode: core.ExitFailure,
			WantErr:  "tail: nope: No such file or directory",
		},
	}
	testutil.RunCommandTests(t, tail.Run, tests)
}
