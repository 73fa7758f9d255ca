package head_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/head"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestHead(t *testing.T) {
	lines := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n"
	tests := []testutil.CommandTestCase{
		{
			Name:     "default ten lines",
			Input:    lines,
			WantCode: core.ExitSuccess,
			WantOut:  "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n",
		},
		{
			Name:     "n flag",
			Args:     []string{"-n", "2"},
			Input:    lines,
			WantCode: core.ExitSuccess,
			WantOut:  "1\n2\n",
		},
		{
			Name:     "numeric shorthand",
			Args:     []string{"-3", "f"},
			Files:    map[string]string{"f": lines},
			WantCode: core.ExitSuccess,
			WantOut:  "1\n2\n3\n",
		},
		{
			Name:     "bytes",
			Args:     []string{"-c3"},
			Input:    "abcdef",
			WantCode: core.ExitSuccess,
			WantOut:  "abc",
		},
		{
			Name:     "headers",
			Args:     []string{"-n1", "a", "b"},
			Files:    map[string]string{"a": "x\n", "b": "y\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "==> a <==\nx\n\n==> b <==\ny\n",
		},
		{
			Name:     "plus rejected",
			Args:     []string{"-n", "+2"},
			WantCode: core.ExitUsage,
			WantErr:  "invalid number",
		},
		{
			Name:     "missing file",
			Args:     []string{"nope"},
			WantCode: core.ExitFailure,
			WantErr:  "head: nope: No such file or directory",
		},
	}
	testutil.RunCommandTests(t, head.Run, tests)
}
