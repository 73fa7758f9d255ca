package uniq_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/uniq"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestUniq(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "adjacent",
			Input:    "a\na\nb\na\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a\nb\na\n",
		},
		{
			Name:     "count",
			Args:     []string{"-c"},
			Input:    "a\na\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "      2 a\n      1 b\n",
		},
		{
			Name:     "repeated",
			Args:     []string{"-d"},
			Input:    "a\na\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a\n",
		},
		{
			Name:     "unique only",
			Args:     []string{"-u"},
			Input:    "a\na\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "b\n",
		},
		{
			Name:     "ignore case",
			Args:     []string{"-i"},
			Input:    "A\na\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "A\nb\n",
		},
		{
			Name:     "skip fields",
			Args:     []string{"-f", "1"},
			Input:    "1 x\n2 x\n3 y\n",
			WantCode: core.ExitSuccess,
			WantOut:  "1 x\n3 y\n",
		},
		{
			Name:     "skip chars",
			Args:     []string{"-s1"},
			Input:    "ax\nbx\n",
			WantCode: core.ExitSuccess,
			WantOut:  "ax\n",
		},
		{
			Name:     "output file",
			Args:     []string{"in", "out"},
			Files:    map[string]string{"in": "x\nx\n"},
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/out", "x\n")
			},
		},
		{
			Name:     "missing file",
			Args:     []string{"nope"},
			WantCode: core.ExitFailure,
			WantErr:  "uniq: nope: No such file or directory",
		},
	}
	testutil.RunCommandTests(t, uniq.Run, tests)
}
