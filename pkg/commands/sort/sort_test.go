package sort_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/sort"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestSort(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "basic",
			Input:    "c\na\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a\nb\nc\n",
		},
		{
			Name:     "reverse",
			Args:     []string{"-r"},
			Input:    "a\nc\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "c\nb\na\n",
		},
		{
			Name:     "numeric",
			Args:     []string{"-n"},
			Input:    "10\n9\n100\n-1\n",
			WantCode: core.ExitSuccess,
			WantOut:  "-1\n9\n10\n100\n",
		},
		{
			Name:     "unique",
			Args:     []string{"-u"},
			Input:    "b\na\nb\na\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a\nb\n",
		},
		{
			Name:     "key and separator",
			Args:     []string{"-t", ",", "-k", "2n"},
			Input:    "x,3\ny,1\nz,2\n",
			WantCode: core.ExitSuccess,
			WantOut:  "y,1\nz,2\nx,3\n",
		},
		{
			Name:     "key blank fields",
			Args:     []string{"-k2"},
			Input:    "a  zed\nb bee\n",
			WantCode: core.ExitSuccess,
			WantOut:  "b bee\na  zed\n",
		},
		{
			Name:     "fold case",
			Args:     []string{"-f"},
			Input:    "b\nA\na\nB\n",
			WantCode: core.ExitSuccess,
			WantOut:  "A\na\nB\nb\n",
		},
		{
			Name:     "files",
			Args:     []string{"one", "two"},
			Files:    map[string]string{"one": "z\nb\n", "two": "a\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "a\nb\nz\n",
		},
		{
			Name:     "output file",
			Args:     []string{"-o", "out", "in"},
			Files:    map[string]string{"in": "2\n1\n"},
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/out", "1\n2\n")
			},
		},
		{
			Name:     "check sorted",
			Args:     []string{"-c"},
			Input:    "a\nb\n",
			WantCode: core.ExitSuccess,
		},
		{
			Name:     "check disorder",
			Args:     []string{"-c"},
			Input:    "b\na\n",
			WantCode: core.ExitFailure,
			WantErr:  "disorder: a",
		},
		{
			Name:     "missing file",
			Args:     []string{"nope"},
			WantCode: core.ExitFailure,
			WantErr:  "sort: nope: No such file or directory",
		},
		{
			Name:     "invalid option",
			Args:     []string{"-Q"},
			WantCode: core.ExitUsage,
		},
	}
	testutil.RunCommandTests(t, sort.Run, tests)
}
