package wc_test

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/commands/wc"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestWc(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "lines from stdin",
			Args:     []string{"-l"},
			Input:    "a\nb\nc\n",
			WantCode: core.ExitSuccess,
			WantOut:  "3\n",
		},
		{
			Name:     "words from stdin",
			Args:     []string{"-w"},
			Input:    "one two  three\n",
			WantCode: core.ExitSuccess,
			WantOut:  "3\n",
		},
		{
			Name:     "default stdin",
			Input:    "hello world\n",
			WantCode: core.ExitSuccess,
			WantOut:  "      1       2      12\n",
		},
		{
			Name:     "file",
			Args:     []string{"-l", "a.txt"},
			Files:    map[string]string{"a.txt": "1\n2\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "2 a.txt\n",
		},
		{
			Name:     "total",
			Args:     []string{"-l", "a.txt", "b.txt"},
			Files:    map[string]string{"a.txt": "1\n2\n", "b.txt": "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"},
			WantCode: core.ExitSuccess,
			WantOut:  " 2 a.txt\n10 b.txt\n12 total\n",
		},
		{
			Name:     "chars",
			Args:     []string{"-m"},
			Input:    "héllo",
			WantCode: core.ExitSuccess,
			WantOut:  "5\n",
		},
		{
			Name:     "missing",
			Args:     []string{"nope"},
			WantCode: core.ExitFailure,
			WantErr:  "wc: nope: No such file or directory",
		},
	}
	testutil.RunCommandTests(t, wc.Run, tests)
}

func TestCount(t *testing.T) {
	c, err := wc.Count(strings.NewReader("a b\nc\n"))
	be.Err(t, err, nil)
	be.Equal(t, *c, wc.Counts{Lines: 2, Words: 3, Chars: 6, Bytes: 6})
}
