package cut_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/cut"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestCut(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "fields",
			Args:     []string{"-d", ",", "-f", "2"},
			Input:    "a,b,c\n1,2,3\n",
			WantCode: core.ExitSuccess,
			WantOut:  "b\n2\n",
		},
		{
			Name:     "attached values",
			Args:     []string{"-d:", "-f1,3"},
			Input:    "a:b:c\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a:c\n",
		},
		{
			Name:     "open range",
			Args:     []string{"-d", " ", "-f", "2-"},
			Input:    "a b c d\n",
			WantCode: core.ExitSuccess,
			WantOut:  "b c d\n",
		},
		{
			Name:     "input order",
			Args:     []string{"-d", ",", "-f", "3,1"},
			Input:    "a,b,c\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a,c\n",
		},
		{
			Name:     "no delimiter passes through",
			Args:     []string{"-d", ",", "-f", "2"},
			Input:    "plain\n",
			WantCode: core.ExitSuccess,
			WantOut:  "plain\n",
		},
		{
			Name:     "suppress",
			Args:     []string{"-s", "-d", ",", "-f", "2"},
			Input:    "plain\nx,y\n",
			WantCode: core.ExitSuccess,
			WantOut:  "y\n",
		},
		{
			Name:     "output delimiter",
			Args:     []string{"-d", ",", "-f", "1,2", "--output-delimiter=|"},
			Input:    "a,b\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a|b\n",
		},
		{
			Name:     "chars",
			Args:     []string{"-c", "2-3"},
			Input:    "héllo\n",
			WantCode: core.ExitSuccess,
			WantOut:  "él\n",
		},
		{
			Name:     "bytes",
			Args:     []string{"-b", "1-2"},
			Input:    "abc\n",
			WantCode: core.ExitSuccess,
			WantOut:  "ab\n",
		},
		{
			Name:     "file",
			Args:     []string{"-f", "2", "data.tsv"},
			Files:    map[string]string{"data.tsv": "a\tb\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "b\n",
		},
		{
			Name:     "missing list",
			Args:     []string{"-d", ","},
			WantCode: core.ExitUsage,
		},
		{
			Name:     "bad list",
			Args:     []string{"-f", "0"},
			WantCode: core.ExitUsage,
			WantErr:  "invalid field value",
		},
	}
	testutil.RunCommandTests(t, cut.Run, tests)
}
