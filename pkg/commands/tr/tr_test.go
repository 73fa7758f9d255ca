package tr_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/tr"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestTr(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "translate range",
			Args:     []string{"a-z", "A-Z"},
			Input:    "hello\n",
			WantCode: core.ExitSuccess,
			WantOut:  "HELLO\n",
		},
		{
			Name:     "class",
			Args:     []string{"[:lower:]", "[:upper:]"},
			Input:    "abc1\n",
			WantCode: core.ExitSuccess,
			WantOut:  "ABC1\n",
		},
		{
			Name:     "short second set",
			Args:     []string{"abc", "x"},
			Input:    "aabbcc",
			WantCode: core.ExitSuccess,
			WantOut:  "xxxxxx",
		},
		{
			Name:     "delete",
			Args:     []string{"-d", "0-9"},
			Input:    "a1b2c3\n",
			WantCode: core.ExitSuccess,
			WantOut:  "abc\n",
		},
		{
			Name:     "delete newline escape",
			Args:     []string{"-d", `\n`},
			Input:    "a\nb\n",
			WantCode: core.ExitSuccess,
			WantOut:  "ab",
		},
		{
			Name:     "squeeze",
			Args:     []string{"-s", " "},
			Input:    "a   b  c\n",
			WantCode: core.ExitSuccess,
			WantOut:  "a b c\n",
		},
		{
			Name:     "translate and squeeze",
			Args:     []string{"-s", "a-z", "x"},
			Input:    "abc def\n",
			WantCode: core.ExitSuccess,
			WantOut:  "x x\n",
		},
		{
			Name:     "complement delete",
			Args:     []string{"-cd", "a-z\n"},
			Input:    "a1-b\n",
			WantCode: core.ExitSuccess,
			WantOut:  "ab\n",
		},
		{
			Name:     "missing operand",
			Args:     []string{"abc"},
			WantCode: core.ExitUsage,
			WantErr:  "missing operand",
		},
		{
			Name:     "extra operand",
			Args:     []string{"-d", "a", "b"},
			WantCode: core.ExitUsage,
			WantErr:  "extra operand 'b'",
		},
	}
	testutil.RunCommandTests(t, tr.Run, tests)
}
