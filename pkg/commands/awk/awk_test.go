package awk_test

import (
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/awk"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestAwk(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "missing",
			Args:     []string{},
			WantCode: core.ExitUsage,
			WantErr:  "missing program",
		},
		{
			Name:     "print",
			Args:     []string{"{print}", "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a b c\n"},
			WantOut:  "a b c\n",
		},
		{
			Name:     "print_field",
			Args:     []string{"{print $2}", "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a b c\n"},
			WantOut:  "b\n",
		},
		{
			Name:     "field_sep",
			Args:     []string{"-F", ",", "{print $2}", "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a,b,c\n"},
			WantOut:  "b\n",
		},
		{
			Name:     "field_sep_attached",
			Args:     []string{"-F:", "{print $1}"},
			Input:    "root:x:0\n",
			WantCode: core.ExitSuccess,
			WantOut:  "root\n",
		},
		{
			Name:     "variable",
			Args:     []string{"-v", "x=2", "{print $x}", "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a b c\n"},
			WantOut:  "b\n",
		},
		{
			Name:     "program_file",
			Args:     []string{"-f", "prog.awk", "input.txt"},
			WantCode: core.ExitSuccess,
			Files: map[string]string{
				"prog.awk":  "{print $2}\n",
				"input.txt": "a b c\n",
			},
			WantOut: "b\n",
		},
		{
			Name:     "arg_assignment",
			Args:     []string{"{print $x}", "x=2", "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a b c\n"},
			WantOut:  "b\n",
		},
		{
			Name:     "ofs",
			Args:     []string{"-v", "OFS=:", `{print "a", "b", $2}`, "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "x y z\n"},
			WantOut:  "a:b:y\n",
		},
		{
			Name:     "begin_end",
			Args:     []string{`BEGIN {print "start"} {print $2} END {print "done"}`, "input.txt"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"input.txt": "a b c\n"},
			WantOut:  "start\nb\ndone\n",
		},
		{
			Name:     "stdin_sum",
			Args:     []string{"{s += $1} END {print s}"},
			Input:    "1\n2\n3\n",
			WantCode: core.ExitSuccess,
			WantOut:  "6\n",
		},
		{
			Name:     "multiple_files",
			Args:     []string{"{print NR\": \"$0}", "a", "b"},
			WantCode: core.ExitSuccess,
			Files:    map[string]string{"a": "x\n", "b": "y\n"},
			WantOut:  "1: x\n2: y\n",
		},
		{
			Name:     "missing_file",
			Args:     []string{"{print}", "nope"},
			WantCode: core.ExitFailure,
			WantErr:  "awk: cannot open nope",
		},
		{
			Name:     "syntax_error",
			Args:     []string{"{print $"},
			WantCode: core.ExitUsage,
			WantErr:  "awk: cmd. line:",
		},
		{
			Name:     "no_system",
			Args:     []string{`BEGIN { system("echo hi") }`},
			WantCode: core.ExitUsage,
			WantErr:  "awk: ",
		},
		{
			Name:     "environ",
			Args:     []string{`BEGIN { print ENVIRON["HOME"] }`},
			WantCode: core.ExitSuccess,
			WantOut:  "/home/user\n",
		},
		{
			Name:     "invalid_option",
			Args:     []string{"-z", "{print}"},
			WantCode: core.ExitUsage,
			WantErr:  "invalid option",
		},
	}
	testutil.RunCommandTests(t, awk.Run, tests)
}
