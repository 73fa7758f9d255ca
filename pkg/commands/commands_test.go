package commands_test

import (
	"context"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/commands"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func fetch(_ context.Context, req interp.FetchRequest) (interp.FetchResponse, error) {
	return interp.FetchResponse{Status: 200, Body: req.Method + " " + req.URL + "\n"}, nil
}

func TestScripts(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "pipeline",
			Script:  `printf 'b\na\nc\n' | sort | head -n 2`,
			WantOut: "a\nb\n",
		},
		{
			Name:    "redirect then count",
			Script:  "echo hello > f.txt\ncat f.txt | wc -c",
			WantOut: "6\n",
		},
		{
			Name:    "xargs calls functions",
			Script:  "greet() { echo \"hi $1\"; }\nprintf 'a\\nb\\n' | xargs -n1 greet",
			WantOut: "hi a\nhi b\n",
		},
		{
			Name:    "tree",
			Script:  "mkdir -p d/e && echo x > d/e/f && ls -R d",
			WantOut: "d:\ne\n\nd/e:\nf\n",
		},
		{
			Name:    "compression round trip",
			Script:  "echo data | gzip | gunzip",
			WantOut: "data\n",
		},
		{
			Name:    "awk reads the shell filesystem",
			Script:  "awk '{print $2}' in.txt",
			Files:   map[string]string{"in.txt": "a b\n"},
			WantOut: "b\n",
		},
		{
			Name:    "cut and tr",
			Script:  "echo 'a:b:c' | cut -d: -f2 | tr a-z A-Z",
			WantOut: "B\n",
		},
		{
			Name:    "uniq counts",
			Script:  "printf 'x\\nx\\ny\\n' | uniq -c | tail -n 1",
			WantOut: "      1 y\n",
		},
		{
			Name:    "rm",
			Script:  "rm gone.txt; [ -e gone.txt ] || echo removed",
			Files:   map[string]string{"gone.txt": ""},
			WantOut: "removed\n",
			Check: func(t *testing.T, fsys vfs.FS) {
				be.Equal(t, fsys.Exists("/work/gone.txt"), false)
			},
		},
		{
			Name:     "command status",
			Script:   "cat missing.txt",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "cat: missing.txt: No such file or directory",
		},
		{
			Name:     "not found",
			Script:   "nosuch",
			WantCode: 127,
			WantOut:  "",
			WantErr:  "bash: nosuch: command not found",
		},
	}
	cmds := commands.All()
	testutil.RunScriptTests(t, tests, interp.WithCommands(cmds...))
}

func TestFetch(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "wget to stdout",
			Script:  "wget -q -O - http://example.test/x",
			WantOut: "GET http://example.test/x\n",
		},
		{
			Name:    "wget to file",
			Script:  "wget -q http://example.test/page.html && cat page.html",
			WantOut: "GET http://example.test/page.html\n",
		},
	}
	testutil.RunScriptTests(t, tests, interp.WithCommands(commands.All()...), interp.WithFetch(fetch))
}

func TestLookup(t *testing.T) {
	cmds, err := commands.Lookup("cat", "wc")
	be.Err(t, err, nil)
	be.Equal(t, len(cmds), 2)
	be.Equal(t, cmds[0].Name(), "cat")

	_, err = commands.Lookup("cat", "bogus")
	be.Err(t, err, `unknown command "bogus"`)

	be.Equal(t, len(commands.All()), len(commands.Names()))
	be.Equal(t, commands.Names()[0], "awk")
}
