package gunzip_test

import (
	"strings"
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/gunzip"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/archiveutil"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func compress(t *testing.T, s string) string {
	t.Helper()
	var b strings.Builder
	if err := archiveutil.GzipToWriter(strings.NewReader(s), &b, archiveutil.BestSpeed); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestGunzip(t *testing.T) {
	packed := compress(t, "payload\n")
	tests := []testutil.CommandTestCase{
		{
			Name:     "stdin",
			Input:    packed,
			WantCode: core.ExitSuccess,
			WantOut:  "payload\n",
		},
		{
			Name:     "file",
			Args:     []string{"p.gz"},
			Files:    map[string]string{"p.gz": packed},
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/p", "payload\n")
				if fsys.Exists("/work/p.gz") {
					t.Error("p.gz should be removed")
				}
			},
		},
		{
			Name:     "tgz",
			Args:     []string{"-k", "a.tgz"},
			Files:    map[string]string{"a.tgz": packed},
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/a.tar", "payload\n")
				testutil.AssertFileContent(t, fsys, "/work/a.tgz", packed)
			},
		},
		{
			Name:     "exists",
			Args:     []string{"p.gz"},
			Files:    map[string]string{"p.gz": packed, "p": "old"},
			WantCode: core.ExitFailure,
			WantErr:  "p: File exists",
		},
		{
			Name:     "test only",
			Args:     []string{"-t", "p.gz"},
			Files:    map[string]string{"p.gz": packed},
			WantCode: core.ExitSuccess,
			WantOut:  "",
		},
		{
			Name:     "unknown suffix",
			Args:     []string{"plain"},
			Files:    map[string]string{"plain": packed},
			WantCode: core.ExitFailure,
			WantErr:  "unknown suffix",
		},
		{
			Name:     "corrupt",
			Input:    "not gzip",
			WantCode: core.ExitFailure,
			WantErr:  "gunzip: -:",
		},
	}
	testutil.RunCommandTests(t, gunzip.Run, tests)
}
