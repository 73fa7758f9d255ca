package wget_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rcarmo/sandsh/pkg/commands/wget"
	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func fakeFetch(_ *testing.T, env *core.Env) {
	env.Fetch = func(_ context.Context, _, url string) (int, string, error) {
		switch url {
		case "http://example.test/":
			return 200, "hello", nil
		case "http://example.test/data/file.txt":
			return 200, "data", nil
		case "http://example.test/missing":
			return 404, "", nil
		}
		return 0, "", errors.New("connection refused")
	}
}

func TestWget(t *testing.T) {
	tests := []testutil.CommandTestCase{
		{
			Name:     "missing",
			WantCode: core.ExitUsage,
			WantErr:  "missing URL",
		},
		{
			Name:     "disabled",
			Args:     []string{"http://example.test/"},
			WantCode: core.ExitFailure,
			WantErr:  "network access is disabled",
		},
		{
			Name:     "basic",
			Args:     []string{"http://example.test/"},
			Setup:    fakeFetch,
			WantCode: core.ExitSuccess,
			WantErr:  "saved 'index.html'",
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/index.html", "hello")
			},
		},
		{
			Name:     "name from path",
			Args:     []string{"-q", "http://example.test/data/file.txt"},
			Setup:    fakeFetch,
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/file.txt", "data")
			},
		},
		{
			Name:     "output flag",
			Args:     []string{"-O", "out.txt", "http://example.test/"},
			Setup:    fakeFetch,
			WantCode: core.ExitSuccess,
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/out.txt", "hello")
			},
		},
		{
			Name:     "stdout separate",
			Args:     []string{"-O", "-", "http://example.test/"},
			Setup:    fakeFetch,
			WantCode: core.ExitSuccess,
			WantOut:  "hello",
		},
		{
			Name:     "http error",
			Args:     []string{"http://example.test/missing"},
			Setup:    fakeFetch,
			WantCode: core.ExitFailure,
			WantErr:  "HTTP 404",
		},
		{
			Name:     "transport error",
			Args:     []string{"http://nowhere.test/"},
			Setup:    fakeFetch,
			WantCode: core.ExitFailure,
			WantErr:  "connection refused",
		},
	}
	testutil.RunCommandTests(t, wget.Run, tests)
}
