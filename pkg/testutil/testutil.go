// Package testutil provides shared testing utilities and fixtures.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// TempDirWithFiles creates a temp directory populated with files.
// The files map keys are relative paths, values are file contents.
func TempDirWithFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// MemFSWithFiles returns an in-memory filesystem holding files under
// dir. Keys ending in "/" create empty directories.
func MemFSWithFiles(t *testing.T, dir string, files map[string]string) *vfs.MemFS {
	t.Helper()
	fsys := vfs.NewMemFS()
	if err := fsys.Mkdir(dir, true); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		p := vfs.ResolvePath(dir, name)
		if strings.HasSuffix(name, "/") {
			if err := fsys.Mkdir(p, true); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := fsys.Mkdir(path.Dir(p), true); err != nil {
			t.Fatal(err)
		}
		if err := fsys.WriteFile(p, content); err != nil {
			t.Fatal(err)
		}
	}
	return fsys
}

// CaptureStdio creates a Stdio with captured output buffers.
// Returns the Stdio, stdout buffer, and stderr buffer.
func CaptureStdio(input string) (*core.Stdio, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	return &core.Stdio{
		In:  strings.NewReader(input),
		Out: out,
		Err: errBuf,
	}, out, errBuf
}

// AssertExitCode checks that the exit code matches expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("exit code = %d, want %d", got, want)
	}
}

// AssertOutput checks that stdout matches expected.
func AssertOutput(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// AssertOutputContains checks that stdout contains expected substring.
func AssertOutputContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("output %q does not contain %q", got, want)
	}
}

// AssertFileContent checks that a file contains expected content.
func AssertFileContent(t *testing.T, fsys vfs.FS, path, want string) {
	t.Helper()
	got, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	if got != want {
		t.Errorf("file %s content = %q, want %q", path, got, want)
	}
}

// RunCommand is the signature shared by the reference commands.
type RunCommand func(stdio *core.Stdio, env *core.Env, args []string) int

// CommandTestCase defines a parameterized test case for commands.
type CommandTestCase struct {
	Name       string                            // Test name
	Args       []string                          // Command line arguments
	Input      string                            // Stdin input
	WantCode   int                               // Expected exit code
	WantOut    string                            // Expected stdout (exact match)
	WantOutSub string                            // Expected stdout substring
	WantErr    string                            // Expected stderr substring
	Files      map[string]string                 // Files to create under /work
	Setup      func(t *testing.T, env *core.Env) // Optional setup function
	Check      func(t *testing.T, fsys vfs.FS)   // Optional post-run check
}

// WorkDir is the working directory commands run in.
const WorkDir = "/work"

// NewEnv returns an environment rooted at WorkDir over fsys.
func NewEnv(fsys vfs.FS) *core.Env {
	return &core.Env{
		Ctx:  context.Background(),
		FS:   fsys,
		Dir:  WorkDir,
		Vars: map[string]string{"HOME": "/home/user"},
	}
}

// RunCommandTests runs a slice of parameterized command test cases.
func RunCommandTests(t *testing.T, run RunCommand, tests []CommandTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			fsys := MemFSWithFiles(t, WorkDir, tt.Files)
			env := NewEnv(fsys)
			if tt.Setup != nil {
				tt.Setup(t, env)
			}

			stdio, out, errBuf := CaptureStdio(tt.Input)
			code := run(stdio, env, tt.Args)

			AssertExitCode(t, code, tt.WantCode)
			if tt.WantOut != "" {
				AssertOutput(t, out.String(), tt.WantOut)
			}
			if tt.WantOutSub != "" {
				AssertOutputContains(t, out.String(), tt.WantOutSub)
			}
			if tt.WantErr != "" {
				AssertOutputContains(t, errBuf.String(), tt.WantErr)
			}
			if tt.Check != nil {
				tt.Check(t, fsys)
			}
		})
	}
}

// ScriptTestCase defines a parameterized test case for scripts.
type ScriptTestCase struct {
	Name     string            // Test name
	Script   string            // Script source
	Input    string            // Stdin input
	Files    map[string]string // Files to create under /work
	WantCode int               // Expected exit code
	WantOut  string            // Expected stdout (exact match, "" checks empty)
	WantErr  string            // Expected stderr substring
	// Check runs against the filesystem after the script.
	Check func(t *testing.T, fsys vfs.FS)
}

// RunScript runs src in a fresh interpreter over fsys.
func RunScript(t *testing.T, fsys vfs.FS, src, input string, opts ...interp.Option) (interp.ExecResult, error) {
	t.Helper()
	all := append([]interp.Option{
		interp.WithFS(fsys),
		interp.WithDir(WorkDir),
		interp.WithStdin(input),
	}, opts...)
	return interp.New(all...).Run(context.Background(), src)
}

// RunScriptTests runs a slice of script cases, each in a fresh
// interpreter over its own in-memory filesystem.
func RunScriptTests(t *testing.T, tests []ScriptTestCase, opts ...interp.Option) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			fsys := MemFSWithFiles(t, WorkDir, tt.Files)
			res, err := RunScript(t, fsys, tt.Script, tt.Input, opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			AssertExitCode(t, res.ExitCode, tt.WantCode)
			AssertOutput(t, res.Stdout, tt.WantOut)
			if tt.WantErr != "" {
				AssertOutputContains(t, res.Stderr, tt.WantErr)
			} else if res.Stderr != "" {
				t.Errorf("unexpected stderr %q", res.Stderr)
			}
			if tt.Check != nil {
				tt.Check(t, fsys)
			}
		})
	}
}
