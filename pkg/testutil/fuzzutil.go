package testutil

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// MaxFuzzBytes caps fuzz inputs so a single case cannot dominate a run.
const MaxFuzzBytes = 2048

// ClampString truncates data to max bytes.
func ClampString(data string, max int) string {
	if len(data) > max {
		return data[:max]
	}
	return data
}

// bashEnv is the fixed environment the reference shell runs with; it
// matches the interpreter's defaults for the variables scripts commonly
// print.
var bashEnv = []string{
	"HOME=/home/user",
	"USER=user",
	"LOGNAME=user",
	"PATH=/usr/local/bin:/usr/bin:/bin",
	"LC_ALL=C",
}

// RunBashInDir runs script with the host's bash inside dir. ok is false
// when bash is not installed.
func RunBashInDir(t *testing.T, script, input, dir string) (stdout string, code int, ok bool) {
	t.Helper()
	bashPath, err := exec.LookPath("bash")
	if err != nil {
		return "", 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bashPath, "--norc", "--noprofile", "-c", script) // #nosec G204 -- test reference shell
	cmd.Dir = dir
	cmd.Env = bashEnv
	cmd.Stdin = strings.NewReader(input)
	var outBuf bytes.Buffer
	cmd.Stdout = &outBuf
	err = cmd.Run()
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			t.Fatalf("bash: %v", err)
		}
		code = ee.ExitCode()
	}
	return outBuf.String(), code, true
}

// CompareBash runs script in the interpreter and in the host's bash over
// the same files and fails when stdout or the exit status differ. Scripts
// must not print paths, which differ between the two sandboxes. The
// comparison is skipped when bash is missing.
func CompareBash(t *testing.T, script, input string, files map[string]string) {
	t.Helper()
	dir := TempDirWithFiles(t, files)
	bashOut, bashCode, ok := RunBashInDir(t, script, input, dir)
	if !ok {
		t.Skip("bash not installed")
	}
	fsys := MemFSWithFiles(t, WorkDir, files)
	res, err := RunScript(t, fsys, script, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != bashCode {
		t.Fatalf("exit code mismatch for %q: ours=%d bash=%d", script, res.ExitCode, bashCode)
	}
	if res.Stdout != bashOut {
		t.Fatalf("stdout mismatch for %q:\nours: %q\nbash: %q", script, res.Stdout, bashOut)
	}
}
