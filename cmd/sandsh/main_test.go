package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcarmo/sandsh/pkg/core/config"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestRun(t *testing.T) {
	dir := testutil.TempDirWithFiles(t, map[string]string{
		"script.sh":    "echo \"$0 $1\"; cat\n",
		"limits.yaml":  "limits: {iterations: 3}\n",
		"bad.yaml":     "fs: {backend: nfs}\n",
		"timeout.yaml": "timeout: \"0.05\"\n",
		"soon.yaml":    "timeout: soon\n",
	})
	path := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name     string
		args     []string
		input    string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:    "command string",
			args:    []string{"-c", `echo "$0:$1"`, "prog", "x"},
			wantOut: "prog:x\n",
		},
		{
			name:     "command status",
			args:     []string{"-c", "exit 3"},
			wantCode: 3,
		},
		{
			name:    "command reads stdin",
			args:    []string{"-c", "wc -l"},
			input:   "a\nb\n",
			wantOut: "2\n",
		},
		{
			name:    "script from stdin",
			input:   "x=1\necho $((x + 1))\n",
			wantOut: "2\n",
		},
		{
			name:    "script file",
			args:    []string{path("script.sh"), "arg"},
			input:   "piped\n",
			wantOut: path("script.sh") + " arg\npiped\n",
		},
		{
			name:     "missing file",
			args:     []string{path("nope.sh")},
			wantCode: 127,
			wantErr:  "nope.sh",
		},
		{
			name:     "limit",
			args:     []string{"-config", path("limits.yaml"), "-c", "while true; do :; done"},
			wantCode: 1,
			wantErr:  "sandsh: execution limit exceeded: max loop iterations (3)",
		},
		{
			name:     "bad config",
			args:     []string{"-config", path("bad.yaml"), "-c", "true"},
			wantCode: 1,
			wantErr:  "sandsh: config:",
		},
		{
			name:     "timeout",
			args:     []string{"-config", path("timeout.yaml"), "-c", "sleep 10; echo after"},
			wantCode: 124,
			wantErr:  "timed out after 0.05s",
		},
		{
			name:     "bad timeout",
			args:     []string{"-config", path("soon.yaml"), "-c", "echo no"},
			wantCode: 1,
			wantErr:  "sandsh: config: ",
		},
		{
			name:     "unknown flag",
			args:     []string{"-z"},
			wantCode: 2,
		},
		{
			name:     "command error",
			args:     []string{"-c", "nope"},
			wantCode: 127,
			wantErr:  "bash: nope: command not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdio, out, errBuf := testutil.CaptureStdio(tt.input)
			code := run(context.Background(), stdio, tt.args, false)
			testutil.AssertExitCode(t, code, tt.wantCode)
			if tt.wantOut != "" && out.String() != tt.wantOut {
				t.Errorf("stdout = %q, want %q", out.String(), tt.wantOut)
			}
			if tt.wantErr != "" && !strings.Contains(errBuf.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want substring %q", errBuf.String(), tt.wantErr)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	input := strings.Join([]string{
		"x=5",
		"if [ $x -gt 3 ]; then",
		"  echo big",
		"fi",
		"f() { echo \"f:$1\"; }",
		"f $x",
		"exit 4",
		"echo unreachable",
	}, "\n") + "\n"
	stdio, out, errBuf := testutil.CaptureStdio(input)
	code := run(context.Background(), stdio, nil, true)
	testutil.AssertExitCode(t, code, 4)
	testutil.AssertOutput(t, out.String(), "big\nf:5\n")
	if !strings.Contains(errBuf.String(), "> ") {
		t.Errorf("no continuation prompt in %q", errBuf.String())
	}
}

func TestWithTimeout(t *testing.T) {
	cfg := config.Default()
	ctx, cancel, err := withTimeout(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("no timeout configured, got a deadline")
	}

	cfg.Timeout = "2s"
	ctx, cancel, err = withTimeout(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("want a deadline")
	}

	cfg.Timeout = "soon"
	if _, _, err := withTimeout(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v, want invalid duration", err)
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
}
