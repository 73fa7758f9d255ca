package sandbox_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcarmo/sandsh/pkg/sandbox"
)

func TestSandboxDisabled(t *testing.T) {
	sb, err := sandbox.New(&sandbox.Config{Base: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	sb.Disable()
	if sb.IsEnabled() {
		t.Fatal("expected sandbox to be disabled")
	}

	// Should allow all operations when disabled
	if err := sb.Check("/etc/passwd", sandbox.PermRead); err != nil {
		t.Errorf("expected no error when sandbox disabled, got %v", err)
	}
}

func TestSandboxEnabled(t *testing.T) {
	dir := t.TempDir()

	sb, err := sandbox.New(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead | sandbox.PermWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Should allow access to allowed path
	testFile := filepath.Join(dir, "test.txt")
	if err := sb.WriteFile(testFile, []byte("hello"), 0o644); err != nil {
		t.Errorf("expected write to succeed in allowed path, got %v", err)
	}

	// Should deny access to other paths
	_, err = sb.Stat("/etc/passwd")
	if !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for /etc/passwd, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("expected fs.ErrPermission for /etc/passwd, got %v", err)
	}
}

func TestSandboxReadOnly(t *testing.T) {
	dir := t.TempDir()

	// Create a test file before enabling sandbox
	testFile := filepath.Join(dir, "readonly.txt")
	if err := os.WriteFile(testFile, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	sb, err := sandbox.New(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead}, // Read-only
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Should allow read
	if _, err := sb.ReadFile(testFile); err != nil {
		t.Errorf("expected read to succeed, got %v", err)
	}

	// Should deny write
	err = sb.WriteFile(testFile, []byte("new content"), 0o644)
	if !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	err = sb.AppendFile(testFile, []byte("more"), 0o644)
	if !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on append, got %v", err)
	}
}

func TestSandboxBase(t *testing.T) {
	dir := t.TempDir()
	sb, err := sandbox.New(&sandbox.Config{Base: dir, AllowBase: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := sb.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatalf("expected mkdir in base to succeed, got %v", err)
	}
	if err := sb.Check(filepath.Join(dir, "a", "..", "..", "escape"), sandbox.PermRead); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected traversal to be denied, got %v", err)
	}
	// a sibling sharing the prefix is not inside the rule
	if err := sb.Check(dir+"-other", sandbox.PermRead); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected prefix sibling to be denied, got %v", err)
	}
}

func TestSandboxRelativeRules(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	sb, err := sandbox.New(&sandbox.Config{
		Base:         dir,
		AllowedPaths: []sandbox.PathRule{{Path: "data", Permission: sandbox.PermRead}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.ReadDir(filepath.Join(dir, "data")); err != nil {
		t.Errorf("expected readdir to succeed, got %v", err)
	}
	if err := sb.Remove(filepath.Join(dir, "data")); !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in   string
		want sandbox.Permission
	}{
		{"r", sandbox.PermRead},
		{"ro", sandbox.PermRead},
		{"rw", sandbox.PermRead | sandbox.PermWrite},
		{"w", sandbox.PermWrite},
		{"", sandbox.PermNone},
	}
	for _, tt := range tests {
		if got := sandbox.ParsePermission(tt.in); got != tt.want {
			t.Errorf("ParsePermission(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
