package vfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/sandbox"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestHostFS(t *testing.T) {
	root := t.TempDir()
	fsys, err := vfs.NewHostFS(root, nil)
	be.Err(t, err, nil)

	be.Err(t, fsys.Mkdir("/d/e", true), nil)
	be.Err(t, fsys.WriteFile("/d/e/f", "hi"), nil)
	be.Err(t, fsys.AppendFile("/d/e/f", "!"), nil)

	data, err := os.ReadFile(filepath.Join(root, "d", "e", "f"))
	be.Err(t, err, nil)
	be.Equal(t, string(data), "hi!")

	got, err := fsys.ReadFile("/d/e/f")
	be.Err(t, err, nil)
	be.Equal(t, got, "hi!")

	names, err := fsys.ReadDir("/d")
	be.Err(t, err, nil)
	be.Equal(t, names, []string{"e"})

	matches, err := fsys.Glob("*/e/*", "/")
	be.Err(t, err, nil)
	be.Equal(t, matches, []string{"d/e/f"})

	_, err = fsys.ReadFile("/d")
	be.Err(t, err, vfs.ErrIsDir)
	_, err = fsys.Stat("/missing")
	be.Err(t, err, vfs.ErrNotExist)

	// paths cannot climb out of the root
	be.Err(t, fsys.WriteFile("/../../escape", "x"), nil)
	_, err = os.Stat(filepath.Join(root, "escape"))
	be.Err(t, err, nil)

	be.Err(t, fsys.Remove("/", true), vfs.ErrPermission)
	be.Err(t, fsys.Remove("/d", true), nil)
	be.True(t, !fsys.Exists("/d"))
}

func TestHostFSReadOnly(t *testing.T) {
	root := t.TempDir()
	be.Err(t, os.WriteFile(filepath.Join(root, "in"), []byte("x"), 0o644), nil)
	sb, err := sandbox.New(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{{Path: root, Permission: sandbox.PermRead}},
	})
	be.Err(t, err, nil)
	fsys, err := vfs.NewHostFS(root, sb)
	be.Err(t, err, nil)

	got, err := fsys.ReadFile("/in")
	be.Err(t, err, nil)
	be.Equal(t, got, "x")

	err = fsys.WriteFile("/out", "y")
	be.Err(t, err, vfs.ErrPermission)
	be.Equal(t, vfs.ErrorText(err), "Permission denied")
}
