package vfs_test

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"/a", "b", "/a/b"},
		{"/a", "/b", "/b"},
		{"/a/b", "..", "/a"},
		{"/", "../..", "/"},
		{"/a", "", "/a"},
		{"", "x", "/x"},
		{"/a", "./b/../c", "/a/c"},
	}
	for _, tt := range tests {
		be.Equal(t, vfs.ResolvePath(tt.base, tt.rel), tt.want)
	}
}

func TestMemFSFiles(t *testing.T) {
	fsys := vfs.NewMemFS()
	be.True(t, fsys.IsDir("/tmp"))

	be.Err(t, fsys.WriteFile("/tmp/a", "one"), nil)
	be.Err(t, fsys.AppendFile("/tmp/a", "two"), nil)
	data, err := fsys.ReadFile("/tmp/a")
	be.Err(t, err, nil)
	be.Equal(t, data, "onetwo")
	be.True(t, fsys.IsFile("/tmp/a"))
	be.True(t, !fsys.IsDir("/tmp/a"))

	info, err := fsys.Stat("/tmp/a")
	be.Err(t, err, nil)
	be.Equal(t, info.Name, "a")
	be.Equal(t, info.Size, int64(6))
	be.True(t, !info.IsDir)

	_, err = fsys.ReadFile("/nope")
	be.Err(t, err, vfs.ErrNotExist)
	be.Equal(t, vfs.ErrorText(err), "No such file or directory")

	_, err = fsys.ReadFile("/tmp")
	be.Err(t, err, vfs.ErrIsDir)

	err = fsys.WriteFile("/missing/dir/f", "x")
	be.Err(t, err, vfs.ErrNotExist)

	err = fsys.WriteFile("/tmp/a/b", "x")
	be.Err(t, err, vfs.ErrNotDir)
	be.Equal(t, vfs.ErrorText(err), "Not a directory")
}

func TestMemFSDirs(t *testing.T) {
	fsys := vfs.NewMemFS()
	be.Err(t, fsys.Mkdir("/a/b/c", true), nil)
	be.Err(t, fsys.Mkdir("/a/b/c", true), nil)
	be.Err(t, fsys.Mkdir("/a", false), vfs.ErrExist)
	be.Err(t, fsys.Mkdir("/x/y", false), vfs.ErrNotExist)

	be.Err(t, fsys.WriteFile("/a/z", ""), nil)
	names, err := fsys.ReadDir("/a")
	be.Err(t, err, nil)
	be.Equal(t, names, []string{"b", "z"})

	_, err = fsys.ReadDir("/a/z")
	be.Err(t, err, vfs.ErrNotDir)

	err = fsys.Remove("/a", false)
	be.Err(t, err, vfs.ErrNotEmpty)
	be.Equal(t, vfs.ErrorText(err), "Directory not empty")
	be.Err(t, fsys.Remove("/a", true), nil)
	be.True(t, !fsys.Exists("/a/b/c"))
	be.Err(t, fsys.Remove("/a", true), vfs.ErrNotExist)
}

func TestErrorText(t *testing.T) {
	be.Equal(t, vfs.ErrorText(vfs.ErrPermission), "Permission denied")
	be.Equal(t, vfs.ErrorText(vfs.ErrExist), "File exists")
	be.Equal(t, vfs.ErrorText(errors.New("odd")), "odd")
}
