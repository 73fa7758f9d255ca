package vfs_test

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func globFS(t *testing.T) *vfs.MemFS {
	t.Helper()
	fsys := vfs.NewMemFS()
	for _, d := range []string{"/w/src/a", "/w/src/b", "/w/.git"} {
		be.Err(t, fsys.Mkdir(d, true), nil)
	}
	for _, f := range []string{"/w/x.go", "/w/y.go", "/w/z.txt", "/w/.hidden", "/w/src/a/m.go", "/w/src/b/n.txt"} {
		be.Err(t, fsys.WriteFile(f, ""), nil)
	}
	return fsys
}

func TestGlob(t *testing.T) {
	fsys := globFS(t)
	tests := []struct {
		pat  string
		want []string
	}{
		{"*.go", []string{"x.go", "y.go"}},
		{"?.txt", []string{"z.txt"}},
		{"[xz].*", []string{"x.go", "z.txt"}},
		{"*", []string{"src", "x.go", "y.go", "z.txt"}},
		{".*", []string{".git", ".hidden"}},
		{"src/*/*.go", []string{"src/a/m.go"}},
		{"src/*/", []string{"src/a/", "src/b/"}},
		{"/w/*.txt", []string{"/w/z.txt"}},
		{"@(x|z).*", []string{"x.go", "z.txt"}},
		{"!(x).go", []string{"y.go"}},
		{"+([xy]).go", []string{"x.go", "y.go"}},
		{"*.rs", nil},
		{"plain", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pat, func(t *testing.T) {
			got, err := fsys.Glob(tt.pat, "/w")
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
		})
	}
}

func TestGlobOptions(t *testing.T) {
	fsys := globFS(t)
	got, err := vfs.GlobWith(fsys, "*", "/w", vfs.GlobOptions{DotGlob: true})
	be.Err(t, err, nil)
	be.Equal(t, got, []string{".git", ".hidden", "src", "x.go", "y.go", "z.txt"})

	got, err = vfs.GlobWith(fsys, "*.GO", "/w", vfs.GlobOptions{NoCase: true})
	be.Err(t, err, nil)
	be.Equal(t, got, []string{"x.go", "y.go"})
}

func TestHasMeta(t *testing.T) {
	be.True(t, vfs.HasMeta("a*"))
	be.True(t, vfs.HasMeta("+(a)"))
	be.True(t, !vfs.HasMeta(`a\*`))
	be.True(t, !vfs.HasMeta("a+b"))
	be.Equal(t, vfs.Unescape(`a\*b`), "a*b")
}
