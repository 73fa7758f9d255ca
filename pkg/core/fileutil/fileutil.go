// Package fileutil provides shared helpers for the file commands.
package fileutil

import (
	"errors"
	"path"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// ErrIntoSelf reports a copy of a directory into its own subtree.
var ErrIntoSelf = errors.New("cannot copy a directory into itself")

// ResolveDest reports whether dest is an existing directory, failing
// with ExitUsage when several sources target something else.
func ResolveDest(env *core.Env, sources []string, dest string) (bool, int) {
	destIsDir := env.FS.IsDir(env.Path(dest))
	if len(sources) > 1 && !destIsDir {
		return destIsDir, core.ExitUsage
	}
	return destIsDir, core.ExitSuccess
}

// TargetPath returns the final target for a source and destination.
func TargetPath(src, dest string, destIsDir bool) string {
	if destIsDir {
		return path.Join(dest, path.Base(src))
	}
	return dest
}

// CopyTree copies the file or directory at src to dst, both absolute.
// visit is called for every copied entry.
func CopyTree(fsys vfs.FS, src, dst string, visit func(src, dst string)) error {
	if dst == src || strings.HasPrefix(dst, src+"/") {
		return ErrIntoSelf
	}
	if !fsys.IsDir(src) {
		data, err := fsys.ReadFile(src)
		if err != nil {
			return err
		}
		if err := fsys.WriteFile(dst, data); err != nil {
			return err
		}
		if visit != nil {
			visit(src, dst)
		}
		return nil
	}
	if !fsys.IsDir(dst) {
		if err := fsys.Mkdir(dst, false); err != nil {
			return err
		}
	}
	names, err := fsys.ReadDir(src)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := CopyTree(fsys, path.Join(src, name), path.Join(dst, name), visit); err != nil {
			return err
		}
	}
	if visit != nil {
		visit(src, dst)
	}
	return nil
}
