// Package vfs defines the filesystem capability used by the shell and
// provides an in-memory implementation and a sandboxed host implementation.
//
// All paths are slash-separated and absolute once resolved. File contents
// are carried as strings.
package vfs

import (
	"errors"
	"io/fs"
	"path"
	"strings"
	"time"
)

// Common errors. Implementations wrap them in *fs.PathError.
var (
	ErrNotExist   = fs.ErrNotExist
	ErrExist      = fs.ErrExist
	ErrPermission = fs.ErrPermission
	ErrIsDir      = errors.New("is a directory")
	ErrNotDir     = errors.New("not a directory")
	ErrNotEmpty   = errors.New("directory not empty")
)

// FileInfo describes a file.
type FileInfo struct {
	Name    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

// FS is the filesystem capability consumed by the interpreter and by
// commands.
type FS interface {
	ReadFile(name string) (string, error)
	WriteFile(name, data string) error
	AppendFile(name, data string) error
	Exists(name string) bool
	IsDir(name string) bool
	IsFile(name string) bool
	ResolvePath(base, rel string) string
	Stat(name string) (FileInfo, error)
	// ReadDir returns the sorted names of the entries of a directory.
	ReadDir(name string) ([]string, error)
	Glob(pattern, cwd string) ([]string, error)
	Mkdir(name string, parents bool) error
	Remove(name string, recursive bool) error
}

// ResolvePath joins rel onto base unless rel is absolute, and cleans the
// result.
func ResolvePath(base, rel string) string {
	if rel == "" {
		return path.Clean("/" + base)
	}
	if strings.HasPrefix(rel, "/") {
		return path.Clean(rel)
	}
	if base == "" {
		base = "/"
	}
	return path.Clean(base + "/" + rel)
}

// ErrorText returns the bash wording for a filesystem error.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, ErrNotExist):
		return "No such file or directory"
	case errors.Is(err, ErrIsDir):
		return "Is a directory"
	case errors.Is(err, ErrNotDir):
		return "Not a directory"
	case errors.Is(err, ErrPermission):
		return "Permission denied"
	case errors.Is(err, ErrExist):
		return "File exists"
	case errors.Is(err, ErrNotEmpty):
		return "Directory not empty"
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
