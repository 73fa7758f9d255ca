package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/rcarmo/sandsh/pkg/sandbox"
)

// HostFS exposes a host directory as the root of the virtual tree. Every
// access is checked against a sandbox.
type HostFS struct {
	root string
	sb   *sandbox.Sandbox
}

// NewHostFS roots a filesystem at the host directory root. A nil sandbox
// grants read-write access to root only.
func NewHostFS(root string, sb *sandbox.Sandbox) (*HostFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if sb == nil {
		sb, err = sandbox.New(&sandbox.Config{Base: abs, AllowBase: true})
		if err != nil {
			return nil, err
		}
	}
	return &HostFS{root: abs, sb: sb}, nil
}

// host maps a virtual path to a host path that cannot escape the root.
func (h *HostFS) host(name string) string {
	clean := path.Clean("/" + name)
	return filepath.Join(h.root, filepath.FromSlash(clean))
}

func (h *HostFS) wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		inner := pe.Err
		if errors.Is(inner, sandbox.ErrAccessDenied) || errors.Is(inner, sandbox.ErrReadOnly) {
			inner = ErrPermission
		}
		if errors.Is(inner, os.ErrNotExist) {
			inner = ErrNotExist
		}
		return &fs.PathError{Op: op, Path: name, Err: inner}
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

func (h *HostFS) ReadFile(name string) (string, error) {
	if h.IsDir(name) {
		return "", &fs.PathError{Op: "read", Path: name, Err: ErrIsDir}
	}
	data, err := h.sb.ReadFile(h.host(name))
	if err != nil {
		return "", h.wrap("open", name, err)
	}
	return string(data), nil
}

func (h *HostFS) WriteFile(name, data string) error {
	if h.IsDir(name) {
		return &fs.PathError{Op: "open", Path: name, Err: ErrIsDir}
	}
	return h.wrap("open", name, h.sb.WriteFile(h.host(name), []byte(data), 0o644))
}

func (h *HostFS) AppendFile(name, data string) error {
	if h.IsDir(name) {
		return &fs.PathError{Op: "open", Path: name, Err: ErrIsDir}
	}
	return h.wrap("open", name, h.sb.AppendFile(h.host(name), []byte(data), 0o644))
}

func (h *HostFS) Exists(name string) bool {
	_, err := h.sb.Stat(h.host(name))
	return err == nil
}

func (h *HostFS) IsDir(name string) bool {
	fi, err := h.sb.Stat(h.host(name))
	return err == nil && fi.IsDir()
}

func (h *HostFS) IsFile(name string) bool {
	fi, err := h.sb.Stat(h.host(name))
	return err == nil && !fi.IsDir()
}

func (h *HostFS) ResolvePath(base, rel string) string {
	return ResolvePath(base, rel)
}

func (h *HostFS) Stat(name string) (FileInfo, error) {
	fi, err := h.sb.Stat(h.host(name))
	if err != nil {
		return FileInfo{}, h.wrap("stat", name, err)
	}
	return FileInfo{
		Name:    fi.Name(),
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}, nil
}

func (h *HostFS) ReadDir(name string) ([]string, error) {
	entries, err := h.sb.ReadDir(h.host(name))
	if err != nil {
		return nil, h.wrap("readdir", name, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (h *HostFS) Glob(pattern, cwd string) ([]string, error) {
	return GlobWith(h, pattern, cwd, GlobOptions{})
}

func (h *HostFS) Mkdir(name string, parents bool) error {
	if parents {
		return h.wrap("mkdir", name, h.sb.MkdirAll(h.host(name), 0o755))
	}
	return h.wrap("mkdir", name, h.sb.Mkdir(h.host(name), 0o755))
}

func (h *HostFS) Remove(name string, recursive bool) error {
	if path.Clean("/"+name) == "/" {
		return &fs.PathError{Op: "remove", Path: name, Err: ErrPermission}
	}
	if recursive {
		return h.wrap("remove", name, h.sb.RemoveAll(h.host(name)))
	}
	return h.wrap("remove", name, h.sb.Remove(h.host(name)))
}
