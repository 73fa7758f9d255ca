package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

type memNode struct {
	dir      bool
	data     string
	mode     fs.FileMode
	modTime  time.Time
	children map[string]*memNode
}

// MemFS is an in-memory filesystem. It is safe for concurrent use.
type MemFS struct {
	mu   sync.RWMutex
	root *memNode
	now  func() time.Time
}

// NewMemFS returns a filesystem containing / and /tmp.
func NewMemFS() *MemFS {
	m := &MemFS{now: time.Now}
	m.root = m.newDir()
	m.root.children["tmp"] = m.newDir()
	return m
}

func (m *MemFS) newDir() *memNode {
	return &memNode{dir: true, mode: fs.ModeDir | 0o755, modTime: m.now(), children: map[string]*memNode{}}
}

func split(name string) []string {
	name = path.Clean("/" + name)
	if name == "/" {
		return nil
	}
	return strings.Split(name[1:], "/")
}

// lookup returns the node at name, or nil.
func (m *MemFS) lookup(name string) (*memNode, error) {
	n := m.root
	for _, part := range split(name) {
		if !n.dir {
			return nil, ErrNotDir
		}
		child, ok := n.children[part]
		if !ok {
			return nil, ErrNotExist
		}
		n = child
	}
	return n, nil
}

// parent returns the directory that holds name and the final element.
func (m *MemFS) parent(name string) (*memNode, string, error) {
	parts := split(name)
	if len(parts) == 0 {
		return nil, "", ErrExist
	}
	dir, err := m.lookup("/" + strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	if !dir.dir {
		return nil, "", ErrNotDir
	}
	return dir, parts[len(parts)-1], nil
}

func (m *MemFS) ReadFile(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(name)
	if err != nil {
		return "", &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if n.dir {
		return "", &fs.PathError{Op: "read", Path: name, Err: ErrIsDir}
	}
	return n.data, nil
}

func (m *MemFS) write(name, data string, appendData bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir, base, err := m.parent(name)
	if err != nil {
		return &fs.PathError{Op: "open", Path: name, Err: err}
	}
	n, ok := dir.children[base]
	if !ok {
		dir.children[base] = &memNode{data: data, mode: 0o644, modTime: m.now()}
		return nil
	}
	if n.dir {
		return &fs.PathError{Op: "open", Path: name, Err: ErrIsDir}
	}
	if appendData {
		n.data += data
	} else {
		n.data = data
	}
	n.modTime = m.now()
	return nil
}

func (m *MemFS) WriteFile(name, data string) error {
	return m.write(name, data, false)
}

func (m *MemFS) AppendFile(name, data string) error {
	return m.write(name, data, true)
}

func (m *MemFS) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(name)
	return err == nil
}

func (m *MemFS) IsDir(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(name)
	return err == nil && n.dir
}

func (m *MemFS) IsFile(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(name)
	return err == nil && !n.dir
}

func (m *MemFS) ResolvePath(base, rel string) string {
	return ResolvePath(base, rel)
}

func (m *MemFS) Stat(name string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(name)
	if err != nil {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return FileInfo{
		Name:    path.Base(path.Clean("/" + name)),
		Size:    int64(len(n.data)),
		Mode:    n.mode,
		ModTime: n.modTime,
		IsDir:   n.dir,
	}, nil
}

func (m *MemFS) ReadDir(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	if !n.dir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDir}
	}
	names := make([]string, 0, len(n.children))
	for k := range n.children {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemFS) Glob(pattern, cwd string) ([]string, error) {
	return GlobWith(m, pattern, cwd, GlobOptions{})
}

func (m *MemFS) Mkdir(name string, parents bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !parents {
		dir, base, err := m.parent(name)
		if err != nil {
			return &fs.PathError{Op: "mkdir", Path: name, Err: err}
		}
		if _, ok := dir.children[base]; ok {
			return &fs.PathError{Op: "mkdir", Path: name, Err: ErrExist}
		}
		dir.children[base] = m.newDir()
		return nil
	}
	n := m.root
	for _, part := range split(name) {
		child, ok := n.children[part]
		if !ok {
			child = m.newDir()
			n.children[part] = child
		}
		if !child.dir {
			return &fs.PathError{Op: "mkdir", Path: name, Err: ErrNotDir}
		}
		n = child
	}
	return nil
}

func (m *MemFS) Remove(name string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir, base, err := m.parent(name)
	if err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	n, ok := dir.children[base]
	if !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: ErrNotExist}
	}
	if n.dir && len(n.children) > 0 && !recursive {
		return &fs.PathError{Op: "remove", Path: name, Err: ErrNotEmpty}
	}
	delete(dir.children, base)
	return nil
}
