// Package sandbox provides capability-based filesystem access control.
// It wraps host file operations and restricts access to pre-authorized paths.
package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Common sandbox errors.
var (
	ErrAccessDenied = errors.New("access denied: path not in sandbox")
	ErrReadOnly     = errors.New("write access denied: sandbox is read-only")
)

// Permission represents file access permissions.
type Permission uint8

const (
	PermNone  Permission = 0
	PermRead  Permission = 1 << iota // Can read files
	PermWrite                        // Can write/create files
)

// ParsePermission converts "r", "w", "rw" or "ro" into a Permission.
func ParsePermission(s string) Permission {
	switch strings.ToLower(s) {
	case "r", "ro", "read":
		return PermRead
	case "w", "write":
		return PermWrite
	case "rw", "read-write", "readwrite":
		return PermRead | PermWrite
	}
	return PermNone
}

// PathRule defines access rules for a path prefix.
type PathRule struct {
	Path       string     // Path prefix (resolved to absolute)
	Permission Permission // Allowed operations
}

// Config holds sandbox configuration.
type Config struct {
	// Paths to allow access to (with permissions)
	AllowedPaths []PathRule
	// Base directory; relative rule paths resolve against it
	Base string
	// Allow access to the base directory
	AllowBase bool
	// Default permission for the base directory if AllowBase is true
	BasePermission Permission
}

// Sandbox provides controlled filesystem access.
type Sandbox struct {
	mu      sync.RWMutex
	rules   []PathRule
	enabled bool
}

// New creates an enabled sandbox from cfg.
func New(cfg *Config) (*Sandbox, error) {
	s := &Sandbox{enabled: true}
	base := cfg.Base
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		base = cwd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	// Add base rule if enabled
	if cfg.AllowBase {
		perm := cfg.BasePermission
		if perm == PermNone {
			perm = PermRead | PermWrite
		}
		s.rules = append(s.rules, PathRule{Path: filepath.Clean(base), Permission: perm})
	}

	// Add configured paths
	for _, rule := range cfg.AllowedPaths {
		p := rule.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		s.rules = append(s.rules, PathRule{Path: filepath.Clean(p), Permission: rule.Permission})
	}
	return s, nil
}

// Disable disables the sandbox (allows all operations).
func (s *Sandbox) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Enable enables the sandbox.
func (s *Sandbox) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// IsEnabled returns whether the sandbox is enabled.
func (s *Sandbox) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Check verifies if the given path can be accessed with the requested permission.
func (s *Sandbox) Check(path string, perm Permission) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ErrAccessDenied
	}

	// Clean the path to prevent traversal attacks
	absPath = filepath.Clean(absPath)

	denied := ErrAccessDenied
	for _, rule := range s.rules {
		remainder, ok := strings.CutPrefix(absPath, rule.Path)
		if !ok {
			continue
		}
		if remainder != "" && !strings.HasPrefix(remainder, string(filepath.Separator)) && rule.Path != string(filepath.Separator) {
			continue
		}
		if rule.Permission&perm == perm {
			return nil
		}
		if perm&PermWrite != 0 && rule.Permission&PermWrite == 0 {
			denied = ErrReadOnly
		}
	}
	return denied
}

func (s *Sandbox) guard(op, path string, perm Permission) error {
	if err := s.Check(path, perm); err != nil {
		return &fs.PathError{Op: op, Path: path, Err: errors.Join(fs.ErrPermission, err)}
	}
	return nil
}

// ReadFile reads a file within the sandbox.
func (s *Sandbox) ReadFile(path string) ([]byte, error) {
	if err := s.guard("open", path, PermRead); err != nil {
		return nil, err
	}
	return os.ReadFile(path) // #nosec G304 -- Check enforces allowed paths
}

// WriteFile writes data to a file within the sandbox.
func (s *Sandbox) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := s.guard("open", path, PermWrite); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// AppendFile appends data to a file within the sandbox, creating it if needed.
func (s *Sandbox) AppendFile(path string, data []byte, perm os.FileMode) error {
	if err := s.guard("open", path, PermWrite); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm) // #nosec G304 -- Check enforces allowed paths
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Stat returns file info within the sandbox.
func (s *Sandbox) Stat(path string) (os.FileInfo, error) {
	if err := s.guard("stat", path, PermRead); err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// ReadDir reads a directory within the sandbox.
func (s *Sandbox) ReadDir(path string) ([]fs.DirEntry, error) {
	if err := s.guard("readdir", path, PermRead); err != nil {
		return nil, err
	}
	return os.ReadDir(path)
}

// Mkdir creates a directory within the sandbox.
func (s *Sandbox) Mkdir(path string, perm os.FileMode) error {
	if err := s.guard("mkdir", path, PermWrite); err != nil {
		return err
	}
	return os.Mkdir(path, perm)
}

// MkdirAll creates a directory and parents within the sandbox.
func (s *Sandbox) MkdirAll(path string, perm os.FileMode) error {
	if err := s.guard("mkdir", path, PermWrite); err != nil {
		return err
	}
	return os.MkdirAll(path, perm)
}

// Remove removes a file or empty directory within the sandbox.
func (s *Sandbox) Remove(path string) error {
	if err := s.guard("remove", path, PermWrite); err != nil {
		return err
	}
	return os.Remove(path)
}

// RemoveAll removes a path and all children within the sandbox.
func (s *Sandbox) RemoveAll(path string) error {
	if err := s.guard("remove", path, PermWrite); err != nil {
		return err
	}
	return os.RemoveAll(path)
}
