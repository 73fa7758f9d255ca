// Package config loads the YAML file that describes a sandsh session:
// execution limits, the filesystem backend, the initial environment, the
// enabled commands and network access.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/sandsh/pkg/commands"
	"github.com/rcarmo/sandsh/pkg/core/timeutil"
	"github.com/rcarmo/sandsh/pkg/sandbox"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Filesystem backends.
const (
	BackendMemory = "memory"
	BackendHost   = "host"
)

// Config is the decoded configuration file.
type Config struct {
	Limits   Limits            `yaml:"limits"`
	FS       FS                `yaml:"fs"`
	Env      map[string]string `yaml:"env"`
	Dir      string            `yaml:"dir"`
	Commands []string          `yaml:"commands"`
	Network  Network           `yaml:"network"`
	Timeout  string            `yaml:"timeout"`
}

// Limits mirrors interp.Limits. Zero keeps the default.
type Limits struct {
	Commands   int `yaml:"commands"`
	Depth      int `yaml:"depth"`
	Iterations int `yaml:"iterations"`
}

// FS selects the filesystem backend.
type FS struct {
	Backend string `yaml:"backend"`
	// Root is the host directory mounted at / for the host backend.
	Root  string `yaml:"root"`
	Rules []Rule `yaml:"rules"`
	// Files seeds the memory backend.
	Files map[string]string `yaml:"files"`
}

// Rule grants access to a host path: "r", "w" or "rw".
type Rule struct {
	Path   string `yaml:"path"`
	Access string `yaml:"access"`
}

// Network controls the fetch callback. Allow lists URL prefixes; an
// empty list allows any http or https URL.
type Network struct {
	Enabled bool     `yaml:"enabled"`
	Allow   []string `yaml:"allow"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	l := interp.DefaultLimits()
	return &Config{
		Limits: Limits{
			Commands:   l.MaxCommandCount,
			Depth:      l.MaxRecursionDepth,
			Iterations: l.MaxIterations,
		},
		FS:  FS{Backend: BackendMemory},
		Dir: "/",
	}
}

// Load reads and validates file. A relative fs.root is taken relative
// to the file.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if cfg.FS.Root != "" && !filepath.IsAbs(cfg.FS.Root) {
		cfg.FS.Root = filepath.Join(filepath.Dir(file), cfg.FS.Root)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that decoding alone cannot.
func (c *Config) Validate() error {
	if c.Limits.Commands < 0 || c.Limits.Depth < 0 || c.Limits.Iterations < 0 {
		return errors.New("limits must not be negative")
	}
	switch c.FS.Backend {
	case "", BackendMemory:
		if len(c.FS.Rules) > 0 {
			return errors.New("fs.rules need the host backend")
		}
	case BackendHost:
		if c.FS.Root == "" {
			return errors.New("fs.root is required for the host backend")
		}
		if len(c.FS.Files) > 0 {
			return errors.New("fs.files need the memory backend")
		}
		for _, r := range c.FS.Rules {
			if sandbox.ParsePermission(r.Access) == sandbox.PermNone {
				return fmt.Errorf("fs.rules: %s: invalid access %q", r.Path, r.Access)
			}
		}
	default:
		return fmt.Errorf("fs.backend: unknown backend %q", c.FS.Backend)
	}
	if _, err := commands.Lookup(c.Commands...); err != nil {
		return fmt.Errorf("commands: %w", err)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// RunnerLimits converts the limits for the interpreter.
func (c *Config) RunnerLimits() interp.Limits {
	return interp.Limits{
		MaxCommandCount:   c.Limits.Commands,
		MaxRecursionDepth: c.Limits.Depth,
		MaxIterations:     c.Limits.Iterations,
	}
}

// TimeoutDuration returns the script timeout, zero when unset.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	spec, err := timeutil.ParseDuration(c.Timeout)
	if err != nil || spec.Duration < 0 {
		return 0, fmt.Errorf("timeout: invalid duration %q", c.Timeout)
	}
	return spec.Duration, nil
}

// TimeoutText is the configured timeout written in its own unit.
func (c *Config) TimeoutText() string {
	spec, err := timeutil.ParseDuration(c.Timeout)
	if err != nil {
		return c.Timeout
	}
	return timeutil.FormatDuration(spec)
}

// Filesystem builds the configured backend.
func (c *Config) Filesystem() (vfs.FS, error) {
	if c.FS.Backend != BackendHost {
		fsys := vfs.NewMemFS()
		for name, content := range c.FS.Files {
			p := vfs.ResolvePath("/", name)
			if err := fsys.Mkdir(path.Dir(p), true); err != nil {
				return nil, err
			}
			if err := fsys.WriteFile(p, content); err != nil {
				return nil, err
			}
		}
		return fsys, nil
	}

	root, err := filepath.Abs(c.FS.Root)
	if err != nil {
		return nil, err
	}
	if len(c.FS.Rules) == 0 {
		return vfs.NewHostFS(root, nil)
	}
	rules := make([]sandbox.PathRule, 0, len(c.FS.Rules))
	for _, r := range c.FS.Rules {
		p := r.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		rules = append(rules, sandbox.PathRule{Path: p, Permission: sandbox.ParsePermission(r.Access)})
	}
	sb, err := sandbox.New(&sandbox.Config{AllowedPaths: rules, Base: root})
	if err != nil {
		return nil, err
	}
	return vfs.NewHostFS(root, sb)
}

// EnabledCommands returns the listed commands, or all of them when the
// list is empty.
func (c *Config) EnabledCommands() ([]interp.Command, error) {
	if len(c.Commands) == 0 {
		return commands.All(), nil
	}
	return commands.Lookup(c.Commands...)
}

// AllowURL reports whether the network policy admits raw.
func (c *Config) AllowURL(raw string) bool {
	if !c.Network.Enabled {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if len(c.Network.Allow) == 0 {
		return true
	}
	for _, prefix := range c.Network.Allow {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}
