package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/core/config"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestDefault(t *testing.T) {
	cfg, err := config.Parse(nil)
	be.Err(t, err, nil)
	be.Equal(t, cfg.RunnerLimits(), interp.DefaultLimits())
	be.Equal(t, cfg.FS.Backend, config.BackendMemory)

	cmds, err := cfg.EnabledCommands()
	be.Err(t, err, nil)
	be.True(t, len(cmds) > 10)

	d, err := cfg.TimeoutDuration()
	be.Err(t, err, nil)
	be.Equal(t, d, time.Duration(0))
}

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
limits:
  commands: 50
  iterations: 7
env:
  GREETING: hi
dir: /work
commands: [cat, wc]
timeout: 1.5m
fs:
  files:
    /work/a.txt: "one\ntwo\n"
`))
	be.Err(t, err, nil)
	be.Equal(t, cfg.Limits.Commands, 50)
	be.Equal(t, cfg.Limits.Depth, 100)
	be.Equal(t, cfg.Limits.Iterations, 7)
	be.Equal(t, cfg.Env["GREETING"], "hi")

	d, err := cfg.TimeoutDuration()
	be.Err(t, err, nil)
	be.Equal(t, d, 90*time.Second)
	be.Equal(t, cfg.TimeoutText(), "1.5m")

	cmds, err := cfg.EnabledCommands()
	be.Err(t, err, nil)
	be.Equal(t, len(cmds), 2)

	fsys, err := cfg.Filesystem()
	be.Err(t, err, nil)
	r := interp.New(
		interp.WithFS(fsys),
		interp.WithCommands(cmds...),
		interp.WithEnv(cfg.Env),
		interp.WithDir(cfg.Dir),
		interp.WithLimits(cfg.RunnerLimits()),
	)
	res, err := r.Run(context.Background(), `echo $GREETING; wc -l < a.txt`)
	be.Err(t, err, nil)
	be.Equal(t, res.Stdout, "hi\n2\n")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "limitz: {}", "field limitz not found"},
		{"negative limit", "limits: {depth: -1}", "must not be negative"},
		{"backend", "fs: {backend: s3}", "unknown backend"},
		{"host without root", "fs: {backend: host}", "fs.root is required"},
		{"rules on memory", "fs: {rules: [{path: /, access: r}]}", "need the host backend"},
		{"bad access", "fs: {backend: host, root: /tmp, rules: [{path: x, access: z}]}", "invalid access"},
		{"command", "commands: [cat, nope]", `unknown command "nope"`},
		{"timeout", "timeout: soon", "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			be.Err(t, err, tt.want)
		})
	}
}

func TestHostBackend(t *testing.T) {
	dir := t.TempDir()
	be.Err(t, os.MkdirAll(filepath.Join(dir, "root", "data"), 0o755), nil)
	be.Err(t, os.WriteFile(filepath.Join(dir, "root", "data", "in.txt"), []byte("x"), 0o644), nil)
	file := filepath.Join(dir, "sandsh.yaml")
	be.Err(t, os.WriteFile(file, []byte(`
fs:
  backend: host
  root: root
  rules:
    - {path: data, access: r}
`), 0o644), nil)

	cfg, err := config.Load(file)
	be.Err(t, err, nil)
	be.Equal(t, cfg.FS.Root, filepath.Join(dir, "root"))

	fsys, err := cfg.Filesystem()
	be.Err(t, err, nil)
	data, err := fsys.ReadFile("/data/in.txt")
	be.Err(t, err, nil)
	be.Equal(t, data, "x")

	err = fsys.WriteFile("/data/out.txt", "y")
	be.Err(t, err, vfs.ErrPermission)
}

func TestAllowURL(t *testing.T) {
	cfg := config.Default()
	be.True(t, !cfg.AllowURL("https://example.com/"))

	cfg.Network.Enabled = true
	be.True(t, cfg.AllowURL("https://example.com/"))
	be.True(t, !cfg.AllowURL("file:///etc/passwd"))

	cfg.Network.Allow = []string{"https://example.com/api/"}
	be.True(t, cfg.AllowURL("https://example.com/api/v1"))
	be.True(t, !cfg.AllowURL("https://example.com/other"))
}
