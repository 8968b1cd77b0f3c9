package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIn(t *testing.T, dir, cfgFile string) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return Load(New(), cfgFile)
}

func TestDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	cfg, err := loadIn(t, t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "data/visitor-count.json", cfg.Storage.Path)
	assert.Equal(t, 1024, cfg.Counter.MaxPending)
	assert.Equal(t, "zerolog", cfg.Log.Backend)
}

func TestConfigFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: 0.0.0.0:9000
storage:
  backend: sqlite
  path: /var/lib/portfolio/count.db
counter:
  enqueue_timeout: 250ms
log:
  level: debug
`), 0o644))

	t.Setenv("PORTFOLIO_LOG_LEVEL", "error")

	cfg, err := loadIn(t, dir, file)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Counter.EnqueueTimeout)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestDefaultConfigFileIsPickedUp(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portfolio.yaml"), []byte("storage:\n  backend: memory\n"), 0o644))

	cfg, err := loadIn(t, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	_, err := loadIn(t, t.TempDir(), "missing.yaml")
	assert.Error(t, err)
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("PORTFOLIO_STORAGE_PATH", "from-env.json")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--storage-path", "from-flag.json", "-l", "trace"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag.json", cfg.Storage.Path)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080", ReadHeaderTimeout: time.Second, ShutdownTimeout: time.Second},
			Storage: StorageConfig{Backend: "file", Path: "count.json"},
			Counter: CounterConfig{EnqueueTimeout: time.Second, MaxPending: 1},
			Log:     LogConfig{Level: "info", Backend: "noop"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"empty addr":      func(c *Config) { c.Server.Addr = " " },
		"unknown backend": func(c *Config) { c.Storage.Backend = "etcd" },
		"empty path":      func(c *Config) { c.Storage.Path = "" },
		"zero timeout":    func(c *Config) { c.Counter.EnqueueTimeout = 0 },
		"zero queue":      func(c *Config) { c.Counter.MaxPending = 0 },
		"bad level":       func(c *Config) { c.Log.Level = "warn" },
		"bad log backend": func(c *Config) { c.Log.Backend = "syslog" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	memory := valid()
	memory.Storage = StorageConfig{Backend: "memory"}
	assert.NoError(t, memory.Validate())
}
