// Package config loads service settings with Viper from, in order of
// precedence: command-line flags, PORTFOLIO_* environment variables, a YAML
// config file and built-in defaults.
//
// Environment variables map onto keys by upper-casing and replacing dots
// with underscores, so storage.path is PORTFOLIO_STORAGE_PATH.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"portfolio/internal/logger"
	"portfolio/internal/storage"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "PORTFOLIO"
	EnvConfigFile = "PORTFOLIO_CONFIG_FILE"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Counter CounterConfig `mapstructure:"counter" yaml:"counter"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type CounterConfig struct {
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout" yaml:"enqueue_timeout"`
	MaxPending     int           `mapstructure:"max_pending" yaml:"max_pending"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"addr":            "server.addr",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.path",
	"log-level":       "log.level",
	"log-backend":     "log.backend",
}

// New returns a Viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.backend", storage.BackendFile)
	v.SetDefault("storage.path", "data/visitor-count.json")
	v.SetDefault("counter.enqueue_timeout", 2*time.Second)
	v.SetDefault("counter.max_pending", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.backend", logger.BackendZerolog)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./portfolio.yaml, or "+EnvConfigFile+")")
	fs.String("addr", "127.0.0.1:8080", "HTTP listen address")
	fs.String("storage-backend", storage.BackendFile, "counter storage backend: file|sqlite|memory")
	fs.String("storage-path", "data/visitor-count.json", "path of the counter record")
	fs.StringP("log-level", "l", "info", "log level: trace|debug|info|error")
	fs.String("log-backend", logger.BackendZerolog, "log backend: zerolog|zap|noop")
}

// BindFlags makes flags registered by RegisterFlags override other sources.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and returns the validated result.
// An explicitly named file must exist; the default ./portfolio.yaml is
// optional.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	explicit := true
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case os.Getenv(EnvConfigFile) != "":
		v.SetConfigFile(os.Getenv(EnvConfigFile))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("portfolio")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr is empty")
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		problems = append(problems, "server.read_header_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdown_timeout must be positive")
	}
	if !storage.ValidBackend(c.Storage.Backend) {
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of file, sqlite, memory", c.Storage.Backend))
	} else if c.Storage.Backend != storage.BackendMemory && strings.TrimSpace(c.Storage.Path) == "" {
		problems = append(problems, "storage.path is empty")
	}
	if c.Counter.EnqueueTimeout <= 0 {
		problems = append(problems, "counter.enqueue_timeout must be positive")
	}
	if c.Counter.MaxPending <= 0 {
		problems = append(problems, "counter.max_pending must be positive")
	}
	if !logger.ValidLevel(c.Log.Level) {
		problems = append(problems, fmt.Sprintf("log.level %q is not one of trace, debug, info, error", c.Log.Level))
	}
	if !logger.ValidBackend(c.Log.Backend) {
		problems = append(problems, fmt.Sprintf("log.backend %q is not one of zerolog, zap, noop", c.Log.Backend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{Backend: c.Storage.Backend, Path: c.Storage.Path}
}
