// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package config loads host configuration from a YAML file and command
// line flags. Flags set on the command line win over the file, which wins
// over flag defaults.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/marquee-player/marquee/internal/xdg"
)

// CodeInvalid marks a configuration that fails validation.
const CodeInvalid = "INVALID_CONFIG"

// Preference backends.
const (
	PrefsFile  = "file"
	PrefsRedis = "redis"
)

// Config is the host configuration.
type Config struct {
	PluginsDir   string        `koanf:"plugins-dir"`
	DataDir      string        `koanf:"data-dir"`
	LogFormat    string        `koanf:"log-format"`
	LogLevel     string        `koanf:"log-level"`
	MetricsAddr  string        `koanf:"metrics-addr"`
	PrefsBackend string        `koanf:"prefs-backend"`
	RedisAddr    string        `koanf:"redis-addr"`
	HTTPTimeout  time.Duration `koanf:"http-timeout"`
	MaxInstances int           `koanf:"max-instances"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		PluginsDir:   xdg.PluginsDir(),
		DataDir:      xdg.DataDir(),
		LogFormat:    "json",
		LogLevel:     "info",
		MetricsAddr:  "",
		PrefsBackend: PrefsFile,
		RedisAddr:    "127.0.0.1:6379",
		HTTPTimeout:  30 * time.Second,
		MaxInstances: 16,
	}
}

// RegisterFlags adds a flag for every configuration key.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("plugins-dir", d.PluginsDir, "directory of plugin bundles")
	flags.String("data-dir", d.DataDir, "directory for plugin data and preferences")
	flags.String("log-format", d.LogFormat, "log format (json or text)")
	flags.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	flags.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("prefs-backend", d.PrefsBackend, "preference store (file or redis)")
	flags.String("redis-addr", d.RedisAddr, "redis address for the redis preference store")
	flags.Duration("http-timeout", d.HTTPTimeout, "timeout of plugin HTTP requests")
	flags.Int("max-instances", d.MaxInstances, "maximum player instances per plugin (0 = unlimited)")
}

// Load reads path, if it exists, and overlays flags. An empty
// path means the default config file. A missing default file is not an
// error; a missing explicit path is.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.In("config").With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.In("config").Wrapf(err, "load flags")
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	errb := oops.In("config").Code(CodeInvalid)
	switch {
	case c.PluginsDir == "":
		return errb.Errorf("plugins-dir is required")
	case c.DataDir == "":
		return errb.Errorf("data-dir is required")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return errb.With("log-format", c.LogFormat).Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	case c.PrefsBackend != PrefsFile && c.PrefsBackend != PrefsRedis:
		return errb.With("prefs-backend", c.PrefsBackend).Errorf("prefs-backend must be 'file' or 'redis', got %q", c.PrefsBackend)
	case c.PrefsBackend == PrefsRedis && c.RedisAddr == "":
		return errb.Errorf("redis-addr is required with the redis preference backend")
	case c.HTTPTimeout <= 0:
		return errb.Errorf("http-timeout must be positive")
	case c.MaxInstances < 0:
		return errb.Errorf("max-instances must not be negative")
	}
	return nil
}

// EnsureDirs creates the data directory.
func (c *Config) EnsureDirs() error {
	return xdg.EnsureDir(c.DataDir)
}
