// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package xdg provides XDG Base Directory paths for marquee.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "marquee"

func base(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
}

// ConfigDir returns $XDG_CONFIG_HOME/marquee, defaulting to ~/.config.
func ConfigDir() string {
	return filepath.Join(base("XDG_CONFIG_HOME", ".config"), appName)
}

// DataDir returns $XDG_DATA_HOME/marquee, defaulting to ~/.local/share.
func DataDir() string {
	return filepath.Join(base("XDG_DATA_HOME", ".local", "share"), appName)
}

// CacheDir returns $XDG_CACHE_HOME/marquee, defaulting to ~/.cache.
func CacheDir() string {
	return filepath.Join(base("XDG_CACHE_HOME", ".cache"), appName)
}

// PluginsDir is where installed plugin bundles live.
func PluginsDir() string {
	return filepath.Join(DataDir(), "plugins")
}

// ConfigFile is the default configuration file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.In("xdg").With("path", path).Wrapf(err, "create directory")
	}
	return nil
}
