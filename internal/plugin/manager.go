// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package plugin

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/pkg/errutil"
)

// Manager discovers and manages plugin lifecycle.
type Manager struct {
	pluginsDir  string
	hostVersion string
	host        Host
	logger      *slog.Logger
	loaded      map[string]*DiscoveredPlugin
	mu          sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithHost sets the runtime host plugins are loaded into.
func WithHost(h Host) ManagerOption {
	return func(m *Manager) {
		m.host = h
	}
}

// WithHostVersion sets the version checked against min-host-version.
func WithHostVersion(v string) ManagerOption {
	return func(m *Manager) {
		m.hostVersion = v
	}
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a plugin manager.
func NewManager(pluginsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		logger:     slog.Default(),
		loaded:     make(map[string]*DiscoveredPlugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// EntryPath returns the absolute path of the plugin entry script.
func (p *DiscoveredPlugin) EntryPath() string {
	return filepath.Join(p.Dir, p.Manifest.Entry)
}

// ReadBundle reads and validates the plugin bundle in dir: the manifest
// must pass the JSON Schema and struct validation, and the entry script
// must exist.
func ReadBundle(dir string) (*DiscoveredPlugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile)) //nolint:gosec // dir is an operator-provided plugin directory
	if err != nil {
		return nil, oops.Code(CodeInvalidManifest).In("plugin").With("dir", dir).Wrapf(err, "read manifest")
	}
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	dp := &DiscoveredPlugin{Manifest: manifest, Dir: dir}
	info, err := os.Stat(dp.EntryPath())
	if err != nil {
		return nil, oops.Code(CodeInvalidManifest).In("plugin").With("entry", manifest.Entry).Wrapf(err, "entry script")
	}
	if info.IsDir() {
		return nil, invalid("entry %q is a directory", manifest.Entry)
	}
	return dp, nil
}

// Discover finds all valid plugins in the plugins directory.
// Invalid plugins are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.In("plugin").With("dir", m.pluginsDir).Wrapf(err, "read plugins directory")
	}

	var plugins []*DiscoveredPlugin
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dp, err := ReadBundle(filepath.Join(m.pluginsDir, entry.Name()))
		if err != nil {
			m.logger.Warn("skipping invalid plugin",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		if m.hostVersion != "" {
			if err := dp.Manifest.CheckHost(m.hostVersion); err != nil {
				m.logger.Warn("skipping incompatible plugin",
					"plugin", dp.Manifest.Name,
					"error", err)
				continue
			}
		}
		if prev, dup := seen[dp.Manifest.Name]; dup {
			m.logger.Warn("skipping duplicate plugin name",
				"plugin", dp.Manifest.Name,
				"dir", entry.Name(),
				"first", prev)
			continue
		}
		seen[dp.Manifest.Name] = entry.Name()

		plugins = append(plugins, dp)
	}

	return plugins, nil
}

// LoadAll discovers and loads all plugins in the plugins directory.
// A plugin that fails to load is logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		if err := m.Load(ctx, dp); err != nil {
			errutil.LogError(m.logger, "failed to load plugin", err, "plugin", dp.Manifest.Name)
		}
	}

	return nil
}

// Load starts one plugin in the host.
func (m *Manager) Load(ctx context.Context, dp *DiscoveredPlugin) error {
	if m.host == nil {
		return oops.In("plugin").With("plugin", dp.Manifest.Name).Errorf("no plugin host configured")
	}

	m.mu.Lock()
	_, dup := m.loaded[dp.Manifest.Name]
	m.mu.Unlock()
	if dup {
		return oops.In("plugin").With("plugin", dp.Manifest.Name).Errorf("plugin %s is already loaded", dp.Manifest.Name)
	}

	if err := m.host.Load(ctx, dp); err != nil {
		return oops.In("plugin").With("plugin", dp.Manifest.Name).Wrapf(err, "load plugin %s", dp.Manifest.Name)
	}

	m.mu.Lock()
	m.loaded[dp.Manifest.Name] = dp
	m.mu.Unlock()

	m.logger.Info("loaded plugin",
		"plugin", dp.Manifest.Name,
		"version", dp.Manifest.Version)

	return nil
}

// Unload stops one plugin.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	_, ok := m.loaded[name]
	delete(m.loaded, name)
	m.mu.Unlock()
	if !ok {
		return oops.In("plugin").With("plugin", name).Errorf("plugin %s is not loaded", name)
	}
	return m.host.Unload(ctx, name)
}

// Get returns a loaded plugin by name.
func (m *Manager) Get(name string) (*DiscoveredPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dp, ok := m.loaded[name]
	return dp, ok
}

// ListPlugins returns names of all loaded plugins.
func (m *Manager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Close shuts down the manager and all loaded plugins.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaded = make(map[string]*DiscoveredPlugin)

	if m.host != nil {
		if err := m.host.Close(ctx); err != nil {
			return oops.In("plugin").Wrapf(err, "close plugin host")
		}
	}

	return nil
}
