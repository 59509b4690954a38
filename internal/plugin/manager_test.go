// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/plugin"
)

// mockHost records the calls a Manager makes.
type mockHost struct {
	mock.Mock
}

func (m *mockHost) Load(ctx context.Context, p *plugin.DiscoveredPlugin) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockHost) Unload(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockHost) Plugins() []string {
	return m.Called().Get(0).([]string)
}

func (m *mockHost) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// writePlugin creates a bundle named name under root.
func writePlugin(t *testing.T, root, dirName, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, dirName)
	mkdirAll(t, dir)
	writeFile(t, filepath.Join(dir, plugin.ManifestFile), manifest)
	writeFile(t, filepath.Join(dir, "main.lua"), "local loaded = true\n")
	return dir
}

func simpleManifest(name string) string {
	return "name: " + name + "\nversion: 1.0.0\nentry: main.lua\npermissions: [menu]\n"
}

func TestReadBundle(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "lyrics", validManifest)

	dp, err := plugin.ReadBundle(dir)
	require.NoError(t, err)
	assert.Equal(t, "lyrics", dp.Manifest.Name)
	assert.Equal(t, filepath.Join(dir, "main.lua"), dp.EntryPath())
}

func TestReadBundle_MissingEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ghost")
	mkdirAll(t, dir)
	writeFile(t, filepath.Join(dir, plugin.ManifestFile), simpleManifest("ghost"))

	_, err := plugin.ReadBundle(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry script")
}

func TestReadBundle_MissingManifest(t *testing.T) {
	_, err := plugin.ReadBundle(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", simpleManifest("alpha"))
	writePlugin(t, root, "beta", simpleManifest("beta"))
	writePlugin(t, root, "broken", "name: Broken\nversion: 1.0.0\nentry: main.lua\n")
	writePlugin(t, root, "alpha-copy", simpleManifest("alpha"))
	writePlugin(t, root, "future", "name: future\nversion: 1.0.0\nentry: main.lua\nmin-host-version: \">= 9.0.0\"\n")
	writeFile(t, filepath.Join(root, "README.md"), "not a plugin")
	mkdirAll(t, filepath.Join(root, "empty"))

	mgr := plugin.NewManager(root, plugin.WithHostVersion("1.0.0"))
	found, err := mgr.Discover(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(found))
	for _, dp := range found {
		names = append(names, dp.Manifest.Name)
	}
	assert.Equal(t, []string{"alpha", "beta"}, names)
	assert.Equal(t, filepath.Join(root, "alpha"), found[0].Dir)
}

func TestManager_Discover_NonExistentDirectory(t *testing.T) {
	mgr := plugin.NewManager(filepath.Join(t.TempDir(), "missing"))
	found, err := mgr.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestManager_LoadAll(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", simpleManifest("alpha"))
	writePlugin(t, root, "beta", simpleManifest("beta"))

	host := &mockHost{}
	host.On("Load", mock.Anything, mock.MatchedBy(func(p *plugin.DiscoveredPlugin) bool {
		return p.Manifest.Name == "alpha"
	})).Return(nil)
	host.On("Load", mock.Anything, mock.MatchedBy(func(p *plugin.DiscoveredPlugin) bool {
		return p.Manifest.Name == "beta"
	})).Return(errors.New("boom"))

	mgr := plugin.NewManager(root, plugin.WithHost(host))
	require.NoError(t, mgr.LoadAll(context.Background()))

	assert.Equal(t, []string{"alpha"}, mgr.ListPlugins())
	_, ok := mgr.Get("beta")
	assert.False(t, ok)
	host.AssertExpectations(t)
}

func TestManager_LoadWithoutHost(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "alpha", simpleManifest("alpha"))
	dp, err := plugin.ReadBundle(dir)
	require.NoError(t, err)

	err = plugin.NewManager(t.TempDir()).Load(context.Background(), dp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plugin host")
}

func TestManager_LoadTwice(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "alpha", simpleManifest("alpha"))
	dp, err := plugin.ReadBundle(dir)
	require.NoError(t, err)

	host := &mockHost{}
	host.On("Load", mock.Anything, dp).Return(nil).Once()

	mgr := plugin.NewManager(t.TempDir(), plugin.WithHost(host))
	require.NoError(t, mgr.Load(context.Background(), dp))
	err = mgr.Load(context.Background(), dp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already loaded")
	host.AssertExpectations(t)
}

func TestManager_Unload(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "alpha", simpleManifest("alpha"))
	dp, err := plugin.ReadBundle(dir)
	require.NoError(t, err)

	host := &mockHost{}
	host.On("Load", mock.Anything, dp).Return(nil)
	host.On("Unload", mock.Anything, "alpha").Return(nil)

	mgr := plugin.NewManager(t.TempDir(), plugin.WithHost(host))
	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx, dp))
	require.NoError(t, mgr.Unload(ctx, "alpha"))
	assert.Empty(t, mgr.ListPlugins())

	assert.Error(t, mgr.Unload(ctx, "alpha"))
	host.AssertExpectations(t)
}

func TestManager_Close(t *testing.T) {
	host := &mockHost{}
	host.On("Close", mock.Anything).Return(nil).Once()
	require.NoError(t, plugin.NewManager(t.TempDir(), plugin.WithHost(host)).Close(context.Background()))
	host.AssertExpectations(t)

	failing := &mockHost{}
	failing.On("Close", mock.Anything).Return(errors.New("stuck"))
	err := plugin.NewManager(t.TempDir(), plugin.WithHost(failing)).Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck")

	assert.NoError(t, plugin.NewManager(t.TempDir()).Close(context.Background()))
}
