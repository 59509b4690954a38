// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/config"
	"github.com/marquee-player/marquee/internal/fault"
)

func testConfig(t *testing.T, pluginsDir string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.PluginsDir = pluginsDir
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.LogLevel = "error"
	return &cfg
}

// runUntilReady runs the host, calls fn once it is ready and shuts it
// down when fn returns.
func runUntilReady(t *testing.T, cfg *config.Config, deps *runDeps, fn func(h *runningHost)) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if deps == nil {
		deps = &runDeps{}
	}
	ready := make(chan *runningHost, 1)
	deps.Ready = func(h *runningHost) { ready <- h }

	errCh := make(chan error, 1)
	go func() { errCh <- runHost(ctx, cfg, deps) }()

	select {
	case h := <-ready:
		fn(h)
	case err := <-errCh:
		require.NoError(t, err)
		t.Fatal("host exited before it was ready")
	case <-time.After(5 * time.Second):
		t.Fatal("host did not become ready")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not shut down")
	}
}

func TestRunHost_LoadsBundledPlugins(t *testing.T) {
	cfg := testConfig(t, filepath.Join("..", "..", "plugins"))
	cfg.MetricsAddr = "127.0.0.1:0"

	runUntilReady(t, cfg, nil, func(h *runningHost) {
		assert.Contains(t, h.Host.Plugins(), "now-playing")
		assert.Contains(t, h.Manager.ListPlugins(), "now-playing")

		require.NoError(t, h.Core.Open(context.Background(), 0, "/media/a.mkv"))
		history := filepath.Join(cfg.DataDir, "plugins", "now-playing", "history.txt")
		assert.Eventually(t, func() bool {
			_, err := os.Stat(history)
			return err == nil
		}, 2*time.Second, 10*time.Millisecond)

		require.NotNil(t, h.Metrics)
		statuses := queryProbes(context.Background(), http.DefaultClient, h.Metrics.Addr())
		for _, s := range statuses {
			assert.True(t, s.OK, "probe %s: %+v", s.Probe, s)
		}
	})
}

func TestRunHost_ReportsScriptFailures(t *testing.T) {
	dir := writeBundle(t, "broken", `error("boom")`)
	cfg := testConfig(t, filepath.Dir(dir))

	failures := make(chan fault.Report, 4)
	deps := &runDeps{Failure: func(r fault.Report) { failures <- r }}

	runUntilReady(t, cfg, deps, func(h *runningHost) {
		assert.Equal(t, []string{"broken"}, h.Host.Plugins())
		select {
		case r := <-failures:
			assert.Equal(t, fault.CodeLoad, r.Code())
			assert.Contains(t, r.Source, "broken")
		case <-time.After(2 * time.Second):
			t.Fatal("no failure reported")
		}
	})
}

func TestRunHost_RedisPreferences(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, filepath.Join("..", "..", "plugins"))
	cfg.PrefsBackend = config.PrefsRedis
	cfg.RedisAddr = mr.Addr()

	runUntilReady(t, cfg, nil, func(h *runningHost) {
		assert.Contains(t, h.Host.Plugins(), "now-playing")
	})
}

func TestRunHost_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t, t.TempDir())
	cfg.PrefsBackend = config.PrefsRedis
	cfg.RedisAddr = addr

	err := runHost(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRunHost_EmptyPluginsDir(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	runUntilReady(t, cfg, nil, func(h *runningHost) {
		assert.Empty(t, h.Host.Plugins())
		assert.Nil(t, h.Metrics)
	})
}
