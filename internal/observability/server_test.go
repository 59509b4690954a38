// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/loop"
)

func startServer(t *testing.T, ready ReadinessChecker, cs ...Collector) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready, cs...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, server.Stop(ctx))
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server address
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, func() bool { return true }, loop.RegisterMetrics)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")

	server.Metrics().PluginsLoaded.Set(2)
	server.Metrics().PluginLoads.WithLabelValues("ok").Inc()
	loop.RecordTask(loop.StatusOK)

	_, body = get(t, "http://"+server.Addr()+"/metrics")
	assert.Contains(t, body, "marquee_plugins_loaded 2")
	assert.Contains(t, body, `marquee_plugin_loads_total{result="ok"} 1`)
	assert.Contains(t, body, "marquee_loop_tasks_total")
}

func TestServer_CollectorsUsePrivateRegistry(t *testing.T) {
	a := NewServer("127.0.0.1:0", nil, loop.RegisterMetrics)
	b := NewServer("127.0.0.1:0", nil, loop.RegisterMetrics)
	assert.NotSame(t, a.Registry(), b.Registry())
	assert.NotEqual(t, prometheus.DefaultRegisterer, a.Registry())
}

func TestServer_Probes(t *testing.T) {
	tests := []struct {
		name   string
		ready  ReadinessChecker
		path   string
		status int
		body   string
	}{
		{"liveness", nil, "/healthz/liveness", http.StatusOK, "ok"},
		{"ready", func() bool { return true }, "/healthz/readiness", http.StatusOK, "ok"},
		{"not ready", func() bool { return false }, "/healthz/readiness", http.StatusServiceUnavailable, "not ready"},
		{"nil checker is ready", nil, "/healthz/readiness", http.StatusOK, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.ready)
			status, body := get(t, "http://"+server.Addr()+tt.path)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, strings.TrimSpace(body))
		})
	}
}

func TestServer_StartTwiceFails(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	assert.Error(t, err)
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	assert.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestServer_StartInvalidAddr(t *testing.T) {
	server := NewServer("not-an-address", nil)
	_, err := server.Start()
	assert.Error(t, err)
}
