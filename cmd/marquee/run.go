// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/marquee-player/marquee/internal/config"
	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/fileio"
	"github.com/marquee-player/marquee/internal/httpc"
	"github.com/marquee-player/marquee/internal/instance"
	"github.com/marquee-player/marquee/internal/logging"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/observability"
	"github.com/marquee-player/marquee/internal/player"
	"github.com/marquee-player/marquee/internal/plugin"
	"github.com/marquee-player/marquee/internal/plugin/capability"
	pluginlua "github.com/marquee-player/marquee/internal/plugin/lua"
	"github.com/marquee-player/marquee/internal/prefs"
	"github.com/marquee-player/marquee/internal/surface"
	"github.com/marquee-player/marquee/pkg/errutil"
)

const (
	failureBuffer   = 64
	shutdownTimeout = 10 * time.Second
)

// runDeps are the hooks tests use to observe a running host.
type runDeps struct {
	// Ready is called once plugins are loaded.
	Ready func(h *runningHost)
	// Failure is called for every asynchronous failure report.
	Failure func(r fault.Report)
}

// runningHost is what a started host exposes to Ready.
type runningHost struct {
	Core    *player.Headless
	Host    *pluginlua.Host
	Manager *plugin.Manager
	Metrics *observability.Server
}

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load plugins and run the host until interrupted",
		Long: `Discover the plugin bundles in plugins-dir, load every compatible
plugin into a headless player and serve metrics and health probes on
metrics-addr until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHost(ctx, cfg, nil)
		},
	}
}

func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Options{
		Service: "marquee",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
	})
	slog.SetDefault(logger)
	return logger, nil
}

// openPrefs returns the preference opener for the configured backend
// and a function releasing it.
func openPrefs(ctx context.Context, cfg *config.Config) (prefs.Opener, func() error, error) {
	if cfg.PrefsBackend != config.PrefsRedis {
		return prefs.FileOpener(filepath.Join(cfg.DataDir, "prefs")), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, oops.In("run").With("redis_addr", cfg.RedisAddr).Wrapf(err, "connect to redis")
	}
	return prefs.RedisOpener(rdb), rdb.Close, nil
}

// runHost starts the host and blocks until ctx is done. If deps is nil,
// no hooks are called.
func runHost(ctx context.Context, cfg *config.Config, deps *runDeps) error {
	if deps == nil {
		deps = &runDeps{}
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger.Info("starting plugin host",
		"plugins_dir", cfg.PluginsDir,
		"data_dir", cfg.DataDir,
		"prefs_backend", cfg.PrefsBackend,
		"host_version", hostVersion)

	failures := fault.NewChannel(failureBuffer, fault.WithLogger(logger))

	var ready atomic.Bool
	var metrics *observability.Server
	if cfg.MetricsAddr != "" {
		metrics = observability.NewServer(cfg.MetricsAddr, ready.Load,
			fault.RegisterMetrics,
			event.RegisterMetrics,
			instance.RegisterMetrics,
			loop.RegisterMetrics,
			httpc.RegisterMetrics,
			fileio.RegisterMetrics,
			surface.RegisterMetrics,
		)
		metrics.SetLogger(logger)
		errCh, err := metrics.Start()
		if err != nil {
			return oops.In("run").Wrapf(err, "start observability server")
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := metrics.Stop(stopCtx); err != nil {
				errutil.LogError(logger, "observability server shutdown failed", err)
			}
		}()
		go func() {
			for err := range errCh {
				errutil.LogError(logger, "observability server failed", err)
			}
		}()
	}

	opener, closePrefs, err := openPrefs(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePrefs(); err != nil {
			errutil.LogError(logger, "preference backend close failed", err)
		}
	}()

	core := player.NewHeadless(player.WithLogger(logger))
	host := pluginlua.NewHost(capability.NewEnforcer(),
		pluginlua.WithLogger(logger),
		pluginlua.WithReporter(failures),
		pluginlua.WithCore(core),
		pluginlua.WithPrefs(opener),
		pluginlua.WithDataDir(cfg.DataDir),
		pluginlua.WithLimit(cfg.MaxInstances),
		pluginlua.WithHTTPOptions(httpc.WithTimeout(cfg.HTTPTimeout), httpc.WithLogger(logger)),
	)
	manager := plugin.NewManager(cfg.PluginsDir,
		plugin.WithHost(host),
		plugin.WithHostVersion(hostVersion),
		plugin.WithLogger(logger),
	)

	loaded, err := loadPlugins(ctx, manager, logger, metrics)
	if err != nil {
		_ = manager.Close(context.WithoutCancel(ctx))
		return err
	}
	ready.Store(true)
	logger.Info("plugin host ready", "plugins", loaded)

	if deps.Ready != nil {
		deps.Ready(&runningHost{
			Core:    core,
			Host:    host,
			Manager: manager,
			Metrics: metrics,
		})
	}

	for done := false; !done; {
		select {
		case r := <-failures.Failures():
			if deps.Failure != nil {
				deps.Failure(r)
			}
		case <-ctx.Done():
			done = true
		}
	}
	ready.Store(false)
	logger.Info("shutting down plugin host")

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := manager.Close(closeCtx); err != nil {
		return oops.In("run").Wrapf(err, "close plugins")
	}
	return nil
}

// loadPlugins loads every discovered plugin and returns how many loaded.
// A plugin that fails to load is logged and skipped.
func loadPlugins(ctx context.Context, m *plugin.Manager, logger *slog.Logger, metrics *observability.Server) (int, error) {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return 0, oops.In("run").Wrapf(err, "discover plugins")
	}

	loaded := 0
	for _, dp := range discovered {
		result := "ok"
		if err := m.Load(ctx, dp); err != nil {
			errutil.LogError(logger, "failed to load plugin", err, "plugin", dp.Manifest.Name)
			result = "error"
		} else {
			loaded++
		}
		if metrics != nil {
			metrics.Metrics().PluginLoads.WithLabelValues(result).Inc()
		}
	}
	if metrics != nil {
		metrics.Metrics().PluginsLoaded.Set(float64(loaded))
	}
	return loaded, nil
}
