// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package prefs stores per-plugin preferences. Values are plain structured
// data (scalars, lists, maps); unset keys fall back to the defaults the
// plugin manifest declares.
package prefs

import (
	"context"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/marquee-player/marquee/internal/fault"
)

// Store holds one plugin's preferences.
type Store interface {
	// Get returns the value for key, falling back to the default. The
	// boolean is false when neither a value nor a default exists.
	Get(ctx context.Context, key string) (any, bool, error)
	// Set records a value. It becomes durable after Sync.
	Set(ctx context.Context, key string, value any) error
	// Sync persists values set since the last sync.
	Sync(ctx context.Context) error
}

// Backend names accepted by configuration.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

func checkKey(key string) error {
	if key == "" {
		return fault.InvalidArgument("preference key is empty")
	}
	return nil
}

func copyDefaults(defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Opener opens the store of one plugin.
type Opener func(ctx context.Context, plugin string, defaults map[string]any) (Store, error)

// FileOpener stores each plugin's preferences in dir/<plugin>.yaml.
func FileOpener(dir string) Opener {
	return func(_ context.Context, plugin string, defaults map[string]any) (Store, error) {
		return OpenFile(filepath.Join(dir, plugin+".yaml"), defaults)
	}
}

// RedisOpener stores each plugin's preferences in its own hash on rdb.
func RedisOpener(rdb *redis.Client) Opener {
	return func(_ context.Context, plugin string, defaults map[string]any) (Store, error) {
		return NewRedisStore(rdb, plugin, defaults), nil
	}
}
