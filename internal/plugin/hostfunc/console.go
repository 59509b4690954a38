// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func (f *Functions) consoleModule(env *Env) module {
	logger := f.logger.With("plugin", env.Plugin)
	if env.Instance != nil {
		logger = logger.With("instance", int(env.Instance.ID()))
	}
	return module{
		"log":   consoleFn(logger, slog.LevelInfo),
		"warn":  consoleFn(logger, slog.LevelWarn),
		"error": consoleFn(logger, slog.LevelError),
		"debug": consoleFn(logger, slog.LevelDebug),
	}
}

func consoleFn(logger *slog.Logger, level slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Log(luaContext(L), level, strings.Join(parts, " "))
		return 0
	}
}
