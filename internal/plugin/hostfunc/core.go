// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
)

// coreModule drives the player behind the calling instance.
func (f *Functions) coreModule(env *Env) module {
	id := env.Instance.ID()
	noCore := func(L *lua.LState) int {
		return pushError(L, f.errorMessage(env.Plugin, fault.InvalidArgument("no player core")))
	}
	if env.Core == nil {
		return module{
			"open": noCore, "pause": noCore, "resume": noCore, "stop": noCore,
			"seek": noCore, "seekTo": noCore, "status": noCore, "window": noCore,
			"close": noCore, "setPip": noCore, "setFullscreen": noCore,
			"setOntop": noCore, "setFrame": noCore,
		}
	}
	core := env.Core

	return module{
		"open": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Open(luaContext(L), id, L.CheckString(1)))
		},
		"pause": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Pause(id))
		},
		"resume": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Resume(id))
		},
		"stop": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Stop(id))
		},
		// seek(seconds, exact) moves relative to the current position.
		"seek": func(L *lua.LState) int {
			offset := float64(L.CheckNumber(1))
			exact := L.OptBool(2, false)
			status, err := core.Status(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return f.pushResult(L, env.Plugin, core.Seek(id, status.Position+offset, exact))
		},
		"seekTo": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Seek(id, float64(L.CheckNumber(1)), true))
		},
		"status": func(L *lua.LState) int {
			status, err := core.Status(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, ToLuaValue(L, status))
		},
		"window": func(L *lua.LState) int {
			w, err := core.Window(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, ToLuaValue(L, w))
		},
		"setPip": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.SetPIP(id, L.CheckBool(1)))
		},
		"setFullscreen": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.SetFullscreen(id, L.CheckBool(1)))
		},
		"setOntop": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.SetOnTop(id, L.CheckBool(1)))
		},
		// setFrame({x=, y=, width=, height=}); missing fields keep their value.
		"setFrame": func(L *lua.LState) int {
			t := L.CheckTable(1)
			w, err := core.Window(id)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			frame := w.Frame
			numberField(t, "x", &frame.X)
			numberField(t, "y", &frame.Y)
			numberField(t, "width", &frame.Width)
			numberField(t, "height", &frame.Height)
			return f.pushResult(L, env.Plugin, core.SetFrame(id, frame))
		},
		// close() closes this instance's player window.
		"close": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, core.Close(luaContext(L), id))
		},
	}
}
