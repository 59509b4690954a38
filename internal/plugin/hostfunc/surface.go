// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/message"
	"github.com/marquee-player/marquee/internal/surface"
)

// luaHandler adapts a Lua function to a message handler. A nil function
// yields a nil handler, which clears the slot.
func luaHandler(L *lua.LState, fn *lua.LFunction) message.Handler {
	if fn == nil {
		return nil
	}
	return func(data any) error {
		_, err := invoke(L, fn, 0, ToLuaValue(L, data))
		return err
	}
}

// channelModule holds the functions every surface kind shares.
func (f *Functions) channelModule(env *Env, kind surface.Kind) module {
	ch := func() *surface.Channel { return env.Instance.Surface(kind) }
	return module{
		"loadFile": func(L *lua.LState) int {
			return f.pushResult(L, env.Plugin, ch().LoadFile(L.CheckString(1)))
		},
		"postMessage": func(L *lua.LState) int {
			name := L.CheckString(1)
			return f.pushResult(L, env.Plugin, ch().PostMessage(name, ToGoValue(L.Get(2))))
		},
		"onMessage": func(L *lua.LState) int {
			name := L.CheckString(1)
			ch().OnMessage(name, luaHandler(L, optFunction(L, 2)))
			return 0
		},
	}
}

func (f *Functions) overlayModule(env *Env) module {
	m := f.channelModule(env, surface.KindOverlay)
	overlay := func() *surface.Channel { return env.Instance.Overlay() }
	m["show"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().Show())
	}
	m["hide"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().Hide())
	}
	m["setOpacity"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().SetOpacity(float64(L.CheckNumber(1))))
	}
	m["simpleMode"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().SimpleMode())
	}
	m["setStyle"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().SetStyle(L.CheckString(1)))
	}
	m["setContent"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, overlay().SetContent(L.CheckString(1)))
	}
	return m
}

func (f *Functions) sidebarModule(env *Env) module {
	m := f.channelModule(env, surface.KindSidebar)
	m["show"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, env.Instance.Sidebar().Show())
	}
	m["hide"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, env.Instance.Sidebar().Hide())
	}
	return m
}

func (f *Functions) windowModule(env *Env) module {
	m := f.channelModule(env, surface.KindWindow)
	m["open"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, env.Instance.Window().Open())
	}
	m["close"] = func(L *lua.LState) int {
		return f.pushResult(L, env.Plugin, env.Instance.Window().Close())
	}
	// setProperty({title=, resizable=, fullSizeContentView=})
	m["setProperty"] = func(L *lua.LState) int {
		t := L.CheckTable(1)
		var props surface.WindowProps
		if title, ok := t.RawGetString("title").(lua.LString); ok {
			props.Title = string(title)
		}
		if v, ok := boolField(t, "resizable"); ok {
			props.Resizable = &v
		}
		if v, ok := boolField(t, "fullSizeContentView"); ok {
			props.FullSizeContentView = &v
		}
		return f.pushResult(L, env.Plugin, env.Instance.Window().SetProperty(props))
	}
	return m
}
