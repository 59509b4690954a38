// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/instance"
)

func (f *Functions) globalModule(env *Env) module {
	return module{
		// createPlayerInstance({enablePlugins=, disableWindowAnimation=, disableUI=, label=, url=}) -> id
		"createPlayerInstance": func(L *lua.LState) int {
			opts := instance.Options{}
			if t := optTable(L, 1); t != nil {
				opts.EnablePlugins, _ = boolField(t, "enablePlugins")
				opts.DisableWindowAnimation, _ = boolField(t, "disableWindowAnimation")
				opts.DisableUI, _ = boolField(t, "disableUI")
				if label, ok := t.RawGetString("label").(lua.LString); ok {
					opts.Label = string(label)
				}
				if url, ok := t.RawGetString("url").(lua.LString); ok {
					opts.URL = string(url)
				}
			}

			ctx := luaContext(L)
			id, err := env.Instance.Router().Create(ctx, opts)
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			if opts.URL != "" && env.Core != nil {
				if err := env.Core.Open(ctx, id, opts.URL); err != nil {
					return pushError(L, f.errorMessage(env.Plugin, err))
				}
			}
			return pushSuccess(L, lua.LNumber(id))
		},
		// postMessage(name, data) delivers locally; postMessage(nil, name, data)
		// broadcasts; postMessage(id, name, data) sends to one instance.
		"postMessage": func(L *lua.LState) int {
			var (
				target instance.Target
				name   string
				data   lua.LValue
			)
			switch first := L.Get(1).(type) {
			case lua.LString:
				target, name, data = instance.Local, string(first), L.Get(2)
			case *lua.LNilType:
				target, name, data = instance.Broadcast, L.CheckString(2), L.Get(3)
			case lua.LNumber:
				n := float64(first)
				if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
					L.ArgError(1, "instance id must be a non-negative integer")
					return 0
				}
				target, name, data = instance.To(instance.ID(n)), L.CheckString(2), L.Get(3)
			default:
				L.ArgError(1, "target must be nil, an instance id or a message name")
				return 0
			}
			err := env.Instance.PostMessage(luaContext(L), target, name, ToGoValue(data))
			return f.pushResult(L, env.Plugin, err)
		},
		"onMessage": func(L *lua.LState) int {
			name := L.CheckString(1)
			env.Instance.OnMessage(name, luaHandler(L, optFunction(L, 2)))
			return 0
		},
		// instanceId() -> id of the calling instance
		"instanceId": func(L *lua.LState) int {
			L.Push(lua.LNumber(env.Instance.ID()))
			return 1
		},
	}
}
