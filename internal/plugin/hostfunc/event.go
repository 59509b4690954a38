// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/handle"
)

func (f *Functions) eventModule(env *Env) module {
	return module{
		// on(name, callback) -> id
		"on": func(L *lua.LState) int {
			name := L.CheckString(1)
			fn := L.CheckFunction(2)
			id, err := env.Instance.Bus().On(event.Name(name), func(_ context.Context, payload any) error {
				var args []lua.LValue
				if payload != nil {
					args = append(args, ToLuaValue(L, payload))
				}
				_, err := invoke(L, fn, 0, args...)
				return err
			})
			if err != nil {
				return pushError(L, f.errorMessage(env.Plugin, err))
			}
			return pushSuccess(L, lua.LString(id))
		},
		// off(name, id) -> removed
		"off": func(L *lua.LState) int {
			name := L.CheckString(1)
			id := L.CheckString(2)
			L.Push(lua.LBool(env.Instance.Bus().Off(event.Name(name), handle.ID(id))))
			return 1
		},
	}
}
