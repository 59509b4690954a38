// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
)

// mpvModule reads and writes player properties, runs input commands and
// registers playback hooks.
func (f *Functions) mpvModule(env *Env) module {
	id := env.Instance.ID()
	noCore := func(L *lua.LState) int {
		return pushError(L, f.errorMessage(env.Plugin, fault.InvalidArgument("no player core")))
	}
	if env.Core == nil {
		return module{
			"getFlag": noCore, "getNumber": noCore, "getString": noCore,
			"set": noCore, "command": noCore, "addHook": noCore,
		}
	}
	core := env.Core

	get := func(L *lua.LState, convert func(name string, v any) (lua.LValue, error)) int {
		name := L.CheckString(1)
		v, err := core.Property(id, name)
		if err == nil {
			var lv lua.LValue
			if lv, err = convert(name, v); err == nil {
				return pushSuccess(L, lv)
			}
		}
		return pushError(L, f.errorMessage(env.Plugin, err))
	}

	return module{
		"getFlag": func(L *lua.LState) int {
			return get(L, func(name string, v any) (lua.LValue, error) {
				if b, ok := v.(bool); ok {
					return lua.LBool(b), nil
				}
				return nil, fault.InvalidArgument("property %q is not a flag", name)
			})
		},
		"getNumber": func(L *lua.LState) int {
			return get(L, func(name string, v any) (lua.LValue, error) {
				switch n := v.(type) {
				case float64:
					return lua.LNumber(n), nil
				case int:
					return lua.LNumber(n), nil
				case int64:
					return lua.LNumber(n), nil
				}
				return nil, fault.InvalidArgument("property %q is not a number", name)
			})
		},
		"getString": func(L *lua.LState) int {
			return get(L, func(_ string, v any) (lua.LValue, error) {
				return lua.LString(propertyString(v)), nil
			})
		},
		"set": func(L *lua.LState) int {
			name := L.CheckString(1)
			return f.pushResult(L, env.Plugin, core.SetProperty(luaContext(L), id, name, ToGoValue(L.Get(2))))
		},
		// command(name, {args...})
		"command": func(L *lua.LState) int {
			name := L.CheckString(1)
			var args []string
			if t := optTable(L, 2); t != nil {
				for i := 1; i <= t.Len(); i++ {
					args = append(args, lua.LVAsString(t.RawGetInt(i)))
				}
			}
			return f.pushResult(L, env.Plugin, core.Command(luaContext(L), id, name, args))
		},
		// addHook(name, priority, fn(next)) runs fn on this instance's loop
		// when the hook fires; the player waits until fn calls next.
		"addHook": func(L *lua.LState) int {
			name := L.CheckString(1)
			priority := L.CheckInt(2)
			fn := L.CheckFunction(3)
			lp := env.Instance.Loop()
			err := core.AddHook(id, name, priority, func(next func()) {
				err := lp.Enqueue(loop.Task{
					Label: "mpv hook " + name,
					Run: func(context.Context) error {
						cont := L.NewFunction(func(*lua.LState) int {
							next()
							return 0
						})
						if _, err := invoke(L, fn, 0, cont); err != nil {
							next()
							return fault.Callback(env.Plugin, "mpv hook "+name, err)
						}
						return nil
					},
					Dropped: func(error) { next() },
				})
				if err != nil {
					next()
				}
			})
			return f.pushResult(L, env.Plugin, err)
		},
	}
}

func propertyString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}
	return fmt.Sprint(v)
}
