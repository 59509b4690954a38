// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package hostfunc

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
	"github.com/marquee-player/marquee/internal/subtitle"
)

const subtitleItemType = "marquee.subtitleitem"

// luaItem is the Lua-side state of a subtitle item. The host only sees
// the converted data in subtitle.Item.Data.
type luaItem struct {
	data lua.LValue
	desc *lua.LFunction
}

func (f *Functions) subtitleModule(env *Env) module {
	return module{
		// item(data, descriptor) -> item
		"item": func(L *lua.LState) int {
			li := &luaItem{data: L.Get(1), desc: optFunction(L, 2)}
			L.Push(pushSubtitleItem(L, li))
			return 1
		},
		// registerProvider(id, {search=, download=, description=})
		"registerProvider": func(L *lua.LState) int {
			id := L.CheckString(1)
			t := L.CheckTable(2)
			search, ok := t.RawGetString("search").(*lua.LFunction)
			if !ok {
				L.ArgError(2, "provider.search must be a function")
				return 0
			}
			download, ok := t.RawGetString("download").(*lua.LFunction)
			if !ok {
				L.ArgError(2, "provider.download must be a function")
				return 0
			}
			describe, _ := t.RawGetString("description").(*lua.LFunction)

			p := &luaProvider{
				id:       id,
				L:        L,
				lp:       env.Instance.Loop(),
				search:   search,
				download: download,
				describe: describe,
			}
			var provider subtitle.Provider = p
			if describe != nil {
				provider = describingProvider{p}
			}
			return f.pushResult(L, env.Plugin, env.Subtitles.Register(id, provider))
		},
	}
}

func pushSubtitleItem(L *lua.LState, li *luaItem) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = li
	L.SetMetatable(ud, L.GetTypeMetatable(subtitleItemType))
	return ud
}

func registerSubtitleItemType(L *lua.LState) {
	mt := L.NewTypeMetatable(subtitleItemType)
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		li, ok := ud.Value.(*luaItem)
		if !ok {
			L.ArgError(1, "subtitle item expected")
			return 0
		}
		switch L.CheckString(2) {
		case "data":
			L.Push(li.data)
		case "desc":
			if li.desc == nil {
				L.Push(lua.LNil)
			} else {
				L.Push(li.desc)
			}
		default:
			L.Push(lua.LNil)
		}
		return 1
	}))
}

// luaProvider calls provider functions on the instance loop. Calls made
// from a loop task run inline.
type luaProvider struct {
	id       string
	L        *lua.LState
	lp       *loop.Loop
	search   *lua.LFunction
	download *lua.LFunction
	describe *lua.LFunction
}

func (p *luaProvider) Search(ctx context.Context) ([]subtitle.Item, error) {
	var items []subtitle.Item
	err := p.lp.Call(ctx, "subtitle "+p.id+".search", func(context.Context) error {
		out, err := invoke(p.L, p.search, 1)
		if err != nil {
			return err
		}
		t, ok := out[0].(*lua.LTable)
		if !ok {
			return fault.InvalidArgument("search of %q must return a list", p.id)
		}
		for i := 1; i <= t.Len(); i++ {
			items = append(items, p.toItem(t.RawGetInt(i)))
		}
		return nil
	})
	return items, err
}

func (p *luaProvider) Download(ctx context.Context, item subtitle.Item) ([]string, error) {
	var paths []string
	err := p.lp.Call(ctx, "subtitle "+p.id+".download", func(context.Context) error {
		out, err := invoke(p.L, p.download, 1, p.fromItem(item))
		if err != nil {
			return err
		}
		switch v := out[0].(type) {
		case lua.LString:
			paths = append(paths, string(v))
		case *lua.LTable:
			for i := 1; i <= v.Len(); i++ {
				if s, ok := v.RawGetInt(i).(lua.LString); ok {
					paths = append(paths, string(s))
				}
			}
		}
		return nil
	})
	return paths, err
}

// toItem converts a search result. Plain values are treated as the data
// of an item without its own descriptor.
func (p *luaProvider) toItem(v lua.LValue) subtitle.Item {
	li, ok := itemOf(v)
	if !ok {
		li = &luaItem{data: v}
	}
	item := subtitle.Item{Data: &itemData{lua: li, value: ToGoValue(li.data)}}
	if li.desc != nil {
		item.Desc = p.descriptor(li.desc)
	}
	return item
}

func (p *luaProvider) fromItem(item subtitle.Item) lua.LValue {
	if d, ok := item.Data.(*itemData); ok {
		return pushSubtitleItem(p.L, d.lua)
	}
	return pushSubtitleItem(p.L, &luaItem{data: ToLuaValue(p.L, item.Data)})
}

func (p *luaProvider) descriptor(fn *lua.LFunction) subtitle.Descriptor {
	return func(ctx context.Context, item subtitle.Item) (subtitle.Description, error) {
		var d subtitle.Description
		err := p.lp.Call(ctx, "subtitle "+p.id+".describe", func(context.Context) error {
			out, err := invoke(p.L, fn, 1, p.fromItem(item))
			if err != nil {
				return err
			}
			t, ok := out[0].(*lua.LTable)
			if !ok {
				return fault.InvalidArgument("descriptor of %q must return a table", p.id)
			}
			d.Name = lua.LVAsString(t.RawGetString("name"))
			d.Left = lua.LVAsString(t.RawGetString("left"))
			d.Right = lua.LVAsString(t.RawGetString("right"))
			return nil
		})
		return d, err
	}
}

// describingProvider adds the provider-level descriptor.
type describingProvider struct {
	*luaProvider
}

func (p describingProvider) Describe(ctx context.Context, item subtitle.Item) (subtitle.Description, error) {
	return p.descriptor(p.describe)(ctx, item)
}

// itemData keeps the Lua item alongside its converted data so a result
// handed back to download is the same Lua object search returned.
type itemData struct {
	lua   *luaItem
	value any
}

func (d *itemData) String() string {
	return fmt.Sprint(d.value)
}

func itemOf(v lua.LValue) (*luaItem, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	li, ok := ud.Value.(*luaItem)
	return li, ok
}
