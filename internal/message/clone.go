// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package message

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Clone deep-copies a structured value. Scalars, strings, byte slices,
// []any and map[string]any are copied directly and keep their Go types;
// anything else goes through a JSON round trip, the same structured-clone
// rule surface documents apply. A value that contains itself is rejected
// with INVALID_ARGUMENT.
func Clone(v any) (any, error) {
	c := cloner{active: make(map[container]struct{})}
	return c.clone(v)
}

// cloner tracks the containers on the current path so a cycle fails
// instead of recursing forever. Shared, acyclic references are copied
// once per occurrence.
type cloner struct {
	active map[container]struct{}
}

// container identifies a map by its header and a slice by its backing
// array and length.
type container struct {
	ptr uintptr
	len int
}

func (c *cloner) enter(v any) (func(), error) {
	rv := reflect.ValueOf(v)
	key := container{ptr: rv.Pointer(), len: -1}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if key.ptr == 0 {
		return func() {}, nil
	}
	if _, seen := c.active[key]; seen {
		return nil, oops.Code(fault.CodeInvalidArgument).
			With("type", typeName(v)).
			Errorf("message data contains a cycle")
	}
	c.active[key] = struct{}{}
	return func() { delete(c.active, key) }, nil
}

func (c *cloner) clone(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val, nil
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case []any:
		if len(val) == 0 {
			return make([]any, 0), nil
		}
		leave, err := c.enter(val)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make([]any, len(val))
		for i, item := range val {
			cp, err := c.clone(item)
			if err != nil {
				return nil, err
			}
			out[i] = cp
		}
		return out, nil
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, nil
	case map[string]any:
		leave, err := c.enter(val)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make(map[string]any, len(val))
		for k, item := range val {
			cp, err := c.clone(item)
			if err != nil {
				return nil, err
			}
			out[k] = cp
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, oops.Code(fault.CodeInvalidArgument).
				With("type", typeName(val)).
				Wrapf(err, "message data is not cloneable")
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, oops.Code(fault.CodeInvalidArgument).Wrapf(err, "message data is not cloneable")
		}
		return out, nil
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
