// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/pkg/errutil"
)

func TestCheckPayload(t *testing.T) {
	tests := []struct {
		name    string
		event   event.Name
		payload any
		wantErr bool
	}{
		{"none accepts nil", event.WindowLoaded, nil, false},
		{"none rejects value", event.WindowLoaded, 1, true},
		{"bool accepts bool", event.WindowFullscreen, true, false},
		{"bool rejects string", event.MusicModeChanged, "true", true},
		{"string accepts string", event.FileLoaded, "/a.mkv", false},
		{"string rejects nil", event.FileLoaded, nil, true},
		{"rect accepts value", event.WindowResized, event.Rect{Width: 1}, false},
		{"rect rejects nil pointer", event.WindowResized, (*event.Rect)(nil), true},
		{"rect rejects map", event.WindowSizeAdjusted, map[string]any{"x": 1}, true},
		{"custom accepts anything", "my.event", []any{1, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := event.CheckPayload(tt.event, tt.payload)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, fault.CodePayloadShape)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBuiltins(t *testing.T) {
	assert.Len(t, event.Builtins(), 18)
	assert.True(t, event.Builtin(event.MPVInitialized))
	assert.False(t, event.Builtin("plugin.custom"))
	assert.Equal(t, event.KindAny, event.KindOf("plugin.custom"))
	assert.Equal(t, "rect", event.KindOf(event.WindowMoved).String())
}
