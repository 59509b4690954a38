// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-player/marquee/internal/event"
	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/handle"
	"github.com/marquee-player/marquee/pkg/errutil"
)

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := event.NewBus()
	var order []string

	_, err := bus.On("custom", func(_ context.Context, p any) error {
		order = append(order, "a:"+p.(string))
		return nil
	})
	require.NoError(t, err)
	_, err = bus.On("custom", func(_ context.Context, p any) error {
		order = append(order, "b:"+p.(string))
		return nil
	})
	require.NoError(t, err)

	n, err := bus.Emit(context.Background(), "custom", "x")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a:x", "b:x"}, order)
}

func TestBus_HandlesAreUniqueAndNeverReused(t *testing.T) {
	bus := event.NewBus()
	noop := func(context.Context, any) error { return nil }

	first, err := bus.On(event.FileStarted, noop)
	require.NoError(t, err)
	assert.True(t, bus.Off(event.FileStarted, first))

	second, err := bus.On(event.FileStarted, noop)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestBus_OffUnknownIsNoop(t *testing.T) {
	bus := event.NewBus()
	id, err := bus.On(event.FileStarted, func(context.Context, any) error { return nil })
	require.NoError(t, err)

	assert.False(t, bus.Off(event.FileStarted, "evt-999"))
	assert.False(t, bus.Off(event.WindowLoaded, id), "id registered under another name")
	assert.Equal(t, 1, bus.Count(event.FileStarted))
}

func TestBus_OnRejectsInvalidArguments(t *testing.T) {
	bus := event.NewBus()

	_, err := bus.On("", func(context.Context, any) error { return nil })
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)

	_, err = bus.On("x", nil)
	errutil.AssertErrorCode(t, err, fault.CodeInvalidArgument)
}

func TestBus_FailingCallbacksAreIsolated(t *testing.T) {
	rec := &fault.Recorder{}
	bus := event.NewBus(event.WithReporter(rec), event.WithSource("instance:0"))
	called := 0

	_, _ = bus.On("x", func(context.Context, any) error { return errors.New("boom") })
	_, _ = bus.On("x", func(context.Context, any) error { panic("bad") })
	_, _ = bus.On("x", func(context.Context, any) error { called++; return nil })

	n, err := bus.Emit(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, called)
	assert.Equal(t, 2, rec.Count(fault.CodeCallback))
	for _, r := range rec.Reports() {
		assert.Equal(t, "instance:0", r.Source)
	}
}

func TestBus_SnapshotAtEmissionStart(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()
	var calls []string

	var secondID handle.ID
	_, err := bus.On("x", func(context.Context, any) error {
		calls = append(calls, "first")
		bus.Off("x", secondID)
		_, _ = bus.On("x", func(context.Context, any) error {
			calls = append(calls, "late")
			return nil
		})
		return nil
	})
	require.NoError(t, err)
	secondID, err = bus.On("x", func(context.Context, any) error {
		calls = append(calls, "second")
		return nil
	})
	require.NoError(t, err)

	n, err := bus.Emit(ctx, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 2, bus.Count("x"), "first plus the late subscriber")
}

func TestBus_RejectsMismatchedPayload(t *testing.T) {
	bus := event.NewBus()
	called := false
	_, _ = bus.On(event.PIPChanged, func(context.Context, any) error { called = true; return nil })

	n, err := bus.Emit(context.Background(), event.PIPChanged, "yes")
	errutil.AssertErrorCode(t, err, fault.CodePayloadShape)
	assert.Zero(t, n)
	assert.False(t, called)
}

func TestBus_NormalizesRectPointer(t *testing.T) {
	bus := event.NewBus()
	var got any
	_, _ = bus.On(event.WindowMoved, func(_ context.Context, p any) error { got = p; return nil })

	_, err := bus.Emit(context.Background(), event.WindowMoved, &event.Rect{X: 1, Y: 2, Width: 3, Height: 4})
	require.NoError(t, err)
	assert.Equal(t, event.Rect{X: 1, Y: 2, Width: 3, Height: 4}, got)
}

func TestBus_EmitWithoutSubscribers(t *testing.T) {
	bus := event.NewBus()
	n, err := bus.Emit(context.Background(), event.FileLoaded, "/tmp/a.mkv")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBus_Close(t *testing.T) {
	bus := event.NewBus()
	_, _ = bus.On("x", func(context.Context, any) error { return nil })
	bus.Close()

	assert.Zero(t, bus.Count("x"))
	n, err := bus.Emit(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = bus.On("x", func(context.Context, any) error { return nil })
	errutil.AssertErrorCode(t, err, fault.CodeResource)
}
