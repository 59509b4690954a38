// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package surface

import (
	"github.com/felixgeelhaar/statekit"
)

// State is the load state of a surface.
type State string

// Surface states.
const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
	StateClosed   State = "closed"
)

// Lifecycle machine events.
const (
	eventLoad    statekit.EventType = "LOAD"
	eventLoaded  statekit.EventType = "LOADED"
	eventFailed  statekit.EventType = "FAILED"
	eventDispose statekit.EventType = "DISPOSE"
)

func sid(s State) statekit.StateID { return statekit.StateID(s) }

// lifecycle is the statekit context. Loads counts load attempts and
// Completions counts loads that finished, successfully or not.
type lifecycle struct {
	Loads       int
	Completions int
}

func buildLifecycle(id string, lc *lifecycle) (*statekit.Interpreter[lifecycle], error) {
	machine, err := statekit.NewMachine[lifecycle](id).
		WithInitial(sid(StateUnloaded)).
		WithContext(*lc).
		WithAction("countLoad", func(_ *lifecycle, _ statekit.Event) {
			lc.Loads++
		}).
		WithAction("countCompletion", func(_ *lifecycle, _ statekit.Event) {
			lc.Completions++
		}).
		State(sid(StateUnloaded)).
		On(eventLoad).Target(sid(StateLoading)).
		On(eventDispose).Target(sid(StateClosed)).Done().
		State(sid(StateLoading)).
		OnEntry("countLoad").
		On(eventLoad).Target(sid(StateLoading)).
		On(eventLoaded).Target(sid(StateReady)).
		On(eventFailed).Target(sid(StateFailed)).
		On(eventDispose).Target(sid(StateClosed)).Done().
		State(sid(StateReady)).
		OnEntry("countCompletion").
		On(eventLoad).Target(sid(StateLoading)).
		On(eventDispose).Target(sid(StateClosed)).Done().
		State(sid(StateFailed)).
		OnEntry("countCompletion").
		On(eventLoad).Target(sid(StateLoading)).
		On(eventDispose).Target(sid(StateClosed)).Done().
		State(sid(StateClosed)).
		On(eventDispose).Target(sid(StateClosed)).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}
