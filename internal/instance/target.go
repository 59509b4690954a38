// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package instance

import "strconv"

// ID identifies a player instance. Instance 0 always exists first.
type ID int

func (id ID) String() string {
	return "instance:" + strconv.Itoa(int(id))
}

type targetKind int

const (
	targetLocal targetKind = iota
	targetBroadcast
	targetDirect
)

// Target addresses a message sent with Instance.PostMessage.
type Target struct {
	kind targetKind
	id   ID
}

var (
	// Local addresses the sending instance's own handlers.
	Local = Target{kind: targetLocal}
	// Broadcast addresses every live instance except the sender.
	Broadcast = Target{kind: targetBroadcast}
)

// To addresses one instance.
func To(id ID) Target {
	return Target{kind: targetDirect, id: id}
}

// ID returns the addressed instance for targets built with To.
func (t Target) ID() (ID, bool) {
	return t.id, t.kind == targetDirect
}

func (t Target) String() string {
	switch t.kind {
	case targetLocal:
		return "local"
	case targetBroadcast:
		return "broadcast"
	default:
		return t.id.String()
	}
}

func (t Target) label() string {
	if t.kind == targetDirect {
		return "direct"
	}
	return t.String()
}
