// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package message holds the named-message value exchanged between a script
// context and its surfaces or peer instances, plus the single-slot handler
// table both sides use.
package message

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is a named, structured value. Data is a private copy made when
// the message was sent; receivers must treat it as read-only.
type Message struct {
	ID   ulid.ULID
	Name string
	Data any
	From string // sender description, e.g. "instance:1" or "surface:overlay"
	Sent time.Time
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewID generates a message ID.
func NewID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// New builds a message from name and data. Data is deep-copied, so later
// mutation by the sender is not observed by the receiver.
func New(from, name string, data any) (Message, error) {
	cloned, err := Clone(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:   NewID(),
		Name: name,
		Data: cloned,
		From: from,
		Sent: time.Now(),
	}, nil
}
