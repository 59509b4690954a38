// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio

import (
	"os"
	"strings"

	"github.com/marquee-player/marquee/internal/fault"
)

// Mode is the access mode of a file handle.
type Mode string

// Access modes.
const (
	ModeRead      Mode = "read"
	ModeWrite     Mode = "write"
	ModeAppend    Mode = "append"
	ModeReadWrite Mode = "read-write"
)

// ParseMode accepts a mode name or one of its short aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "r":
		return ModeRead, nil
	case "write", "w":
		return ModeWrite, nil
	case "append", "a":
		return ModeAppend, nil
	case "read-write", "rw", "update":
		return ModeReadWrite, nil
	default:
		return "", fault.InvalidArgument("unknown file mode %q", s)
	}
}

// CanRead reports whether the mode permits reading.
func (m Mode) CanRead() bool {
	return m == ModeRead || m == ModeReadWrite
}

// CanWrite reports whether the mode permits writing.
func (m Mode) CanWrite() bool {
	return m != ModeRead
}

// flags returns the open flags for m. Write-capable modes create the
// file but never truncate it.
func (m Mode) flags() int {
	switch m {
	case ModeRead:
		return os.O_RDONLY
	case ModeWrite, ModeAppend:
		return os.O_WRONLY | os.O_CREATE
	default:
		return os.O_RDWR | os.O_CREATE
	}
}
