// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Handle is an open file with an explicit cursor. Every operation on a
// closed handle fails with a RESOURCE error.
type Handle struct {
	path    string
	mode    Mode
	release func(*Handle)

	mu     sync.Mutex
	file   *os.File
	offset int64
	open   bool
}

// Path returns the resolved path of the file.
func (h *Handle) Path() string {
	return h.path
}

// Mode returns the access mode the handle was opened with.
func (h *Handle) Mode() Mode {
	return h.mode
}

// IsOpen reports whether the handle has not been closed.
func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// Offset returns the cursor position.
func (h *Handle) Offset() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check("offset"); err != nil {
		return 0, err
	}
	return h.offset, nil
}

// SeekTo moves the cursor to an absolute offset.
func (h *Handle) SeekTo(offset int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check("seek"); err != nil {
		return err
	}
	if offset < 0 {
		return fault.InvalidArgument("seek offset %d is negative", offset)
	}
	h.offset = offset
	return nil
}

// SeekToEnd moves the cursor to the end of the content and returns it.
func (h *Handle) SeekToEnd() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check("seek"); err != nil {
		return 0, err
	}
	size, err := h.size()
	if err != nil {
		return 0, err
	}
	h.offset = size
	return size, nil
}

// Read reads up to n bytes at the cursor and advances it. At end of file
// Read returns nil and no error.
func (h *Handle) Read(n int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check("read"); err != nil {
		return nil, err
	}
	if !h.mode.CanRead() {
		return nil, h.modeError("read")
	}
	if n < 0 {
		return nil, fault.InvalidArgument("read length %d is negative", n)
	}

	size, err := h.size()
	if err != nil {
		return nil, err
	}
	if remaining := size - h.offset; remaining <= 0 {
		return nil, nil
	} else if int64(n) > remaining {
		n = int(remaining)
	}

	buf := make([]byte, n)
	got, err := h.file.ReadAt(buf, h.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fault.WrapResource(h.path, "read", err)
	}
	if got == 0 && n > 0 {
		return nil, nil
	}
	h.offset += int64(got)
	return buf[:got], nil
}

// ReadToEnd reads from the cursor to the end of the content.
func (h *Handle) ReadToEnd() ([]byte, error) {
	h.mu.Lock()
	size, err := h.sizeChecked("read")
	offset := h.offset
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if size <= offset {
		return nil, nil
	}
	return h.Read(int(size - offset))
}

// Write writes p at the cursor, or at the end of the content for append
// handles, and returns the number of bytes actually written.
func (h *Handle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check("write"); err != nil {
		return 0, err
	}
	if !h.mode.CanWrite() {
		return 0, h.modeError("write")
	}

	if h.mode == ModeAppend {
		size, err := h.size()
		if err != nil {
			return 0, err
		}
		h.offset = size
	}
	n, err := h.file.WriteAt(p, h.offset)
	h.offset += int64(n)
	if err != nil {
		return n, fault.WrapResource(h.path, "write", err)
	}
	return n, nil
}

// Close releases the file. Closing twice is an error.
func (h *Handle) Close() error {
	h.mu.Lock()
	if err := h.check("close"); err != nil {
		h.mu.Unlock()
		return err
	}
	h.open = false
	err := h.file.Close()
	release := h.release
	h.mu.Unlock()

	if release != nil {
		release(h)
	}
	if err != nil {
		return fault.WrapResource(h.path, "close", err)
	}
	return nil
}

func (h *Handle) check(op string) error {
	if h.open {
		return nil
	}
	return oops.Code(fault.CodeResource).
		In("fileio").
		With("path", h.path).
		With("operation", op).
		Errorf("%s: file handle for %s is closed", op, h.path)
}

func (h *Handle) modeError(op string) error {
	return oops.Code(fault.CodeResource).
		In("fileio").
		With("path", h.path).
		With("mode", string(h.mode)).
		Errorf("%s: %s was opened in %s mode", op, h.path, h.mode)
}

func (h *Handle) sizeChecked(op string) (int64, error) {
	if err := h.check(op); err != nil {
		return 0, err
	}
	if !h.mode.CanRead() {
		return 0, h.modeError(op)
	}
	return h.size()
}

func (h *Handle) size() (int64, error) {
	info, err := h.file.Stat()
	if err != nil {
		return 0, fault.WrapResource(h.path, "stat", err)
	}
	return info.Size(), nil
}
