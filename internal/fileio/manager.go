// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package fileio manages script file access: handles with explicit
// cursors, scoped acquisition, and whole-file helpers confined to the
// plugin's data, temporary and bundle directories.
package fileio

import (
	"log/slog"
	"os"
	"sync"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Manager opens handles on behalf of one script context and tracks them
// so they can all be released when the context goes away.
type Manager struct {
	resolver Resolver
	logger   *slog.Logger

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager resolving paths with r.
func NewManager(r Resolver, opts ...Option) *Manager {
	m := &Manager{
		resolver: r,
		logger:   slog.Default(),
		handles:  make(map[*Handle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolver returns the path resolver.
func (m *Manager) Resolver() Resolver {
	return m.resolver
}

// Open opens path in mode. Read mode requires the file to exist;
// write-capable modes create it. Append handles start at the end.
func (m *Manager) Open(path string, mode Mode) (*Handle, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, oops.Code(fault.CodeResource).
			In("fileio").
			With("path", path).
			Errorf("file manager is closed")
	}

	f, err := os.OpenFile(full, mode.flags(), 0o600) //nolint:gosec // path confined by Resolver
	if err != nil {
		return nil, fault.WrapResource(path, "open", err)
	}

	h := &Handle{
		path:    full,
		mode:    mode,
		file:    f,
		open:    true,
		release: m.release,
	}
	if mode == ModeAppend {
		size, err := h.size()
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		h.offset = size
	}

	m.handles[h] = struct{}{}
	openHandles.Inc()
	m.logger.Debug("file handle opened", "path", full, "mode", string(mode))
	return h, nil
}

// With opens path, passes the handle to fn and closes it on every exit
// path, including a panic in fn. The close error is returned only when
// fn succeeded.
func (m *Manager) With(path string, mode Mode, fn func(h *Handle) error) (err error) {
	h, err := m.Open(path, mode)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := h.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	return fn(h)
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[h]; ok {
		delete(m.handles, h)
		openHandles.Dec()
	}
}

// OpenCount returns the number of open handles.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// CloseAll closes every open handle and refuses later opens. It returns
// the number of handles closed.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.handles))
	for h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	closed := 0
	for _, h := range handles {
		if err := h.Close(); err != nil {
			m.logger.Debug("close file handle", "path", h.Path(), "error", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		m.logger.Debug("released file handles", "count", closed)
	}
	return closed
}
