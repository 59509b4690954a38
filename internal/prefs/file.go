// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package prefs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/marquee-player/marquee/internal/message"
)

// FileStore keeps preferences in a YAML file. Sync writes the whole file
// through a temporary file and a rename.
type FileStore struct {
	path     string
	defaults map[string]any

	mu     sync.Mutex
	values map[string]any
	dirty  bool
}

// OpenFile loads the preferences at path. A missing file is an empty store.
func OpenFile(path string, defaults map[string]any) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		defaults: copyDefaults(defaults),
		values:   make(map[string]any),
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from host configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, oops.In("prefs").With("path", path).Wrapf(err, "read preferences")
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, oops.In("prefs").With("path", path).Wrapf(err, "parse preferences")
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored value or the default for key.
func (s *FileStore) Get(_ context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, true, nil
	}
	v, ok := s.defaults[key]
	return v, ok, nil
}

// Set records value for key.
func (s *FileStore) Set(_ context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	cloned, err := message.Clone(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = cloned
	s.dirty = true
	return nil
}

// Sync writes the file if anything changed since the last sync.
func (s *FileStore) Sync(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return oops.In("prefs").With("path", s.path).Wrapf(err, "encode preferences")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return oops.In("prefs").With("path", s.path).Wrapf(err, "create preferences directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.yaml")
	if err != nil {
		return oops.In("prefs").With("path", s.path).Wrapf(err, "create temporary file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return oops.In("prefs").With("path", s.path).Wrapf(err, "write preferences")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return oops.In("prefs").With("path", s.path).Wrapf(err, "close temporary file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return oops.In("prefs").With("path", s.path).Wrapf(err, "replace preferences")
	}

	s.dirty = false
	return nil
}
