// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/marquee-player/marquee/internal/fault"
)

// trashDir is the directory under the data root that Trash moves files to.
const trashDir = ".trash"

// Entry describes a listed file or directory.
type Entry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

// List returns the entries under path sorted by path. Paths are relative
// to the listed directory and use forward slashes.
func (m *Manager) List(path string, recursive bool) ([]Entry, error) {
	root, err := m.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := Entry{Path: filepath.ToSlash(rel), Name: d.Name(), IsDir: d.IsDir()}
		if !d.IsDir() {
			e.Size = info.Size()
		}
		entries = append(entries, e)
		if d.IsDir() && !recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		return nil, fault.WrapResource(path, "list", walkErr)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Exists reports whether path names an existing file or directory.
// Paths that cannot be resolved do not exist.
func (m *Manager) Exists(path string) bool {
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// ReadFile returns the whole content of path.
func (m *Manager) ReadFile(path string) ([]byte, error) {
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // path confined by Resolver
	if err != nil {
		return nil, fault.WrapResource(path, "read", err)
	}
	return data, nil
}

// WriteFile replaces the content of path, creating parent directories.
func (m *Manager) WriteFile(path string, data []byte) error {
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fault.WrapResource(path, "mkdir", err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return fault.WrapResource(path, "write", err)
	}
	return nil
}

// Delete removes path. Directories are removed with their contents.
// Deleting a missing path is an error.
func (m *Manager) Delete(path string) error {
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err != nil {
		return fault.WrapResource(path, "delete", err)
	}
	if err := os.RemoveAll(full); err != nil {
		return fault.WrapResource(path, "delete", err)
	}
	return nil
}

// Trash moves path into the trash directory under the data root and
// returns the new location.
func (m *Manager) Trash(path string) (string, error) {
	full, err := m.resolver.Resolve(path)
	if err != nil {
		return "", err
	}
	if m.resolver.Roots.Data == "" {
		return "", fault.Resource(path, "no data directory for trash")
	}

	dir := filepath.Join(m.resolver.Roots.Data, trashDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fault.WrapResource(path, "trash", err)
	}
	dest := filepath.Join(dir, ulid.Make().String()+"-"+filepath.Base(full))
	if err := os.Rename(full, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fault.Resource(path, "trash: %s does not exist", path)
		}
		return "", fault.WrapResource(path, "trash", err)
	}
	return dest, nil
}
