// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package fileio

import (
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
)

// Path prefixes understood by Resolver.
const (
	PrefixData   = "@data/"
	PrefixTmp    = "@tmp/"
	PrefixPlugin = "@plugin/"
)

// Roots are the directories the path prefixes map to.
type Roots struct {
	Data   string
	Tmp    string
	Plugin string
}

// Resolver turns script paths into filesystem paths confined to a root.
// Paths without a prefix are relative to the data root. Absolute paths are
// refused unless AllowAbsolute is set.
type Resolver struct {
	Roots         Roots
	AllowAbsolute bool
}

// Resolve maps path to a filesystem path.
func (r Resolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", fault.InvalidArgument("path is empty")
	}

	root, rest := r.Roots.Data, path
	switch {
	case strings.HasPrefix(path, PrefixData):
		rest = strings.TrimPrefix(path, PrefixData)
	case strings.HasPrefix(path, PrefixTmp):
		root, rest = r.Roots.Tmp, strings.TrimPrefix(path, PrefixTmp)
	case strings.HasPrefix(path, PrefixPlugin):
		root, rest = r.Roots.Plugin, strings.TrimPrefix(path, PrefixPlugin)
	case filepath.IsAbs(path):
		if !r.AllowAbsolute {
			return "", r.denied(path)
		}
		return filepath.Clean(path), nil
	}

	if root == "" {
		return "", oops.Code(fault.CodeResource).
			In("fileio").
			With("path", path).
			Errorf("no directory configured for %s", path)
	}

	full := filepath.Join(root, filepath.FromSlash(rest))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", r.denied(path)
	}
	return full, nil
}

func (r Resolver) denied(path string) error {
	return oops.Code(fault.CodeResource).
		In("fileio").
		With("path", path).
		With("reason", "permission").
		Errorf("path %s is outside the plugin's directories", path)
}
