// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package plugin discovers plugin bundles and drives their lifecycle.
package plugin

import (
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// CodeInvalidManifest marks a plugin.yaml that fails validation.
const CodeInvalidManifest = "INVALID_MANIFEST"

// ManifestFile is the manifest file name inside a plugin bundle.
const ManifestFile = "plugin.yaml"

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name        string `yaml:"name" jsonschema:"pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$,maxLength=64"`
	Version     string `yaml:"version" jsonschema:"description=Strict semantic version of the plugin"`
	Description string `yaml:"description,omitempty"`
	// Entry is the Lua file run in every plugin-enabled player instance.
	Entry string `yaml:"entry"`
	// MinHostVersion is a semver constraint the host version must satisfy.
	MinHostVersion     string         `yaml:"min-host-version,omitempty"`
	Permissions        []string       `yaml:"permissions,omitempty"`
	PreferenceDefaults map[string]any `yaml:"preference-defaults,omitempty"`
	SidebarTab         *SidebarTab    `yaml:"sidebar-tab,omitempty"`
}

// SidebarTab names the tab a plugin's sidebar view is shown under.
type SidebarTab struct {
	Name string `yaml:"name"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, invalid("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code(CodeInvalidManifest).In("manifest").Wrapf(err, "invalid YAML")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return invalid("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return invalid("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return invalid("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return oops.Code(CodeInvalidManifest).In("manifest").With("version", m.Version).
			Wrapf(err, "version %q is not a strict semantic version", m.Version)
	}

	if m.Entry == "" {
		return invalid("entry is required")
	}
	if !filepath.IsLocal(m.Entry) {
		return invalid("entry %q must be a relative path inside the plugin", m.Entry)
	}

	if m.MinHostVersion != "" {
		if _, err := semver.NewConstraint(m.MinHostVersion); err != nil {
			return oops.Code(CodeInvalidManifest).In("manifest").With("constraint", m.MinHostVersion).
				Wrapf(err, "min-host-version %q is not a valid constraint", m.MinHostVersion)
		}
	}

	for i, p := range m.Permissions {
		if p == "" {
			return invalid("permission %d is empty", i)
		}
	}

	if m.SidebarTab != nil && m.SidebarTab.Name == "" {
		return invalid("sidebar-tab.name is required when sidebar-tab is set")
	}

	return nil
}

// CheckHost reports whether hostVersion satisfies MinHostVersion. An
// empty constraint accepts every host.
func (m *Manifest) CheckHost(hostVersion string) error {
	if m.MinHostVersion == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.MinHostVersion)
	if err != nil {
		return oops.Code(CodeInvalidManifest).In("manifest").Wrap(err)
	}
	v, err := semver.NewVersion(hostVersion)
	if err != nil {
		return oops.Code(CodeInvalidManifest).In("manifest").With("host", hostVersion).
			Wrapf(err, "host version %q is not a semantic version", hostVersion)
	}
	if !c.Check(v) {
		return oops.Code(CodeInvalidManifest).
			In("manifest").
			With("plugin", m.Name).
			With("host", hostVersion).
			With("constraint", m.MinHostVersion).
			Errorf("plugin %s requires host %s, running %s", m.Name, m.MinHostVersion, hostVersion)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return oops.Code(CodeInvalidManifest).In("manifest").Errorf(format, args...)
}
