// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, name, code string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	manifest := "name: " + name + "\nversion: 1.0.0\nentry: main.lua\npermissions: [event]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(code), 0o600))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestValidate_BundledPlugin(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("..", "..", "plugins", "now-playing"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok   now-playing 1.0.0")
}

func TestValidate_Failures(t *testing.T) {
	good := writeBundle(t, "good", `iina.console.log("hi")`)
	syntax := writeBundle(t, "syntax", `function (`)
	incompatible := writeBundle(t, "future", `iina.console.log("hi")`)
	require.NoError(t, os.WriteFile(filepath.Join(incompatible, "plugin.yaml"),
		[]byte("name: future\nversion: 1.0.0\nentry: main.lua\nmin-host-version: \">= 9.0.0\"\n"), 0o600))
	missing := t.TempDir()

	out, errOut, err := execute(t, "validate", good, syntax, incompatible, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4 plugins failed validation")
	assert.Contains(t, out, "ok   good 1.0.0")
	assert.Contains(t, errOut, "FAIL "+syntax)
	assert.Contains(t, errOut, "FAIL "+incompatible)
	assert.Contains(t, errOut, "FAIL "+missing)
}

func TestValidate_RequiresArgument(t *testing.T) {
	_, _, err := execute(t, "validate")
	assert.Error(t, err)
}
