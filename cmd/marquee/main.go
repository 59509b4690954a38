// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package main is the entry point for the marquee plugin host.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// hostVersion is the plugin API version checked against min-host-version.
const hostVersion = "0.1.0"

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (api: %s, commit: %s, built: %s)", version, hostVersion, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
