// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package plugin

import "context"

// Host runs plugins of one runtime.
type Host interface {
	// Load starts a discovered plugin.
	Load(ctx context.Context, p *DiscoveredPlugin) error

	// Unload stops a plugin and releases everything it holds.
	Unload(ctx context.Context, name string) error

	// Plugins returns names of all loaded plugins.
	Plugins() []string

	// Close unloads every plugin and shuts the host down.
	Close(ctx context.Context) error
}
