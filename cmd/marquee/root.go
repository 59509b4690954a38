// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/marquee-player/marquee/internal/config"
)

// NewRootCmd creates the root command for the marquee CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marquee",
		Short: "marquee - a scriptable media player plugin host",
		Long: `marquee hosts Lua plugins for a media player. Each plugin gets a
sandboxed runtime per player window, with events, overlays, menus,
preferences and file access granted by its manifest.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: XDG_CONFIG_HOME/marquee/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig reads the configuration for cmd from its config file and
// flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag lookup on a registered flag
	}
	return config.Load(path, cmd.Flags())
}
