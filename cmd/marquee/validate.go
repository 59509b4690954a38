// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/marquee-player/marquee/internal/plugin"
	pluginlua "github.com/marquee-player/marquee/internal/plugin/lua"
	"github.com/marquee-player/marquee/pkg/errutil"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plugin-dir>...",
		Short: "Check plugin bundles without loading them",
		Long: `Check that each plugin directory holds a valid manifest, is compatible
with this host and has an entry script that compiles.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factory := pluginlua.NewStateFactory()
			failed := 0
			for _, dir := range args {
				dp, err := validateBundle(factory, dir)
				if err != nil {
					failed++
					cmd.PrintErrf("FAIL %s: %v\n", dir, err)
					if code := errutil.Code(err); code != "" {
						cmd.PrintErrf("     code: %s\n", code)
					}
					continue
				}
				cmd.Printf("ok   %s %s (%s)\n", dp.Manifest.Name, dp.Manifest.Version, dir)
			}
			if failed > 0 {
				return oops.In("validate").Errorf("%d of %d plugins failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func validateBundle(factory *pluginlua.StateFactory, dir string) (*plugin.DiscoveredPlugin, error) {
	dp, err := plugin.ReadBundle(dir)
	if err != nil {
		return nil, err
	}
	if err := dp.Manifest.CheckHost(hostVersion); err != nil {
		return nil, err
	}
	code, err := os.ReadFile(dp.EntryPath())
	if err != nil {
		return nil, oops.In("validate").With("entry", dp.Manifest.Entry).Wrap(err)
	}
	if err := factory.Check(dp.Manifest.Entry, string(code)); err != nil {
		return nil, err
	}
	return dp, nil
}
