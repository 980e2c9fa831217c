// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/provision"
)

func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local artifact cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the absolute cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.failConfig(err)
			}
			cache, err := provision.NewCache(cfg.ResolvedCacheDir())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, cache.Root())
			return nil
		},
	})

	return cacheCmd
}
