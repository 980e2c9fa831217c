// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/config"
)

// newConfigCommand creates the `bendboot config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bendboot configuration",
		Long: `Manage bendboot configuration.

Configuration is stored in:
  - Linux: ~/.config/bendboot/config.cue
  - macOS: ~/Library/Application Support/bendboot/config.cue
  - Windows: %APPDATA%\bendboot\config.cue

Every key can be overridden with a BENDBOOT_<KEY> environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, path, err := app.loadConfig(ctx)
	if err != nil {
		return app.failConfig(err)
	}

	source := SubtitleStyle.Render("(using defaults)")
	if path != "" {
		source = path
	}
	fmt.Fprintf(app.stdout, "// Config file: %s\n", source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App) error {
	var (
		path    string
		created bool
		err     error
	)
	if app.configPath != "" {
		path = app.configPath
		if _, statErr := os.Stat(path); statErr != nil {
			err = config.Save(config.DefaultConfig(), path)
			created = err == nil
		}
	} else {
		path, created, err = config.CreateDefaultConfig("")
	}
	if err != nil {
		return app.failConfig(err)
	}

	if created {
		fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
	} else {
		fmt.Fprintf(app.stdout, "%s %s already exists\n", WarningStyle.Render("•"), path)
	}
	return nil
}
