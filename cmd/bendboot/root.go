// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/telemetry"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "bendboot",
		Short: "Adapter selection and runtime dependency provisioning for the bending plugin",
		Long: TitleStyle.Render("bendboot") + SubtitleStyle.Render(" - adapter selection and dependency provisioning") + `

bendboot detects the game server the plugin runs on, selects the one adapter
built for that platform and version, and makes sure every runtime library the
plugin needs is present, verified and isolated before gameplay starts.

` + SubtitleStyle.Render("Examples:") + `
  bendboot start                                   Run the full startup sequence
  bendboot adapters list                           Show every supported platform/version
  bendboot adapters match --platform paper --version 1.19.2
  bendboot deps provision                          Pre-populate the dependency cache
  bendboot config init                             Write a default configuration`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/bendboot/config.cue)")

	root.AddCommand(
		newStartCommand(app),
		newAdaptersCommand(app),
		newDepsCommand(app),
		newManifestCommand(app),
		newCacheCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the command's exit code.
func Execute() {
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, "bendboot", Version)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+"tracing disabled: "+err.Error())
	}

	app := NewApp(Dependencies{})
	err = fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	_ = shutdown(ctx)

	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
