// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/bootstrap"
)

func newStartCommand(app *App) *cobra.Command {
	var printClassPath bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the startup sequence",
		Long: `Run the startup sequence: detect the host, select its adapter, load the
dependency manifest, provision whatever the host does not already provide and
seal the isolation boundary.

Exits non-zero, naming the unsupported platform/version or the failed
dependency, when startup cannot reach Ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), app, printClassPath)
		},
	}
	cmd.Flags().BoolVar(&printClassPath, "classpath", false, "print only the isolated class path on success")
	return cmd
}

func runStart(ctx context.Context, app *App, printClassPath bool) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return app.failConfig(err)
	}
	logger := app.newLogger(cfg)

	seq, err := app.newSequence(cfg, logger)
	if err != nil {
		return app.fail(err)
	}
	rt, err := seq.Run(ctx)
	if err != nil {
		return app.fail(err)
	}
	defer func() { _ = rt.Close() }()

	if printClassPath {
		fmt.Fprintln(app.stdout, rt.Boundary.ClassPath())
		return nil
	}
	printRuntime(app, rt)
	return nil
}

func printRuntime(app *App, rt *bootstrap.Runtime) {
	a := rt.Handle.Adapter()
	host := rt.Handle.Host()

	fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ ")+TitleStyle.Render("Ready"))
	fmt.Fprintf(app.stdout, "  host:      %s (via %s)\n", host, host.Source)
	fmt.Fprintf(app.stdout, "  adapter:   %s %s\n", CmdStyle.Render(string(a.ID())), SubtitleStyle.Render(rt.Handle.Descriptor().Range.String()))
	fmt.Fprintf(app.stdout, "  features:  %s\n", joinFeatures(a.Features()))
	fmt.Fprintf(app.stdout, "  manifest:  %d entries, %d provided by host\n", rt.Manifest.Len(), len(rt.Partition.Satisfied))
	fmt.Fprintf(app.stdout, "  attached:  %d (%d from cache, %d fetches)\n", len(rt.Report.Attached), rt.Report.CacheHits(), rt.Report.Fetches)
	for _, o := range rt.Report.Skipped {
		fmt.Fprintf(app.stdout, "  %s %s: %v\n", WarningStyle.Render("skipped"), o.Entry, o.Err)
	}
	for _, d := range rt.Handle.Diagnostics() {
		fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render(d.Code), d.Message)
	}
}
