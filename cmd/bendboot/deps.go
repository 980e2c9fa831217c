// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/config"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/resolver"
)

func newDepsCommand(app *App) *cobra.Command {
	depsCmd := &cobra.Command{
		Use:   "deps",
		Short: "Resolve and provision runtime dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	depsCmd.AddCommand(&cobra.Command{
		Use:   "resolve",
		Short: "Show which manifest entries the host already provides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.failConfig(err)
			}
			partition, err := resolveDeps(cfg)
			if err != nil {
				return app.fail(err)
			}
			printPartition(app, partition)
			return nil
		},
	})

	depsCmd.AddCommand(&cobra.Command{
		Use:   "provision",
		Short: "Fetch and verify every missing dependency into the cache",
		Long: `Fetch and verify every manifest entry the host does not provide. Artifacts
already in the cache are verified and reused; nothing is fetched twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return provisionDeps(cmd.Context(), app)
		},
	})

	return depsCmd
}

func resolveDeps(cfg *config.Config) (resolver.Partition, error) {
	m, err := loadManifest(cfg)
	if err != nil {
		return resolver.Partition{}, err
	}
	snapshot, err := librariesFunc(cfg)()
	if err != nil {
		return resolver.Partition{}, err
	}
	return resolver.Resolve(m, snapshot), nil
}

func printPartition(app *App, p resolver.Partition) {
	fmt.Fprintf(app.stdout, "%s (%d)\n", TitleStyle.Render("Provided by host"), len(p.Satisfied))
	for _, e := range p.Satisfied {
		fmt.Fprintf(app.stdout, "  %s %s\n", SuccessStyle.Render("✓"), e)
	}
	fmt.Fprintf(app.stdout, "%s (%d)\n", TitleStyle.Render("Missing"), len(p.Missing))
	for _, e := range p.Missing {
		marker := ""
		if !e.Required {
			marker = SubtitleStyle.Render(" (optional)")
		}
		fmt.Fprintf(app.stdout, "  %s %s%s\n", WarningStyle.Render("•"), e, marker)
	}
}

func provisionDeps(ctx context.Context, app *App) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return app.failConfig(err)
	}
	partition, err := resolveDeps(cfg)
	if err != nil {
		return app.fail(err)
	}
	prov, err := app.newProvisioner(cfg, app.newLogger(cfg))
	if err != nil {
		return app.fail(err)
	}

	boundary, report, err := prov.Provision(ctx, partition.Missing)
	printReport(app, report)
	if err != nil {
		return app.fail(err)
	}
	return boundary.Close()
}

func printReport(app *App, r provision.Report) {
	for _, o := range r.Attached {
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), o.Entry, SubtitleStyle.Render(o.Source))
	}
	for _, o := range r.Skipped {
		fmt.Fprintf(app.stdout, "%s %s: %v\n", WarningStyle.Render("skipped"), o.Entry, o.Err)
	}
	for _, o := range r.Failed {
		fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render("✗"), o.Entry, o.Err)
	}
	fmt.Fprintf(app.stdout, "%d attached, %d from cache, %d skipped, %d failed, %d fetches\n",
		len(r.Attached), r.CacheHits(), len(r.Skipped), len(r.Failed), r.Fetches)
}
