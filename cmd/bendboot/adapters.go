// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/adapters"
	"github.com/bending/bendboot/pkg/platform"
)

func newAdaptersCommand(app *App) *cobra.Command {
	adaptersCmd := &cobra.Command{
		Use:   "adapters",
		Short: "Inspect the adapter catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every adapter and the host versions it supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAdapters(app, filter)
		},
	}
	list.Flags().StringVar(&filter, "platform", "", "only list adapters for this platform")

	var platformName, version string
	match := &cobra.Command{
		Use:   "match",
		Short: "Show which adapter a platform/version would select",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return matchAdapter(cmd, app, platformName, version)
		},
	}
	match.Flags().StringVar(&platformName, "platform", "", "host platform (paper, bukkit, fabric, sponge)")
	match.Flags().StringVar(&version, "version", "", "host version, e.g. 1.19.2")
	_ = match.MarkFlagRequired("platform")
	_ = match.MarkFlagRequired("version")

	adaptersCmd.AddCommand(list, match)
	return adaptersCmd
}

func listAdapters(app *App, filter string) error {
	var only platform.ID
	if filter != "" {
		id, err := platform.Parse(filter)
		if err != nil {
			return app.fail(err)
		}
		only = id
	}

	rows := make([][]string, 0, len(adapters.Entries()))
	for _, e := range adapters.Entries() {
		if only != "" && e.Platform != only {
			continue
		}
		rows = append(rows, []string{
			string(e.ID),
			string(e.Platform),
			e.Range.String(),
			strconv.Itoa(e.DataVersion),
			joinFeatures(e.Features),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("ADAPTER", "PLATFORM", "VERSIONS", "DATA", "FEATURES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	fmt.Fprintln(app.stdout, t.Render())
	return nil
}

func matchAdapter(cmd *cobra.Command, app *App, platformName, version string) error {
	cfg, _, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.failConfig(err)
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return app.fail(err)
	}

	desc, diags, err := reg.MatchStrings(platformName, version)
	if err != nil {
		return app.fail(err)
	}

	fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(string(desc.Adapter)), SubtitleStyle.Render(desc.Range.String()))
	for _, d := range diags {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render(d.Code), d.Message)
		for _, c := range d.Candidates {
			fmt.Fprintf(app.stdout, "  - %s\n", c)
		}
	}
	return nil
}
