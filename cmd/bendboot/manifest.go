// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/pkg/manifest"
)

var errMirrorIncomplete = errors.New("mirror does not satisfy the manifest")

func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect the dependency manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the dependency manifest in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.failConfig(err)
			}
			m, err := loadManifest(cfg)
			if err != nil {
				return app.fail(err)
			}
			switch format {
			case "cue":
				_, err = app.stdout.Write(manifest.EncodeCUE(m))
			case "text":
				_, err = app.stdout.Write(manifest.EncodeText(m))
			default:
				err = fmt.Errorf("unknown format %q (valid: cue, text)", format)
			}
			return err
		},
	}
	show.Flags().StringVar(&format, "format", "cue", "output format: cue or text")

	verify := &cobra.Command{
		Use:   "verify <dir>",
		Short: "Check that a local Maven-layout mirror carries every entry with the right checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.failConfig(err)
			}
			m, err := loadManifest(cfg)
			if err != nil {
				return app.fail(err)
			}
			return verifyMirror(app, m, args[0])
		},
	}

	manifestCmd.AddCommand(show, verify)
	return manifestCmd
}

// verifyMirror reports every entry of m against dir. Missing optional entries are
// tolerated; missing required entries and checksum mismatches fail.
func verifyMirror(app *App, m *manifest.Manifest, dir string) error {
	source := provision.DirSource{Root: dir}.Name()
	var problems int
	for _, e := range m.Entries() {
		path := filepath.Join(dir, filepath.FromSlash(provision.ArtifactPath(e)))
		err := provision.VerifyFile(path, e, source)
		switch {
		case err == nil:
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("ok"), e)
		case errors.Is(err, fs.ErrNotExist) && !e.Required:
			fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("absent (optional)"), e)
		case errors.Is(err, fs.ErrNotExist):
			problems++
			fmt.Fprintf(app.stdout, "%s %s\n", ErrorStyle.Render("missing"), e)
		default:
			problems++
			fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render("bad"), e, err)
		}
	}
	if problems > 0 {
		return &ExitError{Code: ExitIntegrity, Err: fmt.Errorf("%w: %d problem(s) in %s", errMirrorIncomplete, problems, dir)}
	}
	fmt.Fprintf(app.stdout, "%d entries verified in %s\n", m.Len(), dir)
	return nil
}
