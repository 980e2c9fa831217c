// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bending/bendboot/internal/bootstrap"
	"github.com/bending/bendboot/internal/issue"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/pkg/manifest"
)

// issueStyle lets glamour pick a style, falling back to plain text off a terminal.
const issueStyle = "auto"

// issueFor maps a failure kind to its catalog entry.
func issueFor(kind bootstrap.FailureKind) (issue.Id, bool) {
	switch kind {
	case bootstrap.KindUnsupportedHost:
		return issue.UnsupportedHostId, true
	case bootstrap.KindHostNotDetected:
		return issue.HostNotDetectedId, true
	case bootstrap.KindManifestParse:
		return issue.ManifestParseId, true
	case bootstrap.KindFetchFailure:
		return issue.DependencyFetchId, true
	case bootstrap.KindTimeoutFailure:
		return issue.DependencyTimeoutId, true
	case bootstrap.KindIntegrityFailure:
		return issue.DependencyIntegrityId, true
	default:
		return 0, false
	}
}

func exitCodeFor(kind bootstrap.FailureKind) int {
	switch kind {
	case bootstrap.KindUnsupportedHost:
		return ExitUnsupportedHost
	case bootstrap.KindHostNotDetected:
		return ExitHostNotDetected
	case bootstrap.KindManifestParse:
		return ExitManifestInvalid
	case bootstrap.KindFetchFailure, bootstrap.KindTimeoutFailure:
		return ExitDependency
	case bootstrap.KindIntegrityFailure:
		return ExitIntegrity
	default:
		return ExitFailure
	}
}

// actionableFor wraps err with the operation, resource and suggestions matching its kind.
func actionableFor(kind bootstrap.FailureKind, err error) *issue.ActionableError {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae
	}

	ec := issue.NewErrorContext().Wrap(err)
	switch kind {
	case bootstrap.KindUnsupportedHost:
		ec.WithOperation("select adapter").
			WithSuggestion("Run 'bendboot adapters list' to see supported versions").
			WithSuggestion("Update the server to a supported version")
		var uhe *registry.UnsupportedHostError
		if errors.As(err, &uhe) {
			ec.WithResource(fmt.Sprintf("%s %s", uhe.Platform, uhe.Version))
		}
	case bootstrap.KindHostNotDetected:
		ec.WithOperation("detect host").
			WithSuggestion("Set BENDBOOT_HOST_PLATFORM and BENDBOOT_HOST_VERSION").
			WithSuggestion("Configure host.pin_file or host.version_file")
	case bootstrap.KindManifestParse:
		ec.WithOperation("load dependency manifest").
			WithSuggestion("Re-download the plugin; the bundled manifest is damaged")
		var pe *manifest.ParseError
		if errors.As(err, &pe) {
			ec.WithResource(pe.Source)
		}
	case bootstrap.KindFetchFailure, bootstrap.KindTimeoutFailure:
		ec.WithOperation("provision dependencies").
			WithSuggestion("Check network access to the configured sources").
			WithSuggestion("Add a mirror or a file:// source to the config")
		var fe *provision.FetchError
		if errors.As(err, &fe) {
			ec.WithResource(fe.Entry.String())
		}
	case bootstrap.KindIntegrityFailure:
		ec.WithOperation("verify dependencies").
			WithSuggestion("Check whether a proxy or mirror rewrites downloads")
		var ie *provision.IntegrityError
		if errors.As(err, &ie) {
			ec.WithResource(ie.Entry.String())
		}
	default:
		ec.WithOperation("start")
	}
	return ec.Build()
}

// fail renders err with its catalog issue and returns the ExitError for RunE.
func (a *App) fail(err error) error {
	kind := bootstrap.Classify(err)
	ae := actionableFor(kind, err)

	if id, ok := issueFor(kind); ok {
		if rendered, rerr := issue.Get(id).Render(issueStyle); rerr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	fmt.Fprintln(a.stderr, ErrorStyle.Render("✗ ")+ae.Format(a.verbose))

	return &ExitError{Code: exitCodeFor(kind), Err: ae}
}

// failConfig renders a configuration failure.
func (a *App) failConfig(err error) error {
	if rendered, rerr := issue.Get(issue.ConfigLoadFailedId).Render(issueStyle); rerr == nil {
		fmt.Fprint(a.stderr, rendered)
	}
	msg := err.Error()
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		msg = ae.Format(a.verbose)
	}
	fmt.Fprintln(a.stderr, ErrorStyle.Render("✗ ")+msg)
	return &ExitError{Code: ExitConfig, Err: err}
}

func joinFeatures[T ~string](fs []T) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
