// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bending/bendboot/internal/adapters"
	"github.com/bending/bendboot/internal/bootstrap"
	"github.com/bending/bendboot/internal/config"
	"github.com/bending/bendboot/internal/hostprobe"
	"github.com/bending/bendboot/internal/loader"
	"github.com/bending/bendboot/internal/provision"
	"github.com/bending/bendboot/internal/registry"
	"github.com/bending/bendboot/internal/resolver"
	"github.com/bending/bendboot/pkg/hostversion"
	"github.com/bending/bendboot/pkg/manifest"
	"github.com/bending/bendboot/pkg/platform"
)

// newLogger builds the CLI logger. --verbose forces debug.
func (a *App) newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "bendboot",
	})
	level := log.InfoLevel
	if cfg.LogLevel != "" {
		if parsed, err := log.ParseLevel(cfg.LogLevel.String()); err == nil {
			level = parsed
		}
	}
	if a.verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

// newProbe chains the host probes in priority order: environment, configured host,
// pin file, then the server's version.json.
func newProbe(cfg *config.Config) (hostprobe.Probe, error) {
	chain := hostprobe.Chain{hostprobe.Env{}}

	h := cfg.Host
	var id platform.ID
	if h.Platform != "" {
		var err error
		if id, err = platform.Parse(h.Platform); err != nil {
			return nil, err
		}
	}
	if h.Version != "" {
		v, err := hostversion.Parse(h.Version)
		if err != nil {
			return nil, err
		}
		chain = append(chain, hostprobe.Static{Platform: id, Version: v, Source: "config"})
	}
	if h.PinFile != "" {
		chain = append(chain, hostprobe.PinFile{Path: h.PinFile})
	}
	if h.VersionFile != "" {
		chain = append(chain, hostprobe.VersionJSON{Path: h.VersionFile, Platform: id})
	}
	return chain, nil
}

func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.New(adapters.Descriptors(), registry.AllowOverlaps(cfg.AllowOverlappingDescriptors))
}

// newSources builds fetch sources in configured order.
func (a *App) newSources(cfg *config.Config) ([]provision.Source, error) {
	sources := make([]provision.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		if sc.IsLocal() {
			sources = append(sources, provision.DirSource{Root: sc.LocalPath()})
			continue
		}
		opts := []provision.HTTPOption{provision.WithUserAgent("bendboot/" + Version)}
		if sc.TokenEnv != "" {
			if token := a.Getenv(sc.TokenEnv); token != "" {
				opts = append(opts, provision.WithToken(token))
			}
		}
		src, err := provision.NewHTTPSource(sc.Name, sc.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (a *App) newProvisioner(cfg *config.Config, logger *log.Logger) (*provision.Provisioner, error) {
	cache, err := provision.NewCache(cfg.ResolvedCacheDir())
	if err != nil {
		return nil, err
	}
	sources, err := a.newSources(cfg)
	if err != nil {
		return nil, err
	}
	return provision.New(cache, cfg.PluginID,
		provision.WithSources(sources...),
		provision.WithWorkers(cfg.Workers),
		provision.WithFetchTimeout(cfg.FetchTimeout),
		provision.WithRetries(cfg.Retries),
		provision.WithLogger(logger),
	), nil
}

// readManifest returns the configured manifest resource, or nil for the embedded one.
func readManifest(cfg *config.Config) ([]byte, string, error) {
	if cfg.ManifestFile == "" {
		return nil, bootstrap.EmbeddedManifestName, nil
	}
	data, err := os.ReadFile(cfg.ManifestFile)
	if err != nil {
		return nil, "", fmt.Errorf("reading manifest: %w", err)
	}
	return data, cfg.ManifestFile, nil
}

func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	data, name, err := readManifest(cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.LoadManifest(data, name)
}

func librariesFunc(cfg *config.Config) func() (resolver.Snapshot, error) {
	dir := cfg.ResolvedLibrariesDir()
	return func() (resolver.Snapshot, error) { return resolver.ScanLibraries(dir) }
}

// newSequence assembles the startup sequence from configuration.
func (a *App) newSequence(cfg *config.Config, logger *log.Logger) (*bootstrap.Sequence, error) {
	probe, err := newProbe(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	prov, err := a.newProvisioner(cfg, logger)
	if err != nil {
		return nil, err
	}
	data, name, err := readManifest(cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewSequence(bootstrap.Dependencies{
		Loader:       loader.New(probe, reg, loader.WithLogger(logger)),
		Provisioner:  prov,
		Manifest:     data,
		ManifestName: name,
		Libraries:    librariesFunc(cfg),
		Logger:       logger,
	}), nil
}
