// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bending/bendboot/internal/issue"
	"github.com/bending/bendboot/pkg/cueutil"
	"github.com/bending/bendboot/pkg/platform"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "bendboot"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "BENDBOOT"
	// ConfigDirEnv replaces the platform config directory when set.
	ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the bendboot configuration directory. ConfigDirEnv wins;
// otherwise platform conventions apply: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves configuration from opts and returns it together with the path of the
// file it was read from ("" when only defaults and environment overrides apply).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bendboot config init' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'bendboot config show' for the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check " + EnvPrefix + "_* environment overrides").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("plugin_id", d.PluginID)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("libraries_dir", d.LibrariesDir)
	v.SetDefault("manifest_file", d.ManifestFile)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("fetch_timeout", d.FetchTimeout)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("sources", d.Sources)
	v.SetDefault("host.platform", d.Host.Platform)
	v.SetDefault("host.version", d.Host.Version)
	v.SetDefault("host.version_file", d.Host.VersionFile)
	v.SetDefault("host.pin_file", d.Host.PinFile)
	v.SetDefault("allow_overlapping_descriptors", d.AllowOverlappingDescriptors)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into Viper,
// keeping defaults for absent keys and leaving env overrides on top.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config into configDirPath (or ConfigDir when
// empty) unless a config file already exists. It returns the file path and whether it
// was created.
func CreateDefaultConfig(configDirPath string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(configDirPath)
	if err != nil {
		return "", false, err
	}
	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}
	if err := Save(DefaultConfig(), cfgPath); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes cfg as CUE to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bendboot configuration file\n")
	sb.WriteString("// Every key may be overridden with a BENDBOOT_<KEY> environment variable.\n\n")

	fmt.Fprintf(&sb, "plugin_id: %q\n", cfg.PluginID)
	fmt.Fprintf(&sb, "data_dir:  %q\n", cfg.DataDir)
	if cfg.CacheDir != "" {
		fmt.Fprintf(&sb, "cache_dir: %q\n", cfg.CacheDir)
	}
	if cfg.LibrariesDir != "" {
		fmt.Fprintf(&sb, "libraries_dir: %q\n", cfg.LibrariesDir)
	}
	if cfg.ManifestFile != "" {
		fmt.Fprintf(&sb, "manifest_file: %q\n", cfg.ManifestFile)
	}
	fmt.Fprintf(&sb, "workers: %d\n", cfg.Workers)
	fmt.Fprintf(&sb, "fetch_timeout: %q\n", cfg.FetchTimeout.String())
	fmt.Fprintf(&sb, "retries: %d\n", cfg.Retries)
	if cfg.LogLevel != "" {
		fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)
	}

	sb.WriteString("\nsources: [\n")
	for _, s := range cfg.Sources {
		if s.TokenEnv != "" {
			fmt.Fprintf(&sb, "\t{name: %q, url: %q, token_env: %q},\n", s.Name, s.URL, s.TokenEnv)
		} else {
			fmt.Fprintf(&sb, "\t{name: %q, url: %q},\n", s.Name, s.URL)
		}
	}
	sb.WriteString("]\n")

	h := cfg.Host
	if h != (HostConfig{}) {
		sb.WriteString("\nhost: {\n")
		for _, kv := range [][2]string{
			{"platform", h.Platform},
			{"version", h.Version},
			{"version_file", h.VersionFile},
			{"pin_file", h.PinFile},
		} {
			if kv[1] != "" {
				fmt.Fprintf(&sb, "\t%s: %q\n", kv[0], kv[1])
			}
		}
		sb.WriteString("}\n")
	}

	if cfg.AllowOverlappingDescriptors {
		sb.WriteString("\nallow_overlapping_descriptors: true\n")
	}

	return sb.String()
}
