// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// DefaultPluginID namespaces the isolation boundary when no plugin_id is configured.
	DefaultPluginID = "bending"
	// DefaultSourceURL is Maven Central.
	DefaultSourceURL = "https://repo.maven.apache.org/maven2"

	maxWorkers = 64
	maxRetries = 10
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidSource is the sentinel error wrapped by InvalidSourceError.
	ErrInvalidSource = errors.New("invalid source")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	// pluginIDPattern matches the plugin field accepted by the manifest schema.
	pluginIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidSourceError is returned when a SourceConfig has invalid fields.
	InvalidSourceError struct {
		Name   string
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// SourceConfig describes one artifact repository. Sources are tried in order.
	SourceConfig struct {
		Name string `json:"name" mapstructure:"name"`
		// URL is an http(s) repository root or a file:// mirror directory.
		URL string `json:"url" mapstructure:"url"`
		// TokenEnv names the environment variable holding a bearer token.
		TokenEnv string `json:"token_env,omitempty" mapstructure:"token_env"`
	}

	// HostConfig pins or locates the host instead of relying on detection alone.
	HostConfig struct {
		Platform    string `json:"platform,omitempty" mapstructure:"platform"`
		Version     string `json:"version,omitempty" mapstructure:"version"`
		VersionFile string `json:"version_file,omitempty" mapstructure:"version_file"`
		PinFile     string `json:"pin_file,omitempty" mapstructure:"pin_file"`
	}

	// Config holds the application configuration.
	Config struct {
		// PluginID namespaces provisioned libraries.
		PluginID string `json:"plugin_id" mapstructure:"plugin_id"`
		// DataDir is the plugin data folder; relative cache and library paths resolve against it.
		DataDir string `json:"data_dir" mapstructure:"data_dir"`
		// CacheDir defaults to <data_dir>/cache.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// LibrariesDir holds the libraries the host already loaded. Defaults to <data_dir>/libraries.
		LibrariesDir string `json:"libraries_dir" mapstructure:"libraries_dir"`
		// ManifestFile replaces the embedded dependency manifest when set.
		ManifestFile string         `json:"manifest_file,omitempty" mapstructure:"manifest_file"`
		Workers      int            `json:"workers" mapstructure:"workers"`
		FetchTimeout time.Duration  `json:"fetch_timeout" mapstructure:"fetch_timeout"`
		Retries      int            `json:"retries" mapstructure:"retries"`
		LogLevel     LogLevel       `json:"log_level" mapstructure:"log_level"`
		Sources      []SourceConfig `json:"sources" mapstructure:"sources"`
		Host         HostConfig     `json:"host" mapstructure:"host"`
		// AllowOverlappingDescriptors downgrades overlapping adapter ranges to diagnostics.
		AllowOverlappingDescriptors bool `json:"allow_overlapping_descriptors" mapstructure:"allow_overlapping_descriptors"`
	}
)

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel so callers can use errors.Is for programmatic detection.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate returns nil if the LogLevel is one of the recognized levels.
// The zero value ("") is valid and means "info".
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Error implements the error interface.
func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidSource so callers can use errors.Is for programmatic detection.
func (e *InvalidSourceError) Unwrap() error { return ErrInvalidSource }

// Validate checks the name and URL of the source.
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &InvalidSourceError{Name: s.Name, Reason: "name is required"}
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return &InvalidSourceError{Name: s.Name, Reason: err.Error()}
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return &InvalidSourceError{Name: s.Name, Reason: "url has no host"}
		}
	case "file":
		if u.Path == "" {
			return &InvalidSourceError{Name: s.Name, Reason: "file url has no path"}
		}
	default:
		return &InvalidSourceError{Name: s.Name, Reason: fmt.Sprintf("unsupported url scheme %q", u.Scheme)}
	}
	return nil
}

// IsLocal reports whether the source is a file:// mirror directory.
func (s SourceConfig) IsLocal() bool {
	return strings.HasPrefix(s.URL, "file://")
}

// LocalPath returns the directory of a file:// source.
func (s SourceConfig) LocalPath() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is for programmatic detection.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the constraints the CUE schema cannot express after env overrides
// have been applied, returning an *InvalidConfigError listing every violation.
func (c *Config) Validate() error {
	var errs []error
	switch {
	case strings.TrimSpace(c.PluginID) == "":
		errs = append(errs, errors.New("plugin_id must not be empty"))
	case !pluginIDPattern.MatchString(c.PluginID):
		errs = append(errs, fmt.Errorf("plugin_id %q must match %s", c.PluginID, pluginIDPattern))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Workers < 1 || c.Workers > maxWorkers {
		errs = append(errs, fmt.Errorf("workers must be between 1 and %d, got %d", maxWorkers, c.Workers))
	}
	if c.Retries < 0 || c.Retries > maxRetries {
		errs = append(errs, fmt.Errorf("retries must be between 0 and %d, got %d", maxRetries, c.Retries))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Name] {
			errs = append(errs, &InvalidSourceError{Name: s.Name, Reason: "duplicate name"})
		}
		seen[s.Name] = true
	}
	if c.Host.Platform == "" && (c.Host.Version != "" || c.Host.VersionFile != "") {
		errs = append(errs, errors.New("host.version and host.version_file require host.platform"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ResolvedCacheDir returns CacheDir, defaulting to <data_dir>/cache.
func (c *Config) ResolvedCacheDir() string {
	return c.resolve(c.CacheDir, "cache")
}

// ResolvedLibrariesDir returns LibrariesDir, defaulting to <data_dir>/libraries.
func (c *Config) ResolvedLibrariesDir() string {
	return c.resolve(c.LibrariesDir, "libraries")
}

func (c *Config) resolve(path, fallback string) string {
	if path == "" {
		return filepath.Join(c.DataDir, fallback)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PluginID:     DefaultPluginID,
		DataDir:      filepath.Join("plugins", DefaultPluginID),
		Workers:      4,
		FetchTimeout: 30 * time.Second,
		Retries:      3,
		LogLevel:     LogLevelInfo,
		Sources: []SourceConfig{
			{Name: "central", URL: DefaultSourceURL},
		},
	}
}
