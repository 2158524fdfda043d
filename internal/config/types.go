// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config holds the application configuration.
	Config struct {
		// ManagedPath is the host's managed folder holding Mods/ and the API assembly.
		ManagedPath string `json:"managed_path" mapstructure:"managed_path"`
		// RegistryPath is the installed-mods record. Defaults to
		// <config dir>/InstalledMods.json.
		RegistryPath string `json:"registry_path" mapstructure:"registry_path"`
		// CacheDir overrides the download cache location.
		CacheDir string `json:"cache_dir" mapstructure:"cache_dir"`
		// CatalogPath is the catalog document (JSON or CUE).
		CatalogPath string `json:"catalog_path" mapstructure:"catalog_path"`
		// LowStorage disables the download cache.
		LowStorage bool `json:"low_storage" mapstructure:"low_storage"`
		// DownloadTimeout bounds a single download.
		DownloadTimeout time.Duration `json:"download_timeout" mapstructure:"download_timeout"`
		UI              UIConfig      `json:"ui" mapstructure:"ui"`
		Metrics         MetricsConfig `json:"metrics" mapstructure:"metrics"`
		Watch           WatchConfig   `json:"watch" mapstructure:"watch"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// AssumeYes answers every confirmation with yes.
		AssumeYes bool `json:"assume_yes" mapstructure:"assume_yes"`
	}

	// MetricsConfig configures the Prometheus textfile export.
	MetricsConfig struct {
		// Textfile receives the metrics after each run when set.
		Textfile string `json:"textfile" mapstructure:"textfile"`
	}

	// WatchConfig configures the mod folder watcher.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore holds doublestar patterns matched against paths relative
		// to the Mods folder.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// InvalidConfigError collects the field-level problems of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		DownloadTimeout: 5 * time.Minute,
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Ignore:   []string{"**/*.tmp", "**/.*"},
		},
	}
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	for name, p := range map[string]string{
		"managed_path":     c.ManagedPath,
		"registry_path":    c.RegistryPath,
		"catalog_path":     c.CatalogPath,
		"cache_dir":        c.CacheDir,
		"metrics.textfile": c.Metrics.Textfile,
	} {
		if p != "" && strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%s: path is whitespace only", name))
		}
	}
	if c.ManagedPath != "" && !filepath.IsAbs(c.ManagedPath) {
		errs = append(errs, fmt.Errorf("managed_path: %q must be absolute", c.ManagedPath))
	}
	if c.DownloadTimeout < 0 {
		errs = append(errs, fmt.Errorf("download_timeout: %s is negative", c.DownloadTimeout))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: %s is negative", c.Watch.Debounce))
	}
	for i, pattern := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("watch.ignore[%d]: invalid pattern %q", i, pattern))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
