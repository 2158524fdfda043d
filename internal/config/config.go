// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/scarabmm/scarab/internal/issue"
	"github.com/scarabmm/scarab/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "scarab"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// RegistryFileName is the default registry file inside the config dir.
	RegistryFileName = "InstalledMods.json"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SCARAB"
)

//go:embed config_schema.cue
var configSchema []byte

// Dir returns the scarab configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS and $XDG_CONFIG_HOME (default
// ~/.config) elsewhere.
func Dir() (string, error) {
	return dirFor(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func dirFor(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	var base string
	switch goos {
	case "windows":
		base = getenv("APPDATA")
		if base == "" {
			base = filepath.Join(getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		h, err := home()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(h, "Library", "Application Support")
	default:
		base = getenv("XDG_CONFIG_HOME")
		if base == "" {
			h, err := home()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(h, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// loadWithOptions resolves defaults, the config file and environment
// overrides, in increasing precedence. It returns the path of the file
// that was read, or "" when defaults were used.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		d, err := Dir()
		if err != nil {
			return nil, "", err
		}
		cfgDir = d
	}

	v := viper.New()
	setDefaults(v, cfgDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if opts.Getenv != nil {
		for _, key := range v.AllKeys() {
			name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			if val := opts.Getenv(name); val != "" {
				v.Set(key, val)
			}
		}
	}

	path := opts.ConfigFilePath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	}

	resolved := ""
	switch ok, err := fileExists(path); {
	case err != nil:
		return nil, "", loadError(path, err)
	case !ok && explicit:
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'scarab config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	case ok:
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
		resolved = path
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", loadError(path, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolved).
			WithSuggestion("Paths must not be blank and managed_path must be absolute").
			WithPage(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, resolved, nil
}

func setDefaults(v *viper.Viper, cfgDir string) {
	d := DefaultConfig()
	v.SetDefault("managed_path", d.ManagedPath)
	v.SetDefault("registry_path", filepath.Join(cfgDir, RegistryFileName))
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("catalog_path", filepath.Join(cfgDir, "catalog.json"))
	v.SetDefault("low_storage", d.LowStorage)
	v.SetDefault("download_timeout", d.DownloadTimeout)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.assume_yes", d.UI.AssumeYes)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the values match the expected schema").
		WithPage(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper validates the file against #Config and merges it into v.
// Fields are optional, so the value is decoded non-concrete into a map.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(*configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// GenerateCUE renders cfg as a config file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// scarab configuration\n\n")
	writeString := func(key, val string) {
		if val != "" {
			fmt.Fprintf(&sb, "%s: %q\n", key, val)
		}
	}
	writeString("managed_path", cfg.ManagedPath)
	writeString("registry_path", cfg.RegistryPath)
	writeString("cache_dir", cfg.CacheDir)
	writeString("catalog_path", cfg.CatalogPath)
	fmt.Fprintf(&sb, "low_storage: %v\n", cfg.LowStorage)
	fmt.Fprintf(&sb, "download_timeout: %q\n", cfg.DownloadTimeout.String())

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tassume_yes: %v\n", cfg.UI.AssumeYes)
	sb.WriteString("}\n")

	if cfg.Metrics.Textfile != "" {
		fmt.Fprintf(&sb, "\nmetrics: textfile: %q\n", cfg.Metrics.Textfile)
	}

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	if len(cfg.Watch.Ignore) > 0 {
		sb.WriteString("\tignore: [")
		for i, p := range cfg.Watch.Ignore {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", p)
		}
		sb.WriteString("]\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Save writes cfg to config.cue in dir, creating dir when needed.
func Save(dir string, cfg *Config) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
