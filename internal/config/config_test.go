// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/scarabmm/scarab/internal/issue"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, path, err := LoadWithPath(t.Context(), LoadOptions{ConfigDirPath: dir, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	if cfg.RegistryPath != filepath.Join(dir, RegistryFileName) {
		t.Errorf("RegistryPath = %q", cfg.RegistryPath)
	}
	if cfg.DownloadTimeout != 5*time.Minute || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("durations = %s, %s", cfg.DownloadTimeout, cfg.Watch.Debounce)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	managed := filepath.Join(dir, "Managed")
	writeConfig(t, dir, `
managed_path: "`+filepath.ToSlash(managed)+`"
low_storage: true
download_timeout: "30s"
ui: verbose: true
watch: {
	debounce: "2s"
	ignore: ["**/*.bak"]
}
`)

	p := NewProvider()
	cfg, err := p.Load(t.Context(), LoadOptions{ConfigDirPath: dir, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if want := filepath.Join(dir, "config.cue"); p.Source() != want {
		t.Errorf("Source() = %q, want %q", p.Source(), want)
	}
	if filepath.Clean(cfg.ManagedPath) != managed || !cfg.LowStorage || !cfg.UI.Verbose {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.DownloadTimeout != 30*time.Second || cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("durations = %s, %s", cfg.DownloadTimeout, cfg.Watch.Debounce)
	}
	if !reflect.DeepEqual(cfg.Watch.Ignore, []string{"**/*.bak"}) {
		t.Errorf("Watch.Ignore = %v", cfg.Watch.Ignore)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "ui: assume_yes: false\n")
	env := map[string]string{
		"SCARAB_UI_ASSUME_YES":     "true",
		"SCARAB_DOWNLOAD_TIMEOUT": "1m",
	}
	cfg, err := NewProvider().Load(t.Context(), LoadOptions{
		ConfigDirPath: dir,
		Getenv:        func(k string) string { return env[k] },
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.UI.AssumeYes || cfg.DownloadTimeout != time.Minute {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, body, want string
	}{
		{"unknown field", "colour: true\n", "colour"},
		{"wrong type", "low_storage: \"yes\"\n", "low_storage"},
		{"bad duration", "download_timeout: \"soon\"\n", "download_timeout"},
		{"relative managed path", "managed_path: \"Managed\"\n", "absolute"},
		{"bad glob", "watch: ignore: [\"[\"]\n", "watch.ignore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			_, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir, Getenv: noEnv})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not actionable", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(t.Context(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
		Getenv:         noEnv,
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ManagedPath = filepath.Join(dir, "Managed")
	cfg.RegistryPath = filepath.Join(dir, "reg.json")
	cfg.CatalogPath = filepath.Join(dir, "catalog.json")
	cfg.Metrics.Textfile = filepath.Join(dir, "scarab.prom")
	cfg.UI.AssumeYes = true

	if _, err := Save(dir, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestDirFor(t *testing.T) {
	t.Parallel()

	home := func() (string, error) { return "/home/u", nil }
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	tests := []struct {
		goos string
		env  map[string]string
		want string
	}{
		{"linux", nil, filepath.Join("/home/u", ".config", AppName)},
		{"linux", map[string]string{"XDG_CONFIG_HOME": "/xdg"}, filepath.Join("/xdg", AppName)},
		{"darwin", nil, filepath.Join("/home/u", "Library", "Application Support", AppName)},
		{"windows", map[string]string{"APPDATA": "C:/AppData"}, filepath.Join("C:/AppData", AppName)},
	}
	for _, tt := range tests {
		got, err := dirFor(tt.goos, env(tt.env), home)
		if err != nil || got != tt.want {
			t.Errorf("dirFor(%s) = %q, %v; want %q", tt.goos, got, err, tt.want)
		}
	}
}
