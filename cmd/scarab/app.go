// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scarabmm/scarab/internal/config"
	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/internal/installer"
	"github.com/scarabmm/scarab/internal/issue"
	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/internal/metrics"
	"github.com/scarabmm/scarab/internal/modcache"
	"github.com/scarabmm/scarab/internal/registry"
	"github.com/scarabmm/scarab/pkg/catalog"

	"github.com/charmbracelet/log"
)

// annotationNoEngine marks commands that only need configuration.
const annotationNoEngine = "scarab/no-engine"

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// Prompter asks yes/no questions. The CLI uses huh on a terminal.
	Prompter interface {
		Confirm(ctx context.Context, title, description string) (bool, error)
	}

	// Dependencies are the injection points of NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config     ConfigProvider
		Downloader installer.Downloader
		Prompter   Prompter
		Getenv     func(string) string
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// App is the composition root of the CLI: config, catalog, registry and
	// installer are built once per invocation in Open and shared by every
	// command handler.
	App struct {
		flags rootFlags
		deps  Dependencies

		stdout io.Writer
		stderr io.Writer

		Config    *config.Config
		Logger    *log.Logger
		Metrics   *metrics.Metrics
		Layout    layout.Layout
		Catalog   *catalog.Catalog
		Registry  *registry.Registry
		Installer *installer.Installer
		Cache     *modcache.Cache

		closed bool
	}
)

// NewApp creates an App. Nothing is loaded until Open.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	return &App{
		deps:   deps,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		Logger: log.New(io.Discard),
	}
}

func (a *App) verbose() bool {
	return a.flags.verbose || (a.Config != nil && a.Config.UI.Verbose)
}

func (a *App) assumeYes() bool {
	return a.flags.assumeYes || (a.Config != nil && a.Config.UI.AssumeYes)
}

// loadConfig resolves configuration and applies flag overrides.
func (a *App) loadConfig(ctx context.Context) error {
	if a.Config != nil {
		return nil
	}
	cfg, err := a.deps.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configFile,
		Getenv:         a.deps.Getenv,
	})
	if err != nil {
		return err
	}
	if a.flags.managed != "" {
		cfg.ManagedPath = a.flags.managed
	}
	if a.flags.catalog != "" {
		cfg.CatalogPath = a.flags.catalog
	}
	if a.flags.registry != "" {
		cfg.RegistryPath = a.flags.registry
	}
	a.Config = cfg

	level := log.InfoLevel
	if a.verbose() {
		level = log.DebugLevel
	}
	a.Logger = log.NewWithOptions(a.stderr, log.Options{Prefix: "scarab", Level: level})
	return nil
}

// Open builds the engine: catalog, registry (reconciled against disk),
// cache, downloader and installer.
func (a *App) Open(ctx context.Context) error {
	if err := a.loadConfig(ctx); err != nil {
		return err
	}
	if a.Installer != nil {
		return nil
	}
	cfg := a.Config

	if cfg.ManagedPath == "" {
		return issue.NewErrorContext().
			WithOperation("locate the managed folder").
			WithSuggestion("Set managed_path in config.cue or pass --managed").
			Wrap(errors.New("managed path is not configured")).
			BuildError()
	}
	a.Layout = layout.New(cfg.ManagedPath)
	if err := a.Layout.EnsureDirs(); err != nil {
		return issue.WrapWithContext(err, "prepare mod folders", cfg.ManagedPath)
	}

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load catalog").
			WithResource(cfg.CatalogPath).
			WithSuggestion("Set catalog_path in config.cue or pass --catalog").
			WithPage(issue.CatalogLoadFailedId).
			Wrap(err).
			BuildError()
	}
	a.Catalog = cat

	a.Metrics = metrics.New()

	reg, err := registry.Load(ctx, registry.Options{
		Path:    cfg.RegistryPath,
		Layout:  a.Layout,
		Catalog: cat,
		Logger:  a.Logger.WithPrefix("registry"),
	})
	if err != nil {
		return issue.WrapWithContext(err, "load installed mods", cfg.RegistryPath)
	}
	if err := reg.Attach(cat); err != nil {
		return issue.WrapWithContext(err, "load installed mods", cfg.RegistryPath)
	}
	a.Registry = reg

	a.Cache = a.openCache()

	dl := a.deps.Downloader
	if dl == nil {
		dl = fetch.New(
			fetch.WithTimeout(cfg.DownloadTimeout),
			fetch.WithUserAgent("scarab/"+Version),
		)
	}

	in, err := installer.New(installer.Options{
		Catalog:    cat,
		Registry:   reg,
		Layout:     a.Layout,
		Downloader: dl,
		Cache:      a.Cache,
		Confirmer:  a.overwriteConfirmer(),
		Progress:   a.logProgress,
		Logger:     a.Logger.WithPrefix("installer"),
		Metrics:    a.Metrics,
	})
	if err != nil {
		return err
	}
	a.Installer = in
	return nil
}

func (a *App) openCache() *modcache.Cache {
	logger := a.Logger.WithPrefix("cache")
	if a.Config.LowStorage {
		return modcache.New("", modcache.WithDisabled(true), modcache.WithLogger(logger))
	}
	dir := a.Config.CacheDir
	if dir == "" {
		d, err := modcache.DefaultDirWith(a.deps.Getenv)
		if err != nil {
			a.Logger.Warn("no cache directory, caching disabled", "err", err)
			return modcache.New("", modcache.WithDisabled(true), modcache.WithLogger(logger))
		}
		dir = d
	}
	return modcache.New(dir, modcache.WithLogger(logger), modcache.WithMetrics(a.Metrics))
}

func (a *App) logProgress(name string, p fetch.Progress) {
	if p.Total > 0 && p.Downloaded == p.Total {
		a.Logger.Debug("download complete", "mod", name, "bytes", p.Total)
	}
}

// Close exports metrics when configured. It is safe to call twice.
func (a *App) Close() error {
	if a.closed || a.Config == nil || a.Metrics == nil {
		return nil
	}
	a.closed = true
	if path := a.Config.Metrics.Textfile; path != "" {
		if err := a.Metrics.WriteTextfile(path); err != nil {
			return issue.WrapWithContext(err, "write metrics", path)
		}
	}
	return nil
}

// item looks up a mod by name.
func (a *App) item(name string) (*catalog.Item, error) {
	item, ok := a.Catalog.Get(name)
	if !ok {
		return nil, issue.NewErrorContext().
			WithOperation("find mod").
			WithResource(name).
			WithSuggestion("Run 'scarab list' to see the catalog").
			Wrap(fmt.Errorf("mod %q is not in the catalog", name)).
			BuildError()
	}
	return item, nil
}

func (a *App) items(names []string) ([]*catalog.Item, error) {
	out := make([]*catalog.Item, 0, len(names))
	for _, name := range names {
		item, err := a.item(name)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
