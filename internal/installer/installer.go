// SPDX-License-Identifier: MPL-2.0

// Package installer performs every mutation of mod state: install, update,
// uninstall, enable/disable, pin and the host runtime (API) swap.
//
// Install, uninstall and API operations serialize through one binary
// semaphore; toggles and pins through a second one so a slow download never
// blocks enabling a mod. When both are needed the install lock is taken
// first. Exported methods acquire locks; the *Locked helpers assume they
// are held, which lets dependency cascades recurse without re-acquiring.
//
// Every operation snapshots the item's state first and restores it when
// the operation fails before committing the new state.
package installer

import (
	"context"
	"errors"
	"io"

	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/internal/metrics"
	"github.com/scarabmm/scarab/internal/modcache"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
	"github.com/scarabmm/scarab/pkg/resolver"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
)

type (
	// Registry is the persistence the installer writes through.
	Registry interface {
		RecordMaterialized(item *catalog.Item) error
		RecordUninstall(item *catalog.Item) error
		RecordAPIState(s modstate.State) error
		APIState() modstate.State
	}

	// Downloader fetches payloads. *fetch.Client implements it.
	Downloader interface {
		Download(ctx context.Context, url string, progress fetch.ProgressFunc) (*fetch.Payload, error)
	}

	// Confirmer asks the user before a destructive overwrite.
	Confirmer interface {
		ConfirmOverwrite(ctx context.Context, name, path string) (bool, error)
	}

	// ConfirmFunc adapts a function to Confirmer.
	ConfirmFunc func(ctx context.Context, name, path string) (bool, error)

	// ProgressFunc receives download progress per mod.
	ProgressFunc func(name string, p fetch.Progress)

	// Options wires an Installer.
	Options struct {
		Catalog    *catalog.Catalog
		Registry   Registry
		Layout     layout.Layout
		Downloader Downloader
		// Cache may be nil to disable caching.
		Cache *modcache.Cache
		// Confirmer may be nil, in which case overwrites are declined.
		Confirmer Confirmer
		Progress  ProgressFunc
		Logger    *log.Logger
		Metrics   *metrics.Metrics
	}

	// Installer orchestrates mod operations. It is safe for concurrent use.
	Installer struct {
		catalog    *catalog.Catalog
		resolver   *resolver.Resolver
		registry   Registry
		layout     layout.Layout
		downloader Downloader
		cache      *modcache.Cache
		confirmer  Confirmer
		progress   ProgressFunc
		logger     *log.Logger
		metrics    *metrics.Metrics

		installLock *semaphore.Weighted
		toggleLock  *semaphore.Weighted
	}

	declineAll struct{}
)

// ConfirmOverwrite implements Confirmer.
func (f ConfirmFunc) ConfirmOverwrite(ctx context.Context, name, path string) (bool, error) {
	return f(ctx, name, path)
}

func (declineAll) ConfirmOverwrite(context.Context, string, string) (bool, error) {
	return false, nil
}

// New validates opts and builds an Installer.
func New(opts Options) (*Installer, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.New("installer: catalog is required")
	case opts.Registry == nil:
		return nil, errors.New("installer: registry is required")
	case opts.Downloader == nil:
		return nil, errors.New("installer: downloader is required")
	case opts.Layout.Managed == "":
		return nil, errors.New("installer: managed path is required")
	}

	in := &Installer{
		catalog:     opts.Catalog,
		resolver:    resolver.New(opts.Catalog),
		registry:    opts.Registry,
		layout:      opts.Layout,
		downloader:  opts.Downloader,
		cache:       opts.Cache,
		confirmer:   opts.Confirmer,
		progress:    opts.Progress,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		installLock: semaphore.NewWeighted(1),
		toggleLock:  semaphore.NewWeighted(1),
	}
	if in.confirmer == nil {
		in.confirmer = declineAll{}
	}
	if in.logger == nil {
		in.logger = log.New(io.Discard)
	}
	if in.cache == nil {
		in.cache = modcache.New("", modcache.WithDisabled(true))
	}
	return in, nil
}

// Catalog returns the catalog the installer mutates.
func (in *Installer) Catalog() *catalog.Catalog { return in.catalog }

// Resolver returns the dependency resolver over the same catalog.
func (in *Installer) Resolver() *resolver.Resolver { return in.resolver }

// withInstallLock runs fn under the install lock and counts the outcome.
func (in *Installer) withInstallLock(ctx context.Context, op string, fn func() error) (err error) {
	defer func() { in.metrics.ObserveOperation(op, err) }()
	if err := in.installLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer in.installLock.Release(1)
	return fn()
}

// withToggleLock runs fn under the toggle lock and counts the outcome.
func (in *Installer) withToggleLock(ctx context.Context, op string, fn func() error) (err error) {
	defer func() { in.metrics.ObserveOperation(op, err) }()
	if err := in.toggleLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer in.toggleLock.Release(1)
	return fn()
}

// underToggleLock runs fn holding the toggle lock. Install-locked work uses
// it around every state change a concurrent toggle could race.
func (in *Installer) underToggleLock(ctx context.Context, fn func() error) error {
	if err := in.toggleLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer in.toggleLock.Release(1)
	return fn()
}

// commit replaces the state of item and persists it. A persistence failure
// keeps the new state, since disk already reflects it.
func (in *Installer) commit(item *catalog.Item, next modstate.State) error {
	item.SetState(next)
	if err := in.registry.RecordMaterialized(item); err != nil {
		in.logger.Error("registry write failed after disk change", "mod", item.Name(), "err", err)
		return &PersistError{Mod: item.Name(), Err: err}
	}
	return nil
}

// restoreOnError puts original back when *errp is set and the operation
// did not reach its commit.
func restoreOnError(item *catalog.Item, original modstate.State, committed *bool, errp *error) {
	if *errp != nil && !*committed {
		item.SetState(original)
	}
}
