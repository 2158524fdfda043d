// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"

	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// CleanupOptions configures RemoveUnusedDependencies.
type CleanupOptions struct {
	// Uninstall removes unused dependencies instead of disabling them.
	Uninstall bool
	// SkipPinned leaves pinned dependencies alone instead of failing with
	// a *PinConflictError.
	SkipPinned bool
}

// DisableAll disables every enabled mod that is not pinned and returns the
// names it disabled.
func (in *Installer) DisableAll(ctx context.Context) ([]string, error) {
	var done []string
	err := in.withToggleLock(ctx, "disable-all", func() error {
		for _, item := range in.catalog.Items() {
			st := item.State()
			if !modstate.IsEnabled(st) {
				continue
			}
			if modstate.IsPinned(st) {
				in.logger.Debug("skipping pinned mod", "mod", item.Name())
				continue
			}
			if err := in.toggleLocked(ctx, make(map[string]bool), item); err != nil {
				return err
			}
			done = append(done, item.Name())
		}
		return nil
	})
	return done, err
}

// UninstallAll uninstalls every materialized mod that is not pinned and
// returns the names it removed.
func (in *Installer) UninstallAll(ctx context.Context) ([]string, error) {
	var done []string
	err := in.withInstallLock(ctx, "uninstall-all", func() error {
		for _, item := range in.catalog.Items() {
			st := item.State()
			if !modstate.IsMaterialized(st) {
				continue
			}
			if modstate.IsPinned(st) {
				in.logger.Debug("skipping pinned mod", "mod", item.Name())
				continue
			}
			if err := in.uninstallLocked(ctx, item); err != nil {
				return err
			}
			done = append(done, item.Name())
		}
		return nil
	})
	return done, err
}

// RemoveUnusedDependencies disables (or uninstalls) the dependencies of
// item that nothing else needs. Pinned dependencies fail the whole sweep
// with a *PinConflictError naming them, unless SkipPinned is set.
func (in *Installer) RemoveUnusedDependencies(ctx context.Context, item *catalog.Item, opts CleanupOptions) ([]string, error) {
	op := "disable"
	lock := in.withToggleLock
	if opts.Uninstall {
		op = "uninstall"
		lock = in.withInstallLock
	}

	var done []string
	err := lock(ctx, "cleanup", func() error {
		unused, err := in.resolver.UnusedDependencies(item)
		if err != nil {
			return err
		}

		var targets []*catalog.Item
		var pinned []string
		for _, dep := range unused {
			st := dep.State()
			if !opts.Uninstall && !modstate.IsEnabled(st) {
				continue
			}
			if modstate.IsPinned(st) {
				pinned = append(pinned, dep.Name())
				continue
			}
			targets = append(targets, dep)
		}
		if len(pinned) > 0 && !opts.SkipPinned {
			return &PinConflictError{Op: op, Target: item.Name(), Pinned: pinned}
		}

		for _, dep := range targets {
			var err error
			if opts.Uninstall {
				err = in.uninstallLocked(ctx, dep)
			} else {
				err = in.toggleLocked(ctx, make(map[string]bool), dep)
			}
			if err != nil {
				return err
			}
			done = append(done, dep.Name())
		}
		return nil
	})
	return done, err
}
