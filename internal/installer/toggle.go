// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
	"github.com/scarabmm/scarab/pkg/resolver"
)

// Toggle moves a materialized mod between the enabled and disabled
// folders. Enabling first enables any disabled dependencies. When the
// destination folder already exists the Confirmer decides; declining
// returns ErrOverwriteDeclined and changes nothing.
func (in *Installer) Toggle(ctx context.Context, item *catalog.Item) error {
	return in.withToggleLock(ctx, "toggle", func() error {
		return in.toggleLocked(ctx, make(map[string]bool), item)
	})
}

// SetEnabled toggles item only when its enablement differs from enabled.
func (in *Installer) SetEnabled(ctx context.Context, item *catalog.Item, enabled bool) error {
	op := "disable"
	if enabled {
		op = "enable"
	}
	return in.withToggleLock(ctx, op, func() error {
		st := item.State()
		if modstate.IsMaterialized(st) && modstate.IsEnabled(st) == enabled {
			return nil
		}
		return in.toggleLocked(ctx, make(map[string]bool), item)
	})
}

func (in *Installer) toggleLocked(ctx context.Context, seen map[string]bool, item *catalog.Item) error {
	name := item.Name()
	original := item.State()
	next, err := modstate.Toggle(original)
	if err != nil {
		return err
	}
	if modstate.IsBusy(original) {
		next = modstate.MarkBusy(next)
	}
	seen[name] = true

	wasEnabled := modstate.IsEnabled(original)
	from := in.layout.ModDir(name, wasEnabled)
	to := in.layout.ModDir(name, !wasEnabled)

	collision, err := exists(to)
	if err != nil {
		return ioErr("inspect", to, err)
	}
	if collision {
		ok, err := in.confirmer.ConfirmOverwrite(ctx, name, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s already exists", ErrOverwriteDeclined, to)
		}
	}

	if !wasEnabled {
		if err := in.enableDependenciesLocked(ctx, seen, item); err != nil {
			return err
		}
	}

	if collision {
		if err := os.RemoveAll(to); err != nil {
			return ioErr("delete", to, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return ioErr("create", filepath.Dir(to), err)
	}
	if err := os.Rename(from, to); err != nil {
		return ioErr("move", from, err)
	}

	in.logger.Info("toggled mod", "mod", name, "enabled", !wasEnabled)
	return in.commit(item, next)
}

// enableDependenciesLocked enables the disabled direct dependencies of
// item, recursively. Dependencies that are not installed are reported and
// skipped.
func (in *Installer) enableDependenciesLocked(ctx context.Context, seen map[string]bool, item *catalog.Item) error {
	deps, err := in.resolver.Dependencies(item)
	var missing *resolver.MissingDependencyError
	if errors.As(err, &missing) {
		in.logger.Warn("dependency not in catalog", "mod", item.Name(), "dependency", missing.Dependency)
		return nil
	}
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if seen[dep.Name()] {
			continue
		}
		st := dep.State()
		switch {
		case !modstate.IsMaterialized(st):
			in.logger.Warn("dependency is not installed", "mod", item.Name(), "dependency", dep.Name())
		case !modstate.IsEnabled(st):
			if err := in.toggleLocked(ctx, seen, dep); err != nil {
				return fmt.Errorf("enable dependency %s of %s: %w", dep.Name(), item.Name(), err)
			}
		}
	}
	return nil
}

// Pin sets or clears the pinned flag. Pinning requires an enabled mod.
func (in *Installer) Pin(ctx context.Context, item *catalog.Item, pinned bool) error {
	return in.withToggleLock(ctx, "pin", func() error {
		next, err := modstate.Pin(item.State(), pinned)
		if err != nil {
			return err
		}
		return in.commit(item, next)
	})
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
