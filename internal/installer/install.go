// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scarabmm/scarab/internal/archive"
	"github.com/scarabmm/scarab/internal/checksum"
	"github.com/scarabmm/scarab/internal/dag"
	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// installRun is the bookkeeping of one top-level install cascade.
type installRun struct {
	seen       map[string]bool
	apiChecked bool
}

func newInstallRun() *installRun {
	return &installRun{seen: make(map[string]bool)}
}

// Install places the catalog build of item, installing its dependencies
// first. With enable the mod and its dependencies end up enabled. With
// clearExisting loose files already in the mod folder are removed before
// the new payload is placed.
func (in *Installer) Install(ctx context.Context, item *catalog.Item, enable, clearExisting bool) error {
	return in.withInstallLock(ctx, "install", func() error {
		if err := in.planInstall(item); err != nil {
			return err
		}
		return in.installLocked(ctx, newInstallRun(), item, enable, clearExisting)
	})
}

// Update replaces an outdated mod (or a custom build of a catalog mod)
// with the catalog build, keeping its enabled and pinned flags. Mods that
// are up to date are left alone.
func (in *Installer) Update(ctx context.Context, item *catalog.Item) error {
	return in.withInstallLock(ctx, "update", func() error {
		st := item.State()
		if !modstate.UpdateAvailable(st) {
			return nil
		}
		if err := in.planInstall(item); err != nil {
			return err
		}
		return in.installLocked(ctx, newInstallRun(), item, modstate.IsEnabled(st), true)
	})
}

// planInstall resolves the full cascade before anything is touched, so a
// missing dependency fails the install up front. Cycles are only logged;
// the cascade visits each mod once.
func (in *Installer) planInstall(item *catalog.Item) error {
	order, err := in.resolver.InstallOrder(item)
	switch {
	case errors.Is(err, dag.ErrCycle):
		in.logger.Warn("dependency cycle, installing in discovery order", "mod", item.Name(), "err", err)
		return nil
	case err != nil:
		return err
	}
	names := make([]string, 0, len(order))
	for _, it := range order {
		names = append(names, it.Name())
	}
	in.logger.Debug("install plan", "mod", item.Name(), "order", names)
	return nil
}

func (in *Installer) installLocked(ctx context.Context, run *installRun, item *catalog.Item, enable, clearExisting bool) (err error) {
	name := item.Name()
	if run.seen[name] {
		return nil
	}
	run.seen[name] = true

	if !item.InCatalog() {
		return fmt.Errorf("cannot install %s: it is not in the catalog", name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := in.ensureAPILocked(ctx, run, enable); err != nil {
		return fmt.Errorf("prepare API for %s: %w", name, err)
	}

	m := item.Manifest()
	if st, ok := item.State().(modstate.Installed); ok && st.Updated {
		if enable && !st.Enabled {
			return in.enableFromInstall(ctx, item)
		}
		in.logger.Debug("already up to date", "mod", name, "version", st.Version)
		return nil
	}
	if !m.HasHash() {
		in.logger.Warn("catalog declares no hash, payload will not be verified", "mod", name)
	}

	original, err := in.markBusy(ctx, item, m.Version, enable)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if err != nil && !committed {
			in.clearBusy(item)
		}
	}()

	if err := in.installDependenciesLocked(ctx, run, item, enable); err != nil {
		return err
	}

	payload, err := in.payloadFor(ctx, name, m.Link, m.SHA256)
	if err != nil {
		return err
	}

	// A toggle or pin may have run while downloading, so the destination
	// and the next state are derived from the current state. A toggle made
	// in the meantime wins over the requested enablement.
	enabled, toggled := enable, false
	err = in.underToggleLock(ctx, func() error {
		current := item.State()
		next, err := nextInstallState(current, m.Version, enable)
		if err != nil {
			return err
		}
		enabled = modstate.IsEnabled(next)
		if modstate.IsMaterialized(original) && modstate.IsEnabled(current) != modstate.IsEnabled(original) {
			toggled = true
			in.logger.Info("mod was toggled during install", "mod", name, "enabled", enabled)
		}

		in.logger.Info("placing mod", "mod", name, "version", m.Version, "enabled", enabled)
		if err := in.place(name, payload, enabled, clearExisting); err != nil {
			return err
		}
		committed = true
		return in.commit(item, next)
	})
	if err != nil {
		return err
	}

	if enable && !enabled && !toggled {
		return in.enableFromInstall(ctx, item)
	}
	return nil
}

// nextInstallState is the state s takes once the catalog build is placed.
// Materialized mods keep their enabled and pinned flags.
func nextInstallState(s modstate.State, version string, enable bool) (modstate.State, error) {
	if _, ok := s.(modstate.NotInstalled); ok {
		return modstate.Install(s, version, enable)
	}
	return modstate.Update(s, version)
}

// markBusy checks that item can take the catalog build and flags it as in
// progress. It returns the state before the flag was set. The toggle lock
// is held so a concurrent toggle is never overwritten.
func (in *Installer) markBusy(ctx context.Context, item *catalog.Item, version string, enable bool) (original modstate.State, err error) {
	err = in.underToggleLock(ctx, func() error {
		original = item.State()
		if _, err := nextInstallState(original, version, enable); err != nil {
			return err
		}
		item.SetState(modstate.MarkBusy(original))
		return nil
	})
	return original, err
}

// clearBusy drops the progress flag after a failed install. Toggles that
// completed in the meantime are kept, since they moved the folder.
func (in *Installer) clearBusy(item *catalog.Item) {
	// The caller's context may already be cancelled.
	_ = in.underToggleLock(context.Background(), func() error {
		item.SetState(modstate.ClearBusy(item.State()))
		return nil
	})
}

// ensureAPILocked installs the API when the catalog declares one and it is
// missing, and enables it when a mod is being enabled.
func (in *Installer) ensureAPILocked(ctx context.Context, run *installRun, enable bool) error {
	if run.apiChecked {
		return nil
	}
	run.apiChecked = true
	if in.catalog.API() == nil {
		return nil
	}

	switch st := in.registry.APIState().(type) {
	case modstate.NotInstalled:
		return in.installAPILocked(ctx)
	case modstate.Installed:
		if enable && !st.Enabled {
			return in.toggleAPILocked(ctx)
		}
	}
	return nil
}

// installDependenciesLocked brings every direct dependency to the catalog
// build. Custom builds standing in for a dependency are left alone.
func (in *Installer) installDependenciesLocked(ctx context.Context, run *installRun, item *catalog.Item, enable bool) error {
	deps, err := in.resolver.Dependencies(item)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		st := dep.State()
		if _, custom := st.(modstate.NotInCatalog); custom {
			in.logger.Debug("leaving custom dependency untouched", "mod", item.Name(), "dependency", dep.Name())
			continue
		}
		if err := in.installLocked(ctx, run, dep, enable, modstate.IsMaterialized(st)); err != nil {
			return fmt.Errorf("install dependency %s of %s: %w", dep.Name(), item.Name(), err)
		}
	}
	return nil
}

// enableFromInstall enables item from within an install cascade. The
// install lock is already held, so taking the toggle lock keeps lock order.
func (in *Installer) enableFromInstall(ctx context.Context, item *catalog.Item) error {
	return in.underToggleLock(ctx, func() error {
		if modstate.IsEnabled(item.State()) {
			return nil
		}
		return in.toggleLocked(ctx, make(map[string]bool), item)
	})
}

// payloadFor returns the verified bytes of a catalog payload, preferring the
// cache. Hash mismatches are never cached.
func (in *Installer) payloadFor(ctx context.Context, name, link, hash string) (*fetch.Payload, error) {
	if p, ok := in.cache.Get(name, hash); ok {
		in.logger.Debug("using cached payload", "mod", name, "file", p.Filename)
		return p, nil
	}

	in.logger.Info("downloading", "mod", name)
	p, err := in.downloader.Download(ctx, link, func(pr fetch.Progress) {
		if in.progress != nil {
			in.progress(name, pr)
		}
	})
	if err != nil {
		return nil, err
	}
	in.metrics.AddDownloadBytes(len(p.Data))

	if err := checksum.Verify(name, p.Data, hash); err != nil {
		in.metrics.HashMismatch()
		in.cache.Invalidate(name)
		return nil, err
	}
	in.cache.Put(name, p)
	return p, nil
}

// place writes a payload into the mod folder: archives are extracted, any
// other payload is written as a single file.
func (in *Installer) place(name string, p *fetch.Payload, enabled, clearExisting bool) error {
	dir := in.layout.ModDir(name, enabled)
	if clearExisting {
		if err := clearLooseFiles(dir); err != nil {
			return ioErr("clear", dir, err)
		}
	}

	var err error
	if archive.IsZip(p.Data) {
		err = archive.Extract(p.Data, dir)
	} else {
		err = archive.WriteFile(dir, p.Filename, p.Data)
	}
	if errors.Is(err, archive.ErrTraversal) {
		return err
	}
	return ioErr("extract", dir, err)
}

// clearLooseFiles removes the regular files directly inside dir. Sub
// folders are kept.
func clearLooseFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// PlaceMod places payload as a hand-supplied build of item, bypassing
// catalog and hash checks. The item becomes a custom (NotInCatalog) mod.
func (in *Installer) PlaceMod(ctx context.Context, item *catalog.Item, payload *fetch.Payload, enable, clearExisting bool) error {
	return in.withInstallLock(ctx, "place", func() error {
		return in.placeModLocked(ctx, item, payload, enable, clearExisting)
	})
}

func (in *Installer) placeModLocked(ctx context.Context, item *catalog.Item, payload *fetch.Payload, enable, clearExisting bool) error {
	return in.underToggleLock(ctx, func() error {
		return in.placeCustom(item, payload, enable, clearExisting)
	})
}

func (in *Installer) placeCustom(item *catalog.Item, payload *fetch.Payload, enable, clearExisting bool) (err error) {
	original := item.State()
	next, err := modstate.RegisterAsCustom(original, enable)
	if err != nil {
		return err
	}

	committed := false
	defer restoreOnError(item, original, &committed, &err)

	name := item.Name()
	if err := in.place(name, payload, enable, clearExisting); err != nil {
		return err
	}
	// The previous build may sit in the other folder.
	if modstate.IsMaterialized(original) && modstate.IsEnabled(original) != enable {
		old := in.layout.ModDir(name, !enable)
		if err := os.RemoveAll(old); err != nil {
			return ioErr("delete", old, err)
		}
	}

	committed = true
	return in.commit(item, next)
}

// InstallFromFile places the file at path as mod name. Unknown names are
// added to the catalog as custom items.
func (in *Installer) InstallFromFile(ctx context.Context, name, path string, enable bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ioErr("read", path, err)
	}
	payload := &fetch.Payload{Filename: filepath.Base(path), Data: data}

	return in.withInstallLock(ctx, "place", func() error {
		item, ok := in.catalog.Get(name)
		if !ok {
			item, err = in.catalog.AddCustom(name, modstate.NotInCatalog{})
			if err != nil {
				return err
			}
		}
		if err := in.placeModLocked(ctx, item, payload, enable, true); err != nil {
			if !ok {
				in.catalog.Remove(name)
			}
			return err
		}
		return nil
	})
}
