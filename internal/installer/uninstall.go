// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"os"

	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// Uninstall deletes the mod folder and forgets the mod. Fully custom mods
// are also dropped from the catalog.
func (in *Installer) Uninstall(ctx context.Context, item *catalog.Item) error {
	return in.withInstallLock(ctx, "uninstall", func() error {
		return in.uninstallLocked(ctx, item)
	})
}

func (in *Installer) uninstallLocked(ctx context.Context, item *catalog.Item) error {
	return in.underToggleLock(ctx, func() error { return in.removeMod(item) })
}

func (in *Installer) removeMod(item *catalog.Item) (err error) {
	original := item.State()
	next, err := modstate.Uninstall(original)
	if err != nil {
		return err
	}

	committed := false
	defer restoreOnError(item, original, &committed, &err)

	name := item.Name()
	for _, enabled := range []bool{true, false} {
		dir := in.layout.ModDir(name, enabled)
		if err := os.RemoveAll(dir); err != nil {
			return ioErr("delete", dir, err)
		}
	}

	committed = true
	item.SetState(next)
	if nic, ok := next.(modstate.NotInCatalog); ok && !nic.ExistsOnDisk {
		in.catalog.Remove(name)
	}
	in.logger.Info("uninstalled mod", "mod", name)

	if err := in.registry.RecordUninstall(item); err != nil {
		in.logger.Error("registry write failed after disk change", "mod", name, "err", err)
		return &PersistError{Mod: name, Err: err}
	}
	return nil
}
