// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/scarabmm/scarab/internal/archive"
	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/internal/modcache"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// APIStatus reports the recorded API state and the variant found on disk.
func (in *Installer) APIStatus() (modstate.State, layout.APIVariant, error) {
	variant, err := in.layout.DetectAPI()
	if err != nil {
		return nil, layout.APINotInstalled, ioErr("inspect", in.layout.Managed, err)
	}
	return in.registry.APIState(), variant, nil
}

// InstallAPI installs or updates the modded host runtime assembly. On the
// first install the vanilla assembly is kept as a backup.
func (in *Installer) InstallAPI(ctx context.Context) error {
	return in.withInstallLock(ctx, "api-install", func() error {
		return in.installAPILocked(ctx)
	})
}

// ToggleAPI swaps the vanilla and modded assemblies. Re-enabling an API
// older than the catalog's performs an update instead.
func (in *Installer) ToggleAPI(ctx context.Context) error {
	return in.withInstallLock(ctx, "api-toggle", func() error {
		return in.toggleAPILocked(ctx)
	})
}

// SetAPIEnabled toggles the API only when its enablement differs.
func (in *Installer) SetAPIEnabled(ctx context.Context, enabled bool) error {
	return in.withInstallLock(ctx, "api-toggle", func() error {
		if st, ok := in.registry.APIState().(modstate.Installed); ok && st.Enabled == enabled {
			return nil
		}
		return in.toggleAPILocked(ctx)
	})
}

func (in *Installer) installAPILocked(ctx context.Context) error {
	api := in.catalog.API()
	if api == nil {
		return ErrNoAPI
	}

	payload, err := in.payloadFor(ctx, modcache.APIKey, api.Link, api.SHA256)
	if err != nil {
		return err
	}

	variant, err := in.layout.DetectAPI()
	if err != nil {
		return ioErr("inspect", in.layout.Managed, err)
	}

	current, vanilla := in.layout.APIPath(), in.layout.VanillaPath()
	backedUp := false
	switch variant {
	case layout.APINotInstalled:
		live, err := exists(current)
		if err != nil {
			return ioErr("inspect", current, err)
		}
		if live {
			if err := os.Rename(current, vanilla); err != nil {
				return ioErr("back up", current, err)
			}
			backedUp = true
		}
	case layout.APIDisabled:
		// Vanilla is live and the modded backup is about to be replaced.
		if err := os.Remove(in.layout.ModdedPath()); err != nil {
			return ioErr("delete", in.layout.ModdedPath(), err)
		}
		if err := os.Rename(current, vanilla); err != nil {
			return ioErr("back up", current, err)
		}
		backedUp = true
	case layout.APIEnabled:
	}

	if err := in.placeAPI(payload.Data); err != nil {
		if backedUp {
			_ = os.Rename(vanilla, current) // best-effort restore of the vanilla build
		}
		return err
	}

	in.logger.Info("installed API", "version", api.Version)
	return in.recordAPI(modstate.Installed{Version: api.Version, Enabled: true, Updated: true})
}

func (in *Installer) placeAPI(data []byte) error {
	if archive.IsZip(data) {
		if err := archive.Extract(data, in.layout.Managed); err != nil {
			return ioErr("extract", in.layout.Managed, err)
		}
		ok, err := exists(in.layout.APIPath())
		if err != nil {
			return ioErr("inspect", in.layout.APIPath(), err)
		}
		if !ok {
			return fmt.Errorf("API archive does not contain %s", layout.APIFile)
		}
		return nil
	}
	return ioErr("write", in.layout.APIPath(), archive.WriteFile(in.layout.Managed, layout.APIFile, data))
}

func (in *Installer) toggleAPILocked(ctx context.Context) error {
	st := in.registry.APIState()
	next, err := modstate.Toggle(st)
	if err != nil {
		return err
	}
	installed, _ := st.(modstate.Installed)

	variant, err := in.layout.DetectAPI()
	if err != nil {
		return ioErr("inspect", in.layout.Managed, err)
	}

	current, vanilla, modded := in.layout.APIPath(), in.layout.VanillaPath(), in.layout.ModdedPath()
	if installed.Enabled {
		if variant != layout.APIEnabled {
			return ioErr("disable API", vanilla, fs.ErrNotExist)
		}
		if err := swap(current, modded, vanilla); err != nil {
			return err
		}
	} else {
		if api := in.catalog.API(); api != nil && catalog.IsNewer(api.Version, installed.Version) {
			in.logger.Info("API is outdated, updating while enabling", "installed", installed.Version, "catalog", api.Version)
			return in.installAPILocked(ctx)
		}
		if variant != layout.APIDisabled {
			return ioErr("enable API", modded, fs.ErrNotExist)
		}
		if err := swap(current, vanilla, modded); err != nil {
			return err
		}
	}

	return in.recordAPI(next)
}

// swap moves live to backup, then restore to live. A failed second move
// puts live back.
func swap(live, backup, restore string) error {
	if err := os.Rename(live, backup); err != nil {
		return ioErr("move", live, err)
	}
	if err := os.Rename(restore, live); err != nil {
		_ = os.Rename(backup, live) // best-effort undo
		return ioErr("move", restore, err)
	}
	return nil
}

func (in *Installer) recordAPI(s modstate.State) error {
	if err := in.registry.RecordAPIState(s); err != nil {
		in.logger.Error("registry write failed after API change", "err", err)
		return &PersistError{Mod: "API", Err: err}
	}
	return nil
}
