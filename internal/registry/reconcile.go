// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"

	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// recoverLocked rebuilds the maps from the folder layout. Folders named in
// the catalog become catalog entries at RecoveredVersion.
func (r *Registry) recoverLocked(c *catalog.Catalog) error {
	r.mods = make(map[string]ModEntry)
	r.custom = make(map[string]CustomEntry)
	r.api = nil

	enabled, disabled, err := r.layout.ListMods()
	if err != nil {
		return fmt.Errorf("scan mod folders: %w", err)
	}
	add := func(name string, on bool) {
		if _, seen := r.mods[name]; seen {
			return
		}
		if _, seen := r.custom[name]; seen {
			return
		}
		if c != nil && c.Has(name) {
			r.mods[name] = ModEntry{Version: RecoveredVersion, Enabled: on}
			return
		}
		r.custom[name] = CustomEntry{Enabled: on, Installed: true}
	}
	for _, name := range enabled {
		add(name, true)
	}
	for _, name := range disabled {
		add(name, false)
	}

	variant, err := r.layout.DetectAPI()
	if err != nil {
		return fmt.Errorf("detect API: %w", err)
	}
	if variant != layout.APINotInstalled {
		r.api = &APIEntry{Version: RecoveredVersion, Enabled: variant == layout.APIEnabled}
	}

	r.logger.Info("rebuilt registry from disk", "mods", len(r.mods), "custom", len(r.custom), "api", variant)
	return nil
}

// Reconcile checks the record against disk again, for example after mod
// folders were moved by hand. It reports whether anything changed; changes
// are persisted.
func (r *Registry) Reconcile(c *catalog.Catalog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed, err := r.reconcileLocked(c)
	if err != nil {
		return false, err
	}
	if changed {
		return true, r.saveLocked()
	}
	return false, nil
}

// reconcileLocked fixes enabled flags from folder locations, drops entries
// whose folder is gone, records unknown folders as custom mods and clears
// an API state whose backups have vanished.
func (r *Registry) reconcileLocked(c *catalog.Catalog) (bool, error) {
	changed := false

	for name := range r.custom {
		if _, dup := r.mods[name]; dup {
			r.logger.Warn("mod recorded twice, keeping catalog entry", "mod", name)
			delete(r.custom, name)
			changed = true
		}
	}

	for name, e := range r.mods {
		loc, err := r.layout.Locate(name)
		if err != nil {
			return false, fmt.Errorf("locate %s: %w", name, err)
		}
		enabled, present := enabledAt(loc, e.Enabled)
		switch {
		case !present:
			r.logger.Info("mod folder missing, forgetting it", "mod", name)
			delete(r.mods, name)
			changed = true
		case enabled != e.Enabled:
			r.logger.Info("mod folder location differs from record", "mod", name, "enabled", enabled)
			e.Enabled = enabled
			r.mods[name] = e
			changed = true
		}
	}

	for name, e := range r.custom {
		loc, err := r.layout.Locate(name)
		if err != nil {
			return false, fmt.Errorf("locate %s: %w", name, err)
		}
		enabled, present := enabledAt(loc, e.Enabled)
		switch {
		case !present || !e.Installed:
			delete(r.custom, name)
			changed = true
		case enabled != e.Enabled:
			e.Enabled = enabled
			r.custom[name] = e
			changed = true
		}
		if present && e.Installed && c != nil && c.Has(name) != e.ModlinksMod {
			e.ModlinksMod = c.Has(name)
			r.custom[name] = e
			changed = true
		}
	}

	enabledDirs, disabledDirs, err := r.layout.ListMods()
	if err != nil {
		return false, fmt.Errorf("scan mod folders: %w", err)
	}
	discover := func(name string, on bool) {
		if _, ok := r.mods[name]; ok {
			return
		}
		if _, ok := r.custom[name]; ok {
			return
		}
		r.logger.Info("found unrecorded mod folder", "mod", name, "enabled", on)
		r.custom[name] = CustomEntry{Enabled: on, Installed: true, ModlinksMod: c != nil && c.Has(name)}
		changed = true
	}
	for _, name := range enabledDirs {
		discover(name, true)
	}
	for _, name := range disabledDirs {
		discover(name, false)
	}

	variant, err := r.layout.DetectAPI()
	if err != nil {
		return false, fmt.Errorf("detect API: %w", err)
	}
	switch {
	case r.api != nil && variant == layout.APINotInstalled:
		r.logger.Info("API backups missing, marking API not installed")
		r.api = nil
		changed = true
	case r.api == nil && variant != layout.APINotInstalled:
		r.api = &APIEntry{Version: RecoveredVersion, Enabled: variant == layout.APIEnabled}
		changed = true
	case r.api != nil && r.api.Enabled != (variant == layout.APIEnabled):
		r.api.Enabled = variant == layout.APIEnabled
		changed = true
	}

	return changed, nil
}

// enabledAt maps a folder location to (enabled, present). A mod found in
// both folders keeps its recorded flag.
func enabledAt(loc layout.Location, recorded bool) (bool, bool) {
	switch loc {
	case layout.InMods:
		return true, true
	case layout.InDisabled:
		return false, true
	case layout.InBoth:
		return recorded, true
	default:
		return false, false
	}
}

// Attach sets the state of every catalog item from the record and adds
// custom items for recorded mods the catalog does not list. Catalog
// entries whose name left the catalog are re-recorded as custom mods.
func (r *Registry) Attach(c *catalog.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for name, e := range r.mods {
		if c.Has(name) {
			continue
		}
		r.logger.Info("installed mod left the catalog, tracking it as custom", "mod", name)
		delete(r.mods, name)
		r.custom[name] = CustomEntry{Enabled: e.Enabled, Pinned: e.Pinned, Installed: true}
		changed = true
	}

	for _, item := range c.Items() {
		name := item.Name()
		if !item.InCatalog() {
			if _, ok := r.custom[name]; !ok {
				c.Remove(name)
			}
			continue
		}
		if e, ok := r.mods[name]; ok {
			m := item.Manifest()
			item.SetState(modstate.Installed{
				Version: e.Version,
				Enabled: e.Enabled,
				Pinned:  e.Pinned,
				Updated: !catalog.IsNewer(m.Version, e.Version),
			})
			continue
		}
		if e, ok := r.custom[name]; ok {
			if !e.ModlinksMod {
				e.ModlinksMod = true
				r.custom[name] = e
				changed = true
			}
			item.SetState(customState(e))
			continue
		}
		item.SetState(modstate.NotInstalled{})
	}

	for name, e := range r.custom {
		if c.Has(name) {
			continue
		}
		if e.ModlinksMod {
			e.ModlinksMod = false
			r.custom[name] = e
			changed = true
		}
		item, err := c.AddCustom(name, customState(e))
		if err != nil {
			r.logger.Warn("ignoring recorded mod with unusable name", "mod", name, "err", err)
			delete(r.custom, name)
			changed = true
			continue
		}
		item.SetState(customState(e))
	}

	if changed {
		return r.saveLocked()
	}
	return nil
}

func customState(e CustomEntry) modstate.NotInCatalog {
	return modstate.NotInCatalog{
		Enabled:         e.Enabled,
		Pinned:          e.Pinned,
		ExistsOnDisk:    e.Installed,
		HasCatalogEntry: e.ModlinksMod,
	}
}
