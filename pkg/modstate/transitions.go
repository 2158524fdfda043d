// SPDX-License-Identifier: MPL-2.0

package modstate

// Install places a catalog mod that was never installed.
func Install(s State, version string, enable bool) (State, error) {
	switch s.(type) {
	case NotInstalled:
		return Installed{Version: version, Enabled: enable, Updated: true}, nil
	case Installed, NotInCatalog:
		return nil, illegal("install", s)
	default:
		return nil, illegal("install", s)
	}
}

// Update replaces the on-disk build with the catalog version, keeping the
// enabled and pinned flags. A custom override of a catalog mod becomes
// catalog-tracked again.
func Update(s State, version string) (State, error) {
	switch v := s.(type) {
	case Installed:
		return Installed{Version: version, Enabled: v.Enabled, Pinned: v.Pinned, Updated: true}, nil
	case NotInCatalog:
		if !v.HasCatalogEntry {
			return nil, illegal("update", s)
		}
		return Installed{Version: version, Enabled: v.Enabled, Pinned: v.Pinned, Updated: true}, nil
	case NotInstalled:
		return nil, illegal("update", s)
	default:
		return nil, illegal("update", s)
	}
}

// Uninstall returns the state a mod takes once its folder is deleted.
// Catalog lineages go back to NotInstalled; fully custom mods are kept as a
// tombstone (ExistsOnDisk false) so the registry can purge them.
func Uninstall(s State) (State, error) {
	switch v := s.(type) {
	case Installed:
		return NotInstalled{}, nil
	case NotInCatalog:
		if v.HasCatalogEntry {
			return NotInstalled{}, nil
		}
		return NotInCatalog{HasCatalogEntry: false, ExistsOnDisk: false}, nil
	case NotInstalled:
		return nil, illegal("uninstall", s)
	default:
		return nil, illegal("uninstall", s)
	}
}

// Toggle flips the enabled flag of a materialized mod.
func Toggle(s State) (State, error) {
	switch v := s.(type) {
	case Installed:
		v.Enabled = !v.Enabled
		v.Updating = false
		return v, nil
	case NotInCatalog:
		v.Enabled = !v.Enabled
		return v, nil
	case NotInstalled:
		return nil, illegal("toggle", s)
	default:
		return nil, illegal("toggle", s)
	}
}

// SetEnabled returns s with the enabled flag set to enabled.
func SetEnabled(s State, enabled bool) (State, error) {
	if !IsMaterialized(s) {
		return nil, illegal("enable or disable", s)
	}
	if IsEnabled(s) == enabled {
		return s, nil
	}
	return Toggle(s)
}

// Pin sets the pinned flag. Pinning requires an enabled mod; unpinning only
// requires the mod to be materialized.
func Pin(s State, pinned bool) (State, error) {
	op := "unpin"
	if pinned {
		op = "pin"
	}
	switch v := s.(type) {
	case Installed:
		if pinned && !v.Enabled {
			return nil, illegal(op, s)
		}
		v.Pinned = pinned
		return v, nil
	case NotInCatalog:
		if pinned && !v.Enabled {
			return nil, illegal(op, s)
		}
		v.Pinned = pinned
		return v, nil
	case NotInstalled:
		return nil, illegal(op, s)
	default:
		return nil, illegal(op, s)
	}
}

// RegisterAsCustom records that a hand-placed build now occupies the mod's
// folder. A previous catalog lineage is remembered through HasCatalogEntry.
func RegisterAsCustom(s State, enabled bool) (State, error) {
	switch v := s.(type) {
	case NotInstalled:
		return NotInCatalog{Enabled: enabled, ExistsOnDisk: true, HasCatalogEntry: true}, nil
	case Installed:
		return NotInCatalog{Enabled: enabled, Pinned: v.Pinned && enabled, ExistsOnDisk: true, HasCatalogEntry: true}, nil
	case NotInCatalog:
		return NotInCatalog{Enabled: enabled, Pinned: v.Pinned && enabled, ExistsOnDisk: true, HasCatalogEntry: v.HasCatalogEntry}, nil
	default:
		return nil, illegal("register as custom", s)
	}
}

// RegisterAsCatalog tags a custom mod as sharing its name with a catalog entry.
func RegisterAsCatalog(s State) (State, error) {
	v, ok := s.(NotInCatalog)
	if !ok {
		return nil, illegal("register as catalog", s)
	}
	v.HasCatalogEntry = true
	return v, nil
}

// DetachCatalog clears the catalog tag of a custom mod, used when the catalog
// no longer lists the name.
func DetachCatalog(s State) (State, error) {
	v, ok := s.(NotInCatalog)
	if !ok {
		return nil, illegal("detach from catalog", s)
	}
	v.HasCatalogEntry = false
	return v, nil
}

// MarkBusy returns s with its transient progress flag set.
func MarkBusy(s State) State {
	switch v := s.(type) {
	case NotInstalled:
		v.Installing = true
		return v
	case Installed:
		v.Updating = true
		return v
	case NotInCatalog:
		return v
	default:
		return s
	}
}

// ClearBusy returns s with its transient progress flag cleared.
func ClearBusy(s State) State {
	switch v := s.(type) {
	case NotInstalled:
		v.Installing = false
		return v
	case Installed:
		v.Updating = false
		return v
	default:
		return s
	}
}
