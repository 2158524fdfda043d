// SPDX-License-Identifier: MPL-2.0

package modstate

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is the sentinel wrapped by IllegalTransitionError.
var ErrIllegalTransition = errors.New("illegal state transition")

type (
	// State is implemented only by the variants declared in this package.
	State interface {
		isState()
		// String returns a short label for logs and display.
		String() string
	}

	// Materialized is satisfied by the variants whose content exists on disk.
	Materialized interface {
		State
		IsEnabled() bool
		IsPinned() bool
	}

	// NotInstalled is the initial state of a catalog mod.
	NotInstalled struct {
		// Installing is a transient progress flag; it is never persisted.
		Installing bool
	}

	// Installed is a catalog-tracked mod present on disk.
	Installed struct {
		Version string
		Enabled bool
		Pinned  bool
		// Updated reports whether Version matches the catalog version. Derived, not persisted.
		Updated bool
		// Updating is a transient progress flag; it is never persisted.
		Updating bool
	}

	// NotInCatalog is a mod present on disk that is either absent from the
	// catalog or a custom override of a catalog mod (HasCatalogEntry).
	NotInCatalog struct {
		Enabled         bool
		Pinned          bool
		ExistsOnDisk    bool
		HasCatalogEntry bool
	}

	// IllegalTransitionError is returned when a transition is invoked against
	// a variant it does not apply to.
	IllegalTransitionError struct {
		Op    string
		State State
	}
)

func (NotInstalled) isState() {}
func (Installed) isState()    {}
func (NotInCatalog) isState() {}

func (s NotInstalled) String() string {
	if s.Installing {
		return "installing"
	}
	return "not installed"
}

func (s Installed) String() string {
	switch {
	case s.Updating:
		return "updating"
	case !s.Enabled:
		return "disabled " + s.Version
	}
	return "installed " + s.Version
}

func (s NotInCatalog) String() string {
	switch {
	case !s.ExistsOnDisk:
		return "removed"
	case !s.Enabled:
		return "custom (disabled)"
	}
	return "custom"
}

// IsEnabled implements Materialized.
func (s Installed) IsEnabled() bool { return s.Enabled }

// IsPinned implements Materialized.
func (s Installed) IsPinned() bool { return s.Pinned }

// IsEnabled implements Materialized.
func (s NotInCatalog) IsEnabled() bool { return s.Enabled }

// IsPinned implements Materialized.
func (s NotInCatalog) IsPinned() bool { return s.Pinned }

// Error implements the error interface.
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a mod that is %s", e.Op, describeState(e.State))
}

// Unwrap returns ErrIllegalTransition for errors.Is.
func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

func describeState(s State) string {
	if s == nil {
		return "without state"
	}
	return s.String()
}

func illegal(op string, s State) error {
	return &IllegalTransitionError{Op: op, State: s}
}

// AsMaterialized returns s as a Materialized value when its content is on disk.
func AsMaterialized(s State) (Materialized, bool) {
	switch v := s.(type) {
	case Installed:
		return v, true
	case NotInCatalog:
		return v, true
	case NotInstalled:
		return nil, false
	default:
		return nil, false
	}
}

// IsMaterialized reports whether the mod's content exists on disk.
func IsMaterialized(s State) bool {
	_, ok := AsMaterialized(s)
	return ok
}

// IsEnabled reports whether s is materialized and enabled.
func IsEnabled(s State) bool {
	m, ok := AsMaterialized(s)
	return ok && m.IsEnabled()
}

// IsPinned reports whether s is materialized and pinned.
func IsPinned(s State) bool {
	m, ok := AsMaterialized(s)
	return ok && m.IsPinned()
}

// CanPin reports whether a pin may be set: only enabled, materialized mods qualify.
func CanPin(s State) bool {
	return IsEnabled(s)
}

// UpdateAvailable reports whether the catalog holds a build newer than (or
// different from) what is on disk.
func UpdateAvailable(s State) bool {
	switch v := s.(type) {
	case Installed:
		return !v.Updated
	case NotInCatalog:
		return v.HasCatalogEntry
	case NotInstalled:
		return false
	default:
		return false
	}
}

// IsBusy reports whether a transient install/update is in flight.
func IsBusy(s State) bool {
	switch v := s.(type) {
	case NotInstalled:
		return v.Installing
	case Installed:
		return v.Updating
	case NotInCatalog:
		return false
	default:
		return false
	}
}

// IsCatalogTracked reports whether the state belongs to the catalog lineage.
func IsCatalogTracked(s State) bool {
	switch s.(type) {
	case NotInstalled, Installed:
		return true
	case NotInCatalog:
		return false
	default:
		return false
	}
}
