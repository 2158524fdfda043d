// SPDX-License-Identifier: MPL-2.0

// Package modstate defines the closed set of states a mod can be in and the
// pure transitions between them.
//
// A mod is always in exactly one of three variants:
//   - [NotInstalled]: a catalog mod that has never been placed on disk
//   - [Installed]: content is on disk and tracked against its catalog entry
//   - [NotInCatalog]: content is on disk but unknown to the catalog, or a
//     hand-placed build that overrides a catalog mod
//
// Installed and NotInCatalog share the [Materialized] capability (enabled and
// pinned flags). Transitions never mutate a value in place: each returns a new
// State that the caller stores in place of the old one. Transitions that do not
// apply to the current variant return an [*IllegalTransitionError].
package modstate
