// SPDX-License-Identifier: MPL-2.0

// Package catalog holds the read-only list of available mods and the item
// handles that carry each mod's runtime state.
//
// Catalog documents are validated against an embedded CUE schema. JSON is a
// subset of CUE, so the same loader accepts both.
package catalog
