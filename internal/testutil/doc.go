// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail fast on setup errors.
//
// Besides the filesystem Must* helpers it can build zip payloads in memory
// (BuildZip) and lay out a managed folder with enabled and disabled mods
// (ModTree).
package testutil
