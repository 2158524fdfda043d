// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/scarabmm/scarab/internal/layout"
)

// ModTree is a temporary managed folder for filesystem tests.
type ModTree struct {
	layout.Layout
	t testing.TB
}

// NewModTree creates an empty managed folder with Mods/ and Mods/Disabled/.
func NewModTree(t testing.TB) *ModTree {
	t.Helper()
	l := layout.New(filepath.Join(t.TempDir(), "Managed"))
	MustMkdirAll(t, l.DisabledDir())
	return &ModTree{Layout: l, t: t}
}

// AddMod creates a mod folder holding one <name>.dll file.
func (m *ModTree) AddMod(name string, enabled bool) string {
	m.t.Helper()
	dir := m.ModDir(name, enabled)
	MustWriteFile(m.t, filepath.Join(dir, name+".dll"), name)
	return dir
}

// AddAPI writes the live assembly and optional backups.
func (m *ModTree) AddAPI(current string, vanilla, modded bool) {
	m.t.Helper()
	MustWriteFile(m.t, m.APIPath(), current)
	if vanilla {
		MustWriteFile(m.t, m.VanillaPath(), "vanilla")
	}
	if modded {
		MustWriteFile(m.t, m.ModdedPath(), "modded")
	}
}
