// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/scarabmm/scarab/internal/testutil"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

func testCatalog(t *testing.T, names ...string) *catalog.Catalog {
	t.Helper()
	mods := make([]catalog.Manifest, 0, len(names))
	for _, n := range names {
		mods = append(mods, catalog.Manifest{Name: n, Version: "1.0", Link: "x"})
	}
	c, err := catalog.New(mods, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writeRegistry(t *testing.T, path string, doc any) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	testutil.MustWriteFile(t, path, string(data))
}

func readRaw(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(testutil.MustReadFile(t, path)), &raw); err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestLoadCorrectsEnabledFromDisk(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	tree.AddMod("X", false)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	writeRegistry(t, path, map[string]any{
		"Mods": map[string]any{"X": map[string]any{"Version": "1.0", "Enabled": true, "Pinned": false}},
	})

	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: testCatalog(t, "X")})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if e := r.Snapshot().Mods["X"]; e.Enabled {
		t.Errorf("X still enabled in memory: %+v", e)
	}

	// The correction is persisted.
	var doc document
	if err := json.Unmarshal([]byte(testutil.MustReadFile(t, path)), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Mods["X"].Enabled {
		t.Errorf("persisted X still enabled: %+v", doc.Mods["X"])
	}
}

func TestLoadRecoversFromMissingAndCorruptFile(t *testing.T) {
	t.Parallel()

	for _, corrupt := range []bool{false, true} {
		t.Run(fmt.Sprintf("corrupt=%v", corrupt), func(t *testing.T) {
			t.Parallel()

			tree := testutil.NewModTree(t)
			tree.AddMod("Core", true)
			tree.AddMod("Local", false)
			tree.AddAPI("modded", true, false)
			path := filepath.Join(t.TempDir(), "InstalledMods.json")
			if corrupt {
				testutil.MustWriteFile(t, path, "{not json")
			}

			r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: testCatalog(t, "Core")})
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			snap := r.Snapshot()
			if e := snap.Mods["Core"]; e.Version != RecoveredVersion || !e.Enabled {
				t.Errorf("Core = %+v", e)
			}
			if e, ok := snap.Custom["Local"]; !ok || e.Enabled || !e.Installed || e.ModlinksMod {
				t.Errorf("Local = %+v, %v", e, ok)
			}
			if snap.API == nil || !snap.API.Enabled {
				t.Errorf("API = %+v", snap.API)
			}
			testutil.AssertExists(t, path)
		})
	}
}

func TestLoadDropsMissingAndDiscoversNew(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	tree.AddMod("Found", true)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	writeRegistry(t, path, map[string]any{
		"Mods":              map[string]any{"Gone": map[string]any{"Version": "1.0", "Enabled": true}},
		"NotInModlinksMods": map[string]any{"AlsoGone": map[string]any{"Enabled": true, "Installed": true}},
		"_ApiState":         map[string]any{"Version": "72", "Enabled": true},
	})

	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: testCatalog(t, "Gone", "Found")})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	snap := r.Snapshot()
	if _, ok := snap.Mods["Gone"]; ok {
		t.Error("Gone should be dropped")
	}
	if _, ok := snap.Custom["AlsoGone"]; ok {
		t.Error("AlsoGone should be dropped")
	}
	if e, ok := snap.Custom["Found"]; !ok || !e.Enabled || !e.ModlinksMod {
		t.Errorf("Found = %+v, %v", e, ok)
	}
	if snap.API != nil {
		t.Errorf("API should reset when backups are absent, got %+v", snap.API)
	}
	if _, ok := r.APIState().(modstate.NotInstalled); !ok {
		t.Errorf("APIState() = %v", r.APIState())
	}
}

func TestEmptyRegistryRemovesFile(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	tree.AddMod("Core", true)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	c := testCatalog(t, "Core")

	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertExists(t, path)

	item, _ := c.Get("Core")
	if err := r.RecordUninstall(item); err != nil {
		t.Fatalf("RecordUninstall() error: %v", err)
	}
	testutil.AssertMissing(t, path)
}

func TestRecordMaterializedFormat(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	c := testCatalog(t, "Core")
	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}

	core, _ := c.Get("Core")
	core.SetState(modstate.Installed{Version: "1.0", Enabled: true, Pinned: true, Updated: true})
	if err := r.RecordMaterialized(core); err != nil {
		t.Fatal(err)
	}
	local, err := c.AddCustom("Local", modstate.NotInCatalog{Enabled: true, ExistsOnDisk: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RecordMaterialized(local); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordAPIState(modstate.Installed{Version: "72", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	raw := readRaw(t, path)
	for _, key := range []string{"Mods", "NotInModlinksMods", "_ApiState"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("registry file lacks %q", key)
		}
	}
	var mods map[string]map[string]any
	if err := json.Unmarshal(raw["Mods"], &mods); err != nil {
		t.Fatal(err)
	}
	if mods["Core"]["Version"] != "1.0" || mods["Core"]["Pinned"] != true {
		t.Errorf("Mods.Core = %v", mods["Core"])
	}

	// Switching Core to a custom build moves it between maps.
	core.SetState(modstate.NotInCatalog{Enabled: true, ExistsOnDisk: true, HasCatalogEntry: true})
	if err := r.RecordMaterialized(core); err != nil {
		t.Fatal(err)
	}
	snap := r.Snapshot()
	if _, ok := snap.Mods["Core"]; ok {
		t.Error("Core should leave the catalog map")
	}
	if e := snap.Custom["Core"]; !e.ModlinksMod || !e.Installed {
		t.Errorf("Custom.Core = %+v", e)
	}

	if err := r.RecordAPIState(modstate.NotInCatalog{}); err == nil {
		t.Error("RecordAPIState(NotInCatalog) should fail")
	}
}

func TestAttach(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	tree.AddMod("Core", true)
	tree.AddMod("Lib", false)
	tree.AddMod("Local", true)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	writeRegistry(t, path, map[string]any{
		"Mods": map[string]any{
			"Core": map[string]any{"Version": "1.0", "Enabled": true, "Pinned": true},
			"Lib":  map[string]any{"Version": "0.9", "Enabled": false},
		},
		"NotInModlinksMods": map[string]any{"Local": map[string]any{"Enabled": true, "Installed": true}},
	})
	c := testCatalog(t, "Core", "Lib", "Fresh")

	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Attach(c); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}

	state := func(name string) modstate.State {
		item, ok := c.Get(name)
		if !ok {
			t.Fatalf("no item %s", name)
		}
		return item.State()
	}
	if got := state("Core"); got != (modstate.Installed{Version: "1.0", Enabled: true, Pinned: true, Updated: true}) {
		t.Errorf("Core = %#v", got)
	}
	if got := state("Lib"); got != (modstate.Installed{Version: "0.9"}) {
		t.Errorf("Lib = %#v", got)
	}
	if _, ok := state("Fresh").(modstate.NotInstalled); !ok {
		t.Errorf("Fresh = %#v", state("Fresh"))
	}
	if got := state("Local"); got != (modstate.NotInCatalog{Enabled: true, ExistsOnDisk: true}) {
		t.Errorf("Local = %#v", got)
	}
}

func TestAttachMovesDroppedCatalogEntries(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	tree.AddMod("Retired", true)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	writeRegistry(t, path, map[string]any{
		"Mods": map[string]any{"Retired": map[string]any{"Version": "1.0", "Enabled": true}},
	})
	c := testCatalog(t, "Other")

	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Attach(c); err != nil {
		t.Fatal(err)
	}
	item, ok := c.Get("Retired")
	if !ok {
		t.Fatal("Retired should become a custom item")
	}
	if _, ok := item.State().(modstate.NotInCatalog); !ok || item.InCatalog() {
		t.Errorf("Retired = %#v", item.State())
	}
	if _, ok := r.Snapshot().Custom["Retired"]; !ok {
		t.Error("Retired should be recorded as custom")
	}
}

func TestReconcileAfterManualMove(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	dir := tree.AddMod("Core", true)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	c := testCatalog(t, "Core")
	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Rename(dir, tree.ModDir("Core", false)); err != nil {
		t.Fatal(err)
	}
	changed, err := r.Reconcile(c)
	if err != nil || !changed {
		t.Fatalf("Reconcile() = %v, %v", changed, err)
	}
	if r.Snapshot().Mods["Core"].Enabled {
		t.Error("Core should be disabled after reconcile")
	}
	if changed, _ := r.Reconcile(c); changed {
		t.Error("second Reconcile() should be a no-op")
	}
}

func TestSetAllAndReset(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout})
	if err != nil {
		t.Fatal(err)
	}

	err = r.SetAll(
		map[string]ModEntry{"A": {Version: "1", Enabled: true}},
		map[string]CustomEntry{"A": {Installed: true}, "B": {Installed: true}},
	)
	if err != nil {
		t.Fatal(err)
	}
	snap := r.Snapshot()
	if len(snap.Mods) != 1 || len(snap.Custom) != 1 {
		t.Errorf("SetAll() should keep one map per name: %+v", snap)
	}

	if err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	testutil.AssertMissing(t, path)
}

func TestConcurrentWrites(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	path := filepath.Join(t.TempDir(), "InstalledMods.json")
	names := make([]string, 16)
	for i := range names {
		names[i] = fmt.Sprintf("Mod%02d", i)
	}
	c := testCatalog(t, names...)
	r, err := Load(context.Background(), Options{Path: path, Layout: tree.Layout, Catalog: c})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, n := range names {
		item, _ := c.Get(n)
		item.SetState(modstate.Installed{Version: "1.0", Enabled: true})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.RecordMaterialized(item); err != nil {
				t.Errorf("RecordMaterialized(%s): %v", n, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.RecordAPIState(modstate.Installed{Version: "72", Enabled: true}); err != nil {
			t.Errorf("RecordAPIState: %v", err)
		}
	}()
	wg.Wait()

	var doc document
	if err := json.Unmarshal([]byte(testutil.MustReadFile(t, path)), &doc); err != nil {
		t.Fatalf("registry file corrupt after concurrent writes: %v", err)
	}
	if len(doc.Mods) != len(names) || doc.APIState == nil {
		t.Errorf("persisted %d mods, api=%v", len(doc.Mods), doc.APIState)
	}
}
