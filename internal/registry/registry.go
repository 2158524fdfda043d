// SPDX-License-Identifier: MPL-2.0

// Package registry persists which mods are materialized on disk and with
// which flags, and reconciles that record with the actual folder layout.
//
// The backing file is a JSON document:
//
//	{
//	  "Mods":              {"<name>": {"Version": "...", "Enabled": true, "Pinned": false}},
//	  "NotInModlinksMods": {"<name>": {"Enabled": true, "Pinned": false, "Installed": true, "ModlinksMod": false}},
//	  "_ApiState":         {"Version": "...", "Enabled": true} | null
//	}
//
// Every mutation rewrites the whole file through a temp file and a rename.
// When nothing is recorded the file is removed instead.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"

	"github.com/charmbracelet/log"
)

// RecoveredVersion marks entries rebuilt from a disk scan. It compares
// older than any real version, so such mods always report an update.
const RecoveredVersion = "0.0.0"

type (
	// ModEntry records a catalog-tracked installed mod.
	ModEntry struct {
		Version string
		Enabled bool
		Pinned  bool
	}

	// CustomEntry records a mod on disk that is not tracked against the
	// catalog. ModlinksMod is true when the catalog lists the same name.
	CustomEntry struct {
		Enabled     bool
		Pinned      bool
		Installed   bool
		ModlinksMod bool
	}

	// APIEntry records the host runtime assembly.
	APIEntry struct {
		Version string
		Enabled bool
	}

	// Snapshot is a copy of the recorded maps.
	Snapshot struct {
		Mods   map[string]ModEntry
		Custom map[string]CustomEntry
		API    *APIEntry
	}

	// Options configures Load.
	Options struct {
		// Path is the registry file.
		Path string
		// Layout locates the mod folders to reconcile against.
		Layout layout.Layout
		// Catalog decides whether scanned folders are catalog-tracked. May be nil.
		Catalog *catalog.Catalog
		// Logger receives recovery and reconciliation notices.
		Logger *log.Logger
	}

	// Registry is the durable record of materialized mods. It is safe for
	// concurrent use; every write is serialized.
	Registry struct {
		path   string
		layout layout.Layout
		logger *log.Logger

		mu     sync.Mutex
		mods   map[string]ModEntry
		custom map[string]CustomEntry
		api    *APIEntry
	}

	document struct {
		Mods              map[string]ModEntry    `json:"Mods"`
		NotInModlinksMods map[string]CustomEntry `json:"NotInModlinksMods"`
		APIState          *APIEntry              `json:"_ApiState"`
	}
)

// Load reads the registry file, rebuilding it from a disk scan when it is
// missing or malformed, then reconciles it with disk. Corrections are
// persisted before Load returns.
func Load(ctx context.Context, opts Options) (*Registry, error) {
	if opts.Path == "" {
		return nil, errors.New("registry path is required")
	}
	r := &Registry{
		path:   opts.Path,
		layout: opts.Layout,
		logger: opts.Logger,
		mods:   make(map[string]ModEntry),
		custom: make(map[string]CustomEntry),
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	doc, err := readDocument(opts.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("no registry file, scanning mod folders", "path", opts.Path)
		if err := r.recoverLocked(opts.Catalog); err != nil {
			return nil, err
		}
		changed = true
	case err != nil:
		r.logger.Warn("registry file is corrupt, rebuilding from disk", "path", opts.Path, "err", err)
		if err := r.recoverLocked(opts.Catalog); err != nil {
			return nil, err
		}
		changed = true
	default:
		maps.Copy(r.mods, doc.Mods)
		maps.Copy(r.custom, doc.NotInModlinksMods)
		r.api = doc.APIState
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reconciled, err := r.reconcileLocked(opts.Catalog)
	if err != nil {
		return nil, err
	}
	if changed || reconciled {
		if err := r.saveLocked(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Path returns the registry file location.
func (r *Registry) Path() string { return r.path }

// RecordMaterialized stores the current state of item. Installed states go
// to the catalog map, NotInCatalog states to the custom map; a custom state
// whose content is gone and a NotInstalled state remove the record.
func (r *Registry) RecordMaterialized(item *catalog.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := item.Name()
	switch s := item.State().(type) {
	case modstate.Installed:
		r.mods[name] = ModEntry{Version: s.Version, Enabled: s.Enabled, Pinned: s.Pinned}
		delete(r.custom, name)
	case modstate.NotInCatalog:
		delete(r.mods, name)
		if s.ExistsOnDisk {
			r.custom[name] = CustomEntry{Enabled: s.Enabled, Pinned: s.Pinned, Installed: true, ModlinksMod: s.HasCatalogEntry}
		} else {
			delete(r.custom, name)
		}
	case modstate.NotInstalled:
		delete(r.mods, name)
		delete(r.custom, name)
	default:
		return fmt.Errorf("record %s: unknown state %T", name, s)
	}
	return r.saveLocked()
}

// RecordUninstall removes every record of item.
func (r *Registry) RecordUninstall(item *catalog.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mods, item.Name())
	delete(r.custom, item.Name())
	return r.saveLocked()
}

// RecordAPIState stores the host runtime state. Only Installed and
// NotInstalled are meaningful for the API slot.
func (r *Registry) RecordAPIState(s modstate.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch v := s.(type) {
	case modstate.Installed:
		r.api = &APIEntry{Version: v.Version, Enabled: v.Enabled}
	case modstate.NotInstalled:
		r.api = nil
	default:
		return fmt.Errorf("record API state: unsupported state %T", s)
	}
	return r.saveLocked()
}

// APIState returns the recorded host runtime state as Installed or NotInstalled.
func (r *Registry) APIState() modstate.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.api == nil {
		return modstate.NotInstalled{}
	}
	return modstate.Installed{Version: r.api.Version, Enabled: r.api.Enabled}
}

// Reset forgets everything and removes the file.
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = make(map[string]ModEntry)
	r.custom = make(map[string]CustomEntry)
	r.api = nil
	return r.saveLocked()
}

// SetAll replaces both mod maps. A name present in both keeps only its
// catalog entry.
func (r *Registry) SetAll(mods map[string]ModEntry, custom map[string]CustomEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = make(map[string]ModEntry, len(mods))
	maps.Copy(r.mods, mods)
	r.custom = make(map[string]CustomEntry, len(custom))
	for name, e := range custom {
		if _, dup := r.mods[name]; dup {
			continue
		}
		r.custom[name] = e
	}
	return r.saveLocked()
}

// Snapshot returns a copy of the recorded state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{Mods: maps.Clone(r.mods), Custom: maps.Clone(r.custom)}
	if r.api != nil {
		api := *r.api
		s.API = &api
	}
	return s
}

// saveLocked persists the maps. Callers hold r.mu.
func (r *Registry) saveLocked() error {
	if len(r.mods) == 0 && len(r.custom) == 0 && r.api == nil {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove empty registry: %w", err)
		}
		return nil
	}

	doc := document{Mods: r.mods, NotInModlinksMods: r.custom, APIState: r.api}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename registry: %w", err)
	}
	return nil
}
