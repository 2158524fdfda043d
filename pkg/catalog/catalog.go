// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"fmt"
	"sync"

	"github.com/scarabmm/scarab/pkg/modstate"
)

type (
	// Item is a mod handle: its manifest plus the runtime state attached by
	// the registry. Items are shared between the installer's install and
	// toggle paths, so state access is synchronized.
	Item struct {
		manifest  Manifest
		inCatalog bool

		mu    sync.RWMutex
		state modstate.State
	}

	// Catalog indexes the available mods by name. Custom mods found on disk
	// are added as items without a catalog manifest.
	Catalog struct {
		mu    sync.RWMutex
		items []*Item
		index map[string]*Item
		api   *APIManifest
	}
)

// NewItem creates a catalog-tracked item in the NotInstalled state.
func NewItem(m Manifest) *Item {
	return &Item{manifest: m, inCatalog: true, state: modstate.NotInstalled{}}
}

// NewCustomItem creates an item for a mod that only exists on disk.
func NewCustomItem(name string, state modstate.State) *Item {
	return &Item{manifest: Manifest{Name: name}, state: state}
}

// Name returns the mod name, which is also its folder name.
func (i *Item) Name() string { return i.manifest.Name }

// Manifest returns a copy of the catalog manifest. Custom items only carry a name.
func (i *Item) Manifest() Manifest { return i.manifest }

// InCatalog reports whether the item came from the catalog document.
func (i *Item) InCatalog() bool { return i.inCatalog }

// State returns the current state value.
func (i *Item) State() modstate.State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// SetState replaces the state value.
func (i *Item) SetState(s modstate.State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s
}

// String implements fmt.Stringer.
func (i *Item) String() string {
	return fmt.Sprintf("%s (%s)", i.Name(), i.State())
}

// New builds a catalog from manifests, rejecting invalid and duplicate names.
func New(mods []Manifest, api *APIManifest) (*Catalog, error) {
	c := &Catalog{index: make(map[string]*Item, len(mods)), api: api}
	for _, m := range mods {
		if err := ValidateName(m.Name); err != nil {
			return nil, err
		}
		if _, dup := c.index[m.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMod, m.Name)
		}
		item := NewItem(m)
		c.items = append(c.items, item)
		c.index[m.Name] = item
	}
	return c, nil
}

// API returns the host runtime manifest, or nil when the catalog declares none.
func (c *Catalog) API() *APIManifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api
}

// Get looks up an item by name.
func (c *Catalog) Get(name string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.index[name]
	return item, ok
}

// Has reports whether the catalog document lists name.
func (c *Catalog) Has(name string) bool {
	item, ok := c.Get(name)
	return ok && item.InCatalog()
}

// Items returns a snapshot of all items in catalog order, custom items last.
func (c *Catalog) Items() []*Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// AddCustom registers an on-disk mod that the catalog does not list. When
// an item with that name already exists it is returned unchanged.
func (c *Catalog) AddCustom(name string, state modstate.State) (*Item, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.index[name]; ok {
		return item, nil
	}
	item := NewCustomItem(name, state)
	c.items = append(c.items, item)
	c.index[name] = item
	return item, nil
}

// Remove drops an item. Catalog-listed items cannot be removed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.index[name]
	if !ok || item.inCatalog {
		return false
	}
	delete(c.index, name)
	for idx, it := range c.items {
		if it == item {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
			break
		}
	}
	return true
}
