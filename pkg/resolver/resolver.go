// SPDX-License-Identifier: MPL-2.0

// Package resolver walks the dependency edges of a mod catalog. Dependencies
// are exact name references; integrations are soft relations used only for
// discovery and never take part in install or uninstall cascades.
package resolver

import (
	"errors"
	"fmt"

	"github.com/scarabmm/scarab/internal/dag"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
)

// ErrMissingDependency is returned when a manifest names a mod the catalog lacks.
var ErrMissingDependency = errors.New("missing dependency")

type (
	// MissingDependencyError names the mod and the dependency it could not find.
	MissingDependencyError struct {
		Mod        string
		Dependency string
	}

	// Resolver answers dependency queries against a catalog. It reads the
	// catalog on every call, so custom items added later are seen.
	Resolver struct {
		catalog *catalog.Catalog
	}
)

// Error implements the error interface.
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("mod %q depends on %q, which is not in the catalog", e.Mod, e.Dependency)
}

// Unwrap returns ErrMissingDependency for errors.Is.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// New creates a Resolver over c.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Dependencies resolves the direct dependencies of item.
func (r *Resolver) Dependencies(item *catalog.Item) ([]*catalog.Item, error) {
	m := item.Manifest()
	out := make([]*catalog.Item, 0, len(m.Dependencies))
	for _, name := range m.Dependencies {
		dep, ok := r.catalog.Get(name)
		if !ok {
			return nil, &MissingDependencyError{Mod: item.Name(), Dependency: name}
		}
		out = append(out, dep)
	}
	return out, nil
}

// TransitiveDependencies returns every mod reachable through dependency
// edges, depth first and in discovery order. item itself is never included,
// even when a cycle leads back to it.
func (r *Resolver) TransitiveDependencies(item *catalog.Item) ([]*catalog.Item, error) {
	visited := map[string]bool{item.Name(): true}
	var out []*catalog.Item

	var walk func(cur *catalog.Item) error
	walk = func(cur *catalog.Item) error {
		deps, err := r.Dependencies(cur)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if visited[dep.Name()] {
				continue
			}
			visited[dep.Name()] = true
			out = append(out, dep)
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(item); err != nil {
		return nil, err
	}
	return out, nil
}

// TransitiveDependents returns every catalog mod whose dependency chain
// reaches target, in catalog order. With onlyEnabled the result is limited
// to mods that are currently enabled; traversal still passes through
// disabled intermediates.
func (r *Resolver) TransitiveDependents(target *catalog.Item, onlyEnabled bool) []*catalog.Item {
	reached := make(map[string]bool)
	for _, name := range r.graph().Reachable(target.Name()) {
		reached[name] = true
	}

	var out []*catalog.Item
	for _, item := range r.catalog.Items() {
		if !reached[item.Name()] || item.Name() == target.Name() {
			continue
		}
		if onlyEnabled && !modstate.IsEnabled(item.State()) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// DependentsAndIntegrations returns the transitive dependents of target plus
// every mod that lists target as an integration.
func (r *Resolver) DependentsAndIntegrations(target *catalog.Item) []*catalog.Item {
	dependents := make(map[string]bool)
	for _, item := range r.TransitiveDependents(target, false) {
		dependents[item.Name()] = true
	}

	var out []*catalog.Item
	for _, item := range r.catalog.Items() {
		if item.Name() == target.Name() {
			continue
		}
		m := item.Manifest()
		if dependents[item.Name()] || m.IntegratesWith(target.Name()) {
			out = append(out, item)
		}
	}
	return out
}

// InstallOrder returns item's transitive dependencies followed by item,
// ordered so that every mod comes after the mods it depends on. A cycle in
// the dependency subgraph yields a *dag.CycleError.
func (r *Resolver) InstallOrder(item *catalog.Item) ([]*catalog.Item, error) {
	deps, err := r.TransitiveDependencies(item)
	if err != nil {
		return nil, err
	}

	members := append([]*catalog.Item{item}, deps...)
	byName := make(map[string]*catalog.Item, len(members))
	g := dag.New()
	for _, m := range members {
		byName[m.Name()] = m
		g.AddNode(m.Name())
	}
	for _, m := range members {
		for _, dep := range m.Manifest().Dependencies {
			g.AddEdge(dep, m.Name())
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("install order for %q: %w", item.Name(), err)
	}
	out := make([]*catalog.Item, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

// UnusedDependencies returns the catalog-installed transitive dependencies
// of item that no materialized mod outside that dependency set still needs.
// Custom builds are never reported.
func (r *Resolver) UnusedDependencies(item *catalog.Item) ([]*catalog.Item, error) {
	deps, err := r.TransitiveDependencies(item)
	if err != nil {
		return nil, err
	}

	inSet := map[string]bool{item.Name(): true}
	for _, d := range deps {
		inSet[d.Name()] = true
	}

	needed := make(map[string]bool)
	reverse := r.graph().Reverse()
	for _, other := range r.catalog.Items() {
		if inSet[other.Name()] || !modstate.IsMaterialized(other.State()) {
			continue
		}
		for _, name := range reverse.Reachable(other.Name()) {
			needed[name] = true
		}
	}

	var out []*catalog.Item
	for _, d := range deps {
		st := d.State()
		if needed[d.Name()] || !modstate.IsMaterialized(st) || !modstate.IsCatalogTracked(st) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// graph builds the catalog-wide graph with an edge from each dependency to
// the mod that requires it. Unknown dependency names still become nodes.
func (r *Resolver) graph() *dag.Graph {
	g := dag.New()
	for _, item := range r.catalog.Items() {
		g.AddNode(item.Name())
		for _, dep := range item.Manifest().Dependencies {
			g.AddEdge(dep, item.Name())
		}
	}
	return g
}
