// SPDX-License-Identifier: MPL-2.0

// Package dag is the dependency graph behind mod resolution. Nodes are mod
// names; an edge from A to B means A must be installed before B.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError lists the mods left unordered by a cycle.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph with deterministic, insertion-ordered output.
	Graph struct {
		adjacency map[string][]string
		edges     map[[2]string]bool
		nodes     []string
		nodeSet   map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		edges:     make(map[[2]string]bool),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from comes before to. Duplicate edges are ignored
// and both nodes are added implicitly.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool { return g.nodeSet[name] }

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// Successors returns the direct outgoing neighbours of name.
func (g *Graph) Successors(name string) []string {
	out := make([]string, len(g.adjacency[name]))
	copy(out, g.adjacency[name])
	return out
}

// Reachable returns every node reachable from start, excluding start itself,
// in breadth-first order. Cycles are tolerated.
func (g *Graph) Reachable(start string) []string {
	seen := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// Reverse returns a copy of the graph with every edge flipped.
func (g *Graph) Reverse() *Graph {
	r := New()
	for _, node := range g.nodes {
		r.AddNode(node)
	}
	for _, node := range g.nodes {
		for _, next := range g.adjacency[node] {
			r.AddEdge(next, node)
		}
	}
	return r
}

// TopologicalSort orders the nodes with Kahn's algorithm. Nodes at the same
// level keep insertion order. Returns a CycleError when no order exists.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
