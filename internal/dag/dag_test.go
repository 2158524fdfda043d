// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		nodes []string
		want  []string
	}{
		{name: "empty", want: nil},
		{name: "single", nodes: []string{"Core"}, want: []string{"Core"}},
		{name: "chain", edges: [][2]string{{"Core", "Lib"}, {"Lib", "Addon"}}, want: []string{"Core", "Lib", "Addon"}},
		{name: "duplicate edges", edges: [][2]string{{"Core", "Addon"}, {"Core", "Addon"}}, want: []string{"Core", "Addon"}},
		{name: "independent keep insertion order", nodes: []string{"B", "A", "C"}, want: []string{"B", "A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			got, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("TopologicalSort() error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopologicalSort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("Core", "Left")
	g.AddEdge("Core", "Right")
	g.AddEdge("Left", "Top")
	g.AddEdge("Right", "Top")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 || order[0] != "Core" || order[3] != "Top" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("Free")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("error = %v, want ErrCycle", err)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error %T is not *CycleError", err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"A", "B"}) {
		t.Errorf("Cycle = %v, want [A B]", cycleErr.Cycle)
	}
}

func TestReachable(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	g.AddEdge("B", "D")
	g.AddNode("E")

	got := g.Reachable("A")
	if !slices.Equal(got, []string{"B", "C", "D"}) {
		t.Errorf("Reachable(A) = %v", got)
	}
	if len(g.Reachable("E")) != 0 {
		t.Error("Reachable(E) should be empty")
	}
}

func TestReverse(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("Core", "Addon")
	r := g.Reverse()
	if !slices.Equal(r.Successors("Addon"), []string{"Core"}) {
		t.Errorf("Reverse successors = %v", r.Successors("Addon"))
	}
	if len(r.Successors("Core")) != 0 || r.Len() != 2 || !r.Has("Core") {
		t.Error("unexpected reversed graph")
	}
}
