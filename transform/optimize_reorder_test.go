package transform

import (
	"testing"

	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/nodes"
)

// TestOptimizeReorderDataCancelsInversePair exercises spec §8 scenario 4:
// input [2,3,4] canonical -> reorder {2,0,1} -> reorder {1,2,0} -> output.
// {1,2,0} is the inverse permutation of {2,0,1}, so their composition is
// the identity; per spec §4.3's invariant ("for all reorder-data-node
// pairs whose composed dimension-order is the identity and whose layouts
// are canonical, OptimizeReorderData eliminates both"), both reorders are
// removed entirely rather than fused into a surviving node. The numeric
// pass-through consequence of this cancellation is checked end to end in
// nodes.TestReorderInversePairCancelsToPassThrough.
func TestOptimizeReorderDataCancelsInversePair(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{2, 3, 4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	r1 := nodes.NewReorderData(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]int{2, 0, 1}, "r1")
	if err := m.AddNode(r1); err != nil {
		t.Fatalf("AddNode(r1): %v", err)
	}
	r2 := nodes.NewReorderData(
		port.Input{Type: port.Float32, Layout: r1.Outputs()[0].Layout, Source: port.Ref{NodeID: "r1", Index: 0}},
		[]int{1, 2, 0}, "r2")
	if err := m.AddNode(r2); err != nil {
		t.Fatalf("AddNode(r2): %v", err)
	}
	out := nodes.NewOutput(
		port.Input{Type: port.Float32, Layout: r2.Outputs()[0].Layout, Source: port.Ref{NodeID: "r2", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	optimized, err := ByNameApply(t, "OptimizeReorderData", m)
	if err != nil {
		t.Fatalf("OptimizeReorderData: %v", err)
	}
	for _, n := range optimized.Nodes() {
		if _, ok := n.(*nodes.ReorderDataNode); ok {
			t.Fatalf("inverse reorder pair should have cancelled entirely, found %v", n.ID())
		}
	}
}

// TestOptimizeReorderDataFusesToNonIdentityReorder exercises the other half
// of the fuse branch: two consecutive reorders whose composition is itself
// a non-identity permutation collapse into a single ReorderDataNode
// carrying that composed order, rather than being eliminated.
func TestOptimizeReorderDataFusesToNonIdentityReorder(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{2, 3, 4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	r1 := nodes.NewReorderData(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]int{1, 2, 0}, "r1")
	if err := m.AddNode(r1); err != nil {
		t.Fatalf("AddNode(r1): %v", err)
	}
	r2 := nodes.NewReorderData(
		port.Input{Type: port.Float32, Layout: r1.Outputs()[0].Layout, Source: port.Ref{NodeID: "r1", Index: 0}},
		[]int{1, 2, 0}, "r2")
	if err := m.AddNode(r2); err != nil {
		t.Fatalf("AddNode(r2): %v", err)
	}
	out := nodes.NewOutput(
		port.Input{Type: port.Float32, Layout: r2.Outputs()[0].Layout, Source: port.Ref{NodeID: "r2", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	optimized, err := ByNameApply(t, "OptimizeReorderData", m)
	if err != nil {
		t.Fatalf("OptimizeReorderData: %v", err)
	}

	var reorders []*nodes.ReorderDataNode
	for _, n := range optimized.Nodes() {
		if rn, ok := n.(*nodes.ReorderDataNode); ok {
			reorders = append(reorders, rn)
		}
	}
	if len(reorders) != 1 {
		t.Fatalf("got %d ReorderDataNode(s) after fusion, want 1; nodes=%v", len(reorders), optimized.Nodes())
	}
	want := []int{2, 0, 1}
	got := reorders[0].OrderParam()
	if len(got) != len(want) {
		t.Fatalf("composed order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("composed order = %v, want %v", got, want)
		}
	}
}

// TestOptimizeReorderDataRemovesIdentityReorder covers the simpler
// elimination case: a single reorder whose output layout is equivalent to
// its input layout is removed entirely.
func TestOptimizeReorderDataRemovesIdentityReorder(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{3}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	r := nodes.NewReorderData(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]int{0}, "r")
	if err := m.AddNode(r); err != nil {
		t.Fatalf("AddNode(r): %v", err)
	}
	out := nodes.NewOutput(
		port.Input{Type: port.Float32, Layout: r.Outputs()[0].Layout, Source: port.Ref{NodeID: "r", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	optimized, err := ByNameApply(t, "OptimizeReorderData", m)
	if err != nil {
		t.Fatalf("OptimizeReorderData: %v", err)
	}
	for _, n := range optimized.Nodes() {
		if _, ok := n.(*nodes.ReorderDataNode); ok {
			t.Fatalf("identity reorder should have been eliminated, found %v", n.ID())
		}
	}
}
