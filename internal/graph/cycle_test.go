package graph

import "testing"

// TestFindCycle_SurvivesFragmentedProjection reproduces the scenario where
// an SCC computed on a wider (unified) graph is handed, unmodified, to a
// narrower label projection that no longer strongly connects all of its
// nodes. Nodes {0,1,2,3,4} form one SCC in a hypothetical unified graph,
// but the ww-only projection here is just {0->1, 3->4, 4->3}: node 0's
// only hop dead-ends at node 1, while nodes 3 and 4 form a real 2-cycle.
// FindCycle must not give up after node 0 fails.
func TestFindCycle_SurvivesFragmentedProjection(t *testing.T) {
	g := New()
	for i := 0; i < 5; i++ {
		_ = g.AddNode(op(i))
	}
	_ = g.AddEdge(0, 1, NewLabelSet(WW))
	_ = g.AddEdge(3, 4, NewLabelSet(WW))
	_ = g.AddEdge(4, 3, NewLabelSet(WW))
	g.Freeze()

	scc := SCC{Nodes: []int{0, 1, 2, 3, 4}}

	cyc, ok := FindCycle(g, scc)
	if !ok {
		t.Fatal("expected a cycle to be found at nodes 3<->4 despite node 0's dead end")
	}
	if len(cyc.Edges) != 2 {
		t.Fatalf("expected a 2-edge cycle, got %d edges: %v", len(cyc.Edges), cyc.Edges)
	}
	if cyc.Edges[0].From != 3 {
		t.Errorf("expected canonicalized cycle to start at node 3, got %d", cyc.Edges[0].From)
	}
}

// TestFindCycleStartingWith_SurvivesFragmentedProjection is the same
// scenario against FindCycleStartingWith's two-graph variant: gFirst
// carries wr edges 0->1 and 3->4, gRest only the ww edge 4->3, so the
// lowest-index node with a first edge (node 0, whose hop to 1 has no way
// back in gRest) still must not block the search from succeeding at node 3.
func TestFindCycleStartingWith_SurvivesFragmentedProjection(t *testing.T) {
	gFirst := New()
	gRest := New()
	for i := 0; i < 5; i++ {
		_ = gFirst.AddNode(op(i))
		_ = gRest.AddNode(op(i))
	}
	_ = gFirst.AddEdge(0, 1, NewLabelSet(WR))
	_ = gFirst.AddEdge(3, 4, NewLabelSet(WR))
	_ = gRest.AddEdge(4, 3, NewLabelSet(WW))
	gFirst.Freeze()
	gRest.Freeze()

	scc := SCC{Nodes: []int{0, 1, 2, 3, 4}}

	cyc, ok := FindCycleStartingWith(gFirst, gRest, scc)
	if !ok {
		t.Fatal("expected a cycle to be found starting at node 3 despite node 0's dead end")
	}
	if cyc.Edges[0].From != 3 {
		t.Errorf("expected canonicalized cycle to start at node 3, got %d", cyc.Edges[0].From)
	}
}
