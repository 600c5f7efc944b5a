package graph

import (
	"testing"

	"github.com/hciniramy/elle/internal/history"
)

func op(idx int) history.Op {
	return history.Op{Index: idx, Process: "p", Type: history.OK}
}

func buildTriangle(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, i := range []int{0, 1, 2} {
		if err := g.AddNode(op(i)); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	must := func(err error) {
		if err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	must(g.AddEdge(0, 1, NewLabelSet(WW)))
	must(g.AddEdge(1, 2, NewLabelSet(WR)))
	must(g.AddEdge(2, 0, NewLabelSet(RW)))
	g.Freeze()
	return g
}

func TestGraph_FreezeBlocksMutation(t *testing.T) {
	g := buildTriangle(t)
	if err := g.AddNode(op(99)); err != ErrFrozen {
		t.Errorf("expected ErrFrozen, got %v", err)
	}
	if err := g.AddEdge(0, 1, NewLabelSet(WW)); err != ErrFrozen {
		t.Errorf("expected ErrFrozen, got %v", err)
	}
}

func TestGraph_ParallelEdgesMerge(t *testing.T) {
	g := New()
	_ = g.AddNode(op(0))
	_ = g.AddNode(op(1))
	_ = g.AddEdge(0, 1, NewLabelSet(WW))
	_ = g.AddEdge(0, 1, NewLabelSet(WR))
	g.Freeze()

	labels := g.EdgeLabels(0, 1)
	if !labels.Has(WW) || !labels.Has(WR) {
		t.Errorf("expected merged ww+wr, got %v", labels.Names())
	}
}

func TestUnion(t *testing.T) {
	g1 := New()
	_ = g1.AddNode(op(0))
	_ = g1.AddNode(op(1))
	_ = g1.AddEdge(0, 1, NewLabelSet(WW))
	g1.Freeze()

	g2 := New()
	_ = g2.AddNode(op(0))
	_ = g2.AddNode(op(1))
	_ = g2.AddEdge(0, 1, NewLabelSet(WR))
	g2.Freeze()

	merged := Union(g1, g2)
	labels := merged.EdgeLabels(0, 1)
	if !labels.Has(WW) || !labels.Has(WR) {
		t.Errorf("expected union of labels, got %v", labels.Names())
	}
}

func TestProjector_Idempotent(t *testing.T) {
	g := buildTriangle(t)
	p := NewProjector(g)

	first := p.Project(NewLabelSet(WW))
	second := p.Project(NewLabelSet(WW))
	if first != second {
		t.Error("expected memoized projection to return the same *Graph")
	}
	if len(first.NodeIndices()) != 3 {
		t.Errorf("expected all 3 nodes retained, got %d", len(first.NodeIndices()))
	}
	if first.EdgeLabels(0, 1) == 0 {
		t.Error("expected ww edge to survive projection")
	}
	if !first.EdgeLabels(1, 2).Empty() {
		t.Error("expected wr edge to be filtered out of a ww-only projection")
	}
}
