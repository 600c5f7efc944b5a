package anomaly

import (
	"testing"
	"time"

	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
)

func TestSearch_FindsG0Cycle(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK},
		{Index: 1, Process: "p1", Type: history.OK},
	}
	h := mustHistory(t, ops)

	g := graph.New()
	for _, op := range h.Ops() {
		_ = g.AddNode(op)
	}
	_ = g.AddEdge(0, 1, graph.NewLabelSet(graph.WW))
	_ = g.AddEdge(1, 0, graph.NewLabelSet(graph.WW))
	g.Freeze()

	sccs := graph.FindSCCs(g)
	if len(sccs) != 1 {
		t.Fatalf("expected one SCC, got %d", len(sccs))
	}

	proj := graph.NewProjector(g)
	opOf := func(i int) (history.Op, bool) { return g.Node(i) }

	findings := Search(sccs, proj, opOf, nil, Options{CycleSearchTimeout: 100 * time.Millisecond})
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %+v", findings)
	}
	if findings[0].Type != G0 {
		t.Errorf("expected G0, got %v", findings[0].Type)
	}
}

func TestSearch_NoSCCsNoFindings(t *testing.T) {
	ops := []history.Op{{Index: 0, Process: "p0", Type: history.OK}}
	h := mustHistory(t, ops)
	g := graph.New()
	for _, op := range h.Ops() {
		_ = g.AddNode(op)
	}
	g.Freeze()

	proj := graph.NewProjector(g)
	opOf := func(i int) (history.Op, bool) { return g.Node(i) }

	findings := Search(nil, proj, opOf, nil, DefaultOptions())
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}
