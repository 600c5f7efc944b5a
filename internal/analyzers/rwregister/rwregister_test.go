package rwregister

import (
	"testing"

	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
)

func mustHistory(t *testing.T, ops []history.Op) *history.History {
	t.Helper()
	h, err := history.Build(ops)
	if err != nil {
		t.Fatalf("history.Build: %v", err)
	}
	return h
}

func TestAnalyze_WrFromPriorWrite(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{{Type: history.MopWrite, Key: "x", Value: 0}}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 1},
		}},
	}
	h := mustHistory(t, ops)
	result, err := New().Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if labels := result.Graph.EdgeLabels(0, 1); !labels.Has(graph.WR) {
		t.Errorf("expected wr T0->T1, got %v", labels.Names())
	}
}

func TestAnalyze_ReadThenWriteInfersWW(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{{Type: history.MopWrite, Key: "x", Value: 0}}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 1},
		}},
	}
	h := mustHistory(t, ops)
	result, err := New().Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if labels := result.Graph.EdgeLabels(0, 1); !labels.Has(graph.WW) {
		t.Errorf("expected ww T0->T1 inferred from T1's own read of T0's write, got %v", labels.Names())
	}
	if labels := result.Graph.EdgeLabels(0, 0); labels.Has(graph.WW) {
		t.Errorf("same-txn ww edges must not self-loop")
	}
}
