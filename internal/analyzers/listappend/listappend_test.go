package listappend

import (
	"testing"

	"github.com/hciniramy/elle/internal/anomaly"
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

// TestAnalyze_S1 reproduces spec scenario S1: no cycle, ww T1->T2 only,
// wr T1->T2 and T1->T3 and T2->T3.
func TestAnalyze_S1(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopAppend, Key: "x", Value: 1}}},
		{Index: 1, Process: "p2", Type: history.OK, Value: []history.Mop{
			{Type: history.MopAppend, Key: "x", Value: 2},
			{Type: history.MopRead, Key: "x", Value: []any{1, 2}},
		}},
		{Index: 2, Process: "p3", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: []any{1, 2}}}},
	}
	h := mustHistory(t, ops)

	result, err := New().Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", result.Findings)
	}

	if labels := result.Graph.EdgeLabels(0, 1); !labels.Has(graph.WW) {
		t.Errorf("expected ww edge T1->T2, got %v", labels.Names())
	}
	if labels := result.Graph.EdgeLabels(0, 2); !labels.Has(graph.WR) {
		t.Errorf("expected wr edge T1->T3, got %v", labels.Names())
	}
	if labels := result.Graph.EdgeLabels(1, 2); !labels.Has(graph.WR) {
		t.Errorf("expected wr edge T2->T3, got %v", labels.Names())
	}
}

// TestAnalyze_S2 reproduces spec scenario S2: T4 reads [1] then appends
// 2, contradicting T2's earlier read of [1,2] in version order ->
// IncompatibleOrder, no G1c.
func TestAnalyze_S2(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopAppend, Key: "x", Value: 1}}},
		{Index: 1, Process: "p2", Type: history.OK, Value: []history.Mop{
			{Type: history.MopAppend, Key: "x", Value: 2},
			{Type: history.MopRead, Key: "x", Value: []any{1, 2}},
		}},
		{Index: 2, Process: "p3", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: []any{1, 2}}}},
		{Index: 3, Process: "p4", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: []any{1}},
			{Type: history.MopAppend, Key: "x", Value: 2},
		}},
	}
	h := mustHistory(t, ops)

	result, err := New().Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	found := false
	for _, f := range result.Findings {
		if f.Type == anomaly.IncompatibleOrder {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected IncompatibleOrder finding, got %+v", result.Findings)
	}
}

func TestAnalyze_DirtyRead(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p1", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: []any{99}},
		}},
	}
	h := mustHistory(t, ops)
	result, err := New().Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Findings) != 1 || result.Findings[0].Type != anomaly.DirtyRead {
		t.Fatalf("expected single DirtyRead finding, got %+v", result.Findings)
	}
}
