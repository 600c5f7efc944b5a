package checker

import (
	"context"
	"testing"

	"github.com/hciniramy/elle/internal/anomaly"
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

// TestAnalyze_S1 reproduces scenario S1: no cycle, valid under
// serializable.
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

	opts := DefaultOptions()
	opts.ConsistencyModels = []Model{Serializable}
	result, err := Analyze(context.Background(), h, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Valid != ValidTrue {
		t.Errorf("Valid = %v, want true; anomalies=%v", result.Valid, result.AnomalyTypes)
	}
}

// TestAnalyze_S4 reproduces scenario S4: lost update on a rw-register key.
func TestAnalyze_S4(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{{Type: history.MopWrite, Key: "x", Value: 0}}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 1},
		}},
		{Index: 2, Process: "p2", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 2},
		}},
	}
	h := mustHistory(t, ops)

	opts := DefaultOptions()
	opts.Anomalies = []anomaly.Tag{anomaly.LostUpdate}
	result, err := Analyze(context.Background(), h, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Valid != ValidFalse {
		t.Errorf("Valid = %v, want false; anomalies=%v", result.Valid, result.AnomalyTypes)
	}
	findings := result.Anomalies[anomaly.LostUpdate]
	if len(findings) != 1 {
		t.Fatalf("expected one LostUpdate finding, got %+v", findings)
	}
}

// TestAnalyze_S5 reproduces scenario S5: a read observes a value that
// was only ever written by a transaction that failed.
func TestAnalyze_S5(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.Fail, Value: []history.Mop{{Type: history.MopWrite, Key: "x", Value: 7}}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: 7}}},
	}
	h := mustHistory(t, ops)

	opts := DefaultOptions()
	opts.Anomalies = []anomaly.Tag{anomaly.AbortedRead}
	result, err := Analyze(context.Background(), h, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Valid != ValidFalse {
		t.Errorf("Valid = %v, want false; anomalies=%v", result.Valid, result.AnomalyTypes)
	}
	if len(result.Anomalies[anomaly.AbortedRead]) != 1 {
		t.Fatalf("expected one AbortedRead finding, got %+v", result.Anomalies[anomaly.AbortedRead])
	}
}

// TestAnalyze_S6 reproduces scenario S6: a real-time violation — T1
// completes before T2 invokes, yet the inferred version order on key x
// runs the other way (T2's append precedes T1's), yielding a
// G0-realtime cycle under strict-serializable.
func TestAnalyze_S6(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p1", Type: history.OK, InvokeTime: 0, CompleteTime: 10,
			Value: []history.Mop{{Type: history.MopAppend, Key: "x", Value: "a"}}},
		{Index: 1, Process: "p2", Type: history.OK, InvokeTime: 20, CompleteTime: 30,
			Value: []history.Mop{{Type: history.MopAppend, Key: "x", Value: "b"}}},
		{Index: 2, Process: "p3", Type: history.OK, InvokeTime: 40, CompleteTime: 50,
			Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: []any{"b", "a"}}}},
	}
	h := mustHistory(t, ops)

	opts := DefaultOptions() // strict-serializable by default
	result, err := Analyze(context.Background(), h, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Valid != ValidFalse {
		t.Errorf("Valid = %v, want false; anomalies=%v", result.Valid, result.AnomalyTypes)
	}

	found := false
	for _, tag := range result.AnomalyTypes {
		if tag == anomaly.G0.Suffix("-realtime") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a G0-realtime anomaly, got %v", result.AnomalyTypes)
	}
}
