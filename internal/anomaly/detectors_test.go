package anomaly

import (
	"testing"

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

func TestDetectAbortedReads(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.Fail, Value: []history.Mop{{Type: history.MopWrite, Key: "x", Value: 1}}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: 1}}},
	}
	h := mustHistory(t, ops)
	findings := DetectAbortedReads(h)
	if len(findings) != 1 || findings[0].Type != AbortedRead {
		t.Fatalf("expected one AbortedRead finding, got %+v", findings)
	}
}

func TestDetectIntermediateReads(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{
			{Type: history.MopWrite, Key: "x", Value: 1},
			{Type: history.MopWrite, Key: "x", Value: 2},
		}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: 1}}},
	}
	h := mustHistory(t, ops)
	findings := DetectIntermediateReads(h)
	if len(findings) != 1 || findings[0].Type != IntermediateRead {
		t.Fatalf("expected one IntermediateRead finding, got %+v", findings)
	}
}

func TestDetectIntermediateReads_FinalWriteIsNotFlagged(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{
			{Type: history.MopWrite, Key: "x", Value: 1},
			{Type: history.MopWrite, Key: "x", Value: 2},
		}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{{Type: history.MopRead, Key: "x", Value: 2}}},
	}
	h := mustHistory(t, ops)
	if findings := DetectIntermediateReads(h); len(findings) != 0 {
		t.Fatalf("expected no findings for a read of the final write, got %+v", findings)
	}
}

func TestDetectLostUpdates(t *testing.T) {
	ops := []history.Op{
		{Index: 0, Process: "p0", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 1},
		}},
		{Index: 1, Process: "p1", Type: history.OK, Value: []history.Mop{
			{Type: history.MopRead, Key: "x", Value: 0},
			{Type: history.MopWrite, Key: "x", Value: 2},
		}},
	}
	h := mustHistory(t, ops)
	findings := DetectLostUpdates(h)
	if len(findings) != 1 || findings[0].Type != LostUpdate {
		t.Fatalf("expected one LostUpdate finding, got %+v", findings)
	}
	if len(findings[0].Ops) != 2 {
		t.Errorf("expected both transactions implicated, got %v", findings[0].Ops)
	}
}
