// Package analyzers defines the shared result shape produced by the two
// per-workload edge inferrers (C2): internal/analyzers/listappend and
// internal/analyzers/rwregister. Both analyzers build a labeled graph
// over the same history plus a pair-explainer closure, per §4.2's "two
// analyzers share a common interface."
package analyzers

import (
	"github.com/hciniramy/elle/internal/anomaly"
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/pairexplain"
)

// Result is what a per-workload analyzer produces from a History.
type Result struct {
	// Graph carries only this analyzer's ww/wr/rw edges. The checker
	// unions every analyzer's Graph together (internal/graph.Union)
	// before building order graphs on top.
	Graph *graph.Graph

	// Explainer justifies any edge this analyzer contributed.
	Explainer pairexplain.Explainer

	// Findings are anomalies detected during edge inference itself
	// (IncompatibleOrder, DirtyRead, InternalInconsistency,
	// AmbiguousVersionOrder) — distinct from the C8 non-cycle detectors,
	// which run independently over the whole history.
	Findings []anomaly.Finding
}

// Analyzer builds ww/wr/rw edges for one workload dialect.
type Analyzer interface {
	Analyze(h *history.History) (*Result, error)
}
