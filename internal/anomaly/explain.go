package anomaly

import (
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/pairexplain"
)

// Classify assigns a cycle its base anomaly tag per the rw-edge counting
// rule (§4.7):
//
//   - only ww edges                         -> G0
//   - ww/wr edges, no rw                    -> G1c
//   - exactly one rw edge                    -> G-single
//   - >=2 rw edges, none adjacent            -> G-nonadjacent
//   - >=2 rw edges, at least one pair adjacent -> G2-item
//
// A -realtime or -process suffix is appended when the cycle contains at
// least one edge carrying that label; -realtime takes priority over
// -process when both are present (§4.6: a
// cycle is only reported under process/realtime variants when it relies
// on an edge those narrower graphs supply).
func Classify(c graph.Cycle) Tag {
	n := len(c.Edges)
	isRW := func(i int) bool {
		return c.Edges[i].Labels.Has(graph.RW)
	}

	rwCount := 0
	adjacentRW := false
	for i := 0; i < n; i++ {
		if !isRW(i) {
			continue
		}
		rwCount++
		if n > 1 && isRW((i+1)%n) {
			adjacentRW = true
		}
	}

	base := baseTag(rwCount, adjacentRW)
	return withOrderSuffix(base, c)
}

func baseTag(rwCount int, adjacentRW bool) Tag {
	switch {
	case rwCount == 0:
		return g0OrG1c
	case rwCount == 1:
		return GSingle
	case adjacentRW:
		return G2Item
	default:
		return GNonadjacent
	}
}

// g0OrG1c is resolved by the caller's edge scan below — Classify never
// actually returns this sentinel; it is replaced before return. Kept as
// a named constant purely so baseTag reads as a total function.
const g0OrG1c Tag = "__g0_or_g1c__"

func withOrderSuffix(base Tag, c graph.Cycle) Tag {
	if base == g0OrG1c {
		base = resolveG0OrG1c(c)
	}
	hasProcess, hasRealtime := false, false
	for _, e := range c.Edges {
		if e.Labels.Has(graph.ProcessLabel) {
			hasProcess = true
		}
		if e.Labels.Has(graph.RealtimeLabel) {
			hasRealtime = true
		}
	}
	switch {
	case hasRealtime:
		return base.Suffix("-realtime")
	case hasProcess:
		return base.Suffix("-process")
	default:
		return base
	}
}

// resolveG0OrG1c distinguishes G0 (ww edges only) from G1c (ww/wr edges,
// at least one wr) for a cycle with no rw edges.
func resolveG0OrG1c(c graph.Cycle) Tag {
	for _, e := range c.Edges {
		if e.Labels.Has(graph.WR) {
			return G1c
		}
	}
	return G0
}

// Explain turns a graph.Cycle into a Finding, attaching C10's
// pair-by-pair justification for every edge via explainer. opOf resolves
// a node index back to the history.Op it came from.
func Explain(tag Tag, c graph.Cycle, explainer pairexplain.Explainer, opOf func(int) (history.Op, bool)) Finding {
	f := Finding{Type: tag, Ops: c.Nodes()}
	for _, e := range c.Edges {
		step := Step{FromIndex: e.From, ToIndex: e.To, Relations: e.Labels.Names()}
		if explainer != nil && opOf != nil {
			fromOp, okFrom := opOf(e.From)
			toOp, okTo := opOf(e.To)
			if okFrom && okTo {
				if expls := explainer(fromOp, toOp); len(expls) > 0 {
					step.Key = expls[0].Key
					step.Detail = expls[0].Detail
				}
			}
		}
		f.Steps = append(f.Steps, step)
	}
	return f
}
