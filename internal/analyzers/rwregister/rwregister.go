// Package rwregister implements C2.2: edge inference for the
// read-write register workload, where values are opaque and typically
// non-unique. Version order must be inferred conservatively from (a)
// which write a read's value could have come from and (b) a
// transaction's own mop order.
package rwregister

import (
	"fmt"
	"sort"

	"github.com/hciniramy/elle/internal/analyzers"
	"github.com/hciniramy/elle/internal/anomaly"
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/pairexplain"
)

// write records one write of a value to a key.
type write struct {
	op    history.Op
	value any
}

// wwEdge is one certain version-order edge: from must precede to on this
// key.
type wwEdge struct{ from, to int }

// keyState tracks every known write of a key, ordered by op index, plus
// the ww edges this analyzer could establish with certainty.
type keyState struct {
	writes []write // ascending by op.Index

	// ww holds every certain (from, to) version-order edge on this key.
	// A predecessor can have more than one successor (e.g. two
	// transactions both reading the same version and each writing their
	// own next version, as in a lost update), so this is a set of edges
	// rather than a single-valued map (§4.2.2 rule 2: "when undetermined,
	// no edge").
	ww map[wwEdge]bool
}

// Analyzer implements analyzers.Analyzer for the rw-register dialect.
type Analyzer struct{}

// New returns a rw-register Analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Analyze(h *history.History) (*analyzers.Result, error) {
	g := graph.New()
	for _, op := range h.Ops() {
		if op.Type == history.OK || op.Type == history.Info {
			_ = g.AddNode(op)
		}
	}

	states := make(map[any]*keyState)
	stateFor := func(k any) *keyState {
		s := states[k]
		if s == nil {
			s = &keyState{ww: make(map[wwEdge]bool)}
			states[k] = s
		}
		return s
	}

	var findings []anomaly.Finding

	// Pass 1: index every write (ok and info — an info write's value is
	// only ever matched against a read that actually witnesses it, so
	// including it here is safe per the §9 open-question decision).
	for _, op := range h.Ops() {
		if op.Type != history.OK && op.Type != history.Info {
			continue
		}
		for _, m := range op.Value {
			if m.Type == history.MopWrite {
				st := stateFor(m.Key)
				st.writes = append(st.writes, write{op: op, value: m.Value})
			}
		}
	}
	for _, st := range states {
		sort.Slice(st.writes, func(i, j int) bool { return st.writes[i].op.Index < st.writes[j].op.Index })
	}

	// Pass 2: wr edges, via "most recent write of v" (§4.2.2 rule 1).
	wrSource := make(map[[2]any]history.Op) // (key, readerIndex) -> writer, for the explainer
	for _, op := range h.Ops() {
		if op.Type != history.OK {
			continue
		}
		for _, m := range op.Value {
			if m.Type != history.MopRead {
				continue
			}
			st := states[m.Key]
			if st == nil {
				continue
			}
			candidates := candidatesFor(st, m.Value, op.Index)
			if len(candidates) == 0 {
				continue
			}
			chosen := candidates[len(candidates)-1]
			if len(candidates) > 1 {
				// Ambiguous: more than one write of v precedes this
				// read's own index. Emit AmbiguousVersionOrder and fall
				// back to the earliest-indexed candidate deterministically
				// (§4.2.2 rule 1).
				findings = append(findings, anomaly.Finding{
					Type: anomaly.AmbiguousVersionOrder,
					Ops:  []int{op.Index},
					Detail: map[string]any{
						"key": m.Key, "value": m.Value, "candidates": writeIndices(candidates),
					},
				})
				chosen = candidates[0]
			}
			_ = g.AddEdge(chosen.op.Index, op.Index, graph.NewLabelSet(graph.WR))
			wrSource[[2]any{m.Key, op.Index}] = chosen.op
		}
	}

	// Pass 3: ww edges. The only certain signal available without a
	// SAT-style solver (§9 open question, resolved conservatively): when
	// a transaction reads key k (sourced from writer W) and later writes
	// k itself within the same transaction, W must precede this
	// transaction's own write in k's version order.
	for _, op := range h.Ops() {
		if op.Type != history.OK {
			continue
		}
		readSource := make(map[any]history.Op)
		for _, m := range op.Value {
			switch m.Type {
			case history.MopRead:
				if src, ok := wrSource[[2]any{m.Key, op.Index}]; ok {
					readSource[m.Key] = src
				}
			case history.MopWrite:
				if src, ok := readSource[m.Key]; ok && src.Index != op.Index {
					stateFor(m.Key).ww[wwEdge{from: src.Index, to: op.Index}] = true
				}
			}
		}
	}

	// Pass 4: rw edges, from the known ww chain (§4.2.2 rule 3): a
	// transaction that read version v gets an rw edge to every
	// transaction that a certain ww edge places directly after v's writer
	// (later versions reachable only through further ww edges get none).
	for key, source := range wrSource {
		k := key[0]
		readerIdx := key[1].(int)
		st := states[k]
		for edge := range st.ww {
			if edge.from == source.Index && edge.to != readerIdx {
				_ = g.AddEdge(readerIdx, edge.to, graph.NewLabelSet(graph.RW))
			}
		}
	}

	// Pass 5: emit the certain ww edges.
	for _, st := range states {
		for edge := range st.ww {
			_ = g.AddEdge(edge.from, edge.to, graph.NewLabelSet(graph.WW))
		}
	}

	g.Freeze()

	explainer := buildExplainer(states, wrSource)

	return &analyzers.Result{Graph: g, Explainer: explainer, Findings: findings}, nil
}

// candidatesFor returns every write of value on this key with op index
// less than readerIndex, ascending by index — the set the spec's "most
// recent write" rule disambiguates among.
func candidatesFor(st *keyState, value any, readerIndex int) []write {
	var out []write
	for _, w := range st.writes {
		if w.op.Index < readerIndex && valuesEqual(w.value, value) {
			out = append(out, w)
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	return a == b
}

func writeIndices(ws []write) []int {
	idx := make([]int, len(ws))
	for i, w := range ws {
		idx[i] = w.op.Index
	}
	return idx
}

func buildExplainer(states map[any]*keyState, wrSource map[[2]any]history.Op) pairexplain.Explainer {
	return func(from, to history.Op) []pairexplain.Explanation {
		var out []pairexplain.Explanation
		for key, st := range states {
			if st.ww[wwEdge{from: from.Index, to: to.Index}] {
				out = append(out, pairexplain.Explanation{
					Key: key, Relation: graph.WW,
					Detail: fmt.Sprintf("T%d's write of %v is read by a transaction that itself writes %v before T%d's own write", from.Index, key, key, to.Index),
				})
			}
			if source, ok := wrSource[[2]any{key, to.Index}]; ok && source.Index == from.Index {
				out = append(out, pairexplain.Explanation{
					Key: key, Relation: graph.WR,
					Detail: fmt.Sprintf("T%d wrote %v, read by T%d", from.Index, key, to.Index),
				})
			}
			if source, ok := wrSource[[2]any{key, from.Index}]; ok {
				for edge := range st.ww {
					if edge.from == source.Index && edge.to == to.Index {
						out = append(out, pairexplain.Explanation{
							Key: key, Relation: graph.RW,
							Detail: fmt.Sprintf("T%d read a version of %v installed before T%d's write", from.Index, key, to.Index),
						})
					}
				}
			}
		}
		return out
	}
}
