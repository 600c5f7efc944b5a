// Package listappend implements C2.1: edge inference for the
// list-append workload, where each key's value is an append-only list
// and every appended element is globally unique per key. That uniqueness
// lets every read's observed list be treated as a witnessed prefix of
// the key's true version order, which is reconstructed directly from the
// union of consecutive-element constraints every read asserts.
package listappend

import (
	"fmt"

	"github.com/hciniramy/elle/internal/analyzers"
	"github.com/hciniramy/elle/internal/anomaly"
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/pairexplain"
)

// keyState is the per-key working set built while scanning the history:
// who appended which element, and the single-successor chain the reads
// assert.
type keyState struct {
	// installer maps an appended element to the op that appended it.
	// Populated from both ok and info ops (§9 open question: an info
	// op's writes are included only when a later read witnesses them —
	// here that falls out naturally, since installer is only ever
	// consulted for elements that actually appear in some read's list).
	installer map[any]history.Op

	// succ[a] = b means some read observed a immediately followed by b.
	// A second, conflicting assignment for the same a marks the key
	// IncompatibleOrder.
	succ map[any]any

	incompatible bool
}

// Analyzer implements analyzers.Analyzer for the list-append dialect.
type Analyzer struct{}

// New returns a list-append Analyzer.
func New() *Analyzer { return &Analyzer{} }

// Analyze builds ww/wr/rw edges for every list-append key touched by h.
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
			s = &keyState{installer: make(map[any]history.Op), succ: make(map[any]any)}
			states[k] = s
		}
		return s
	}

	var findings []anomaly.Finding

	// Pass 1: index installers from every append mop, ok or info.
	for _, op := range h.Ops() {
		if op.Type != history.OK && op.Type != history.Info {
			continue
		}
		for _, m := range op.Value {
			if m.Type == history.MopAppend {
				assertInstaller(stateFor(m.Key), m.Key, m.Value, op, &findings)
			}
		}
	}

	// Pass 2: assert consecutive-element constraints from every ok read,
	// and check internal self-consistency / dirty reads.
	for _, op := range h.Ops() {
		if op.Type != history.OK {
			continue
		}
		appendedSoFar := make(map[any][]any) // this op's own prior appends per key, in order
		for _, m := range op.Value {
			switch m.Type {
			case history.MopAppend:
				appendedSoFar[m.Key] = append(appendedSoFar[m.Key], m.Value)
			case history.MopRead:
				list, _ := m.Value.([]any)
				key := m.Key
				st := stateFor(key)

				for _, elem := range list {
					if _, ok := st.installer[elem]; !ok {
						findings = append(findings, anomaly.Finding{
							Type: anomaly.DirtyRead,
							Ops:  []int{op.Index},
							Detail: map[string]any{
								"key": key, "value": elem, "txn": op.Index,
							},
						})
					}
				}

				if !ownAppendsAreSuffixConsistent(appendedSoFar[key], list) {
					findings = append(findings, anomaly.Finding{
						Type: anomaly.InternalInconsistency,
						Ops:  []int{op.Index},
						Detail: map[string]any{
							"key": key, "observed": list, "own_appends": appendedSoFar[key], "txn": op.Index,
						},
					})
					continue
				}

				for i := 0; i+1 < len(list); i++ {
					assertSucc(st, list[i], list[i+1], key, &findings)
				}
			}
		}
	}

	// Pass 3: detect cycles in each key's successor chain.
	for key, st := range states {
		if st.incompatible {
			continue
		}
		if hasCycle(st.succ) {
			st.incompatible = true
			findings = append(findings, anomaly.Finding{
				Type:   anomaly.IncompatibleOrder,
				Detail: map[string]any{"key": key},
			})
		}
	}

	// Pass 4: emit ww/wr/rw edges for every key whose order is consistent.
	for _, op := range h.Ops() {
		if op.Type != history.OK {
			continue
		}
		for _, m := range op.Value {
			if m.Type != history.MopRead {
				continue
			}
			list, _ := m.Value.([]any)
			if len(list) == 0 {
				continue
			}
			st := states[m.Key]
			if st == nil || st.incompatible {
				continue
			}
			last := list[len(list)-1]
			installerOp, ok := st.installer[last]
			if !ok {
				continue
			}
			if installerOp.Index != op.Index {
				_ = g.AddEdge(installerOp.Index, op.Index, graph.NewLabelSet(graph.WR))
			}

			if nxt, ok := st.succ[last]; ok {
				if nextInstaller, ok := st.installer[nxt]; ok && nextInstaller.Index != op.Index {
					_ = g.AddEdge(op.Index, nextInstaller.Index, graph.NewLabelSet(graph.RW))
				}
			}
		}
	}
	for key, st := range states {
		if st.incompatible {
			continue
		}
		for a, b := range st.succ {
			fromOp, okA := st.installer[a]
			toOp, okB := st.installer[b]
			if okA && okB && fromOp.Index != toOp.Index {
				_ = g.AddEdge(fromOp.Index, toOp.Index, graph.NewLabelSet(graph.WW))
			}
		}
		_ = key
	}

	g.Freeze()

	explainer := buildExplainer(states)

	return &analyzers.Result{Graph: g, Explainer: explainer, Findings: findings}, nil
}

// assertInstaller records that op appended value to key, flagging the key
// IncompatibleOrder if some other op already installed that same value
// (two transactions cannot both be the unique appender of one element).
func assertInstaller(st *keyState, key, value any, op history.Op, findings *[]anomaly.Finding) {
	if existing, ok := st.installer[value]; ok {
		if existing.Index != op.Index {
			st.incompatible = true
			*findings = append(*findings, anomaly.Finding{
				Type:   anomaly.IncompatibleOrder,
				Detail: map[string]any{"key": key, "value": value, "conflicting_installers": []int{existing.Index, op.Index}},
			})
		}
		return
	}
	st.installer[value] = op
}

// assertSucc records that b was observed immediately after a on key,
// flagging the key IncompatibleOrder if a already has a different
// recorded successor.
func assertSucc(st *keyState, a, b, key any, findings *[]anomaly.Finding) {
	if existing, ok := st.succ[a]; ok {
		if existing != b {
			st.incompatible = true
			*findings = append(*findings, anomaly.Finding{
				Type:   anomaly.IncompatibleOrder,
				Detail: map[string]any{"key": key, "after": a, "conflicting_next": []any{existing, b}},
			})
		}
		return
	}
	st.succ[a] = b
}

// ownAppendsAreSuffixConsistent checks that a transaction's own prior
// appends to a key appear, in order, within its own read of that key —
// a transaction must see its own writes (§4.2.1 rule 5).
func ownAppendsAreSuffixConsistent(ownAppends []any, observed []any) bool {
	if len(ownAppends) == 0 {
		return true
	}
	positions := make(map[any]int, len(observed))
	for i, e := range observed {
		positions[e] = i
	}
	last := -1
	for _, e := range ownAppends {
		pos, ok := positions[e]
		if !ok || pos < last {
			return false
		}
		last = pos
	}
	return true
}

// hasCycle reports whether following succ from any starting element
// eventually revisits a node already on the current chain.
func hasCycle(succ map[any]any) bool {
	state := make(map[any]int) // 0=unvisited, 1=in-progress, 2=done
	var visit func(n any) bool
	visit = func(n any) bool {
		switch state[n] {
		case 1:
			return true
		case 2:
			return false
		}
		state[n] = 1
		if next, ok := succ[n]; ok {
			if visit(next) {
				return true
			}
		}
		state[n] = 2
		return false
	}
	for n := range succ {
		if visit(n) {
			return true
		}
	}
	return false
}

func buildExplainer(states map[any]*keyState) pairexplain.Explainer {
	return func(from, to history.Op) []pairexplain.Explanation {
		var out []pairexplain.Explanation
		for key, st := range states {
			out = append(out, explainPair(key, st, from, to)...)
		}
		return out
	}
}

func explainPair(key any, st *keyState, from, to history.Op) []pairexplain.Explanation {
	var out []pairexplain.Explanation

	fromAppend, fromInstalls := installedElement(st, from)
	if fromInstalls {
		if succ, ok := st.succ[fromAppend]; ok {
			if installer, ok := st.installer[succ]; ok && installer.Index == to.Index {
				out = append(out, pairexplain.Explanation{
					Key: key, Relation: graph.WW,
					Detail: fmt.Sprintf("T%d appended %v to %v immediately before T%d appended %v", from.Index, fromAppend, key, to.Index, succ),
				})
			}
		}
	}

	for _, m := range to.Value {
		if m.Type != history.MopRead || m.Key != key {
			continue
		}
		list, _ := m.Value.([]any)
		if len(list) == 0 {
			continue
		}
		last := list[len(list)-1]
		if installer, ok := st.installer[last]; ok && installer.Index == from.Index {
			out = append(out, pairexplain.Explanation{
				Key: key, Relation: graph.WR,
				Detail: fmt.Sprintf("T%d appended %v to %v, read by T%d as tail of %v", from.Index, last, key, to.Index, list),
			})
		}
	}

	for _, m := range from.Value {
		if m.Type != history.MopRead || m.Key != key {
			continue
		}
		list, _ := m.Value.([]any)
		if len(list) == 0 {
			continue
		}
		last := list[len(list)-1]
		if nxt, ok := st.succ[last]; ok {
			if installer, ok := st.installer[nxt]; ok && installer.Index == to.Index {
				out = append(out, pairexplain.Explanation{
					Key: key, Relation: graph.RW,
					Detail: fmt.Sprintf("T%d read %v up to %v on %v; T%d appended the next element %v", from.Index, list, last, key, to.Index, nxt),
				})
			}
		}
	}

	return out
}

// installedElement returns an element op installed on this key, if any.
// When op appended several elements to the key, which one is returned is
// not defined.
func installedElement(st *keyState, op history.Op) (any, bool) {
	for elem, installer := range st.installer {
		if installer.Index == op.Index {
			return elem, true
		}
	}
	return nil, false
}
