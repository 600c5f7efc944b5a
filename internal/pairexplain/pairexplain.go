// Package pairexplain implements C10: for any edge between two
// transactions, justify why it exists — which mop(s) in each op link
// them, on which key, under which relation.
//
// Each analyzer (internal/analyzers/listappend, .../rwregister) builds
// its own Explainer as a pure function closed over its per-key indices
// while it infers edges, so no additional graph traversal is needed at
// explanation time (§4.10).
package pairexplain

import (
	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
)

// Explanation justifies a single relation between two ops on one key.
type Explanation struct {
	Key      any
	Relation graph.Label
	// Detail is a short human-readable justification, e.g.
	// "wr: T1 appended 2 to x, T4 read x = [1, 2]".
	Detail string
}

// Explainer justifies every relation present on the edge from -> to. It
// returns one Explanation per (key, relation) pair the two ops share.
type Explainer func(from, to history.Op) []Explanation

// Combine merges several Explainers (one per analyzer/order-graph
// builder) into one that concatenates their justifications for a pair.
func Combine(explainers ...Explainer) Explainer {
	return func(from, to history.Op) []Explanation {
		var out []Explanation
		for _, e := range explainers {
			if e == nil {
				continue
			}
			out = append(out, e(from, to)...)
		}
		return out
	}
}
