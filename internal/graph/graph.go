// Package graph implements the unified directed multigraph over
// transaction completions: nodes are ops (identified by history.Op.Index),
// edges carry a non-empty set of relationship labels (ww, wr, rw, process,
// realtime), and parallel edges between the same pair are merged by label
// union.
//
// Lifecycle mirrors the teacher's graph package: a Graph is built via
// AddNode/AddEdge, then Freeze()'d. After Freeze, the graph is read-only
// and safe for concurrent reads — including the projection memoizer in
// projection.go, which is only ever handed a frozen graph.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hciniramy/elle/internal/history"
)

// Sentinel errors for graph construction.
var (
	// ErrFrozen is returned when attempting to modify a frozen graph.
	ErrFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references a node that was
	// never added via AddNode.
	ErrNodeNotFound = errors.New("node not found")
)

// Label names a single relationship an edge can carry.
type Label uint8

const (
	WW Label = 1 << iota
	WR
	RW
	ProcessLabel
	RealtimeLabel
)

// LabelSet is the union of one or more Label bits carried by an edge.
// Because there are only 5 labels, a LabelSet fits in a byte and is
// directly usable as a map key — this is what makes the projection
// memoizer in projection.go trivial to key.
type LabelSet uint8

// NewLabelSet unions the given labels into a set.
func NewLabelSet(labels ...Label) LabelSet {
	var s LabelSet
	for _, l := range labels {
		s |= LabelSet(l)
	}
	return s
}

// Has reports whether l is present in s.
func (s LabelSet) Has(l Label) bool { return s&LabelSet(l) != 0 }

// Union returns the label-wise union of s and other.
func (s LabelSet) Union(other LabelSet) LabelSet { return s | other }

// Intersects reports whether s and other share any label — this is the
// predicate project() uses to decide whether an edge survives a
// projection.
func (s LabelSet) Intersects(other LabelSet) bool { return s&other != 0 }

// Empty reports whether the set carries no labels.
func (s LabelSet) Empty() bool { return s == 0 }

var labelNames = []struct {
	bit  Label
	name string
}{
	{WW, "ww"},
	{WR, "wr"},
	{RW, "rw"},
	{ProcessLabel, "process"},
	{RealtimeLabel, "realtime"},
}

// Names returns the human-readable label names present in s, in the fixed
// order ww, wr, rw, process, realtime.
func (s LabelSet) Names() []string {
	var names []string
	for _, ln := range labelNames {
		if s.Has(ln.bit) {
			names = append(names, ln.name)
		}
	}
	return names
}

func (s LabelSet) String() string {
	return fmt.Sprintf("%v", s.Names())
}

// Graph is a directed multigraph over op indices. Nodes carry their
// originating history.Op; edges carry a LabelSet.
//
// Not safe for concurrent writes during the build phase (single-writer,
// matching the teacher's ownership contract). Safe for concurrent reads
// once Freeze() has been called.
type Graph struct {
	frozen bool

	nodes map[int]history.Op

	// out[from][to] is the union of every label set attached between
	// from and to.
	out map[int]map[int]LabelSet
	in  map[int]map[int]LabelSet
}

// New returns an empty, buildable Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int]history.Op),
		out:   make(map[int]map[int]LabelSet),
		in:    make(map[int]map[int]LabelSet),
	}
}

// AddNode registers op as a graph node. Re-adding the same index is a
// no-op. Returns ErrFrozen if the graph has been frozen.
func (g *Graph) AddNode(op history.Op) error {
	if g.frozen {
		return ErrFrozen
	}
	if _, exists := g.nodes[op.Index]; !exists {
		g.nodes[op.Index] = op
	}
	return nil
}

// AddEdge adds labels to the edge from -> to, creating it if absent and
// unioning labels into it if present. Both endpoints must already exist
// via AddNode.
func (g *Graph) AddEdge(from, to int, labels LabelSet) error {
	if g.frozen {
		return ErrFrozen
	}
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}

	if g.out[from] == nil {
		g.out[from] = make(map[int]LabelSet)
	}
	g.out[from][to] = g.out[from][to].Union(labels)

	if g.in[to] == nil {
		g.in[to] = make(map[int]LabelSet)
	}
	g.in[to][from] = g.in[to][from].Union(labels)

	return nil
}

// Freeze finalizes the graph. After Freeze, AddNode/AddEdge return
// ErrFrozen and every read method is safe for concurrent use.
func (g *Graph) Freeze() { g.frozen = true }

// Frozen reports whether Freeze has been called.
func (g *Graph) Frozen() bool { return g.frozen }

// Node returns the op stored at index, if any.
func (g *Graph) Node(index int) (history.Op, bool) {
	op, ok := g.nodes[index]
	return op, ok
}

// NodeIndices returns every node index, ascending. Ascending order is the
// stable iteration order every algorithm in this package relies on for
// determinism (spec testable property 1).
func (g *Graph) NodeIndices() []int {
	idx := make([]int, 0, len(g.nodes))
	for i := range g.nodes {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// OutEdges returns the label set for every outgoing edge of node, keyed
// by destination index. The map is unordered; SortedOutNeighbors gives
// the ascending order.
func (g *Graph) OutEdges(node int) map[int]LabelSet {
	return g.out[node]
}

// SortedOutNeighbors returns the destinations of node's outgoing edges in
// ascending index order — the tie-break rule every search primitive uses.
func (g *Graph) SortedOutNeighbors(node int) []int {
	edges := g.out[node]
	neighbors := make([]int, 0, len(edges))
	for to := range edges {
		neighbors = append(neighbors, to)
	}
	sort.Ints(neighbors)
	return neighbors
}

// InDegree and OutDegree report the number of distinct neighbors with an
// edge into / out of node (nodes with no incoming or no outgoing edge can
// never be in a non-trivial component).
func (g *Graph) InDegree(node int) int  { return len(g.in[node]) }
func (g *Graph) OutDegree(node int) int { return len(g.out[node]) }

// EdgeLabels returns the label set of the edge from -> to, or zero if no
// such edge exists.
func (g *Graph) EdgeLabels(from, to int) LabelSet {
	return g.out[from][to]
}

// Union merges graphs into a single new, unfrozen Graph: node sets are
// unioned and parallel edges between the same pair are merged by label
// union, per §3's "Parallel edges with distinct label sets are merged by
// set union."
func Union(graphs ...*Graph) *Graph {
	merged := New()
	for _, g := range graphs {
		for _, idx := range g.NodeIndices() {
			op, _ := g.Node(idx)
			_ = merged.AddNode(op)
		}
	}
	for _, g := range graphs {
		for from, edges := range g.out {
			for to, labels := range edges {
				_ = merged.AddEdge(from, to, labels)
			}
		}
	}
	return merged
}
