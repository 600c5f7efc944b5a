package graph

import "sort"

// CycleEdge is one step of a closed path returned by a cycle-search
// primitive: Edges[i].To == Edges[i+1].From, and the last edge's To
// equals the first edge's From.
type CycleEdge struct {
	From, To int
	Labels   LabelSet
}

// Cycle is a closed, ordered sequence of edges.
type Cycle struct {
	Edges []CycleEdge
}

// Canonicalize rotates the cycle so it starts at its lowest-index node,
// satisfying testable property 1 (determinism modulo rotation).
func (c Cycle) Canonicalize() Cycle {
	if len(c.Edges) == 0 {
		return c
	}
	minAt := 0
	for i, e := range c.Edges {
		if e.From < c.Edges[minAt].From {
			minAt = i
		}
	}
	rotated := make([]CycleEdge, len(c.Edges))
	for i := range c.Edges {
		rotated[i] = c.Edges[(minAt+i)%len(c.Edges)]
	}
	return Cycle{Edges: rotated}
}

// Nodes returns the ordered node sequence visited by the cycle (not
// including the closing repeat of the start node).
func (c Cycle) Nodes() []int {
	nodes := make([]int, len(c.Edges))
	for i, e := range c.Edges {
		nodes[i] = e.From
	}
	return nodes
}

// restrictedNeighbors returns node's outgoing neighbors, ascending, for
// edges that both land within the SCC's node set and survive the
// restriction filter (or all edges if restrict is nil).
func restrictedNeighbors(g *Graph, scc SCC, node int, restrict func(to int, labels LabelSet) bool) []int {
	inSCC := sccMembership(scc)
	neighbors := g.SortedOutNeighbors(node)
	var out []int
	for _, to := range neighbors {
		if !inSCC[to] {
			continue
		}
		if restrict != nil && !restrict(to, g.EdgeLabels(node, to)) {
			continue
		}
		out = append(out, to)
	}
	return out
}

func sccMembership(scc SCC) map[int]bool {
	m := make(map[int]bool, len(scc.Nodes))
	for _, n := range scc.Nodes {
		m[n] = true
	}
	return m
}

// FindCycle finds any cycle within scc: from the lowest-index starting
// node that actually yields one, it takes the lowest-index neighbor with a
// path back and closes the cycle along the shortest such path. The result
// is not necessarily the shortest cycle through that start.
// scc's nodes are only guaranteed strongly connected in the graph they
// were computed on; a narrower projection can fragment that connectivity,
// so a node with an outgoing edge is not guaranteed a return path. Every
// SCC node is therefore tried as a candidate start, in ascending order,
// until one succeeds (§4.5 tie-break: lowest-index start, then
// lowest-index neighbor, among starts that find a cycle at all).
func FindCycle(g *Graph, scc SCC) (Cycle, bool) {
	return findCycleRestricted(g, scc, nil, nil)
}

// findCycleRestricted is FindCycle's and FindCycleStartingWith's shared
// engine: firstRestrict gates the cycle's first edge, restRestrict gates
// every subsequent edge.
func findCycleRestricted(g *Graph, scc SCC, firstRestrict, restRestrict func(to int, labels LabelSet) bool) (Cycle, bool) {
	nodes := append([]int(nil), scc.Nodes...)
	sort.Ints(nodes)

	for _, start := range nodes {
		firstHops := restrictedNeighbors(g, scc, start, firstRestrict)
		for _, next := range firstHops {
			path, ok := shortestPathBack(g, scc, next, start, restRestrict)
			if !ok {
				continue
			}
			edges := []CycleEdge{{From: start, To: next, Labels: g.EdgeLabels(start, next)}}
			edges = append(edges, path...)
			return Cycle{Edges: edges}.Canonicalize(), true
		}
	}
	return Cycle{}, false
}

// FindCycleStartingWith finds a cycle whose first edge exists in gFirst
// and whose remaining edges exist in gRest (§4.5). gFirst and gRest must
// be projections of the same underlying graph as scc was computed on.
// Every SCC node is tried as a candidate start, for the same fragmented-
// projection reason findCycleRestricted tries every node.
func FindCycleStartingWith(gFirst, gRest *Graph, scc SCC) (Cycle, bool) {
	nodes := append([]int(nil), scc.Nodes...)
	sort.Ints(nodes)
	nonEmpty := func(to int, labels LabelSet) bool { return !labels.Empty() }

	for _, start := range nodes {
		firstHops := restrictedNeighbors(gFirst, scc, start, nonEmpty)
		for _, next := range firstHops {
			path, ok := shortestPathBack(gRest, scc, next, start, nonEmpty)
			if !ok {
				continue
			}
			edges := []CycleEdge{{From: start, To: next, Labels: gFirst.EdgeLabels(start, next)}}
			edges = append(edges, path...)
			return Cycle{Edges: edges}.Canonicalize(), true
		}
	}
	return Cycle{}, false
}

// shortestPathBack runs a deterministic BFS from `from` to `target`
// restricted to scc's nodes and edges accepted by restrict, returning the
// path as a sequence of CycleEdges (excluding the initial hop into
// `from`, which the caller already recorded).
func shortestPathBack(g *Graph, scc SCC, from, target int, restrict func(to int, labels LabelSet) bool) ([]CycleEdge, bool) {
	if from == target {
		return nil, true
	}

	visited := map[int]bool{from: true}
	parent := make(map[int]CycleEdge)
	queue := []int{from}
	visitedCount := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		visitedCount++

		for _, to := range restrictedNeighbors(g, scc, cur, restrict) {
			if visited[to] {
				continue
			}
			visited[to] = true
			edge := CycleEdge{From: cur, To: to, Labels: g.EdgeLabels(cur, to)}
			parent[to] = edge
			if to == target {
				return reconstructPath(parent, from, target), true
			}
			queue = append(queue, to)
		}
	}
	return nil, false
}

func reconstructPath(parent map[int]CycleEdge, from, target int) []CycleEdge {
	var path []CycleEdge
	cur := target
	for cur != from {
		edge := parent[cur]
		path = append(path, edge)
		cur = edge.From
	}
	// path is currently target->...->from in reverse; flip it.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathState is the accumulator driven by FindCycleWith's step function.
// It is represented as `any` so the interpreter's closed enum of
// predicate kinds (see internal/anomaly) can supply whichever concrete
// state shape a given spec needs, without FindCycleWith itself knowing
// the shape.
type PathState any

// StepFn advances the accumulator when extending a path by the edge
// (rel, to); returning ok=false prunes that extension.
type StepFn func(acc PathState, path []CycleEdge, labels LabelSet, to int) (PathState, bool)

// FindCycleWith performs a deterministic, deadline-aware DFS over scc
// driven by a caller-supplied (init, step) pair and a final accumulator
// gate (§4.5). It powers G-nonadjacent, whose accumulator tracks
// (rw-count, last-edge-was-rw).
func FindCycleWith(init func(start int) PathState, step StepFn, filterFinal func(PathState) bool, g *Graph, scc SCC, deadline *Deadline) (Cycle, bool) {
	nodes := append([]int(nil), scc.Nodes...)
	sort.Ints(nodes)
	membership := sccMembership(scc)

	visitedCounter := 0

	var dfs func(start, cur int, acc PathState, path []CycleEdge, onPath map[int]bool) (Cycle, bool)
	dfs = func(start, cur int, acc PathState, path []CycleEdge, onPath map[int]bool) (Cycle, bool) {
		visitedCounter++
		if visitedCounter%pollEvery == 0 && deadline.Expired() {
			return Cycle{}, false
		}

		for _, to := range g.SortedOutNeighbors(cur) {
			if !membership[to] {
				continue
			}
			labels := g.EdgeLabels(cur, to)
			nextAcc, ok := step(acc, path, labels, to)
			if !ok {
				continue
			}
			edge := CycleEdge{From: cur, To: to, Labels: labels}
			nextPath := append(append([]CycleEdge(nil), path...), edge)

			if to == start {
				if filterFinal == nil || filterFinal(nextAcc) {
					return Cycle{Edges: nextPath}.Canonicalize(), true
				}
				continue
			}
			if onPath[to] {
				continue
			}
			onPath[to] = true
			if cyc, ok := dfs(start, to, nextAcc, nextPath, onPath); ok {
				return cyc, true
			}
			delete(onPath, to)
		}
		return Cycle{}, false
	}

	for _, start := range nodes {
		acc := init(start)
		onPath := map[int]bool{start: true}
		if cyc, ok := dfs(start, start, acc, nil, onPath); ok {
			return cyc, true
		}
		if deadline.Expired() {
			return Cycle{}, false
		}
	}
	return Cycle{}, false
}

// FallbackCycle returns a guaranteed cycle within scc via plain DFS,
// taking the first back-edge found to a node on the current DFS stack.
// An SCC with at least one edge always contains a cycle, so this never
// fails to find one (§4.5).
func FallbackCycle(g *Graph, scc SCC) (Cycle, bool) {
	membership := sccMembership(scc)
	nodes := append([]int(nil), scc.Nodes...)
	sort.Ints(nodes)

	visited := map[int]bool{}
	onStack := map[int]bool{}
	var stackEdges []CycleEdge

	var dfs func(node int) (Cycle, bool)
	dfs = func(node int) (Cycle, bool) {
		visited[node] = true
		onStack[node] = true
		defer func() { onStack[node] = false }()

		for _, to := range g.SortedOutNeighbors(node) {
			if !membership[to] {
				continue
			}
			edge := CycleEdge{From: node, To: to, Labels: g.EdgeLabels(node, to)}
			if onStack[to] {
				// Found a back edge; the cycle is the suffix of the
				// current stack from `to` onward, plus this closing edge.
				cycleStart := len(stackEdges)
				for i, e := range stackEdges {
					if e.From == to {
						cycleStart = i
						break
					}
				}
				cycle := append(append([]CycleEdge(nil), stackEdges[cycleStart:]...), edge)
				return Cycle{Edges: cycle}.Canonicalize(), true
			}
			if !visited[to] {
				stackEdges = append(stackEdges, edge)
				if cyc, ok := dfs(to); ok {
					return cyc, true
				}
				stackEdges = stackEdges[:len(stackEdges)-1]
			}
		}
		return Cycle{}, false
	}

	for _, n := range nodes {
		if !visited[n] {
			if cyc, ok := dfs(n); ok {
				return cyc, true
			}
		}
	}
	return Cycle{}, false
}
