// Package orders builds the two order graphs C3 describes: process order
// (consecutive completions by the same client) and real-time order (A
// precedes B when A's completion wall-clock precedes B's invocation
// wall-clock), reduced to its transitive Hasse diagram to avoid quadratic
// edge counts.
//
// Both builders run as independent stages of an errgroup, grounded on
// the teacher's "run enrichers in parallel via errgroup" construction
// (services/trace/analysis/enhanced_analyzer.go).
package orders

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
)

// BuildProcessGraph adds a `process` edge between every pair of
// consecutive ok/info completions issued by the same process, ordered by
// op index.
func BuildProcessGraph(h *history.History) *graph.Graph {
	g := graph.New()
	for _, op := range h.Ops() {
		if op.Type == history.OK || op.Type == history.Info {
			_ = g.AddNode(op)
		}
	}

	for _, proc := range h.Processes() {
		var completions []history.Op
		for _, op := range h.ByProcess(proc) {
			if op.Type == history.OK || op.Type == history.Info {
				completions = append(completions, op)
			}
		}
		sort.Slice(completions, func(i, j int) bool { return completions[i].Index < completions[j].Index })
		for i := 0; i+1 < len(completions); i++ {
			_ = g.AddEdge(completions[i].Index, completions[i+1].Index, graph.NewLabelSet(graph.ProcessLabel))
		}
	}

	g.Freeze()
	return g
}

// BuildRealtimeGraph adds a `realtime` edge from A to every op whose
// invocation A's completion directly covers: A precedes B in real time
// (A.CompleteTime <= B.InvokeTime) and no third op C also covers A->C->B
// (i.e. no C with A.CompleteTime <= C.InvokeTime and C.CompleteTime <=
// B.InvokeTime). Two ops concurrent with each other but both following A
// each get their own direct edge from A — dropping either would lose a
// real covering relation, not just an implied one.
func BuildRealtimeGraph(h *history.History) *graph.Graph {
	var completions []history.Op
	for _, op := range h.Ops() {
		if op.Type == history.OK || op.Type == history.Info {
			completions = append(completions, op)
		}
	}

	g := graph.New()
	for _, op := range completions {
		_ = g.AddNode(op)
	}

	byInvokeAsc := append([]history.Op(nil), completions...)
	sort.Slice(byInvokeAsc, func(i, j int) bool {
		if byInvokeAsc[i].InvokeTime != byInvokeAsc[j].InvokeTime {
			return byInvokeAsc[i].InvokeTime < byInvokeAsc[j].InvokeTime
		}
		return byInvokeAsc[i].Index < byInvokeAsc[j].Index
	})

	for _, a := range completions {
		for _, b := range coveringSuccessors(byInvokeAsc, a) {
			_ = g.AddEdge(a.Index, b.Index, graph.NewLabelSet(graph.RealtimeLabel))
		}
	}

	g.Freeze()
	return g
}

// coveringSuccessors returns every op in byInvokeAsc that a's completion
// directly covers: invoked at or after a's completion, and not shadowed
// by an earlier-invoked candidate that already completed before it
// invoked (which would make the edge to it transitively implied rather
// than direct). Candidates are scanned in ascending invoke-time groups so
// that ties at the same invocation instant never shadow one another.
func coveringSuccessors(byInvokeAsc []history.Op, a history.Op) []history.Op {
	start := sort.Search(len(byInvokeAsc), func(i int) bool {
		return byInvokeAsc[i].InvokeTime >= a.CompleteTime
	})

	var out []history.Op
	const maxInt64 = int64(math.MaxInt64)
	minComplete := maxInt64

	for i := start; i < len(byInvokeAsc); {
		groupInvoke := byInvokeAsc[i].InvokeTime
		j := i
		for j < len(byInvokeAsc) && byInvokeAsc[j].InvokeTime == groupInvoke {
			j++
		}

		groupMinComplete := maxInt64
		for k := i; k < j; k++ {
			b := byInvokeAsc[k]
			if b.Index == a.Index {
				continue
			}
			if groupInvoke < minComplete {
				out = append(out, b)
			}
			if b.CompleteTime < groupMinComplete {
				groupMinComplete = b.CompleteTime
			}
		}
		if groupMinComplete < minComplete {
			minComplete = groupMinComplete
		}
		i = j
	}

	return out
}

// Graphs holds the order graphs BuildAll produces.
type Graphs struct {
	Process  *graph.Graph
	Realtime *graph.Graph
}

// BuildAll builds whichever of the process/realtime graphs are enabled,
// concurrently. Each flag is honored independently; checker.Analyze is
// what turns process on whenever realtime is on (§4.9).
func BuildAll(ctx context.Context, h *history.History, enableProcess, enableRealtime bool) (*Graphs, error) {
	out := &Graphs{}
	g, _ := errgroup.WithContext(ctx)

	if enableProcess {
		g.Go(func() error {
			out.Process = BuildProcessGraph(h)
			return nil
		})
	}
	if enableRealtime {
		g.Go(func() error {
			out.Realtime = BuildRealtimeGraph(h)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
