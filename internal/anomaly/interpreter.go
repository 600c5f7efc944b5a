package anomaly

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hciniramy/elle/internal/graph"
	"github.com/hciniramy/elle/internal/history"
	"github.com/hciniramy/elle/internal/pairexplain"
)

// searchSpec is one entry of the priority-ordered search table §4.6
// describes: try G0 first, then G1c, G-single, G-nonadjacent, G2-item,
// each first over the base graph, then (if the caller enabled them)
// restricted to start with a process or realtime edge.
type searchSpec struct {
	tag   Tag
	rels  graph.LabelSet
	first graph.LabelSet // if non-zero, the cycle's first edge must carry one of these
}

// baseSearchOrder is §4.6's priority order over the unsuffixed anomaly
// classes, most specific first.
var baseSearchOrder = []struct {
	tag  Tag
	rels graph.LabelSet
}{
	{G0, graph.NewLabelSet(graph.WW)},
	{G1c, graph.NewLabelSet(graph.WW, graph.WR)},
	{GSingle, graph.NewLabelSet(graph.WW, graph.WR, graph.RW)},
	{GNonadjacent, graph.NewLabelSet(graph.WW, graph.WR, graph.RW)},
	{G2Item, graph.NewLabelSet(graph.WW, graph.WR, graph.RW)},
}

// Options configures a cycle search pass (§4.6/§9).
type Options struct {
	// CycleSearchTimeout bounds wall-clock spent searching a single SCC
	// for a cycle of a given class, before falling back to
	// graph.FallbackCycle and reporting it as CycleSearchTimeout.
	CycleSearchTimeout time.Duration

	// CheckProcess and CheckRealtime enable the -process/-realtime
	// suffixed variants, each restricting the cycle's first edge to the
	// corresponding order graph.
	CheckProcess  bool
	CheckRealtime bool
}

// DefaultOptions returns the spec's default search budget: 1000ms per
// class per SCC (§9).
func DefaultOptions() Options {
	return Options{CycleSearchTimeout: 1000 * time.Millisecond}
}

// Search runs the declarative, priority-ordered anomaly search over every
// SCC of the unified graph, classifying the first cycle found in each as
// the most specific anomaly the priority order allows, and explaining it
// via explainer. opOf resolves a node index back to its originating op.
//
// Each SCC's search is independent of every other SCC's, so they run
// concurrently via errgroup, one goroutine per SCC, each writing into its
// own slot of a pre-sized slice — mirroring the fan-out/dedicated-slot
// pattern orders.BuildAll and checker.Analyze's outer stage use — and the
// slots are merged back in SCC order once every search completes, so the
// result stays deterministic regardless of goroutine scheduling.
func Search(sccs []graph.SCC, proj *graph.Projector, opOf func(int) (history.Op, bool), explainer pairexplain.Explainer, opts Options) []Finding {
	slots := make([]*Finding, len(sccs))

	g, _ := errgroup.WithContext(context.Background())
	for i, scc := range sccs {
		i, scc := i, scc
		g.Go(func() error {
			if f, ok := searchOne(scc, proj, opOf, explainer, opts); ok {
				slots[i] = &f
			}
			return nil
		})
	}
	_ = g.Wait()

	var findings []Finding
	for _, f := range slots {
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

func searchOne(scc graph.SCC, proj *graph.Projector, opOf func(int) (history.Op, bool), explainer pairexplain.Explainer, opts Options) (Finding, bool) {
	orderVariants := []struct {
		suffix string
		label  graph.Label
		enable bool
	}{
		{"", 0, true},
		{"-process", graph.ProcessLabel, opts.CheckProcess},
		{"-realtime", graph.RealtimeLabel, opts.CheckRealtime},
	}

	for _, variant := range orderVariants {
		if !variant.enable {
			continue
		}
		for _, spec := range baseSearchOrder {
			g := proj.Project(spec.rels)
			deadline := graph.NewDeadline(opts.CycleSearchTimeout)

			var cyc graph.Cycle
			var found bool
			if variant.label == 0 {
				cyc, found = searchWithClass(spec.tag, g, scc, deadline)
			} else {
				orderGraph := proj.Project(graph.NewLabelSet(variant.label))
				cyc, found = graph.FindCycleStartingWith(orderGraph, g, scc)
			}

			if !found {
				if deadline.Expired() {
					// Timed out before exhausting the search: fall back
					// to a guaranteed cycle and tag the SCC accordingly
					// (§9), rather than silently reporting nothing.
					if fallback, ok := graph.FallbackCycle(g, scc); ok {
						finding := Explain(CycleSearchTimeout, fallback, explainer, opOf)
						return finding, true
					}
				}
				continue
			}

			// Classify derives the -process/-realtime suffix directly
			// from the labels the cycle's own edges carry, so it is
			// correct regardless of which search variant found the
			// cycle — applying variant.suffix again here would double
			// it up.
			tag := Classify(cyc)
			return Explain(tag, cyc, explainer, opOf), true
		}
	}
	return Finding{}, false
}

// searchWithClass dispatches to the cycle-search primitive appropriate
// for tag: G-nonadjacent needs the rw-count accumulator FindCycleWith
// drives; every other class is a plain shortest-cycle search.
func searchWithClass(tag Tag, g *graph.Graph, scc graph.SCC, deadline *graph.Deadline) (graph.Cycle, bool) {
	if tag != GNonadjacent {
		return graph.FindCycle(g, scc)
	}
	return findNonadjacent(g, scc, deadline)
}

// nonadjacentAccumulator tracks, along the path built so far, the total
// rw-edge count and whether the most recently added edge was an rw edge
// — the minimal state needed to reject a candidate extension that would
// place two rw edges back to back (§4.7's G-nonadjacent constraint).
type nonadjacentAccumulator struct {
	rwCount    int
	lastWasRW  bool
	firstWasRW bool
	hasFirst   bool
}

// findNonadjacent rejects any extension that would place two rw edges
// back to back, including the wraparound pair (the cycle's last edge
// and its first edge, which are adjacent once the cycle closes).
func findNonadjacent(g *graph.Graph, scc graph.SCC, deadline *graph.Deadline) (graph.Cycle, bool) {
	init := func(start int) graph.PathState {
		return nonadjacentAccumulator{}
	}
	step := func(acc graph.PathState, path []graph.CycleEdge, labels graph.LabelSet, to int) (graph.PathState, bool) {
		a := acc.(nonadjacentAccumulator)
		isRW := labels.Has(graph.RW)
		if isRW && a.lastWasRW {
			return a, false
		}
		closesCycle := to == pathStart(path)
		if isRW && closesCycle && a.hasFirst && a.firstWasRW {
			return a, false
		}
		if !a.hasFirst {
			a.hasFirst = true
			a.firstWasRW = isRW
		}
		if isRW {
			a.rwCount++
		}
		a.lastWasRW = isRW
		return a, true
	}
	filterFinal := func(acc graph.PathState) bool {
		a := acc.(nonadjacentAccumulator)
		return a.rwCount >= 2
	}
	return graph.FindCycleWith(init, step, filterFinal, g, scc, deadline)
}

// pathStart returns the first edge's From node of an in-progress path,
// or -1 if the path is empty (the caller only consults this once a path
// exists, but an empty path would mean `to` trivially isn't the start).
func pathStart(path []graph.CycleEdge) int {
	if len(path) == 0 {
		return -1
	}
	return path[0].From
}
