package graph

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Projector builds and caches filtered views of a frozen Graph: for a
// requested LabelSet R, Project(R) returns the subgraph containing only
// edges whose label set intersects R (§4.4).
//
// Grounded on the teacher's singleflight-backed compute-if-absent cache
// (services/trace/cache/graph_cache.go): LabelSet already fits in a byte,
// so it doubles as the cache key without a canonicalization step.
//
// Safe for concurrent use. Intended lifetime: one Projector per analysis,
// built over a single frozen Graph.
type Projector struct {
	base  *Graph
	group singleflight.Group

	mu    sync.RWMutex
	cache map[LabelSet]*Graph
}

// NewProjector returns a Projector over base. base must already be
// frozen.
func NewProjector(base *Graph) *Projector {
	if !base.Frozen() {
		panic("graph: NewProjector requires a frozen graph")
	}
	return &Projector{
		base:  base,
		cache: make(map[LabelSet]*Graph),
	}
}

// Project returns the subgraph of the base graph whose edges intersect
// rels, building and caching it on first request. Concurrent requests for
// the same rels share a single computation (single-flight).
//
// Idempotent: Project(rels) on the result of Project(rels) returns an
// equivalent graph, satisfying testable property 4.
func (p *Projector) Project(rels LabelSet) *Graph {
	if cached, ok := p.lockedGet(rels); ok {
		return cached
	}

	v, _, _ := p.group.Do(projectionKey(rels), func() (any, error) {
		if cached, ok := p.lockedGet(rels); ok {
			return cached, nil
		}
		built := p.build(rels)
		p.lockedSet(rels, built)
		return built, nil
	})
	return v.(*Graph)
}

// PreWarm builds projections for every LabelSet in rels concurrently,
// ahead of cycle search, so no SCC-search timeout budget (§4.6) is spent
// materializing graphs instead of searching them.
func (p *Projector) PreWarm(rels []LabelSet) {
	type result struct{}
	done := make(chan result, len(rels))
	for _, r := range rels {
		r := r
		go func() {
			p.Project(r)
			done <- result{}
		}()
	}
	for range rels {
		<-done
	}
}

func (p *Projector) build(rels LabelSet) *Graph {
	projected := New()
	for _, idx := range p.base.NodeIndices() {
		op, _ := p.base.Node(idx)
		_ = projected.AddNode(op)
	}
	for from, edges := range p.base.out {
		for to, labels := range edges {
			if labels.Intersects(rels) {
				_ = projected.AddEdge(from, to, labels)
			}
		}
	}
	projected.Freeze()
	return projected
}

// lockedGet/lockedSet guard the cache map with p.mu; singleflight keeps
// each entry to a single writer, and an entry is never mutated after it
// is written (frozen subgraphs).
func (p *Projector) lockedGet(rels LabelSet) (*Graph, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.cache[rels]
	return g, ok
}

func (p *Projector) lockedSet(rels LabelSet, g *Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[rels] = g
}

// projectionKey renders a LabelSet as a singleflight key. LabelSet is a
// single byte, so the key is a one-byte string holding that raw byte.
func projectionKey(rels LabelSet) string {
	return string([]byte{byte(rels)})
}
