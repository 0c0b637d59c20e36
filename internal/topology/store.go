// Package topology holds the directed weighted graph store (C3): nodes and
// edges derived from measurement-engine metrics, pruned for Dijkstra input
// by freshness and loss, and exposed as generation-stamped snapshots to the
// routing engine and the admin surface.
package topology

import (
	"sort"
	"sync"
	"time"

	"ddarpd/internal/model"
)

// Weight penalties (spec.md §4.3): 10ms per 1% loss.
const lossPenaltyPerPercent = 10.0

// Weight computes the Dijkstra edge weight from latency and loss.
func Weight(latencyMs, lossRatio float64) float64 {
	return latencyMs + lossPenaltyPerPercent*lossRatio*100
}

// PruneHorizon is the age past which an edge is excluded from Dijkstra input
// but kept for observability (spec.md §4.3).
const PruneHorizon = 30 * time.Second

// EvictHorizon is the age past which an edge is dropped from the store entirely.
const EvictHorizon = 120 * time.Second

// MaxLossForPathSearch excludes lossy edges from path search even if fresh.
const MaxLossForPathSearch = 0.5

type edgeKey struct {
	src, dst model.NodeId
}

// Store is the directed weighted graph. Single-writer discipline: callers
// serialize calls to UpsertEdge/UpsertNode/RemoveNode (T_route's feed is the
// measurement engine via the node orchestrator); readers call Snapshot for a
// consistent, copy-based view (spec.md §5).
type Store struct {
	mu    sync.RWMutex
	nodes map[model.NodeId]model.TopologyNode
	edges map[edgeKey]model.TopologyEdge
	gen   uint64
}

// NewStore returns an empty topology store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[model.NodeId]model.TopologyNode),
		edges: make(map[edgeKey]model.TopologyEdge),
	}
}

// UpsertNode adds or updates a node's liveness view. Generation is bumped
// only when the node is new or its liveness or kind changed; a LastHeard
// update alone does not bump it.
func (s *Store) UpsertNode(n model.TopologyNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, existed := s.nodes[n.Id]
	s.nodes[n.Id] = n
	if !existed || old.Liveness != n.Liveness || old.Kind != n.Kind {
		s.gen++
	}
}

// RemoveNode drops a node and any edges touching it, bumping generation.
func (s *Store) RemoveNode(id model.NodeId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return
	}
	delete(s.nodes, id)
	for k := range s.edges {
		if k.src == id || k.dst == id {
			delete(s.edges, k)
		}
	}
	s.gen++
}

// UpsertEdge records the latest metrics for a directed edge. Generation is
// only bumped when the edge is new or the weight crosses a recomputation
// threshold, matching spec.md §4.3 ("every structural change...or metric
// update crossing a recomputation threshold").
func (s *Store) UpsertEdge(src, dst model.NodeId, metrics model.EdgeMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{src: src, dst: dst}
	weight := Weight(metrics.LatencyMs, metrics.LossRatio)
	existing, existed := s.edges[key]

	s.edges[key] = model.TopologyEdge{Src: src, Dst: dst, Weight: weight, Metrics: metrics}

	if !existed || weightCrossedThreshold(existing.Weight, weight) {
		s.gen++
	}
}

func weightCrossedThreshold(old, new float64) bool {
	if old == 0 {
		return new != 0
	}
	delta := (new - old) / old
	if delta < 0 {
		delta = -delta
	}
	return delta >= 0.05
}

// Generation returns the current structural-change counter.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// PathSearchEdges returns the pruned edge set usable as Dijkstra input: not
// too stale, not too lossy (spec.md §4.3). An edge's sample count is not
// checked.
func (s *Store) PathSearchEdges(now time.Time) []model.TopologyEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TopologyEdge, 0, len(s.edges))
	for _, e := range s.edges {
		if now.Sub(e.Metrics.LastUpdatedTs) > PruneHorizon {
			continue
		}
		if e.Metrics.LossRatio > MaxLossForPathSearch {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EvictStale removes edges older than EvictHorizon and nodes that have not
// been heard from in that same horizon (spec.md S4: "after 120s, D absent
// from /topology"), bumping generation if anything was actually removed.
// keep is never evicted as a node regardless of its LastHeard age — the
// orchestrator passes its own NodeId so a node never prunes itself out of
// its own view just because nothing refreshes its own LastHeard on a timer.
// Intended to be called periodically by the node orchestrator, not inline
// with every metric update.
func (s *Store) EvictStale(now time.Time, keep model.NodeId) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.edges {
		if now.Sub(e.Metrics.LastUpdatedTs) > EvictHorizon {
			delete(s.edges, k)
			removed++
		}
	}
	for id, n := range s.nodes {
		if id == keep {
			continue
		}
		if now.Sub(n.LastHeard) <= EvictHorizon {
			continue
		}
		delete(s.nodes, id)
		removed++
		for k := range s.edges {
			if k.src == id || k.dst == id {
				delete(s.edges, k)
				removed++
			}
		}
	}
	if removed > 0 {
		s.gen++
	}
	return removed
}

// Snapshot returns a read-only, generation-stamped copy of the whole graph
// for the admin /topology endpoint.
func (s *Store) Snapshot() model.TopologyView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]model.TopologyNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Id < nodes[j].Id })

	edges := make([]model.TopologyEdge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})

	return model.TopologyView{Generation: s.gen, Nodes: nodes, Edges: edges}
}
