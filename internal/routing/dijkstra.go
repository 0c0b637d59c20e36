// Package routing implements the routing engine (C4): single-source
// Dijkstra over the pruned topology edge set, and the dampened/hysteretic
// routing table built from successive Dijkstra passes.
package routing

import (
	"container/heap"

	"ddarpd/internal/model"
)

// Result is one reachable destination's shortest-path result.
type Result struct {
	NextHop   model.NodeId
	FullPath  []model.NodeId
	TotalCost float64
}

type adjacency map[model.NodeId][]model.TopologyEdge

func buildAdjacency(edges []model.TopologyEdge) adjacency {
	adj := make(adjacency)
	for _, e := range edges {
		adj[e.Src] = append(adj[e.Src], e)
	}
	return adj
}

type heapItem struct {
	node model.NodeId
	cost float64
}

type priorityQueue []heapItem

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	// Deterministic break for equal-cost frontier pops: lexicographically
	// smaller NodeId first (spec.md §4.4 tie-breaking carried into search
	// order keeps the result stable, not just the final next-hop choice).
	return q[i].node < q[j].node
}
func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x any)   { *q = append(*q, x.(heapItem)) }
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Dijkstra runs single-source shortest path from source over edges, using a
// binary-heap priority queue (spec.md §4.4). Equal-cost ties at each
// relaxation prefer the lexicographically smaller next-hop NodeId.
func Dijkstra(source model.NodeId, edges []model.TopologyEdge) map[model.NodeId]Result {
	adj := buildAdjacency(edges)

	dist := map[model.NodeId]float64{source: 0}
	prev := map[model.NodeId]model.NodeId{}
	visited := map[model.NodeId]bool{}

	pq := &priorityQueue{{node: source, cost: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true

		for _, e := range adj[cur.node] {
			newCost := cur.cost + e.Weight
			existing, seen := dist[e.Dst]

			switch {
			case !seen || newCost < existing:
				dist[e.Dst] = newCost
				prev[e.Dst] = cur.node
				heap.Push(pq, heapItem{node: e.Dst, cost: newCost})
			case newCost == existing:
				// Equal-cost predecessor: keep whichever yields the
				// lexicographically smaller next-hop from source
				// (spec.md §4.4 tie-breaking).
				candNextHop := e.Dst
				if cur.node != source {
					candNextHop = nextHopOf(prev, source, cur.node)
				}
				if candNextHop < nextHopOf(prev, source, e.Dst) {
					prev[e.Dst] = cur.node
				}
			}
		}
	}

	out := make(map[model.NodeId]Result, len(dist))
	for node, cost := range dist {
		if node == source {
			continue
		}
		path := reconstructPath(prev, source, node)
		if len(path) < 2 {
			continue
		}
		out[node] = Result{
			NextHop:   path[1],
			FullPath:  path,
			TotalCost: cost,
		}
	}
	return out
}

// nextHopOf walks the prev chain from node back to source and returns the
// first hop taken from source — the path's next-hop, per spec.md §4.4.
func nextHopOf(prev map[model.NodeId]model.NodeId, source, node model.NodeId) model.NodeId {
	cur := node
	for {
		p, ok := prev[cur]
		if !ok {
			return cur
		}
		if p == source {
			return cur
		}
		cur = p
	}
}

func reconstructPath(prev map[model.NodeId]model.NodeId, source, dest model.NodeId) []model.NodeId {
	path := []model.NodeId{dest}
	cur := dest
	for cur != source {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
		if len(path) > 10000 {
			return nil // defensive bound against a corrupt prev map cycling
		}
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
