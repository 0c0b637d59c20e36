package node

import (
	"context"
	"time"

	"ddarpd/internal/model"
	"ddarpd/internal/routing"
	"ddarpd/internal/sink"
)

// genPollInterval bounds how quickly a generation bump (any change, per
// spec.md §4.4's default delta) can trigger an extra recompute pass between
// the fixed RecomputeInterval ticks.
const genPollInterval = 200 * time.Millisecond

func (n *Node) runRouteLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.RecomputeInterval)
	defer ticker.Stop()
	genTicker := time.NewTicker(genPollInterval)
	defer genTicker.Stop()

	lastGen := n.topology.Generation()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Recomputes on every tick regardless of generation: Install's
			// own 30s refresh/120s expiry horizons need to fire even when
			// the topology is quiet.
			lastGen = n.topology.Generation()
			n.recompute()
		case <-genTicker.C:
			// The select loop is single-goroutine, so this and the ticker
			// case above can never run concurrently — recompute's "single
			// in-flight pass at a time" (spec.md §4.4) falls out for free.
			if gen := n.topology.Generation(); gen != lastGen {
				lastGen = gen
				n.recompute()
			}
		}
	}
}

// recompute runs one T_route pass followed immediately by T_sink, per
// spec.md §5's ordering guarantee that a generation's deltas are emitted
// after and never interleaved with the previous generation's.
func (n *Node) recompute() {
	now := time.Now()
	n.updateLiveness(now)
	n.topology.EvictStale(now, n.cfg.NodeID)

	edges := n.topology.PathSearchEdges(now)
	results := routing.Dijkstra(n.cfg.NodeID, edges)

	prior := n.table.Load()
	fresh, changed := routing.Install(prior, results, now)
	n.table.Store(fresh)

	if n.admin != nil && n.admin.Metrics != nil {
		n.admin.Refresh()
	}

	if len(changed) == 0 {
		return
	}
	if n.admin != nil && n.admin.Metrics != nil {
		n.admin.Metrics.RouteChangesTotal.Add(float64(len(changed)))
	}

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) {
		for _, e := range edges {
			if e.Src == n.cfg.NodeID && e.Dst == peer {
				return e.Metrics, true
			}
		}
		return model.EdgeMetrics{}, false
	}

	n.tunnelsMu.Lock()
	prevTunnels := n.prevTunnels
	n.tunnelsMu.Unlock()

	deltas := sink.Diff(prior, fresh, changed, lookup, prevTunnels)
	if n.adapter != nil {
		if err := sink.Apply(deltas, n.adapter, n.endpointOf); err != nil {
			n.log.Warnw("data-plane apply failed", "err", err)
		}
	}

	n.tunnelsMu.Lock()
	for _, t := range deltas.Tunnel {
		n.prevTunnels[t.Peer] = true
	}
	for _, r := range deltas.Release {
		delete(n.prevTunnels, r.Peer)
	}
	n.tunnelsMu.Unlock()

	if n.admin != nil && n.admin.Hub != nil {
		n.admin.Hub.Broadcast(n.topology.Snapshot())
	}
}

func (n *Node) endpointOf(peer model.NodeId) string {
	p, ok := n.peers.Get(peer)
	if !ok {
		return ""
	}
	return p.TransportAddress
}

// updateLiveness re-derives each registered peer's liveness from how long
// ago it was last heard (spec.md §4.2's 10s/30s thresholds) and pushes any
// transition into the registry. Touch only ever promotes a peer to alive on
// receipt, so this sweep is the only place a peer is ever demoted to
// suspect or dead. A peer's topology node record is only refreshed once it
// has actually been heard from at least once, so an admin-added peer that
// has never sent a probe stays out of the topology snapshot entirely rather
// than appearing and being immediately evicted.
func (n *Node) updateLiveness(now time.Time) {
	for _, p := range n.peers.ListPeers() {
		live := n.measure.Liveness(p.NodeId, now)
		if live == p.Liveness {
			continue
		}
		_ = n.peers.SetLiveness(p.NodeId, live)
		if !p.LastHeardTs.IsZero() {
			n.topology.UpsertNode(model.TopologyNode{Id: p.NodeId, Liveness: live, LastHeard: p.LastHeardTs, Kind: p.Kind})
		}
	}
}
