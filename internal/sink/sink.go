// Package sink implements the path-decision sink (C5): a pure function over
// successive routing tables that emits route-advertisement and tunnel
// recommendation deltas to the data-plane seam. It never opens sockets or
// speaks BGP itself (spec.md §4.5) — adapters in bgpseam/tunnelseam do that.
package sink

import (
	"ddarpd/internal/model"
	"ddarpd/internal/routing"
)

// AdvertiseRoute is emitted for a RouteEntry that is new or changed beyond
// hysteresis.
type AdvertiseRoute struct {
	Destination model.NodeId
	NextHop     model.NodeId
	LatencyMs   float64
	JitterMs    float64
	LossRatio   float64
}

// RevokeRoute is emitted when a destination disappears from the table.
type RevokeRoute struct {
	Destination model.NodeId
}

// TunnelRequest is emitted when a direct edge to a next-hop qualifies for a
// tunnel (spec.md §4.5: latency_ms < 10 AND loss_ratio < 0.01).
type TunnelRequest struct {
	Peer model.NodeId
}

// TunnelRelease is emitted when no current route uses a peer as next hop.
type TunnelRelease struct {
	Peer model.NodeId
}

// Thresholds for tunnel recommendation (spec.md §4.5).
const (
	TunnelLatencyMsThreshold = 10.0
	TunnelLossRatioThreshold = 0.01
)

// Deltas is the output of one sink pass.
type Deltas struct {
	Advertise []AdvertiseRoute
	Revoke    []RevokeRoute
	Tunnel    []TunnelRequest
	Release   []TunnelRelease
}

// edgeLookup resolves the direct edge metrics for a (local, peer) pair, used
// to decide tunnel eligibility. The node orchestrator supplies a closure over
// the pass's path-search edges; it is a plain func type so the sink stays
// pure and testable without a live topology store.
type edgeLookup func(peer model.NodeId) (model.EdgeMetrics, bool)

// Diff computes the deltas between the previous and current routing tables
// for the set of destinations the routing engine reports changed, plus the
// tunnel request/release set derived from the current table's next-hops.
//
// changedDestinations comes from routing.Install's return value; passing
// only the changed set (rather than diffing the whole table) keeps this a
// cheap incremental pass per spec.md §5's "runs immediately after each
// T_route pass" ordering guarantee.
func Diff(prior, current *routing.Table, changedDestinations []model.NodeId, lookupEdge edgeLookup, prevTunnels map[model.NodeId]bool) Deltas {
	var d Deltas

	for _, dest := range changedDestinations {
		entry, stillPresent := current.Lookup(dest)
		if !stillPresent {
			d.Revoke = append(d.Revoke, RevokeRoute{Destination: dest})
			continue
		}
		metrics, _ := lookupEdge(entry.NextHopId)
		d.Advertise = append(d.Advertise, AdvertiseRoute{
			Destination: dest,
			NextHop:     entry.NextHopId,
			LatencyMs:   metrics.LatencyMs,
			JitterMs:    metrics.JitterMs,
			LossRatio:   metrics.LossRatio,
		})
	}

	usedNextHops := make(map[model.NodeId]bool)
	for _, entry := range current.Entries() {
		usedNextHops[entry.NextHopId] = true
	}

	for peer := range usedNextHops {
		metrics, ok := lookupEdge(peer)
		if !ok {
			continue
		}
		wantTunnel := metrics.LatencyMs < TunnelLatencyMsThreshold && metrics.LossRatio < TunnelLossRatioThreshold
		if wantTunnel && !prevTunnels[peer] {
			d.Tunnel = append(d.Tunnel, TunnelRequest{Peer: peer})
		}
	}

	for peer := range prevTunnels {
		if !usedNextHops[peer] {
			d.Release = append(d.Release, TunnelRelease{Peer: peer})
		}
	}

	return d
}
