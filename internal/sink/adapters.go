package sink

import "ddarpd/internal/model"

// TunnelHandle is the opaque identifier an adapter returns for a
// request_tunnel call, per spec.md §6's data-plane seam contract.
type TunnelHandle string

// DataPlaneAdapter is the data-plane seam contract (spec.md §6). The sink
// itself never implements this — bgpseam and tunnelseam do, and the node
// orchestrator wires a concrete adapter (or a fan-out of both) in.
type DataPlaneAdapter interface {
	Advertise(dest, nextHop model.NodeId, latencyMs, jitterMs, lossRatio float64) (TunnelHandle, error)
	Revoke(dest model.NodeId) error
	RequestTunnel(peer model.NodeId, endpoint string) (TunnelHandle, error)
	ReleaseTunnel(peer model.NodeId) error
}

// Apply replays a Deltas batch against adapter, in advertise/revoke order
// first and tunnel request/release second — matching the order Deltas are
// populated in Diff. endpointOf resolves a peer's transport address for
// RequestTunnel calls (the sink has no peer-registry access of its own).
func Apply(d Deltas, adapter DataPlaneAdapter, endpointOf func(model.NodeId) string) error {
	for _, a := range d.Advertise {
		if _, err := adapter.Advertise(a.Destination, a.NextHop, a.LatencyMs, a.JitterMs, a.LossRatio); err != nil {
			return err
		}
	}
	for _, r := range d.Revoke {
		if err := adapter.Revoke(r.Destination); err != nil {
			return err
		}
	}
	for _, t := range d.Tunnel {
		if _, err := adapter.RequestTunnel(t.Peer, endpointOf(t.Peer)); err != nil {
			return err
		}
	}
	for _, rel := range d.Release {
		if err := adapter.ReleaseTunnel(rel.Peer); err != nil {
			return err
		}
	}
	return nil
}
