package node

import (
	"ddarpd/internal/bgpseam"
	"ddarpd/internal/model"
	"ddarpd/internal/sink"
	"ddarpd/internal/tunnelseam"
)

// combinedAdapter fans sink.Diff's deltas out to both data-plane seams: BGP
// advertisement/revocation to bgpseam, tunnel request/release to
// tunnelseam. Neither adapter alone implements sink.DataPlaneAdapter's full
// four-method contract; this is the node orchestrator's wiring of the two
// halves spec.md §6 describes as one seam.
type combinedAdapter struct {
	bgp *bgpseam.Adapter
	tun *tunnelseam.Adapter
}

// NewCombinedAdapter builds the production data-plane seam from a BGP
// renderer and a WireGuard renderer.
func NewCombinedAdapter(bgp *bgpseam.Adapter, tun *tunnelseam.Adapter) sink.DataPlaneAdapter {
	return &combinedAdapter{bgp: bgp, tun: tun}
}

func (c *combinedAdapter) Advertise(dest, nextHop model.NodeId, latencyMs, jitterMs, lossRatio float64) (sink.TunnelHandle, error) {
	return c.bgp.Advertise(dest, nextHop, latencyMs, jitterMs, lossRatio)
}

func (c *combinedAdapter) Revoke(dest model.NodeId) error {
	return c.bgp.Revoke(dest)
}

func (c *combinedAdapter) RequestTunnel(peer model.NodeId, endpoint string) (sink.TunnelHandle, error) {
	return c.tun.RequestTunnel(peer, endpoint)
}

func (c *combinedAdapter) ReleaseTunnel(peer model.NodeId) error {
	return c.tun.ReleaseTunnel(peer)
}

var _ sink.DataPlaneAdapter = (*combinedAdapter)(nil)
