package node

import (
	"context"
	"net"
	"time"

	"ddarpd/internal/measure"
	"ddarpd/internal/model"
)

// sendTimeout bounds each outbound probe write (spec.md §5: "send 1s").
const sendTimeout = time.Second

func (n *Node) runSendLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.sendProbes()
		}
	}
}

// sendProbes emits one probe per peer in the alive/unknown liveness states
// (spec.md §4.2); suspect/dead peers are not worth spending probe budget on
// until their liveness recovers via a fresh authenticated receipt.
func (n *Node) sendProbes() {
	now := time.Now()
	for _, peer := range n.peers.ListPeers() {
		if peer.Liveness == model.LivenessSuspect || peer.Liveness == model.LivenessDead {
			continue
		}
		payload := measure.ProbePayload{
			Src:             n.cfg.NodeID,
			Dst:             peer.NodeId,
			Seq:             n.nextSeq(peer.NodeId),
			SendTsMonotonic: now.UnixNano(),
			SendTsWall:      now.UnixNano(),
		}
		raw, err := measure.BuildProbe(payload, payload.Seq, []byte(peer.SharedSecret))
		if err != nil {
			n.log.Warnw("failed to build probe", "peer", peer.NodeId, "err", err)
			continue
		}

		addr, err := net.ResolveUDPAddr("udp", peer.TransportAddress)
		if err != nil {
			n.log.Warnw("bad peer transport address", "peer", peer.NodeId, "addr", peer.TransportAddress, "err", err)
			continue
		}

		if err := n.writeUDP(addr, raw); err != nil {
			n.log.Warnw("probe send failed", "peer", peer.NodeId, "err", err)
			continue
		}
		n.measure.RecordSent(peer.NodeId)
		if n.admin != nil && n.admin.Metrics != nil {
			n.admin.Metrics.ProbeSentTotal.WithLabelValues(string(peer.NodeId)).Inc()
		}
	}
}

// sendTopologyUpdateReply tells peer (the probe's source) what this node
// just measured for the edge peer cannot see from its own side: its own
// outbound edge to this node. Without this, a node's own outbound adjacency
// is always empty and it can never compute a route to anywhere (spec.md §3's
// directed-edge invariant means it cannot be inferred from local samples
// alone).
func (n *Node) sendTopologyUpdateReply(peer model.PeerRecord, src, dst model.NodeId, metrics model.EdgeMetrics) {
	payload := measure.TopologyUpdatePayload{
		Src:         src,
		Dst:         dst,
		LatencyMs:   metrics.LatencyMs,
		JitterMs:    metrics.JitterMs,
		LossRatio:   metrics.LossRatio,
		SampleCount: metrics.SampleCount,
		Timestamp:   metrics.LastUpdatedTs.UnixMilli(),
	}
	raw, err := measure.BuildTopologyUpdate(payload, n.nextSeq(peer.NodeId), []byte(peer.SharedSecret))
	if err != nil {
		n.log.Warnw("failed to build topology update", "peer", peer.NodeId, "err", err)
		return
	}

	addr, err := net.ResolveUDPAddr("udp", peer.TransportAddress)
	if err != nil {
		n.log.Warnw("bad peer transport address", "peer", peer.NodeId, "addr", peer.TransportAddress, "err", err)
		return
	}

	if err := n.writeUDP(addr, raw); err != nil {
		n.log.Warnw("topology update send failed", "peer", peer.NodeId, "err", err)
	}
}

// writeUDP writes raw to addr under the standard send deadline, shared by
// probe emission and topology-update dissemination.
func (n *Node) writeUDP(addr *net.UDPAddr, raw []byte) error {
	_ = n.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	_, err := n.conn.WriteToUDP(raw, addr)
	return err
}
