package node

import (
	"context"
	"net"
	"time"

	"ddarpd/internal/measure"
	"ddarpd/internal/model"
	"ddarpd/internal/wire"
)

// recvIdleTimeout bounds each socket read (spec.md §5: "receive 5s idle").
const recvIdleTimeout = 5 * time.Second

func (n *Node) runRecvLoop(ctx context.Context) {
	defer n.wg.Done()
	buf := make([]byte, wire.MaxPacketSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_ = n.conn.SetReadDeadline(time.Now().Add(recvIdleTimeout))
		size, _, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}
		raw := make([]byte, size)
		copy(raw, buf[:size])
		n.handleDatagram(raw)
	}
}

// handleDatagram demultiplexes one inbound datagram by TLV content (spec.md
// §6): a probe carries a single T3_TERNARY TLV; a topology-update
// announcement (the dissemination path below) carries a single
// TOPOLOGY_UPDATE TLV. Each has its own peek/verify/authenticate path since
// the two message kinds key their shared secret lookup on different payload
// fields.
func (n *Node) handleDatagram(raw []byte) {
	pkt, err := wire.Decode(raw, false)
	if err != nil {
		n.countDecodeError(err)
		return
	}
	if pkt.SkippedUnknown > 0 && n.admin != nil && n.admin.Metrics != nil {
		n.admin.Metrics.PacketDecodeErrorsTotal.WithLabelValues("unknown_tlv_skipped").Add(float64(pkt.SkippedUnknown))
	}

	for i := range pkt.TLVs {
		switch pkt.TLVs[i].Type {
		case wire.TypeT3Ternary:
			n.handleProbe(raw, pkt.TLVs[i].Value)
			return
		case wire.TypeTopologyUpdate:
			n.handleTopologyUpdate(raw, pkt.TLVs[i].Value)
			return
		}
	}
}

// handleProbe authenticates and records one probe sample, then replies with
// a TOPOLOGY_UPDATE telling the prober what this node just measured for the
// edge it cannot see from its own side.
func (n *Node) handleProbe(raw, tlvValue []byte) {
	var peek measure.ProbePayload
	if err := wire.DecodeJSON(tlvValue, &peek); err != nil {
		n.countDecodeError(err)
		return
	}

	peer, ok := n.peers.Get(peek.Src)
	if !ok {
		n.measure.RecordAuthFail(peek.Src)
		n.incAuthFail(peek.Src)
		return
	}

	payload, err := measure.VerifyAndExtract(raw, []byte(peer.SharedSecret))
	if err != nil {
		n.measure.RecordAuthFail(peek.Src)
		n.incAuthFail(peek.Src)
		return
	}

	now := time.Now()
	sample := model.ProbeSample{
		SourceId: payload.Src,
		DestId:   payload.Dst,
		SendTs:   time.Unix(0, payload.SendTsWall),
		RecvTs:   now,
		Seq:      payload.Seq,
	}
	metrics := n.measure.RecordSample(sample)
	_ = n.peers.Touch(payload.Src, now)
	n.topology.UpsertNode(model.TopologyNode{Id: payload.Src, Liveness: model.LivenessAlive, LastHeard: now, Kind: peer.Kind})
	n.topology.UpsertEdge(payload.Src, payload.Dst, metrics)
	n.sendTopologyUpdateReply(peer, payload.Src, payload.Dst, metrics)

	if n.admin != nil && n.admin.Metrics != nil {
		n.admin.Metrics.ProbeRecvTotal.WithLabelValues(string(payload.Src)).Inc()
	}
}

// handleTopologyUpdate accepts a peer's announcement of an edge it measured
// that originates at this node's own id (Src) and terminates on the
// announcer (Dst) — the only way this node learns its
// own outbound edge weight, since routing.Dijkstra's adjacency is keyed by
// edge Src (spec.md §3's directed-edge invariant rules out symmetrizing
// samples the way original_source/DDARP's control plane does). The
// announcement's Dst field identifies the announcer, so the shared secret
// lookup keys on Dst here, unlike handleProbe which keys on Src.
func (n *Node) handleTopologyUpdate(raw, tlvValue []byte) {
	var peek measure.TopologyUpdatePayload
	if err := wire.DecodeJSON(tlvValue, &peek); err != nil {
		n.countDecodeError(err)
		return
	}
	if peek.Src != n.cfg.NodeID {
		return // not an announcement about our own outbound edge, ignore
	}

	announcer, ok := n.peers.Get(peek.Dst)
	if !ok {
		n.measure.RecordAuthFail(peek.Dst)
		n.incAuthFail(peek.Dst)
		return
	}

	payload, err := measure.VerifyAndExtractTopologyUpdate(raw, []byte(announcer.SharedSecret))
	if err != nil {
		n.measure.RecordAuthFail(peek.Dst)
		n.incAuthFail(peek.Dst)
		return
	}

	n.topology.UpsertEdge(payload.Src, payload.Dst, model.EdgeMetrics{
		LatencyMs:     payload.LatencyMs,
		JitterMs:      payload.JitterMs,
		LossRatio:     payload.LossRatio,
		SampleCount:   payload.SampleCount,
		LastUpdatedTs: time.UnixMilli(payload.Timestamp),
	})
}

func (n *Node) countDecodeError(err error) {
	kind := "unknown"
	if we, ok := err.(*wire.Error); ok {
		kind = we.Kind
	}
	if n.admin != nil && n.admin.Metrics != nil {
		n.admin.Metrics.PacketDecodeErrorsTotal.WithLabelValues(kind).Inc()
	}
}

func (n *Node) incAuthFail(peer model.NodeId) {
	if n.admin != nil && n.admin.Metrics != nil {
		n.admin.Metrics.ProbeAuthFailTotal.WithLabelValues(string(peer)).Inc()
	}
}
