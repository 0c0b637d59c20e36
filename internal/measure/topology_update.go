package measure

import (
	"time"

	"ddarpd/internal/model"
	"ddarpd/internal/wire"
)

// TopologyUpdatePayload is the TLV value carried inside a TOPOLOGY_UPDATE
// packet: one node announcing an edge it directly measured to the edge's
// own source node, which otherwise has no way to learn it (spec.md §3's
// directed-edge invariant means a node only ever directly observes edges
// terminating on itself, never its own outbound edges).
type TopologyUpdatePayload struct {
	Src         model.NodeId `json:"src"`
	Dst         model.NodeId `json:"dst"`
	LatencyMs   float64      `json:"latency_ms"`
	JitterMs    float64      `json:"jitter_ms"`
	LossRatio   float64      `json:"loss_ratio"`
	SampleCount int          `json:"sample_count"`
	Timestamp   int64        `json:"timestamp"` // unix millis
}

// BuildTopologyUpdate signs a TOPOLOGY_UPDATE packet the same way BuildProbe
// signs a probe, keyed by the shared secret of the node being told about its
// own edge.
func BuildTopologyUpdate(payload TopologyUpdatePayload, seq uint32, secret []byte) ([]byte, error) {
	body, err := wire.EncodeJSON(payload)
	if err != nil {
		return nil, err
	}
	pkt := wire.Packet{
		Header: wire.Header{
			Version:   wire.Version,
			Flags:     wire.FlagResponse,
			Sequence:  seq,
			Timestamp: uint32(time.Now().Unix()),
		},
		TLVs: []wire.TLV{{Type: wire.TypeTopologyUpdate, Value: body}},
	}
	return signPacket(pkt, secret)
}

// VerifyAndExtractTopologyUpdate mirrors VerifyAndExtract for TOPOLOGY_UPDATE packets.
func VerifyAndExtractTopologyUpdate(raw []byte, secret []byte) (TopologyUpdatePayload, error) {
	body, err := verifyTag(raw, secret)
	if err != nil {
		return TopologyUpdatePayload{}, err
	}

	pkt, err := wire.Decode(body, false)
	if err != nil {
		return TopologyUpdatePayload{}, err
	}
	if len(pkt.TLVs) == 0 {
		return TopologyUpdatePayload{}, &AuthError{Kind: KindHmacMismatch}
	}

	var payload TopologyUpdatePayload
	if err := wire.DecodeJSON(pkt.TLVs[0].Value, &payload); err != nil {
		return TopologyUpdatePayload{}, err
	}
	return payload, nil
}
