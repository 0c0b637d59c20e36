// Package bgpseam implements one concrete DataPlaneAdapter.Advertise/Revoke
// backend for the path-decision sink: it encodes the OWL triple into eBGP
// community attributes and renders an FRR bgpd.conf, adapted from the
// teacher's pkg/frr package (full-mesh peer-plan rendering) to DDARP's
// per-destination route advertisements.
package bgpseam

// Community base values (spec.md §6 data-plane seam contract).
const (
	CommunityLatency uint32 = 65000
	CommunityJitter  uint32 = 65001
	CommunityLoss    uint32 = 65002
)

// clampU16 clamps v into the 0..65535 range (spec.md §6: "clamped to the
// 0..65535 range").
func clampU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}

// CommunityOf encodes the latency/jitter/loss triple into the three
// community values spec.md §6 requires:
// 65000:floor(lat_ms*10), 65001:floor(jit_ms*10), 65002:floor(loss_percent*10).
func CommunityOf(latMs, jitMs, lossRatio float64) (lat, jit, loss uint16) {
	lossPercent := lossRatio * 100
	return clampU16(latMs * 10), clampU16(jitMs * 10), clampU16(lossPercent * 10)
}

// Community is one BGP community attribute value, formatted ASN:value.
type Community struct {
	ASN   uint32
	Value uint16
}

// CommunitiesFor returns the three community attributes for an OWL triple.
func CommunitiesFor(latMs, jitMs, lossRatio float64) []Community {
	lat, jit, loss := CommunityOf(latMs, jitMs, lossRatio)
	return []Community{
		{ASN: CommunityLatency, Value: lat},
		{ASN: CommunityJitter, Value: jit},
		{ASN: CommunityLoss, Value: loss},
	}
}
