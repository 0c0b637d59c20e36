// Package model holds the shared value types that flow between ddarpd's
// components: peer records, probe samples, edge metrics, route entries and
// the read-only topology snapshot handed to the admin surface.
package model

import "time"

// NodeId is an opaque, case-sensitive, per-node identifier. It doubles as
// the graph vertex identity and as the authenticated source field in probes.
type NodeId string

// PeerKind distinguishes ordinary mesh members from border nodes that also
// speak eBGP to the outside world.
type PeerKind string

const (
	PeerRegular PeerKind = "regular"
	PeerBorder  PeerKind = "border"
)

// Liveness tracks how recently a peer has been heard from.
type Liveness int

const (
	LivenessUnknown Liveness = iota
	LivenessAlive
	LivenessSuspect
	LivenessDead
)

func (l Liveness) String() string {
	switch l {
	case LivenessAlive:
		return "alive"
	case LivenessSuspect:
		return "suspect"
	case LivenessDead:
		return "dead"
	default:
		return "unknown"
	}
}

// PeerRecord is the source of truth for who ddarpd probes. It is created by
// admin add and destroyed by admin remove or (per policy) prolonged
// unreachability — the registry itself never auto-removes a peer.
type PeerRecord struct {
	NodeId           NodeId
	TransportAddress string
	SharedSecret     string
	Kind             PeerKind
	LastHeardTs      time.Time
	Liveness         Liveness
}

// ProbeSample is produced once per received, authenticated probe.
type ProbeSample struct {
	SourceId NodeId
	DestId   NodeId
	SendTs   time.Time
	RecvTs   time.Time
	Seq      uint32
}

// OneWayLatencyMs is the measured one-way latency of this sample, in
// milliseconds. Negative values (clock skew) are left as-is; callers that
// expose skew as a metric should look at them directly.
func (s ProbeSample) OneWayLatencyMs() float64 {
	return float64(s.RecvTs.Sub(s.SendTs)) / float64(time.Millisecond)
}

// EdgeMetrics is the derived view over a sliding window of samples for one
// ordered pair (a, b).
type EdgeMetrics struct {
	LatencyMs     float64
	JitterMs      float64
	LossRatio     float64
	LastUpdatedTs time.Time
	SampleCount   int
}

// Usable reports whether the edge may be used as Dijkstra input: it must
// have enough samples and not be overloaded with loss. Freshness is judged
// by the caller against its own clock (see topology.Store).
func (m EdgeMetrics) Usable(minSamples int) bool {
	return m.SampleCount >= minSamples && m.LossRatio <= 0.5
}

// RouteEntry is one row of the local routing table.
type RouteEntry struct {
	DestinationId NodeId
	NextHopId     NodeId
	FullPath      []NodeId
	TotalCost     float64
	ComputedTs    time.Time
}

// Fresh reports whether the entry is within the route-expiry horizon.
func (r RouteEntry) Fresh(now time.Time, expire time.Duration) bool {
	return now.Sub(r.ComputedTs) < expire
}

// TopologyNode is the read-only view of a node as exposed to the admin
// surface.
type TopologyNode struct {
	Id        NodeId
	Liveness  Liveness
	LastHeard time.Time
	Kind      PeerKind
}

// TopologyEdge is the read-only view of a directed edge.
type TopologyEdge struct {
	Src, Dst NodeId
	Weight   float64
	Metrics  EdgeMetrics
}

// TopologyView is a read-only snapshot exposed to the admin surface.
type TopologyView struct {
	Generation uint64
	Nodes      []TopologyNode
	Edges      []TopologyEdge
}
