// Package admin is ddarpd's thin HTTP surface: health/introspection reads,
// peer mutation, Prometheus exposition, and a topology-push websocket.
// Route shapes and metric names follow spec.md §6 exactly; everything else
// here is plumbing over the core packages, per §1's non-goal on the admin
// surface's own sophistication.
package admin

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every exported gauge/counter named in spec.md §6. Names are
// contracts: they must not change shape once released.
type Metrics struct {
	PeerCount          prometheus.Gauge
	TopologyNodesTotal prometheus.Gauge
	TopologyEdgesTotal prometheus.Gauge
	RoutingTableSize   prometheus.Gauge
	OwlLatencyMs       *prometheus.GaugeVec
	OwlJitterMs        *prometheus.GaugeVec
	OwlPacketLossPct   *prometheus.GaugeVec
	NodeHealth         *prometheus.GaugeVec

	ProbeSentTotal          *prometheus.CounterVec
	ProbeRecvTotal          *prometheus.CounterVec
	ProbeAuthFailTotal      *prometheus.CounterVec
	RouteChangesTotal       prometheus.Counter
	PacketDecodeErrorsTotal *prometheus.CounterVec
}

// NewMetrics builds and registers every contractual metric on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PeerCount:          prometheus.NewGauge(prometheus.GaugeOpts{Name: "ddarp_peer_count"}),
		TopologyNodesTotal: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ddarp_topology_nodes_total"}),
		TopologyEdgesTotal: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ddarp_topology_edges_total"}),
		RoutingTableSize:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "ddarp_routing_table_size"}),
		OwlLatencyMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ddarp_owl_latency_ms"},
			[]string{"src", "dst"}),
		OwlJitterMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ddarp_owl_jitter_ms"},
			[]string{"src", "dst"}),
		OwlPacketLossPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ddarp_owl_packet_loss_percent"},
			[]string{"src", "dst"}),
		NodeHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ddarp_node_health"},
			[]string{"node_id"}),
		ProbeSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ddarp_probe_sent_total"},
			[]string{"peer"}),
		ProbeRecvTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ddarp_probe_recv_total"},
			[]string{"peer"}),
		ProbeAuthFailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ddarp_probe_auth_fail_total"},
			[]string{"peer"}),
		RouteChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{Name: "ddarp_route_changes_total"}),
		PacketDecodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ddarp_packet_decode_errors_total"},
			[]string{"kind"}),
	}
	reg.MustRegister(
		m.PeerCount, m.TopologyNodesTotal, m.TopologyEdgesTotal, m.RoutingTableSize,
		m.OwlLatencyMs, m.OwlJitterMs, m.OwlPacketLossPct, m.NodeHealth,
		m.ProbeSentTotal, m.ProbeRecvTotal, m.ProbeAuthFailTotal,
		m.RouteChangesTotal, m.PacketDecodeErrorsTotal,
	)
	return m
}
