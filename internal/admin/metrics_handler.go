package admin

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ddarpd/internal/model"
)

func metricsHandler() http.HandlerFunc {
	h := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}
}

// Refresh recomputes every gauge from the current read models. Call this
// once per T_route pass (or on a short timer) before /metrics is scraped;
// counters are updated incrementally by their owning components instead.
func (d *Deps) Refresh() {
	peers := d.Peers.ListPeers()
	d.Metrics.PeerCount.Set(float64(len(peers)))

	view := d.Topology.Snapshot()
	d.Metrics.TopologyNodesTotal.Set(float64(len(view.Nodes)))
	d.Metrics.TopologyEdgesTotal.Set(float64(len(view.Edges)))

	if t := d.Table(); t != nil {
		d.Metrics.RoutingTableSize.Set(float64(len(t.Entries())))
	}

	for src, byDst := range d.snapshotMatrix() {
		for dst, m := range byDst {
			d.Metrics.OwlLatencyMs.WithLabelValues(string(src), string(dst)).Set(m.LatencyMs)
			d.Metrics.OwlJitterMs.WithLabelValues(string(src), string(dst)).Set(m.JitterMs)
			d.Metrics.OwlPacketLossPct.WithLabelValues(string(src), string(dst)).Set(m.LossRatio * 100)
		}
	}

	for _, p := range peers {
		health := 0.0
		if p.Liveness == model.LivenessAlive {
			health = 1.0
		}
		d.Metrics.NodeHealth.WithLabelValues(string(p.NodeId)).Set(health)
	}
}
