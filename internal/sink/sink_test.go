package sink

import (
	"testing"
	"time"

	"ddarpd/internal/model"
	"ddarpd/internal/routing"
	"github.com/stretchr/testify/require"
)

func TestDiffEmitsAdvertiseForChangedDestination(t *testing.T) {
	now := time.Now()
	prior := routing.NewTable()
	fresh := map[model.NodeId]routing.Result{
		"C": {NextHop: "B", FullPath: []model.NodeId{"A", "B", "C"}, TotalCost: 20},
	}
	current, changed := routing.Install(prior, fresh, now)

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) {
		return model.EdgeMetrics{LatencyMs: 12, JitterMs: 1, LossRatio: 0.02}, true
	}

	d := Diff(prior, current, changed, lookup, map[model.NodeId]bool{})
	require.Len(t, d.Advertise, 1)
	require.Equal(t, model.NodeId("C"), d.Advertise[0].Destination)
	require.Equal(t, model.NodeId("B"), d.Advertise[0].NextHop)
	require.InDelta(t, 12, d.Advertise[0].LatencyMs, 0.0001)
}

func TestDiffEmitsRevokeWhenDestinationDisappears(t *testing.T) {
	now := time.Now()
	prior := routing.NewTable()
	fresh := map[model.NodeId]routing.Result{"C": {NextHop: "B", FullPath: []model.NodeId{"A", "B", "C"}, TotalCost: 20}}
	current, _ := routing.Install(prior, fresh, now)

	evicted, changed := routing.Install(current, map[model.NodeId]routing.Result{}, now)

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) { return model.EdgeMetrics{}, false }
	d := Diff(current, evicted, changed, lookup, map[model.NodeId]bool{})
	require.Len(t, d.Revoke, 1)
	require.Equal(t, model.NodeId("C"), d.Revoke[0].Destination)
}

func TestDiffRequestsTunnelWhenEdgeQualifies(t *testing.T) {
	now := time.Now()
	prior := routing.NewTable()
	fresh := map[model.NodeId]routing.Result{"B": {NextHop: "B", FullPath: []model.NodeId{"A", "B"}, TotalCost: 5}}
	current, changed := routing.Install(prior, fresh, now)

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) {
		return model.EdgeMetrics{LatencyMs: 5, LossRatio: 0.001}, true
	}
	d := Diff(prior, current, changed, lookup, map[model.NodeId]bool{})
	require.Len(t, d.Tunnel, 1)
	require.Equal(t, model.NodeId("B"), d.Tunnel[0].Peer)
}

func TestDiffDoesNotRequestTunnelWhenEdgeTooSlow(t *testing.T) {
	now := time.Now()
	prior := routing.NewTable()
	fresh := map[model.NodeId]routing.Result{"B": {NextHop: "B", FullPath: []model.NodeId{"A", "B"}, TotalCost: 15}}
	current, changed := routing.Install(prior, fresh, now)

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) {
		return model.EdgeMetrics{LatencyMs: 15, LossRatio: 0.001}, true
	}
	d := Diff(prior, current, changed, lookup, map[model.NodeId]bool{})
	require.Empty(t, d.Tunnel)
}

func TestDiffReleasesTunnelWhenNextHopNoLongerUsed(t *testing.T) {
	now := time.Now()
	prior := routing.NewTable()
	fresh := map[model.NodeId]routing.Result{"B": {NextHop: "B", FullPath: []model.NodeId{"A", "B"}, TotalCost: 5}}
	current, changed := routing.Install(prior, fresh, now)

	lookup := func(peer model.NodeId) (model.EdgeMetrics, bool) { return model.EdgeMetrics{}, false }
	d := Diff(prior, current, changed, lookup, map[model.NodeId]bool{"B": true, "Z": true})
	require.Contains(t, releasedPeers(d), model.NodeId("Z"))
}

func releasedPeers(d Deltas) []model.NodeId {
	out := make([]model.NodeId, 0, len(d.Release))
	for _, r := range d.Release {
		out = append(out, r.Peer)
	}
	return out
}
