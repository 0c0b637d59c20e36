package bgpseam

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ddarpd/internal/model"
	"ddarpd/internal/sink"
)

// advertisedRoute is one currently-advertised destination, kept so Render
// can regenerate the whole bgpd.conf from scratch on any change — matching
// the teacher's RenderBGP, which rebuilds the full config rather than
// patching it incrementally.
type advertisedRoute struct {
	nextHopOverlayIP string
	communities      []Community
}

// Adapter renders an FRR bgpd.conf reflecting the sink's current route
// advertisements, encoding each route's OWL triple into BGP communities. It
// implements the Advertise/Revoke half of sink.DataPlaneAdapter; tunnel
// recommendations are not its concern (see tunnelseam.Adapter).
type Adapter struct {
	mu              sync.Mutex
	localASN        int
	routerID        string
	sourceInterface string
	overlayIPOf     func(model.NodeId) string
	routes          map[model.NodeId]advertisedRoute
}

// NewAdapter returns an Adapter. overlayIPOf resolves a NodeId to its
// overlay IP for the FRR neighbor/route lines (the teacher's
// NeighborOverlayIPs derives this from peer AllowedIPs; ddarpd gets it from
// the peer registry via this callback instead of importing it directly, to
// keep this package free of a registry dependency).
func NewAdapter(localASN int, routerID, sourceInterface string, overlayIPOf func(model.NodeId) string) *Adapter {
	if localASN == 0 {
		localASN = 65000
	}
	if sourceInterface == "" {
		sourceInterface = "wg0"
	}
	return &Adapter{
		localASN:        localASN,
		routerID:        routerID,
		sourceInterface: sourceInterface,
		overlayIPOf:     overlayIPOf,
		routes:          make(map[model.NodeId]advertisedRoute),
	}
}

// Advertise records dest's route and its encoded communities, returning an
// opaque handle for the seam contract (spec.md §6).
func (a *Adapter) Advertise(dest, nextHop model.NodeId, latencyMs, jitterMs, lossRatio float64) (sink.TunnelHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.routes[dest] = advertisedRoute{
		nextHopOverlayIP: a.overlayIPOf(nextHop),
		communities:      CommunitiesFor(latencyMs, jitterMs, lossRatio),
	}
	return sink.TunnelHandle(uuid.NewString()), nil
}

// Revoke drops dest from the advertised set.
func (a *Adapter) Revoke(dest model.NodeId) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.routes, dest)
	return nil
}

// Render produces the current bgpd.conf text, in the teacher's RenderBGP
// style: a router block, a neighbor line per route's next hop, a network
// line and community-attribute comment per advertised destination.
func (a *Adapter) Render() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	dests := make([]model.NodeId, 0, len(a.routes))
	for d := range a.routes {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "router bgp %d\n", a.localASN)
	if a.routerID != "" {
		fmt.Fprintf(&b, " bgp router-id %s\n", a.routerID)
	}

	seenNeighbors := make(map[string]bool)
	for _, d := range dests {
		r := a.routes[d]
		if r.nextHopOverlayIP == "" || seenNeighbors[r.nextHopOverlayIP] {
			continue
		}
		seenNeighbors[r.nextHopOverlayIP] = true
		fmt.Fprintf(&b, " neighbor %s remote-as %d\n", r.nextHopOverlayIP, a.localASN)
		fmt.Fprintf(&b, " neighbor %s update-source %s\n", r.nextHopOverlayIP, a.sourceInterface)
	}

	for _, d := range dests {
		r := a.routes[d]
		fmt.Fprintf(&b, " network %s/32\n", r.nextHopOverlayIP)
		fmt.Fprintf(&b, " ! %s communities:", d)
		for _, c := range r.communities {
			fmt.Fprintf(&b, " %d:%d", c.ASN, c.Value)
		}
		b.WriteString("\n")
	}
	b.WriteString("!\n")
	return b.String()
}
