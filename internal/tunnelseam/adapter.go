// Package tunnelseam implements the tunnel-recommendation half of the
// data-plane seam: rendering WireGuard peer configuration for the sink's
// request_tunnel/release_tunnel recommendations, adapted from the teacher's
// pkg/wireguard/render.go and pkg/api/prepare.go (key generation/validation
// via wgctrl's wgtypes).
package tunnelseam

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"ddarpd/internal/model"
	"ddarpd/internal/sink"
)

// PeerKeyProvider resolves a peer's WireGuard public key and endpoint.
// Supplied by the node orchestrator from the peer registry; this package has
// no registry dependency of its own.
type PeerKeyProvider func(peer model.NodeId) (publicKey, endpoint string, ok bool)

// Adapter implements the RequestTunnel/ReleaseTunnel half of
// sink.DataPlaneAdapter. It renders a wg-quick-compatible config for the
// interface, one [Peer] block per currently-requested tunnel.
type Adapter struct {
	mu        sync.Mutex
	iface     string
	localAddr string
	localKey  string
	keysOf    PeerKeyProvider
	active    map[model.NodeId]string // peer -> endpoint
}

// GenerateEphemeralKey returns a fresh WireGuard private key, for nodes that
// have not been provisioned with one out of band. Grounded on the teacher's
// pkg/api/prepare.go use of wgtypes.GeneratePrivateKey at node registration.
func GenerateEphemeralKey() (string, error) {
	k, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("tunnelseam: generate private key: %w", err)
	}
	return k.String(), nil
}

// NewAdapter returns an Adapter for the given local overlay interface.
// privateKey is validated as a real WireGuard key via wgtypes.ParseKey so a
// misconfigured secret fails fast rather than silently rendering garbage.
func NewAdapter(iface, localOverlayAddr, privateKey string, keysOf PeerKeyProvider) (*Adapter, error) {
	if iface == "" {
		iface = "wg0"
	}
	if privateKey != "" {
		if _, err := wgtypes.ParseKey(privateKey); err != nil {
			return nil, fmt.Errorf("tunnelseam: invalid private key: %w", err)
		}
	}
	return &Adapter{
		iface:     iface,
		localAddr: localOverlayAddr,
		localKey:  privateKey,
		keysOf:    keysOf,
		active:    make(map[model.NodeId]string),
	}, nil
}

// RequestTunnel validates peer's public key via wgtypes and marks it active,
// returning an opaque handle for the seam contract (spec.md §6).
func (a *Adapter) RequestTunnel(peer model.NodeId, endpoint string) (sink.TunnelHandle, error) {
	pubKey, resolvedEndpoint, ok := a.keysOf(peer)
	if !ok {
		return "", fmt.Errorf("tunnelseam: no key on file for peer %s", peer)
	}
	if _, err := wgtypes.ParseKey(pubKey); err != nil {
		return "", fmt.Errorf("tunnelseam: peer %s has invalid public key: %w", peer, err)
	}
	if endpoint == "" {
		endpoint = resolvedEndpoint
	}

	a.mu.Lock()
	a.active[peer] = endpoint
	a.mu.Unlock()

	return sink.TunnelHandle(uuid.NewString()), nil
}

// ReleaseTunnel marks peer's tunnel inactive.
func (a *Adapter) ReleaseTunnel(peer model.NodeId) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, peer)
	return nil
}

// Render produces the current wg-quick config text, in the teacher's
// RenderConfig style: an [Interface] block followed by one [Peer] block per
// active tunnel.
func (a *Adapter) Render() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	b.WriteString("[Interface]\n")
	if a.localAddr != "" {
		fmt.Fprintf(&b, "Address = %s\n", a.localAddr)
	}
	if a.localKey != "" {
		fmt.Fprintf(&b, "PrivateKey = %s\n", a.localKey)
	}
	b.WriteString("\n")

	peers := make([]model.NodeId, 0, len(a.active))
	for p := range a.active {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })

	for _, p := range peers {
		pubKey, _, _ := a.keysOf(p)
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", pubKey)
		if ep := a.active[p]; ep != "" {
			fmt.Fprintf(&b, "Endpoint = %s\n", ep)
		}
		b.WriteString("PersistentKeepalive = 25\n\n")
	}
	return b.String()
}
