// Package registry implements the peer registry (C6): the source of truth
// for which peers ddarpd probes. Peers are added and removed by the admin
// task; the receive and route tasks update last-heard time and liveness.
// Every mutation takes the store's lock, and readers take a snapshot,
// matching the discipline spec.md §5
// requires for shared state other tasks read off the hot path.
package registry

import (
	"errors"
	"sort"
	"time"

	"ddarpd/internal/model"
)

// ErrUnknownPeer is returned by RemovePeer/Touch when the NodeId is absent.
var ErrUnknownPeer = errors.New("unknown peer")

// PeerStore is the peer-registry contract (spec.md §4.6). Implementations
// must guarantee a NodeId is present exactly once or absent.
type PeerStore interface {
	AddPeer(id model.NodeId, transportAddress, sharedSecret string, kind model.PeerKind) (model.PeerRecord, error)
	RemovePeer(id model.NodeId) error
	ListPeers() []model.PeerRecord
	Get(id model.NodeId) (model.PeerRecord, bool)
	Touch(id model.NodeId, at time.Time) error
	SetLiveness(id model.NodeId, liveness model.Liveness) error
}

// sortedCopy returns peers sorted by NodeId, for deterministic listing.
func sortedCopy(peers []model.PeerRecord) []model.PeerRecord {
	out := append([]model.PeerRecord{}, peers...)
	sort.Slice(out, func(i, j int) bool { return out[i].NodeId < out[j].NodeId })
	return out
}
