package registry

import (
	"sync"
	"time"

	"ddarpd/internal/model"
)

// MemoryStore is the default in-memory PeerStore, modeled on the teacher's
// MemoryStore (pkg/store/memory.go): a map guarded by a single RWMutex, read
// snapshots returned as copies so callers never observe a partial write.
type MemoryStore struct {
	mu    sync.RWMutex
	peers map[model.NodeId]model.PeerRecord
}

// NewMemoryStore returns an empty in-memory peer registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{peers: make(map[model.NodeId]model.PeerRecord)}
}

// AddPeer is idempotent: re-adding an existing NodeId updates its address,
// secret and kind in place rather than erroring (spec.md §4.6).
func (s *MemoryStore) AddPeer(id model.NodeId, transportAddress, sharedSecret string, kind model.PeerKind) (model.PeerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, existed := s.peers[id]
	rec.NodeId = id
	rec.TransportAddress = transportAddress
	rec.SharedSecret = sharedSecret
	rec.Kind = kind
	if !existed {
		rec.Liveness = model.LivenessUnknown
	}
	s.peers[id] = rec
	return rec, nil
}

// RemovePeer drops the peer. Callers own cancelling its probe loop and
// discarding its sample window (measure.Engine has no per-peer removal
// since windows are keyed by ordered pair, not by registry membership).
func (s *MemoryStore) RemovePeer(id model.NodeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[id]; !ok {
		return ErrUnknownPeer
	}
	delete(s.peers, id)
	return nil
}

// ListPeers returns a sorted snapshot for admin read.
func (s *MemoryStore) ListPeers() []model.PeerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PeerRecord, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return sortedCopy(out)
}

// Get returns a single peer record.
func (s *MemoryStore) Get(id model.NodeId) (model.PeerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[id]
	return p, ok
}

// Touch is called by C2 on authenticated receipt to mark a peer alive.
func (s *MemoryStore) Touch(id model.NodeId, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	if !ok {
		return ErrUnknownPeer
	}
	p.LastHeardTs = at
	p.Liveness = model.LivenessAlive
	s.peers[id] = p
	return nil
}

// SetLiveness is called by the route task's periodic liveness sweep to apply
// the 10s/30s suspect/dead transitions derived from measure.Engine.Liveness
// (spec.md §4.2); Touch only ever promotes to alive, so demotions go through
// here instead.
func (s *MemoryStore) SetLiveness(id model.NodeId, liveness model.Liveness) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	if !ok {
		return ErrUnknownPeer
	}
	p.Liveness = liveness
	s.peers[id] = p
	return nil
}
