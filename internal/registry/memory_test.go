package registry

import (
	"testing"
	"time"

	"ddarpd/internal/model"
	"github.com/stretchr/testify/require"
)

func TestAddPeerIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.AddPeer("node-a", "10.0.0.1:8080", "secret", model.PeerRegular)
	require.NoError(t, err)

	rec, err := s.AddPeer("node-a", "10.0.0.2:8080", "secret2", model.PeerBorder)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2:8080", rec.TransportAddress)
	require.Equal(t, model.PeerBorder, rec.Kind)
	require.Len(t, s.ListPeers(), 1)
}

func TestRemovePeerUnknownErrors(t *testing.T) {
	s := NewMemoryStore()
	require.ErrorIs(t, s.RemovePeer("ghost"), ErrUnknownPeer)
}

func TestRemovePeerDropsIt(t *testing.T) {
	s := NewMemoryStore()
	s.AddPeer("node-a", "addr", "secret", model.PeerRegular)
	require.NoError(t, s.RemovePeer("node-a"))
	_, ok := s.Get("node-a")
	require.False(t, ok)
}

func TestListPeersIsSorted(t *testing.T) {
	s := NewMemoryStore()
	s.AddPeer("zeta", "a", "s", model.PeerRegular)
	s.AddPeer("alpha", "a", "s", model.PeerRegular)
	list := s.ListPeers()
	require.Len(t, list, 2)
	require.Equal(t, model.NodeId("alpha"), list[0].NodeId)
	require.Equal(t, model.NodeId("zeta"), list[1].NodeId)
}

func TestTouchMarksAliveAndUpdatesLastHeard(t *testing.T) {
	s := NewMemoryStore()
	s.AddPeer("node-a", "addr", "secret", model.PeerRegular)
	now := time.Now()
	require.NoError(t, s.Touch("node-a", now))

	rec, _ := s.Get("node-a")
	require.Equal(t, model.LivenessAlive, rec.Liveness)
	require.WithinDuration(t, now, rec.LastHeardTs, time.Millisecond)
}

func TestTouchUnknownPeerErrors(t *testing.T) {
	s := NewMemoryStore()
	require.ErrorIs(t, s.Touch("ghost", time.Now()), ErrUnknownPeer)
}

func TestSetLivenessDemotesPeer(t *testing.T) {
	s := NewMemoryStore()
	s.AddPeer("node-a", "addr", "secret", model.PeerRegular)
	require.NoError(t, s.Touch("node-a", time.Now()))

	require.NoError(t, s.SetLiveness("node-a", model.LivenessDead))

	rec, _ := s.Get("node-a")
	require.Equal(t, model.LivenessDead, rec.Liveness)
}

func TestSetLivenessUnknownPeerErrors(t *testing.T) {
	s := NewMemoryStore()
	require.ErrorIs(t, s.SetLiveness("ghost", model.LivenessDead), ErrUnknownPeer)
}
