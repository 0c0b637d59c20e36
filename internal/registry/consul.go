//go:build consul

package registry

import (
	"encoding/json"
	"time"

	consulapi "github.com/hashicorp/consul/api"

	"ddarpd/internal/model"
)

// ConsulStore is an optional PeerStore backend over Consul's KV store,
// selected with DDARP_PEER_STORE=consul. Grounded on the teacher's
// pkg/consul/store_consul.go, repurposed from node/plan/health records to
// peer records. Peers are discovered state, never durably required: losing
// the Consul backend loses the peer list, not routing correctness, keeping
// spec.md's "peers are re-learned, not durably required" posture intact.
type ConsulStore struct {
	cli    *consulapi.Client
	prefix string
}

// NewConsulStore dials addr (empty uses the client's default discovery).
func NewConsulStore(addr string) (*ConsulStore, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ConsulStore{cli: cli, prefix: "ddarpd/peers/"}, nil
}

func (s *ConsulStore) key(id model.NodeId) string {
	return s.prefix + string(id)
}

func (s *ConsulStore) AddPeer(id model.NodeId, transportAddress, sharedSecret string, kind model.PeerKind) (model.PeerRecord, error) {
	existing, _ := s.Get(id)
	rec := existing
	rec.NodeId = id
	rec.TransportAddress = transportAddress
	rec.SharedSecret = sharedSecret
	rec.Kind = kind

	b, err := json.Marshal(rec)
	if err != nil {
		return model.PeerRecord{}, err
	}
	if _, err := s.cli.KV().Put(&consulapi.KVPair{Key: s.key(id), Value: b}, nil); err != nil {
		return model.PeerRecord{}, err
	}
	return rec, nil
}

func (s *ConsulStore) RemovePeer(id model.NodeId) error {
	if _, ok := s.Get(id); !ok {
		return ErrUnknownPeer
	}
	_, err := s.cli.KV().Delete(s.key(id), nil)
	return err
}

func (s *ConsulStore) ListPeers() []model.PeerRecord {
	pairs, _, err := s.cli.KV().List(s.prefix, nil)
	if err != nil {
		return nil
	}
	out := make([]model.PeerRecord, 0, len(pairs))
	for _, p := range pairs {
		var rec model.PeerRecord
		if json.Unmarshal(p.Value, &rec) == nil {
			out = append(out, rec)
		}
	}
	return sortedCopy(out)
}

func (s *ConsulStore) Get(id model.NodeId) (model.PeerRecord, bool) {
	kv, _, err := s.cli.KV().Get(s.key(id), nil)
	if err != nil || kv == nil {
		return model.PeerRecord{}, false
	}
	var rec model.PeerRecord
	if err := json.Unmarshal(kv.Value, &rec); err != nil {
		return model.PeerRecord{}, false
	}
	return rec, true
}

func (s *ConsulStore) Touch(id model.NodeId, at time.Time) error {
	rec, ok := s.Get(id)
	if !ok {
		return ErrUnknownPeer
	}
	rec.LastHeardTs = at
	rec.Liveness = model.LivenessAlive
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.cli.KV().Put(&consulapi.KVPair{Key: s.key(id), Value: b}, nil)
	return err
}

// SetLiveness mirrors MemoryStore.SetLiveness over the Consul KV backend.
func (s *ConsulStore) SetLiveness(id model.NodeId, liveness model.Liveness) error {
	rec, ok := s.Get(id)
	if !ok {
		return ErrUnknownPeer
	}
	rec.Liveness = liveness
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.cli.KV().Put(&consulapi.KVPair{Key: s.key(id), Value: b}, nil)
	return err
}

var _ PeerStore = (*ConsulStore)(nil)
