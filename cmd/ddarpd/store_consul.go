//go:build consul

package main

import (
	"fmt"

	"ddarpd/internal/config"
	"ddarpd/internal/registry"
)

func newPeerStore(cfg config.Config) (registry.PeerStore, error) {
	switch cfg.PeerStore {
	case config.PeerStoreMemory, "":
		return registry.NewMemoryStore(), nil
	case config.PeerStoreConsul:
		return registry.NewConsulStore(cfg.ConsulAddr)
	default:
		return nil, fmt.Errorf("unknown peer store %q", cfg.PeerStore)
	}
}
