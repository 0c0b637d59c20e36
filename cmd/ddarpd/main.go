// Command ddarpd runs the composite DDARP daemon: probe receiver, probe
// emitter, routing recomputation, path-decision sink, and admin/metrics
// surface, all in one process (spec.md §4.8). It replaces the teacher's
// separate controller and agent binaries — DDARP has no central plan
// server, every node runs the full stack peer-to-peer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ddarpd/internal/admin"
	"ddarpd/internal/authdb"
	"ddarpd/internal/authjwt"
	"ddarpd/internal/bgpseam"
	"ddarpd/internal/config"
	"ddarpd/internal/logging"
	"ddarpd/internal/measure"
	"ddarpd/internal/model"
	"ddarpd/internal/node"
	"ddarpd/internal/topology"
	"ddarpd/internal/tunnelseam"
	"ddarpd/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ddarpd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.NodeID == "" {
		return fmt.Errorf("node id is required (flag -node-id or env DDARP_NODE_ID)")
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	sugar := logging.ForComponent(log, "ddarpd")

	peers, err := newPeerStore(cfg)
	if err != nil {
		return fmt.Errorf("build peer store: %w", err)
	}

	issuer, err := authjwt.NewIssuer(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("build jwt issuer: %w", err)
	}

	db, err := authdb.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open admin db: %w", err)
	}
	if err := authdb.EnsureBootstrapAdmin(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin account: %w", err)
	}

	eng := measure.NewEngine()
	topo := topology.NewStore()
	topo.UpsertNode(model.TopologyNode{Id: model.NodeId(cfg.NodeID), Liveness: model.LivenessAlive, LastHeard: time.Now()})

	overlayIPOf := func(id model.NodeId) string {
		if p, ok := peers.Get(id); ok {
			return p.TransportAddress
		}
		return ""
	}
	bgpAdapter := bgpseam.NewAdapter(65000, "", "wg0", overlayIPOf)

	tunPriv, err := tunnelseam.GenerateEphemeralKey()
	if err != nil {
		return fmt.Errorf("generate tunnel key: %w", err)
	}
	keysOf := func(id model.NodeId) (string, string, bool) {
		p, ok := peers.Get(id)
		if !ok {
			return "", "", false
		}
		return p.SharedSecret, p.TransportAddress, true
	}
	tunAdapter, err := tunnelseam.NewAdapter("wg0", "", tunPriv, keysOf)
	if err != nil {
		return fmt.Errorf("build tunnel adapter: %w", err)
	}
	adapter := node.NewCombinedAdapter(bgpAdapter, tunAdapter)

	metrics := admin.NewMetrics(prometheus.DefaultRegisterer)
	deps := &admin.Deps{
		NodeID:     model.NodeId(cfg.NodeID),
		Kind:       "regular",
		StartedAt:  time.Now(),
		Peers:      peers,
		Topology:   topo,
		Measure:    eng,
		Metrics:    metrics,
		Hub:        admin.NewHub(sugar),
		AdminToken: cfg.AdminToken,
		JWT:        issuer,
		DB:         db,
		Log:        sugar,
	}

	n := node.New(node.Config{
		NodeID:            model.NodeId(cfg.NodeID),
		ListenAddr:        cfg.ListenAddr,
		AdminAddr:         cfg.AdminAddr,
		ProbeInterval:     cfg.ProbeInterval,
		RecomputeInterval: cfg.RecomputeInterval,
	}, sugar, peers, eng, topo, adapter, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	sugar.Infow("ddarpd running", "version", version.Build, "protocol_version", version.ProtocolVersion)

	<-ctx.Done()
	sugar.Infow("shutting down")
	n.Stop()
	return nil
}
