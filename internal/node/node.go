// Package node wires the DDARP components into the composite daemon
// described by spec.md §4.8/§5 (C8): the probe receiver, per-peer probe
// emitter, routing recomputation, path-decision sink, and admin surface,
// each running as its own task over shared, disciplined state. Grounded on
// the teacher's cmd/agent + cmd/controller split, collapsed into the single
// composite process spec.md calls for.
package node

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ddarpd/internal/admin"
	"ddarpd/internal/measure"
	"ddarpd/internal/model"
	"ddarpd/internal/registry"
	"ddarpd/internal/routing"
	"ddarpd/internal/sink"
	"ddarpd/internal/topology"
)

// DrainGrace is how long Stop waits for in-flight receives to finish before
// closing sockets out from under them (spec.md §4.8).
const DrainGrace = 2 * time.Second

// Config is everything the node orchestrator needs beyond the components it
// is handed pre-built (registry, measure engine, topology store, adapter).
type Config struct {
	NodeID            model.NodeId
	ListenAddr        string
	AdminAddr         string
	ProbeInterval     time.Duration
	RecomputeInterval time.Duration
}

// Node is the composite daemon: C1-C7 wired together and driven by the
// T_recv/T_send/T_route/T_sink/T_admin tasks of spec.md §5.
type Node struct {
	cfg Config
	log *zap.SugaredLogger

	peers    registry.PeerStore
	measure  *measure.Engine
	topology *topology.Store
	adapter  sink.DataPlaneAdapter
	admin    *admin.Deps
	server   *adminServer

	conn  *net.UDPConn
	seq   map[model.NodeId]*uint64
	seqMu sync.Mutex

	table       atomic.Pointer[routing.Table]
	prevTunnels map[model.NodeId]bool
	tunnelsMu   sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Node. adapter is the data-plane seam implementation (a
// fan-out over bgpseam and tunnelseam in production, a fake in tests).
func New(cfg Config, log *zap.SugaredLogger, peers registry.PeerStore, eng *measure.Engine, topo *topology.Store, adapter sink.DataPlaneAdapter, adminDeps *admin.Deps) *Node {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = time.Second
	}
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = 5 * time.Second
	}
	n := &Node{
		cfg:         cfg,
		log:         log,
		peers:       peers,
		measure:     eng,
		topology:    topo,
		adapter:     adapter,
		admin:       adminDeps,
		seq:         make(map[model.NodeId]*uint64),
		prevTunnels: make(map[model.NodeId]bool),
	}
	n.table.Store(routing.NewTable())
	if adminDeps != nil {
		adminDeps.Table = n.CurrentTable
		if cfg.AdminAddr != "" {
			n.server = newAdminServer(cfg.AdminAddr, adminDeps, log)
		}
	}
	return n
}

// CurrentTable returns the latest installed routing table. Safe for
// concurrent use; this is the atomic read side of the T_route/T_admin
// handoff described in spec.md §5.
func (n *Node) CurrentTable() *routing.Table {
	return n.table.Load()
}

// Start binds the probe socket and launches every task. It returns once the
// socket is bound; tasks run until ctx is cancelled or Stop is called.
func (n *Node) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("node: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("node: bind probe socket: %w", err)
	}
	n.conn = conn

	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.wg.Add(1)
	go n.runRecvLoop(runCtx)

	n.wg.Add(1)
	go n.runSendLoop(runCtx)

	n.wg.Add(1)
	go n.runRouteLoop(runCtx)

	if n.server != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.server.run(runCtx)
		}()
	}

	n.log.Infow("node started", "node_id", n.cfg.NodeID, "listen_addr", n.cfg.ListenAddr)
	return nil
}

// Stop cancels every task, allows DrainGrace for in-flight receives to
// finish, then releases the socket.
func (n *Node) Stop() {
	if n.cancel == nil {
		return
	}
	n.cancel()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(DrainGrace):
		n.log.Warnw("drain grace exceeded, releasing socket anyway")
	}

	if n.conn != nil {
		_ = n.conn.Close()
	}
}

func (n *Node) nextSeq(peer model.NodeId) uint32 {
	n.seqMu.Lock()
	defer n.seqMu.Unlock()
	c, ok := n.seq[peer]
	if !ok {
		c = new(uint64)
		n.seq[peer] = c
	}
	*c++
	return uint32(*c)
}
