package admin

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ddarpd/internal/model"
)

// TopologyPush is one outbound message on the /ws/topology stream.
type TopologyPush struct {
	Generation uint64               `json:"generation"`
	Nodes      []model.TopologyNode `json:"nodes"`
	Edges      []model.TopologyEdge `json:"edges"`
}

// Hub fans a topology snapshot out to every connected admin UI, adapted
// from the teacher's pkg/api/ws.go WSHub — generalized from per-node agent
// connections to a single broadcast topic since ddarpd has one topology
// view per node rather than a controller aggregating many agents.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[*websocket.Conn]struct{}
	log      *zap.SugaredLogger
}

// NewHub builds a websocket hub. log may be nil.
func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }},
		subs:     map[*websocket.Conn]struct{}{},
		log:      log,
	}
}

func (d *Deps) handleWSTopology(w http.ResponseWriter, r *http.Request) {
	d.Hub.serve(w, r)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("ws upgrade failed", "err", err)
		return
	}
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	go h.readUntilClosed(c)
}

// readUntilClosed drains (and discards) client frames so the connection
// stays alive until the peer disconnects; this topic is push-only.
func (h *Hub) readUntilClosed(c *websocket.Conn) {
	defer h.drop(c)
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	_ = c.Close()
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
}

// Broadcast pushes view to every connected subscriber, dropping any
// connection that errors on write.
func (h *Hub) Broadcast(view model.TopologyView) {
	msg := TopologyPush{Generation: view.Generation, Nodes: view.Nodes, Edges: view.Edges}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for c := range h.subs {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			h.drop(c)
		}
	}
}
