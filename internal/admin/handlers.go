package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ddarpd/internal/authdb"
	"ddarpd/internal/authjwt"
	"ddarpd/internal/measure"
	"ddarpd/internal/model"
	"ddarpd/internal/registry"
	"ddarpd/internal/routing"
	"ddarpd/internal/topology"
)

// Deps is everything the admin surface reads from or mutates. It never
// holds the core packages' internals directly, only the narrow handles it
// needs — mirroring the teacher's RegisterRoutes(mux, store, token, ...)
// shape but widened to ddarpd's several read models.
type Deps struct {
	NodeID     model.NodeId
	Kind       string
	StartedAt  time.Time
	Peers      registry.PeerStore
	Topology   *topology.Store
	Table      func() *routing.Table
	Measure    *measure.Engine
	Metrics    *Metrics
	Hub        *Hub
	AdminToken string
	JWT        *authjwt.Issuer
	DB         *gorm.DB
	Log        *zap.SugaredLogger
}

func (d *Deps) snapshotMatrix() map[model.NodeId]map[model.NodeId]model.EdgeMetrics {
	if d.Measure == nil {
		return nil
	}
	return d.Measure.MetricsMatrix()
}

type addPeerRequest struct {
	PeerID     string `json:"peer_id"`
	PeerIP     string `json:"peer_ip"`
	PeerType   string `json:"peer_type"`
	PeerSecret string `json:"peer_secret"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRoutes wires every route named in spec.md §6 onto mux.
func RegisterRoutes(mux *http.ServeMux, d *Deps) {
	auth := d.authFunc()

	mux.HandleFunc("GET /health", d.handleHealth)
	mux.HandleFunc("GET /node_info", d.handleNodeInfo)
	mux.HandleFunc("GET /metrics/owl", d.handleOwlMetrics)
	mux.HandleFunc("GET /topology", d.handleTopology)
	mux.HandleFunc("GET /routing_table", d.handleRoutingTable)
	mux.HandleFunc("GET /path/{dest}", d.handlePath)
	mux.HandleFunc("GET /ws/topology", d.handleWSTopology)
	mux.HandleFunc("GET /metrics", metricsHandler())
	mux.HandleFunc("POST /admin/login", d.handleLogin)

	mux.HandleFunc("GET /audit", requireAuth(auth, d.handleAudit))
	mux.HandleFunc("POST /peers", requireAuth(auth, d.handleAddPeer))
	mux.HandleFunc("DELETE /peers/{peer_id}", requireAuth(auth, d.handleRemovePeer))
}

type actorKey struct{}

func requireAuth(auth func(*http.Request) (string, bool), next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	}
}

func actorFromRequest(r *http.Request) string {
	if a, ok := r.Context().Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "unknown"
}

// authFunc accepts either a valid JWT minted by handleLogin or, as a static
// fallback for operators who have not provisioned an admin account, an
// exact match against AdminToken. With an empty AdminToken, a request
// carrying no bearer token is accepted even when a JWT issuer is
// configured, which leaves the admin surface unauthenticated, matching the
// teacher's own opt-in AuthMiddleware(requireJWT bool) default.
func (d *Deps) authFunc() func(*http.Request) (string, bool) {
	return func(r *http.Request) (string, bool) {
		h := r.Header.Get("Authorization")
		tok := strings.TrimPrefix(h, "Bearer ")
		if tok == "" {
			return "", d.AdminToken == ""
		}
		if d.JWT != nil {
			if claims, err := d.JWT.Parse(tok); err == nil {
				return claims.Subject, true
			}
		}
		if d.AdminToken != "" && tok == d.AdminToken {
			return "static-token", true
		}
		return "", false
	}
}

func (d *Deps) handleHealth(w http.ResponseWriter, _ *http.Request) {
	peers := d.Peers.ListPeers()
	status := "healthy"
	if len(peers) == 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"node_id":    d.NodeID,
		"peer_count": len(peers),
		"uptime_s":   time.Since(d.StartedAt).Seconds(),
	})
}

func (d *Deps) handleNodeInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":    d.NodeID,
		"kind":       d.Kind,
		"version":    1,
		"started_at": d.StartedAt,
	})
}

func (d *Deps) handleOwlMetrics(w http.ResponseWriter, _ *http.Request) {
	matrix := map[model.NodeId]map[model.NodeId]map[string]any{}
	for src, byDst := range d.snapshotMatrix() {
		row := map[model.NodeId]map[string]any{}
		for dst, m := range byDst {
			row[dst] = map[string]any{
				"latency_ms":   m.LatencyMs,
				"jitter_ms":    m.JitterMs,
				"loss_ratio":   m.LossRatio,
				"last_updated": m.LastUpdatedTs,
			}
		}
		matrix[src] = row
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics_matrix": matrix})
}

func (d *Deps) handleTopology(w http.ResponseWriter, _ *http.Request) {
	view := d.Topology.Snapshot()
	edges := make([]map[string]any, 0, len(view.Edges))
	for _, e := range view.Edges {
		edges = append(edges, map[string]any{
			"src":          e.Src,
			"dst":          e.Dst,
			"weight":       e.Weight,
			"last_updated": e.Metrics.LastUpdatedTs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": view.Generation,
		"nodes":      view.Nodes,
		"edges":      edges,
	})
}

func (d *Deps) handleRoutingTable(w http.ResponseWriter, _ *http.Request) {
	t := d.Table()
	entries := []map[string]any{}
	if t != nil {
		for _, e := range t.Entries() {
			entries = append(entries, map[string]any{
				"destination": e.DestinationId,
				"next_hop":    e.NextHopId,
				"path":        e.FullPath,
				"cost":        e.TotalCost,
				"computed_ts": e.ComputedTs,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (d *Deps) handlePath(w http.ResponseWriter, r *http.Request) {
	dest := model.NodeId(r.PathValue("dest"))
	t := d.Table()
	if t == nil {
		writeJSON(w, http.StatusOK, map[string]any{"reachable": false, "reason": "no_route"})
		return
	}
	entry, ok := t.Lookup(dest)
	if !ok {
		reason := "no_route"
		if _, known := d.Peers.Get(dest); !known && dest != d.NodeID {
			reason = "unknown_destination"
		}
		writeJSON(w, http.StatusOK, map[string]any{"reachable": false, "reason": reason})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reachable": true,
		"path":      entry.FullPath,
		"cost":      entry.TotalCost,
	})
}

func (d *Deps) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	var req addPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PeerID == "" || req.PeerIP == "" {
		http.Error(w, "invalid payload: peer_id and peer_ip are required", http.StatusBadRequest)
		return
	}
	kind := model.PeerRegular
	if req.PeerType == string(model.PeerBorder) {
		kind = model.PeerBorder
	}

	existing, existed := d.Peers.Get(model.NodeId(req.PeerID))
	if _, err := d.Peers.AddPeer(model.NodeId(req.PeerID), req.PeerIP, req.PeerSecret, kind); err != nil {
		http.Error(w, "failed to add peer", http.StatusInternalServerError)
		return
	}
	if existed && existing.TransportAddress != req.PeerIP {
		w.WriteHeader(http.StatusConflict)
		return
	}
	d.audit(r, "add_peer", req.PeerID)
	w.WriteHeader(http.StatusOK)
}

func (d *Deps) handleRemovePeer(w http.ResponseWriter, r *http.Request) {
	id := model.NodeId(r.PathValue("peer_id"))
	if err := d.Peers.RemovePeer(id); err != nil {
		http.Error(w, "peer not found", http.StatusNotFound)
		return
	}
	d.audit(r, "remove_peer", string(id))
	w.WriteHeader(http.StatusOK)
}

// handleLogin exchanges admin-account credentials for a JWT, mirroring the
// teacher's AuthHandler.handleLogin but against ddarpd's own admin-user
// table rather than a freestanding registration flow.
func (d *Deps) handleLogin(w http.ResponseWriter, r *http.Request) {
	if d.DB == nil || d.JWT == nil {
		http.Error(w, "admin accounts not configured", http.StatusServiceUnavailable)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload: username and password are required", http.StatusBadRequest)
		return
	}
	user, ok, err := authdb.GetUserByUsername(d.DB, req.Username)
	if err != nil {
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if !ok || !authdb.CheckPassword(user.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := d.JWT.Generate(user.Username, string(d.NodeID), 24*time.Hour)
	if err != nil {
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (d *Deps) handleAudit(w http.ResponseWriter, r *http.Request) {
	if d.DB == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []any{}})
		return
	}
	entries, err := authdb.ListAudit(d.DB, 200)
	if err != nil {
		http.Error(w, "failed to read audit log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (d *Deps) audit(r *http.Request, action, target string) {
	if d.DB == nil {
		return
	}
	if err := authdb.AppendAudit(d.DB, actorFromRequest(r), action, target); err != nil && d.Log != nil {
		d.Log.Warnw("failed to append audit entry", "action", action, "target", target, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
