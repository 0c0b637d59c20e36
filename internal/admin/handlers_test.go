package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"ddarpd/internal/authdb"
	"ddarpd/internal/authjwt"
	"ddarpd/internal/measure"
	"ddarpd/internal/model"
	"ddarpd/internal/registry"
	"ddarpd/internal/routing"
	"ddarpd/internal/topology"
)

func newTestDeps(t *testing.T, token string) (*Deps, *http.ServeMux) {
	t.Helper()
	d := &Deps{
		NodeID:     "node-a",
		Kind:       "regular",
		StartedAt:  time.Now().Add(-time.Minute),
		Peers:      registry.NewMemoryStore(),
		Topology:   topology.NewStore(),
		Table:      func() *routing.Table { return routing.NewTable() },
		Measure:    measure.NewEngine(),
		Metrics:    NewMetrics(prometheus.NewRegistry()),
		Hub:        NewHub(nil),
		AdminToken: token,
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, d)
	return d, mux
}

func newTestDepsWithAccounts(t *testing.T) (*Deps, *http.ServeMux) {
	t.Helper()
	d, mux := newTestDeps(t, "static-token-never-sent")

	db, err := authdb.Open(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	d.DB = db

	issuer, err := authjwt.NewIssuer("test-jwt-secret")
	require.NoError(t, err)
	d.JWT = issuer

	require.NoError(t, authdb.EnsureBootstrapAdmin(db, "root", "s3cr3t-pw"))
	return d, mux
}

func TestHealthReportsDegradedWithNoPeers(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body["status"])
}

func TestHealthReportsHealthyWithPeers(t *testing.T) {
	d, mux := newTestDeps(t, "")
	_, err := d.Peers.AddPeer("node-b", "10.0.0.2:8080", "secret", model.PeerRegular)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, float64(1), body["peer_count"])
}

func TestNodeInfoReturnsNodeIdAndKind(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodGet, "/node_info", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "node-a", body["node_id"])
	require.Equal(t, "regular", body["kind"])
}

func TestAddPeerRejectsEmptyBody(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodPost, "/peers", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddPeerSucceedsThenConflictsOnAddressChange(t *testing.T) {
	_, mux := newTestDeps(t, "")

	body := `{"peer_id":"node-b","peer_ip":"10.0.0.2:8080","peer_type":"regular"}`
	req := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body2 := `{"peer_id":"node-b","peer_ip":"10.0.0.3:8080","peer_type":"regular"}`
	req2 := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(body2))
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusConflict, rec2.Code)
}

func TestRemovePeerUnknownReturns404(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodDelete, "/peers/node-z", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutatingRoutesRequireBearerToken(t *testing.T) {
	_, mux := newTestDeps(t, "s3cr3t")
	req := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(`{"peer_id":"x","peer_ip":"1.2.3.4"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(`{"peer_id":"x","peer_ip":"1.2.3.4"}`))
	req2.Header.Set("Authorization", "Bearer s3cr3t")
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestPathUnknownDestination(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodGet, "/path/node-z", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["reachable"])
	require.Equal(t, "unknown_destination", body["reason"])
}

func TestTopologyReturnsGenerationAndEmptySnapshot(t *testing.T) {
	_, mux := newTestDeps(t, "")
	req := httptest.NewRequest(http.MethodGet, "/topology", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, float64(0), body["generation"])
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	d, mux := newTestDepsWithAccounts(t)
	_ = d
	req := httptest.NewRequest(http.MethodPost, "/admin/login", jsonBody(`{"username":"ghost","password":"whatever"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, mux := newTestDepsWithAccounts(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", jsonBody(`{"username":"root","password":"wrong"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIssuesTokenThatAuthorizesMutatingRoute(t *testing.T) {
	_, mux := newTestDepsWithAccounts(t)

	loginReq := httptest.NewRequest(http.MethodPost, "/admin/login", jsonBody(`{"username":"root","password":"s3cr3t-pw"}`))
	loginRec := httptest.NewRecorder()
	mux.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])

	req := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(`{"peer_id":"node-z","peer_ip":"1.2.3.4:8080"}`))
	req.Header.Set("Authorization", "Bearer "+body["token"])
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditReflectsMutatingActions(t *testing.T) {
	d, mux := newTestDepsWithAccounts(t)

	loginReq := httptest.NewRequest(http.MethodPost, "/admin/login", jsonBody(`{"username":"root","password":"s3cr3t-pw"}`))
	loginRec := httptest.NewRecorder()
	mux.ServeHTTP(loginRec, loginReq)
	var body map[string]string
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &body))
	token := body["token"]

	addReq := httptest.NewRequest(http.MethodPost, "/peers", jsonBody(`{"peer_id":"node-z","peer_ip":"1.2.3.4:8080"}`))
	addReq.Header.Set("Authorization", "Bearer "+token)
	addRec := httptest.NewRecorder()
	mux.ServeHTTP(addRec, addReq)
	require.Equal(t, http.StatusOK, addRec.Code)

	entries, err := authdb.ListAudit(d.DB, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "add_peer", entries[0].Action)
	require.Equal(t, "node-z", entries[0].Target)
	require.Equal(t, "root", entries[0].Actor)
}
