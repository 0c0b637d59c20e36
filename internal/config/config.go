// Package config loads ddarpd's configuration by layering an optional .env
// file, then environment variables, then flag overrides — the same order
// the teacher's cmd/agent/main.go and pkg/db/mysql.go apply, generalized
// to SPEC_FULL.md's env surface.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// PeerStoreKind selects the registry backend.
type PeerStoreKind string

const (
	PeerStoreMemory PeerStoreKind = "memory"
	PeerStoreConsul PeerStoreKind = "consul"
)

// Config is ddarpd's fully resolved runtime configuration.
type Config struct {
	NodeID            string
	ListenAddr        string
	AdminAddr         string
	ProbeInterval     time.Duration
	RecomputeInterval time.Duration
	AdminToken        string
	AdminUsername     string
	AdminPassword     string
	PeerStore         PeerStoreKind
	ConsulAddr        string
	DBPath            string
	JWTSecret         string
	Debug             bool
}

// Load layers .env (if present), then environment variables, then the
// provided flag.FlagSet's parsed args, and returns the resolved Config.
func Load(args []string) (Config, error) {
	loadDotEnvIfPresent()

	fs := flag.NewFlagSet("ddarpd", flag.ContinueOnError)

	nodeID := fs.String("node-id", getenv("DDARP_NODE_ID", ""), "this node's NodeId (env DDARP_NODE_ID)")
	listenAddr := fs.String("listen-addr", getenv("DDARP_LISTEN_ADDR", ":8080"), "datagram+control listen address (env DDARP_LISTEN_ADDR)")
	adminAddr := fs.String("admin-addr", getenv("DDARP_ADMIN_ADDR", ":8081"), "admin/metrics HTTP listen address (env DDARP_ADMIN_ADDR)")
	probeIntervalMs := fs.Int("probe-interval-ms", getenvInt("DDARP_PROBE_INTERVAL_MS", 1000), "probe emission interval in ms (env DDARP_PROBE_INTERVAL_MS)")
	recomputeIntervalMs := fs.Int("recompute-interval-ms", getenvInt("DDARP_RECOMPUTE_INTERVAL_MS", 5000), "routing recompute interval in ms (env DDARP_RECOMPUTE_INTERVAL_MS)")
	adminToken := fs.String("admin-token", getenv("DDARP_ADMIN_TOKEN", ""), "bearer token for mutating admin routes (env DDARP_ADMIN_TOKEN)")
	adminUsername := fs.String("admin-username", getenv("DDARP_ADMIN_USERNAME", ""), "bootstrap admin account username, created on first run (env DDARP_ADMIN_USERNAME)")
	adminPassword := fs.String("admin-password", getenv("DDARP_ADMIN_PASSWORD", ""), "bootstrap admin account password (env DDARP_ADMIN_PASSWORD)")
	peerStore := fs.String("peer-store", getenv("DDARP_PEER_STORE", string(PeerStoreMemory)), "peer registry backend: memory|consul (env DDARP_PEER_STORE)")
	consulAddr := fs.String("consul-addr", getenv("DDARP_CONSUL_ADDR", ""), "consul agent address (env DDARP_CONSUL_ADDR)")
	dbPath := fs.String("db-path", getenv("DDARP_DB_PATH", "ddarpd.db"), "sqlite path for the admin-user/audit db (env DDARP_DB_PATH)")
	jwtSecret := fs.String("jwt-secret", getenv("DDARP_JWT_SECRET", "change-me-secret"), "HMAC secret for admin JWTs (env DDARP_JWT_SECRET)")
	debug := fs.Bool("debug", getenvBool("DDARP_DEBUG", false), "enable development-mode logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{
		NodeID:            *nodeID,
		ListenAddr:        *listenAddr,
		AdminAddr:         *adminAddr,
		ProbeInterval:     time.Duration(*probeIntervalMs) * time.Millisecond,
		RecomputeInterval: time.Duration(*recomputeIntervalMs) * time.Millisecond,
		AdminToken:        *adminToken,
		AdminUsername:     *adminUsername,
		AdminPassword:     *adminPassword,
		PeerStore:         PeerStoreKind(*peerStore),
		ConsulAddr:        *consulAddr,
		DBPath:            *dbPath,
		JWTSecret:         *jwtSecret,
		Debug:             *debug,
	}, nil
}

func loadDotEnvIfPresent() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}
