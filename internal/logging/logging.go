// Package logging sets up structured, leveled logging for ddarpd. The
// teacher uses bare log.Printf throughout; the wider retrieved corpus
// (scionproto/scion, deepflowio/deepflow) uniformly reaches for
// go.uber.org/zap for a daemon of this shape, so ddarpd adopts it instead
// of carrying the teacher's unstructured logging forward.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. debug enables development-mode
// (human-readable, caller-annotated) output; production mode emits JSON.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}

// ForComponent returns a child logger tagged with a component field, the
// convention every package-level logger in ddarpd follows ("component":
// "measure", "routing", "admin", ...).
func ForComponent(base *zap.Logger, component string) *zap.SugaredLogger {
	return base.With(zap.String("component", component)).Sugar()
}

// NoOp returns a logger that discards everything, for tests and for code
// paths exercised before the real logger is configured.
func NoOp() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// MustForNode returns a node-scoped logger, or exits the process if the
// underlying zap build fails (startup-only use, never called after the
// daemon is running).
func MustForNode(debug bool, nodeID string) *zap.SugaredLogger {
	base, err := New(debug)
	if err != nil {
		// zap construction failing means stdout/stderr itself is broken;
		// there is no logger left to report through.
		os.Exit(1)
	}
	return base.With(zap.String("node_id", nodeID)).Sugar()
}
