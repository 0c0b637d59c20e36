package node

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ddarpd/internal/admin"
)

// adminServer wraps an *http.Server bound to admin.RegisterRoutes, run and
// shut down in step with the rest of the node's tasks (T_admin).
type adminServer struct {
	srv *http.Server
	log *zap.SugaredLogger
}

func newAdminServer(addr string, deps *admin.Deps, log *zap.SugaredLogger) *adminServer {
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, deps)
	return &adminServer{
		srv: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second, // spec.md §5: admin requests bounded to 10s
		},
		log: log,
	}
}

func (a *adminServer) run(ctx context.Context) {
	errCh := make(chan error, 1)
	go func() { errCh <- a.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DrainGrace)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warnw("admin server shutdown error", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorw("admin server exited unexpectedly", "err", err)
		}
	}
}
