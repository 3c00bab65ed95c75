package scorectl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/creditscope/pkg/logger"
)

// Stub server timeouts.
const (
	stubReadHeaderTimeout = 5 * time.Second
	stubShutdownTimeout   = 5 * time.Second
)

// ServeStub serves handler on addr until ctx is cancelled. ready, when not
// nil, receives the bound address once the listener is open.
func ServeStub(ctx context.Context, addr string, handler http.Handler, log logger.Logger, ready chan<- string) error {
	if log == nil {
		log = logger.Nop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: stubReadHeaderTimeout}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.Info(ctx, "stub scoring service started", logger.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), stubShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "stub scoring service stopped")
	return nil
}
