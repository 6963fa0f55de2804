package http

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{Addr: addr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			serveErr <- serr
		}
		close(serveErr)
	}()

	select {
	case serr := <-serveErr:
		if serr != nil {
			return errors.Wrap(serr, "http: serve")
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		log.Error("HTTP server shutdown failed", "error", serr)
		return errors.Wrap(serr, "http: shutdown")
	}
	log.Info("HTTP server gracefully stopped")
	return nil
}
