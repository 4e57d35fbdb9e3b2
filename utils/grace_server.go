package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT  = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT = DEFAULT_READ_TIMEOUT
	DEFAULT_DRAIN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server with signal-driven graceful shutdown.
type Server struct {
	*http.Server

	drainTimeout time.Duration
	onShutdown   []func()
}

// NewServer creates a Server with timeouts and handler. onShutdown hooks run
// once the server has stopped accepting work.
func NewServer(addr string, handler http.Handler, onShutdown ...func()) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  DEFAULT_READ_TIMEOUT,
			WriteTimeout: DEFAULT_WRITE_TIMEOUT,
		},
		drainTimeout: DEFAULT_DRAIN_TIMEOUT,
		onShutdown:   onShutdown,
	}
}

// Serve handles requests on ln until ctx is done or SIGINT/SIGTERM arrives,
// then drains in-flight requests and runs the shutdown hooks.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Server.Serve(ln) }()

	select {
	case err := <-errc:
		srv.runHooks()
		return err
	case <-ctx.Done():
		Sugar.Info("graceful shutting down HTTP server")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), srv.drainTimeout)
	defer cancel()
	err := srv.Shutdown(drainCtx)
	if err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	if serveErr := <-errc; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	// Release stores only after in-flight ledger requests have drained.
	srv.runHooks()
	return err
}

func (srv *Server) runHooks() {
	for _, fn := range srv.onShutdown {
		fn()
	}
}

// GraceServer listens on addr and serves handler until a shutdown signal.
func GraceServer(addr string, handler http.Handler, onShutdown ...func()) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen error: %w", err)
	}
	return NewServer(addr, handler, onShutdown...).Serve(context.Background(), ln)
}
