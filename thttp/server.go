package thttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ridge/launch/tlog"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
)

// DefaultShutdownTimeout is how long running requests may take to complete
// once the server is asked to stop
const DefaultShutdownTimeout = 5 * time.Second

// Server serves an HTTP handler on a listener for as long as its context is
// open
type Server struct {
	// ShutdownTimeout overrides DefaultShutdownTimeout if positive
	ShutdownTimeout time.Duration

	listener net.Listener
	handler  http.Handler
	running  sync.WaitGroup
}

// NewServer creates a Server
func NewServer(listener net.Listener, handler http.Handler) *Server {
	return &Server{
		listener: listener,
		handler:  handler,
	}
}

// Run serves requests until ctx is closed, then shuts down gracefully.
//
// Request contexts are derived from ctx but stay open during the shutdown,
// so that running requests can complete.
func (s *Server) Run(ctx context.Context) error {
	ctx = tlog.With(ctx, zap.Stringer("httpServer", s.listener.Addr()))
	reqCtx, reqCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer reqCancel()

	server := &http.Server{
		Handler:           s.track(s.handler),
		ErrorLog:          must.OK1(zap.NewStdLogAt(tlog.Get(ctx), zap.WarnLevel)),
		ReadHeaderTimeout: time.Minute,
		BaseContext:       func(net.Listener) context.Context { return reqCtx },
		ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
			return tlog.With(ctx, zap.Stringer("remoteAddr", conn.RemoteAddr()))
		},
	}

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			return s.serve(ctx, server)
		})
		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			if err := s.shutdown(reqCtx, server); err != nil {
				return err
			}
			reqCancel() // hijacked connections are not covered by Shutdown
			s.running.Wait()
			tlog.Get(ctx).Info("Shutdown complete")
			return ctx.Err()
		})
		return nil
	})
}

func (s *Server) serve(ctx context.Context, server *http.Server) error {
	tlog.Get(ctx).Info("Serving requests")
	err := server.Serve(s.listener)
	// ErrServerClosed is the outcome of shutdown
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Server) shutdown(ctx context.Context, server *http.Server) error {
	logger := tlog.Get(ctx)
	logger.Info("Shutting down")

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer server.Close()

	// Errors other than the timeout come from closing the listener
	if err := server.Shutdown(ctx); err != nil && ctx.Err() != nil {
		logger.Info("Shutdown canceled", zap.Error(err))
		return err
	}
	return nil
}

// ListenAddr returns the local address of the server's listener
func (s *Server) ListenAddr() net.Addr {
	return s.listener.Addr()
}

// track counts running handlers, including the ones on hijacked connections
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.running.Add(1)
		defer s.running.Done()
		next.ServeHTTP(w, r)
	})
}

// Wrap installs a number of middleware on HTTP handler. The first
// middleware listed will be the first one to see the request.
func Wrap(handler http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}
