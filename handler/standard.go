package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ridge/launch/config"
	"github.com/ridge/launch/thttp"
	"github.com/ridge/launch/tlog"
	"github.com/ridge/launch/tnet"
	"go.uber.org/zap"
)

// Standard serves HTTP/1.1 and HTTP/2 over TCP with the net/http server
type Standard struct{}

// Name implements Handler
func (Standard) Name() string {
	return "Standard"
}

// Run implements Handler.
//
// Every file in opts.AccessLog gets a line per request in the Common Log
// Format. The server shuts down gracefully when ctx is closed.
func (Standard) Run(ctx context.Context, app http.Handler, opts *config.Options) error {
	var mw []func(http.Handler) http.Handler
	for _, path := range opts.AccessLog {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open access log: %w", err)
		}
		defer f.Close()
		mw = append(mw, thttp.CommonLogger(f))
	}

	addr := tnet.Address(opts.Host, opts.Port)
	listener, err := tnet.Listen(addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	tlog.Get(ctx).Info("Listening", zap.Stringer("addr", listener.Addr()), zap.String("environment", opts.Environment))

	return thttp.NewServer(listener, thttp.Wrap(app, append([]func(http.Handler) http.Handler{thttp.Log}, mw...)...)).Run(ctx)
}
