package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/fcgi"
	"os"

	"github.com/ridge/launch/config"
	"github.com/ridge/launch/tlog"
	"github.com/ridge/launch/tnet"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// FastCGI serves FastCGI requests, either on the socket passed as standard
// input by a process manager or on Host:Port
type FastCGI struct{}

// Name implements Handler
func (FastCGI) Name() string {
	return "FastCGI"
}

// Run implements Handler
func (FastCGI) Run(ctx context.Context, app http.Handler, opts *config.Options) error {
	listener, err := fastCGIListener(opts)
	if err != nil {
		return err
	}
	tlog.Get(ctx).Info("Serving FastCGI", zap.Stringer("addr", listener.Addr()))

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			err := fcgi.Serve(listener, withLogger(ctx, app))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		})
		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			_ = listener.Close()
			return ctx.Err()
		})
		return nil
	})
}

func fastCGIListener(opts *config.Options) (net.Listener, error) {
	if _, err := unix.Getsockname(int(os.Stdin.Fd())); err == nil {
		listener, err := net.FileListener(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to use inherited FastCGI socket: %w", err)
		}
		return listener, nil
	}
	addr := tnet.Address(opts.Host, opts.Port)
	listener, err := tnet.Listen(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, nil
}
