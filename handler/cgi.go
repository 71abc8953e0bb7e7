package handler

import (
	"context"
	"net/http"
	"net/http/cgi"

	"github.com/ridge/launch/config"
)

// CGI serves the single request of a CGI invocation on the standard streams
type CGI struct{}

// Name implements Handler
func (CGI) Name() string {
	return "CGI"
}

// Run implements Handler
func (CGI) Run(ctx context.Context, app http.Handler, _ *config.Options) error {
	return cgi.Serve(withLogger(ctx, app))
}
