// Package handler contains the server backends an application can run under
// and picks one of them by name
package handler

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/ridge/launch/config"
	"github.com/ridge/launch/tlog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Handler is a server backend. Run serves app until ctx is closed or the
// backend has nothing more to serve.
type Handler interface {
	Name() string
	Run(ctx context.Context, app http.Handler, opts *config.Options) error
}

// ErrNoHandler is returned by Resolve when the default handler is not
// registered
var ErrNoHandler = errors.New("no server handler available")

// FastCGIIndicator is the environment variable set by web servers that spawn
// FastCGI applications
const FastCGIIndicator = "PHP_FCGI_CHILDREN"

// Registry maps handler names to handlers
type Registry struct {
	// LookupEnv reads the process environment; os.LookupEnv by default
	LookupEnv func(key string) (string, bool)

	handlers map[string]Handler
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Builtin returns a Registry with the standard, cgi and fastcgi handlers
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("standard", Standard{})
	r.Register("cgi", CGI{})
	r.Register("fastcgi", FastCGI{})
	return r
}

// Register adds a handler under a name, replacing the previous one
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Get returns the handler registered under the exact name
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := maps.Keys(r.handlers)
	slices.Sort(names)
	return names
}

// DefaultName returns the name of the handler used when none is requested:
// fastcgi when started by a FastCGI process manager, cgi when started as a CGI
// script, standard otherwise
func (r *Registry) DefaultName() string {
	switch {
	case r.isSet(FastCGIIndicator):
		return "fastcgi"
	case r.isSet(config.CGIIndicator):
		return "cgi"
	default:
		return "standard"
	}
}

// Resolve returns the handler registered under the name. Unknown and empty
// names resolve to the default handler.
func (r *Registry) Resolve(name string) (Handler, error) {
	if h, ok := r.handlers[name]; ok {
		return h, nil
	}
	if h, ok := r.handlers[r.DefaultName()]; ok {
		return h, nil
	}
	return nil, ErrNoHandler
}

func (r *Registry) isSet(key string) bool {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	_, ok := lookup(key)
	return ok
}

// withLogger makes the logger of ctx available to requests served by
// backends that do not derive request contexts from ctx
func withLogger(ctx context.Context, next http.Handler) http.Handler {
	logger := tlog.Get(ctx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(tlog.WithLogger(r.Context(), logger)))
	})
}
