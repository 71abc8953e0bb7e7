// Package middleware keeps the per-environment middleware stacks and builds
// the wrapped application out of them
package middleware

import (
	"net/http"
)

// Server is the view of the running handler given to conditional
// descriptors
type Server interface {
	Name() string
}

// Constructor creates a middleware layer around inner using the arguments
// stored in the Entry
type Constructor func(inner http.Handler, args ...any) (http.Handler, error)

// Descriptor describes one middleware layer. It is either an Entry or a
// Producer, and is only evaluated when the application is built.
type Descriptor interface {
	materialize(srv Server) (Entry, bool)
}

// Entry is a middleware layer known in advance
type Entry struct {
	Name string
	New  Constructor
	Args []any
}

func (e Entry) materialize(Server) (Entry, bool) {
	return e, true
}

// Producer is a middleware layer that depends on the handler the application
// runs under. Returning false means that the layer is left out.
type Producer func(srv Server) (Entry, bool)

func (p Producer) materialize(srv Server) (Entry, bool) {
	return p(srv)
}

// Func makes an Entry out of a middleware that takes no arguments
func Func(name string, mw func(http.Handler) http.Handler) Entry {
	return Entry{
		Name: name,
		New: func(inner http.Handler, _ ...any) (http.Handler, error) {
			return mw(inner), nil
		},
	}
}
