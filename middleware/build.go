package middleware

import (
	"fmt"
	"net/http"
)

// ConstructError is returned by Build when a layer cannot be created
type ConstructError struct {
	Name  string
	Cause error
}

func (e ConstructError) Error() string {
	return fmt.Sprintf("failed to construct middleware %s: %v", e.Name, e.Cause)
}

func (e ConstructError) Unwrap() error {
	return e.Cause
}

// Build wraps base into the layers described by descriptors. The first
// descriptor becomes the outermost layer, the one to see requests first.
//
// Producers are evaluated with srv; the ones that return no entry add no
// layer. An empty list returns base itself.
func Build(base http.Handler, descriptors []Descriptor, srv Server) (http.Handler, error) {
	app := base
	for i := len(descriptors) - 1; i >= 0; i-- {
		entry, ok := descriptors[i].materialize(srv)
		if !ok {
			continue
		}
		next, err := entry.New(app, entry.Args...)
		if err != nil {
			return nil, ConstructError{Name: entry.Name, Cause: err}
		}
		app = next
	}
	return app, nil
}

// Materialize returns the entries Build would construct with the same
// arguments, outermost first
func Materialize(descriptors []Descriptor, srv Server) []Entry {
	var res []Entry
	for _, d := range descriptors {
		if entry, ok := d.materialize(srv); ok {
			res = append(res, entry)
		}
	}
	return res
}
