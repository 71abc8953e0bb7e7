package appfile

import (
	"fmt"
)

// LoadError means that the configuration file could not be read or is not
// valid
type LoadError struct {
	Path  string
	Cause error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Cause)
}

func (e LoadError) Unwrap() error {
	return e.Cause
}

// RouteError describes a route that cannot be served
type RouteError struct {
	Index   int
	Path    string
	Problem string
}

func (e RouteError) Error() string {
	return fmt.Sprintf("route #%d (%s): %s", e.Index+1, e.Path, e.Problem)
}
