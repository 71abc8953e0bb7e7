// Package thttp contains the HTTP serving pieces an application is run with:
// the server, the middleware installed around the application and a few
// handlers used by configuration files.
//
// # HTTP Server
//
// thttp.Server is controlled with a context passed to its Run method instead
// of the start-and-stop paradigm of http.Server. Every incoming request gets a
// context inherited from the one passed to Run, so the logger stored there is
// available to handlers:
//
//	logger := tlog.Get(r.Context())
//
// During shutdown the request contexts stay open for up to five seconds
// longer than the parent context to let running requests complete.
//
// # Middleware
//
// A middleware is a function that takes an http.Handler and returns an
// http.Handler. thttp.Wrap applies several of them so that the first one
// listed is the first to see the incoming request:
//
//	handler = thttp.Wrap(app, thttp.Log, thttp.ShowExceptions, thttp.Lint)
//
// The middleware available here:
//
// * Log logs before and after each request at Debug level.
//
// * CommonLogger writes access log lines in the Common Log Format.
//
// * ShowExceptions turns a panic into a 500 page describing it.
//
// * Lint panics on requests and responses that break the HTTP rules, and is
// meant to be installed inside ShowExceptions.
//
// * CORS allows cross-origin requests.
package thttp
