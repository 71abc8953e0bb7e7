package thttp

import (
	"fmt"
	"net/http"
	"strings"
)

// LintError describes a request or a response that breaks the HTTP handler
// contract
type LintError struct {
	Problem string
}

func (e LintError) Error() string {
	return "lint: " + e.Problem
}

func violation(format string, args ...any) {
	panic(LintError{Problem: fmt.Sprintf(format, args...)})
}

// Lint is a middleware that checks the requests passed to the wrapped handler
// and the responses it produces, and panics with LintError on the first
// violation. It is meant to run inside ShowExceptions in development.
//
// Requests must have a method that is an HTTP token and a path that is
// absolute (or "*" for OPTIONS). Responses must use a status between 100 and
// 599, send the status only once, and must not carry Content-Type,
// Content-Length or a body with statuses 1xx, 204 and 304.
func Lint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lintRequest(r)
		next.ServeHTTP(&lintWriter{ResponseWriter: w}, r)
	})
}

func lintRequest(r *http.Request) {
	if r.Method == "" || strings.IndexFunc(r.Method, notTokenChar) >= 0 {
		violation("request method %q is not a token", r.Method)
	}
	if r.URL == nil {
		violation("request has no URL")
	}
	path := r.URL.Path
	switch {
	case path == "*" && r.Method == http.MethodOptions:
	case strings.HasPrefix(path, "/"):
	case path == "" && r.URL.Opaque == "":
	default:
		violation("request path %q is not absolute", path)
	}
	if r.Header == nil {
		violation("request has no header map")
	}
	if r.Body == nil {
		violation("request has no body (use http.NoBody)")
	}
}

func notTokenChar(c rune) bool {
	if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return false
	}
	return !strings.ContainsRune("!#$%&'*+-.^_`|~", c)
}

type lintWriter struct {
	http.ResponseWriter
	status int
}

func bodyless(status int) bool {
	return status < 200 || status == http.StatusNoContent || status == http.StatusNotModified
}

func (lw *lintWriter) WriteHeader(status int) {
	if lw.status != 0 {
		violation("status sent twice (%d, then %d)", lw.status, status)
	}
	if status < 100 || status > 599 {
		violation("status %d is out of range", status)
	}
	if bodyless(status) {
		for _, h := range []string{"Content-Type", "Content-Length"} {
			if _, ok := lw.Header()[h]; ok {
				violation("%s header found in %d response, not allowed", h, status)
			}
		}
	}
	lw.status = status
	lw.ResponseWriter.WriteHeader(status)
}

func (lw *lintWriter) Write(b []byte) (int, error) {
	if lw.status == 0 {
		lw.WriteHeader(http.StatusOK)
	}
	if len(b) > 0 && bodyless(lw.status) {
		violation("body written in %d response, not allowed", lw.status)
	}
	return lw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (lw *lintWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}
