package thttp

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"

	"github.com/kevinpollet/nego"
	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ShowExceptions is a middleware that catches panics from the handlers it
// wraps and responds with status 500 and a page describing the panic: its
// value, the stack at the panic location and the request.
//
// The page is rendered as HTML for clients that accept it and as plain text
// otherwise. If the response header is already sent when the panic happens,
// the panic is only logged.
//
// It is meant for development: the page exposes the internals of the server.
func ShowExceptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Record(w)
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}
			stack := debug.Stack()
			tlog.Get(r.Context()).Error("Panic while handling HTTP request",
				zap.String("panic", fmt.Sprint(p)), zap.ByteString("stack", stack))
			if rec.HeaderSent() {
				return
			}
			writeException(rec, r, exception{
				Value:   fmt.Sprint(p),
				Type:    fmt.Sprintf("%T", p),
				Stack:   string(stack),
				Method:  r.Method,
				URL:     r.URL.String(),
				Headers: sortedHeaders(r.Header),
			})
		}()
		next.ServeHTTP(rec, r)
	})
}

type exception struct {
	Value   string
	Type    string
	Stack   string
	Method  string
	URL     string
	Headers [][2]string
}

var exceptionPage = template.Must(template.New("exception").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Type}} at {{.URL}}</title></head>
<body>
<h1>{{.Type}}: {{.Value}}</h1>
<h2>{{.Method}} {{.URL}}</h2>
<h3>Stack</h3>
<pre>{{.Stack}}</pre>
<h3>Request headers</h3>
<table>
{{range .Headers}}<tr><th>{{index . 0}}</th><td>{{index . 1}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func writeException(w http.ResponseWriter, r *http.Request, e exception) {
	w.Header().Del("Content-Length")
	if nego.NegotiateContentType(r, "text/plain", "text/html") == "text/html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		if err := exceptionPage.Execute(w, e); err != nil {
			tlog.Get(r.Context()).Debug("Failed to write exception page", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, err := fmt.Fprintf(w, "%s: %s\n%s %s\n\n%s", e.Type, e.Value, e.Method, e.URL, e.Stack)
	if err != nil {
		tlog.Get(r.Context()).Debug("Failed to write exception page", zap.Error(err))
	}
}

func sortedHeaders(h http.Header) [][2]string {
	names := maps.Keys(h)
	slices.Sort(names)

	res := make([][2]string, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			res = append(res, [2]string{name, v})
		}
	}
	return res
}
