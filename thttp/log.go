package thttp

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
)

// Log is a middleware that logs before and after handling of each request.
// Does not include logging of request and response bodies.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := tlog.With(r.Context(),
			zap.String("method", r.Method),
			zap.String("hostname", r.Host),
			zap.String("url", r.URL.String()),
		)
		logger := tlog.Get(ctx)
		logger.Debug("HTTP request handling started")
		rec := Record(w)
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.Debug("HTTP request handling ended",
			zap.Int("statusCode", rec.Status()),
			zap.Int64("bytes", rec.Written()),
			zap.Duration("elapsed", time.Since(started)))
	})
}

// CommonLogger returns a middleware that writes one line per request to out,
// in the Apache Common Log Format
func CommonLogger(out io.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.LoggingHandler(out, next)
	}
}
