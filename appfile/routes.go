package appfile

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ridge/launch/thttp"
	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
)

type builder struct {
	dir      string
	router   *mux.Router
	registry *prometheus.Registry
}

func (b *builder) add(r Route) error {
	if err := r.check(); err != nil {
		return err
	}
	h, err := b.handler(r)
	if err != nil {
		return err
	}

	var route *mux.Route
	if strings.HasSuffix(r.Path, "/") {
		route = b.router.PathPrefix(r.Path)
	} else {
		route = b.router.Path(r.Path)
	}
	if len(r.Methods) > 0 {
		route = route.Methods(r.Methods...)
	}
	route.Handler(h)
	return nil
}

func (b *builder) handler(r Route) (http.Handler, error) {
	switch {
	case r.Text != nil:
		return textHandler(*r.Text, r.Status, r.ContentType), nil
	case r.Dir != "":
		h := http.FileServer(http.Dir(b.resolve(r.Dir)))
		if strings.HasSuffix(r.Path, "/") {
			h = http.StripPrefix(strings.TrimSuffix(r.Path, "/"), h)
		}
		return h, nil
	case r.File != "":
		return thttp.GzipEnabledFileHandler(b.resolve(r.File))
	case r.Proxy != "":
		return proxyHandler(r.Proxy)
	case r.Redirect != "":
		status := r.Status
		if status == 0 {
			status = http.StatusFound
		}
		if status < 300 || status > 399 {
			return nil, fmt.Errorf("redirect status %d is not 3xx", status)
		}
		return http.RedirectHandler(r.Redirect, status), nil
	default:
		return b.metricsHandler(), nil
	}
}

func (b *builder) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.dir, path)
}

func textHandler(text string, status int, contentType string) http.Handler {
	if status == 0 {
		status = http.StatusOK
	}
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodyless := status < 200 || status == http.StatusNoContent || status == http.StatusNotModified
		if !bodyless {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		if bodyless || r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write([]byte(text)); err != nil {
			tlog.Get(r.Context()).Debug("Failed to write response", zap.Error(err))
		}
	})
}

func proxyHandler(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: need http(s)://host", target)
	}
	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.Transport = thttp.RetryingTransport()
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		tlog.Get(r.Context()).Warn("Proxy request failed", zap.String("upstream", target), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy, nil
}

func (b *builder) metricsHandler() http.Handler {
	if b.registry == nil {
		b.registry = prometheus.NewRegistry()
		b.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})
}

// instrument counts and times requests served by next
func instrument(next http.Handler, reg *prometheus.Registry) http.Handler {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests served.",
	}, []string{"code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "launch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "launch",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests being served.",
	})
	requests = register(reg, requests)
	duration = register(reg, duration)
	inFlight = register(reg, inFlight)

	return promhttp.InstrumentHandlerInFlight(inFlight,
		promhttp.InstrumentHandlerDuration(duration,
			promhttp.InstrumentHandlerCounter(requests, next)))
}

func register[C prometheus.Collector](reg *prometheus.Registry, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}
