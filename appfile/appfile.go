// Package appfile builds the application served by launch out of a
// declarative configuration file.
//
// The file is YAML, or JSON or TOML if its extension says so:
//
//	options: -p 8080 -E deployment
//	cors: true
//	routes:
//	  - path: /
//	    methods: [GET]
//	    text: hello
//	  - path: /static/
//	    dir: public
//	  - path: /favicon.ico
//	    file: favicon.ico
//	  - path: /api/
//	    proxy: http://127.0.0.1:8080
//	  - path: /old
//	    redirect: /new
//	  - path: /metrics
//	    metrics: true
//
// A path ending with "/" matches everything below it. Relative file and
// directory names are resolved against the directory of the configuration
// file. Each route has exactly one of text, dir, file, proxy, redirect and
// metrics.
//
// "cors: true" allows cross-origin requests from anywhere. A map narrows it
// down; lists left out keep their defaults:
//
//	cors:
//	  origins: [https://app.example.com]
//	  methods: [GET, POST]
//	  headers: [Content-Type, X-Token]
//	  expose: [Content-Length]
//	  credentials: true
//	  max_age: 600
package appfile

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ridge/launch/thttp"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// OptionParser applies command line options found in the configuration file
type OptionParser interface {
	ParseEmbedded(args []string) error
}

// Route is a single entry of the routes list
type Route struct {
	Path        string   `mapstructure:"path"`
	Methods     []string `mapstructure:"methods"`
	Text        *string  `mapstructure:"text"`
	Status      int      `mapstructure:"status"`
	ContentType string   `mapstructure:"content_type"`
	Dir         string   `mapstructure:"dir"`
	File        string   `mapstructure:"file"`
	Proxy       string   `mapstructure:"proxy"`
	Redirect    string   `mapstructure:"redirect"`
	Metrics     bool     `mapstructure:"metrics"`
}

// CORS is the map form of the cors section
type CORS struct {
	Origins     []string `mapstructure:"origins"`
	Methods     []string `mapstructure:"methods"`
	Headers     []string `mapstructure:"headers"`
	Expose      []string `mapstructure:"expose"`
	Credentials bool     `mapstructure:"credentials"`
	MaxAge      int      `mapstructure:"max_age"`
}

// Loader reads configuration files
type Loader struct {
	// Registry, if set, receives the request metrics of every loaded
	// application and is exposed by metrics routes. If nil, requests are
	// only counted when the file has a metrics route, into a registry of
	// its own that also carries the Go runtime and process collectors.
	Registry *prometheus.Registry
}

// Load reads the configuration file at path, passes its embedded options to
// flags and returns the application it describes
func (l *Loader) Load(path string, flags OptionParser) (http.Handler, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, LoadError{Path: path, Cause: err}
	}

	if options := v.GetStringSlice("options"); len(options) > 0 && flags != nil {
		if err := flags.ParseEmbedded(options); err != nil {
			return nil, err
		}
	}

	cors, err := corsMiddleware(v.Get("cors"))
	if err != nil {
		return nil, LoadError{Path: path, Cause: err}
	}

	var routes []Route
	err = v.UnmarshalKey("routes", &routes, func(c *mapstructure.DecoderConfig) {
		c.ErrorUnused = true
	})
	if err != nil {
		return nil, LoadError{Path: path, Cause: err}
	}
	if len(routes) == 0 {
		return nil, LoadError{Path: path, Cause: errors.New("no routes defined")}
	}

	b := builder{
		dir:      filepath.Dir(path),
		router:   mux.NewRouter(),
		registry: l.Registry,
	}
	for i, route := range routes {
		if err := b.add(route); err != nil {
			var re RouteError
			if errors.As(err, &re) {
				re.Index = i
				return nil, re
			}
			return nil, RouteError{Index: i, Path: route.Path, Problem: err.Error()}
		}
	}

	var app http.Handler = b.router
	if b.registry != nil {
		app = instrument(app, b.registry)
	}
	if cors != nil {
		app = cors(app)
	}
	return app, nil
}

func corsMiddleware(section any) (func(http.Handler) http.Handler, error) {
	switch section := section.(type) {
	case nil:
		return nil, nil
	case bool:
		if !section {
			return nil, nil
		}
		return thttp.CORS, nil
	case map[string]any:
		var c CORS
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &c, ErrorUnused: true})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(section); err != nil {
			return nil, fmt.Errorf("cors: %w", err)
		}
		if c.Credentials && (len(c.Origins) == 0 || slices.Contains(c.Origins, "*")) {
			return nil, errors.New("cors: credentials need an explicit list of origins")
		}
		if c.MaxAge < 0 {
			return nil, fmt.Errorf("cors: invalid max_age %d", c.MaxAge)
		}
		return thttp.NewCORS(thttp.CORSConfig(c)), nil
	default:
		return nil, fmt.Errorf("cors: expected true, false or a map, got %v", section)
	}
}

func configType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch ext {
	case "json", "toml", "yaml", "yml":
		return ext
	default:
		return "yaml"
	}
}

// Exists tells whether the configuration file is present
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r Route) actions() []string {
	var res []string
	if r.Text != nil {
		res = append(res, "text")
	}
	if r.Dir != "" {
		res = append(res, "dir")
	}
	if r.File != "" {
		res = append(res, "file")
	}
	if r.Proxy != "" {
		res = append(res, "proxy")
	}
	if r.Redirect != "" {
		res = append(res, "redirect")
	}
	if r.Metrics {
		res = append(res, "metrics")
	}
	return res
}

func (r Route) check() error {
	if !strings.HasPrefix(r.Path, "/") {
		return RouteError{Path: r.Path, Problem: "path must start with /"}
	}
	switch actions := r.actions(); len(actions) {
	case 0:
		return RouteError{Path: r.Path, Problem: "no action (text, dir, file, proxy, redirect or metrics)"}
	case 1:
	default:
		return RouteError{Path: r.Path, Problem: fmt.Sprintf("more than one action: %s", strings.Join(actions, ", "))}
	}
	if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
		return RouteError{Path: r.Path, Problem: fmt.Sprintf("invalid status %d", r.Status)}
	}
	return nil
}
