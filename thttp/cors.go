package thttp

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORSConfig lists what cross-origin requests may do. Empty lists fall back
// to DefaultCORSConfig.
type CORSConfig struct {
	Origins     []string
	Methods     []string
	Headers     []string
	Expose      []string
	Credentials bool
	MaxAge      int // seconds preflight responses may be cached, 0 to leave unset
}

// DefaultCORSConfig allows the usual methods and request headers from any
// origin, which is what "cors: true" in a configuration file asks for
var DefaultCORSConfig = CORSConfig{
	Origins: []string{"*"},
	Methods: []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodOptions,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
	},
	Headers: []string{
		"Authorization",
		"Cache-Control",
		"Content-Type",
		"If-Modified-Since",
		"Range",
		"X-Requested-With",
	},
	Expose: []string{"Content-Length", "Content-Range"},
}

func (c CORSConfig) withDefaults() CORSConfig {
	if len(c.Origins) == 0 {
		c.Origins = DefaultCORSConfig.Origins
	}
	if len(c.Methods) == 0 {
		c.Methods = DefaultCORSConfig.Methods
	}
	if len(c.Headers) == 0 {
		c.Headers = DefaultCORSConfig.Headers
	}
	if len(c.Expose) == 0 {
		c.Expose = DefaultCORSConfig.Expose
	}
	return c
}

// NewCORS returns a middleware answering preflight requests and decorating
// responses to cross-origin requests as c allows
func NewCORS(c CORSConfig) func(http.Handler) http.Handler {
	c = c.withDefaults()
	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(c.Origins),
		handlers.AllowedMethods(c.Methods),
		handlers.AllowedHeaders(c.Headers),
		handlers.ExposedHeaders(c.Expose),
	}
	if c.Credentials {
		opts = append(opts, handlers.AllowCredentials())
	}
	if c.MaxAge > 0 {
		opts = append(opts, handlers.MaxAge(c.MaxAge))
	}
	return handlers.CORS(opts...)
}

// CORS is NewCORS with DefaultCORSConfig
var CORS = NewCORS(DefaultCORSConfig)
