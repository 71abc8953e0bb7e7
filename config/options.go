// Package config turns the command line into launch Options
package config

// Defaults
const (
	DefaultEnvironment = "development"
	DefaultPort        = 9292
	DefaultHost        = "0.0.0.0"
	DefaultConfigFile  = "config.ru"
)

// CGIIndicator is the environment variable whose presence means that the
// process was started by a web server as a CGI script
const CGIIndicator = "REQUEST_METHOD"

// Options is the complete launch configuration
type Options struct {
	Environment string   // selects the middleware stack
	PIDPath     string   // absolute; empty: no PID file
	Port        int      // listen port
	Host        string   // listen host
	AccessLog   []string // access log files written by the handler
	Server      string   // handler name; empty: platform default
	Daemonize   bool     // detach into background before serving
	ConfigFile  string   // absolute path of the configuration file

	Debug    bool     // debug logging and startup dump
	Warnings bool     // stack traces on warnings
	LoadPath []string // directories searched for plugin libraries
	Require  []string // libraries loaded before the application, in order
}

// Defaults returns the options used when nothing is given on the command line.
// The configuration file is resolved against dir.
func Defaults(dir string) Options {
	return Options{
		Environment: DefaultEnvironment,
		Port:        DefaultPort,
		Host:        DefaultHost,
		AccessLog:   []string{},
		ConfigFile:  resolve(dir, DefaultConfigFile),
	}
}
