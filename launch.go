package launch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/ridge/launch/appfile"
	"github.com/ridge/launch/config"
	"github.com/ridge/launch/daemon"
	"github.com/ridge/launch/handler"
	"github.com/ridge/launch/middleware"
	"github.com/ridge/launch/run"
	"github.com/ridge/launch/tlog"
	"go.uber.org/zap"
)

// AppLoader turns a configuration file into the application
type AppLoader interface {
	Load(path string, flags appfile.OptionParser) (http.Handler, error)
}

// Bootstrap holds everything needed to start the application. Each of its
// stages is computed once, on first use.
type Bootstrap struct {
	Parser     *config.Parser
	Loader     AppLoader
	Handlers   *handler.Registry
	Middleware *middleware.Registry
	// Daemonize detaches the process; it returns daemon.Detached in the
	// process that should exit
	Daemonize func(ctx context.Context) error
	// AtExit registers cleanup run when the process exits
	AtExit func(hook func())

	options    func() (*config.Options, error)
	app        func() (http.Handler, error)
	handler    func() (handler.Handler, error)
	wrappedApp func() (http.Handler, error)
}

// New creates a Bootstrap for the command line args (without the program
// name), with the built-in handlers and middleware
func New(args []string) *Bootstrap {
	b := &Bootstrap{
		Parser:     &config.Parser{Extra: run.Flags()},
		Loader:     &appfile.Loader{},
		Handlers:   handler.Builtin(),
		Middleware: middleware.NewRegistry(os.Stderr),
		Daemonize:  daemon.Daemonize,
		AtExit:     run.AtExit,
	}
	b.options = sync.OnceValues(func() (*config.Options, error) {
		return b.Parser.Parse(args)
	})
	b.app = sync.OnceValues(b.loadApp)
	b.handler = sync.OnceValues(b.resolveHandler)
	b.wrappedApp = sync.OnceValues(b.buildApp)
	return b
}

// Options returns the parsed command line. Options embedded in the
// configuration file are only included after App.
func (b *Bootstrap) Options() (*config.Options, error) {
	return b.options()
}

// App returns the application described by the configuration file
func (b *Bootstrap) App() (http.Handler, error) {
	return b.app()
}

// Handler returns the server handler the application runs under. The
// configuration file is loaded first, as it may choose the handler.
func (b *Bootstrap) Handler() (handler.Handler, error) {
	return b.handler()
}

// WrappedApp returns the application inside the middleware stack of the
// environment
func (b *Bootstrap) WrappedApp() (http.Handler, error) {
	return b.wrappedApp()
}

func (b *Bootstrap) loadApp() (http.Handler, error) {
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	if !appfile.Exists(opts.ConfigFile) {
		return nil, config.ConfigFileNotFoundError{Path: opts.ConfigFile}
	}
	return b.Loader.Load(opts.ConfigFile, b.Parser)
}

func (b *Bootstrap) resolveHandler() (handler.Handler, error) {
	if _, err := b.App(); err != nil {
		return nil, err
	}
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	return b.Handlers.Resolve(opts.Server)
}

func (b *Bootstrap) buildApp() (http.Handler, error) {
	app, err := b.App()
	if err != nil {
		return nil, err
	}
	h, err := b.Handler()
	if err != nil {
		return nil, err
	}
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	return middleware.Build(app, b.Middleware.ForEnvironment(opts.Environment), h)
}

// Start runs the application until ctx is closed or the handler stops.
//
// Everything that can fail because of the command line or the configuration
// file is done before the process detaches, so such errors reach the
// terminal.
func (b *Bootstrap) Start(ctx context.Context) error {
	h, err := b.Handler()
	if err != nil {
		return err
	}
	app, err := b.WrappedApp()
	if err != nil {
		return err
	}
	opts, err := b.Options()
	if err != nil {
		return err
	}

	logger := tlog.Get(ctx)
	if opts.Debug {
		layers := middleware.Materialize(b.Middleware.ForEnvironment(opts.Environment), h)
		names := make([]string, 0, len(layers))
		for _, l := range layers {
			names = append(names, l.Name)
		}
		base, _ := b.App()
		logger.Debug("Starting",
			zap.String("handler", h.Name()),
			zap.String("environment", opts.Environment),
			zap.Strings("middleware", names),
			zap.String("app", fmt.Sprintf("%T", base)),
			zap.String("config", opts.ConfigFile))
	}

	if opts.PIDPath != "" {
		if err := daemon.CheckPID(opts.PIDPath); err != nil {
			return err
		}
	}
	if opts.Daemonize {
		if err := b.Daemonize(ctx); err != nil {
			return err
		}
	}
	if opts.PIDPath != "" {
		if err := daemon.WritePID(opts.PIDPath, b.AtExit); err != nil {
			return err
		}
	}

	logger.Info("Starting server", zap.String("handler", h.Name()), zap.String("environment", opts.Environment))
	return h.Run(ctx, app, opts)
}

// Main starts the application with the command line of the process. It does
// not return.
func Main() {
	run.Server(New(os.Args[1:]).Start)
}
