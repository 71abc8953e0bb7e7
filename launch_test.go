package launch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ridge/launch/appfile"
	"github.com/ridge/launch/config"
	"github.com/ridge/launch/daemon"
	"github.com/ridge/launch/handler"
	"github.com/ridge/launch/middleware"
	"github.com/ridge/launch/test"
	"github.com/ridge/launch/thttp"
	"github.com/ridge/must/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	name string
	run  func(ctx context.Context, app http.Handler, opts *config.Options) error
}

func (h *fakeHandler) Name() string {
	return h.name
}

func (h *fakeHandler) Run(ctx context.Context, app http.Handler, opts *config.Options) error {
	return h.run(ctx, app, opts)
}

type fixture struct {
	b        *Bootstrap
	dir      string
	accesses *bytes.Buffer
	hooks    []func()
	steps    []string
}

func newFixture(t *testing.T, configFile string, args ...string) *fixture {
	f := &fixture{dir: t.TempDir(), accesses: &bytes.Buffer{}}
	if configFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, "config.ru"), []byte(configFile), 0o644))
	}

	f.b = New(args)
	f.b.Parser.Extra = nil
	f.b.Parser.LookupEnv = func(string) (string, bool) { return "", false }
	f.b.Parser.Getwd = func() (string, error) { return f.dir, nil }
	f.b.Parser.Stdout = io.Discard
	f.b.Parser.Stderr = io.Discard
	f.b.Middleware = middleware.NewRegistry(f.accesses)
	f.b.Handlers = handler.NewRegistry()
	f.b.Handlers.LookupEnv = f.b.Parser.LookupEnv
	f.b.Daemonize = func(context.Context) error {
		f.steps = append(f.steps, "daemonize")
		return nil
	}
	f.b.AtExit = func(hook func()) {
		f.steps = append(f.steps, "atExit")
		f.hooks = append(f.hooks, hook)
	}
	return f
}

func (f *fixture) register(name string, run func(ctx context.Context, app http.Handler, opts *config.Options) error) {
	f.b.Handlers.Register(name, &fakeHandler{name: name, run: run})
}

const helloApp = `
routes:
  - path: /
    text: hello
`

func TestStart(t *testing.T) {
	f := newFixture(t, helloApp, "-E", "deployment")
	var served string
	f.register("standard", func(ctx context.Context, app http.Handler, opts *config.Options) error {
		f.steps = append(f.steps, "run")
		assert.Equal(t, "deployment", opts.Environment)
		res := thttp.TestCtx(ctx, app, httptest.NewRequest(http.MethodGet, "/", nil))
		defer res.Body.Close()
		served = string(must.OK1(io.ReadAll(res.Body)))
		return nil
	})

	require.NoError(t, f.b.Start(test.Context(t)))
	assert.Equal(t, "hello", served)
	assert.Equal(t, []string{"run"}, f.steps)
	assert.Contains(t, f.accesses.String(), `"GET / HTTP/1.1" 200 5`)
}

func TestStartSequence(t *testing.T) {
	f := newFixture(t, helloApp, "-D", "-P", "app.pid")
	pidPath := filepath.Join(f.dir, "app.pid")
	f.register("standard", func(ctx context.Context, app http.Handler, opts *config.Options) error {
		f.steps = append(f.steps, "run")
		assert.Equal(t, strconv.Itoa(os.Getpid()), string(must.OK1(os.ReadFile(pidPath))))
		return context.Canceled
	})

	err := f.b.Start(test.Context(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"daemonize", "atExit", "run"}, f.steps)

	for _, hook := range f.hooks {
		hook()
	}
	assert.NoFileExists(t, pidPath)
}

func TestStartInBackground(t *testing.T) {
	f := newFixture(t, helloApp, "-D", "-P", "app.pid", "--access-log", "access.log")
	test.Chdir(t, f.dir)
	wd := must.OK1(os.Getwd())
	f.b.Parser.Getwd = nil
	f.b.Daemonize = daemon.Daemonize
	t.Setenv(daemon.Marker, "1")

	var ran bool
	f.register("standard", func(ctx context.Context, app http.Handler, opts *config.Options) error {
		ran = true
		assert.Equal(t, "/", must.OK1(os.Getwd()))
		assert.Equal(t, filepath.Join(wd, "config.ru"), opts.ConfigFile)
		assert.Equal(t, filepath.Join(wd, "app.pid"), opts.PIDPath)
		assert.Equal(t, []string{filepath.Join(wd, "access.log")}, opts.AccessLog)
		assert.FileExists(t, opts.PIDPath)
		return nil
	})

	require.NoError(t, f.b.Start(test.Context(t)))
	assert.True(t, ran)
}

func TestStartDetached(t *testing.T) {
	f := newFixture(t, helloApp, "--daemonize", "--pid", "app.pid")
	f.b.Daemonize = func(context.Context) error {
		return daemon.Detached
	}
	f.register("standard", func(context.Context, http.Handler, *config.Options) error {
		t.Fatal("handler run in the foreground process")
		return nil
	})

	err := f.b.Start(test.Context(t))
	assert.True(t, daemon.IsDetached(err))
	assert.NoFileExists(t, filepath.Join(f.dir, "app.pid"))
}

func TestConfigFileNotFound(t *testing.T) {
	f := newFixture(t, "")
	f.register("standard", func(context.Context, http.Handler, *config.Options) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := f.b.Start(test.Context(t))
	var notFound config.ConfigFileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(f.dir, "config.ru"), notFound.Path)
}

func TestNoHandler(t *testing.T) {
	f := newFixture(t, helloApp)
	err := f.b.Start(test.Context(t))
	assert.ErrorIs(t, err, handler.ErrNoHandler)
}

func TestEmbeddedOptions(t *testing.T) {
	f := newFixture(t, "options: -s special -E deployment\n"+helloApp, "-p", "1234")
	f.register("standard", func(context.Context, http.Handler, *config.Options) error {
		t.Fatal("wrong handler")
		return nil
	})
	var got *config.Options
	f.register("special", func(_ context.Context, _ http.Handler, opts *config.Options) error {
		got = opts
		return nil
	})

	require.NoError(t, f.b.Start(test.Context(t)))
	require.NotNil(t, got)
	assert.Equal(t, 1234, got.Port)
	assert.Equal(t, "deployment", got.Environment)
	assert.Equal(t, "special", got.Server)
}

func TestDevelopmentUnderCGI(t *testing.T) {
	f := newFixture(t, helloApp, "-s", "cgi-like")
	f.b.Handlers.Register("cgi-like", &fakeHandler{name: "CGI", run: func(ctx context.Context, app http.Handler, _ *config.Options) error {
		res := thttp.TestCtx(ctx, app, httptest.NewRequest(http.MethodGet, "/", nil))
		res.Body.Close()
		return nil
	}})
	f.register("standard", func(context.Context, http.Handler, *config.Options) error {
		return errors.New("wrong handler")
	})

	require.NoError(t, f.b.Start(test.Context(t)))
	assert.Empty(t, f.accesses.String())
}

type countingLoader struct {
	AppLoader
	loads int
}

func (l *countingLoader) Load(path string, flags appfile.OptionParser) (http.Handler, error) {
	l.loads++
	return l.AppLoader.Load(path, flags)
}

func TestMemoized(t *testing.T) {
	f := newFixture(t, helloApp)
	loader := &countingLoader{AppLoader: f.b.Loader}
	f.b.Loader = loader
	f.register("standard", func(context.Context, http.Handler, *config.Options) error { return nil })

	_, err := f.b.WrappedApp()
	require.NoError(t, err)
	_, err = f.b.Handler()
	require.NoError(t, err)
	require.NoError(t, f.b.Start(test.Context(t)))
	assert.Equal(t, 1, loader.loads)

	opts1 := must.OK1(f.b.Options())
	opts2 := must.OK1(f.b.Options())
	assert.Same(t, opts1, opts2)
}

func TestHelp(t *testing.T) {
	f := newFixture(t, helloApp, "--help")
	err := f.b.Start(test.Context(t))
	assert.True(t, config.IsExit(err))
}
