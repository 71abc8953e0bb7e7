package thttp

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ridge/launch/test"
	"github.com/ridge/launch/tnet"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	group := test.Group(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("hello"))
		assert.NoError(t, err)
	})

	s := NewServer(tnet.ListenOnRandomPort(), Wrap(handler, Log, ShowExceptions, Lint))
	group.Spawn("server", parallel.Fail, s.Run)

	res, err := http.DefaultClient.Do(must.OK1(http.NewRequestWithContext(group.Context(), http.MethodGet, "http://"+s.ListenAddr().String(), nil)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
	res.Body.Close()
}

func TestServerShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	s := NewServer(tnet.ListenOnRandomPort(), http.NotFoundHandler())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(DefaultShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "app")
	})

	res := Test(Wrap(app, mw("first"), mw("second")), must.OK1(http.NewRequest(http.MethodGet, "/", nil)))
	res.Body.Close()
	assert.Equal(t, []string{"first", "second", "app"}, order)
}
