package thttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ridge/launch/test"
	"github.com/ridge/launch/tnet"
	"github.com/ridge/must/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriable(t *testing.T) {
	assert.True(t, retriable(&net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}))
	assert.False(t, retriable(&net.DNSError{Err: "bad name", Name: "x"}))
	assert.True(t, retriable(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.False(t, retriable(&net.OpError{Op: "read", Err: errors.New("reset")}))
	assert.False(t, retriable(errors.New("other")))
}

func TestRetryingTransportGivesUp(t *testing.T) {
	l := tnet.ListenOnRandomPort()
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithTimeout(test.Context(t), 200*time.Millisecond)
	defer cancel()
	client := &http.Client{Transport: RetryingTransport()}
	started := time.Now()
	_, err := client.Do(must.OK1(http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr, nil)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
}

func TestRetryingTransportWaitsForUpstream(t *testing.T) {
	l := tnet.ListenOnRandomPort()
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	group := test.Group(t)
	go func() {
		time.Sleep(100 * time.Millisecond)
		l, err := tnet.Listen(addr)
		if !assert.NoError(t, err) {
			return
		}
		s := NewServer(l, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		_ = s.Run(group.Context())
	}()

	ctx, cancel := context.WithTimeout(group.Context(), 5*time.Second)
	defer cancel()
	client := &http.Client{Transport: RetryingTransport()}
	res, err := client.Do(must.OK1(http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr, nil)))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}
